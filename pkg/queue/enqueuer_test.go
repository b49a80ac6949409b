package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greetingPayload struct {
	Name string `json:"name"`
}

func TestNewEnqueuer(t *testing.T) {
	t.Parallel()

	_, err := NewEnqueuer(nil)
	assert.ErrorIs(t, err, ErrRepositoryNil)

	enq, err := NewEnqueuer(NewMemoryRepository())
	require.NoError(t, err)
	assert.NotNil(t, enq)
}

func TestEnqueuer_Enqueue(t *testing.T) {
	t.Parallel()

	t.Run("stores a pending task named after the payload type", func(t *testing.T) {
		t.Parallel()

		repo := NewMemoryRepository()
		enq, err := NewEnqueuer(repo)
		require.NoError(t, err)

		require.NoError(t, enq.Enqueue(context.Background(), greetingPayload{Name: "alice"}))

		pending := repo.Pending()
		require.Len(t, pending, 1)
		task := pending[0]
		assert.Equal(t, "queue.greetingPayload", task.TaskName)
		assert.Equal(t, DefaultQueueName, task.Queue)
		assert.Equal(t, TaskStatusPending, task.Status)
		assert.Equal(t, int8(3), task.MaxRetries)
		assert.JSONEq(t, `{"name":"alice"}`, string(task.Payload))
	})

	t.Run("nil payload rejected", func(t *testing.T) {
		t.Parallel()

		enq, err := NewEnqueuer(NewMemoryRepository())
		require.NoError(t, err)
		assert.ErrorIs(t, enq.Enqueue(context.Background(), nil), ErrPayloadNil)
	})

	t.Run("options override name, delay, and retries", func(t *testing.T) {
		t.Parallel()

		repo := NewMemoryRepository()
		enq, err := NewEnqueuer(repo, WithDefaultQueue("notifications"))
		require.NoError(t, err)

		before := time.Now()
		require.NoError(t, enq.Enqueue(context.Background(), greetingPayload{Name: "bob"},
			WithTaskName("custom.Name"),
			WithDelay(time.Minute),
			WithMaxRetries(1),
		))

		pending := repo.Pending()
		require.Len(t, pending, 1)
		task := pending[0]
		assert.Equal(t, "custom.Name", task.TaskName)
		assert.Equal(t, "notifications", task.Queue)
		assert.Equal(t, int8(1), task.MaxRetries)
		assert.True(t, task.ScheduledAt.After(before.Add(50*time.Second)))
	})
}

func TestTaskName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "queue.greetingPayload", TaskName(greetingPayload{}))
	assert.Equal(t, "queue.greetingPayload", TaskName(&greetingPayload{}))
}
