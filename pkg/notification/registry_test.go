package notification

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTypeStore wraps a TypeStore and counts writes.
type countingTypeStore struct {
	TypeStore
	mu      sync.Mutex
	creates int
	updates int
}

func (s *countingTypeStore) CreateType(ctx context.Context, nt NoticeType) error {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	return s.TypeStore.CreateType(ctx, nt)
}

func (s *countingTypeStore) UpdateType(ctx context.Context, nt NoticeType) error {
	s.mu.Lock()
	s.updates++
	s.mu.Unlock()
	return s.TypeStore.UpdateType(ctx, nt)
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	noticeType := NoticeType{
		Label:       "friends_invite",
		Display:     "Invitation Received",
		Description: "you received an invitation",
		Default:     2,
	}

	t.Run("creates absent type", func(t *testing.T) {
		t.Parallel()

		store := &countingTypeStore{TypeStore: NewMemoryStorage()}
		registry := NewRegistry(store)

		require.NoError(t, registry.Register(context.Background(), noticeType))
		assert.Equal(t, 1, store.creates)

		got, err := registry.Get(context.Background(), "friends_invite")
		require.NoError(t, err)
		assert.Equal(t, noticeType, *got)
	})

	t.Run("repeated registration is a no-op", func(t *testing.T) {
		t.Parallel()

		store := &countingTypeStore{TypeStore: NewMemoryStorage()}
		registry := NewRegistry(store)

		require.NoError(t, registry.Register(context.Background(), noticeType))
		require.NoError(t, registry.Register(context.Background(), noticeType))

		assert.Equal(t, 1, store.creates)
		assert.Equal(t, 0, store.updates)
	})

	t.Run("changed field triggers exactly one update", func(t *testing.T) {
		t.Parallel()

		store := &countingTypeStore{TypeStore: NewMemoryStorage()}
		registry := NewRegistry(store)

		require.NoError(t, registry.Register(context.Background(), noticeType))

		changed := noticeType
		changed.Display = "You Got Invited"
		require.NoError(t, registry.Register(context.Background(), changed))

		assert.Equal(t, 1, store.creates)
		assert.Equal(t, 1, store.updates)

		got, err := registry.Get(context.Background(), "friends_invite")
		require.NoError(t, err)
		assert.Equal(t, changed, *got)
	})

	t.Run("unknown label on get", func(t *testing.T) {
		t.Parallel()

		registry := NewRegistry(NewMemoryStorage())

		_, err := registry.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNoticeTypeNotFound)
	})
}
