package queue

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory implementation of the enqueuer and
// worker repositories. Suitable for development and testing.
type MemoryRepository struct {
	tasks map[uuid.UUID]*Task
	mu    sync.Mutex
}

// NewMemoryRepository creates an empty in-memory task repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tasks: make(map[uuid.UUID]*Task),
	}
}

func (r *MemoryRepository) CreateTask(ctx context.Context, task *Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *task
	r.tasks[task.ID] = &stored
	return nil
}

func (r *MemoryRepository) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var oldest *Task
	for _, task := range r.tasks {
		if task.Status != TaskStatusPending || task.ScheduledAt.After(now) {
			continue
		}
		if !slices.Contains(queues, task.Queue) {
			continue
		}
		if oldest == nil || task.ScheduledAt.Before(oldest.ScheduledAt) {
			oldest = task
		}
	}
	if oldest == nil {
		return nil, ErrNoTaskAvailable
	}

	oldest.Status = TaskStatusProcessing
	claimed := *oldest
	return &claimed, nil
}

func (r *MemoryRepository) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return ErrNoTaskAvailable
	}
	now := time.Now()
	task.Status = TaskStatusCompleted
	task.ProcessedAt = &now
	return nil
}

func (r *MemoryRepository) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return ErrNoTaskAvailable
	}

	task.Error = &errorMsg
	task.RetryCount++
	if task.RetryCount > task.MaxRetries {
		now := time.Now()
		task.Status = TaskStatusFailed
		task.ProcessedAt = &now
		return nil
	}

	// Linear backoff keyed on the retry count.
	task.Status = TaskStatusPending
	task.ScheduledAt = time.Now().Add(time.Duration(task.RetryCount) * time.Second)
	return nil
}

// Task returns a copy of the stored task, for inspection in tests.
func (r *MemoryRepository) Task(id uuid.UUID) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// Pending returns the tasks currently waiting to be claimed.
func (r *MemoryRepository) Pending() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []Task
	for _, task := range r.tasks {
		if task.Status == TaskStatusPending {
			pending = append(pending, *task)
		}
	}
	return pending
}
