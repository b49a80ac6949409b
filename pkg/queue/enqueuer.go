package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository defines the interface for task creation.
type EnqueuerRepository interface {
	CreateTask(ctx context.Context, task *Task) error
}

// Enqueuer submits tasks for deferred execution. It is the "asynchronous
// executor" capability consumed by callers that do not want to run work
// inline.
type Enqueuer struct {
	repo         EnqueuerRepository
	defaultQueue string
}

// EnqueuerOption configures an Enqueuer.
type EnqueuerOption func(*Enqueuer)

// WithDefaultQueue overrides the queue tasks are submitted to.
func WithDefaultQueue(name string) EnqueuerOption {
	return func(e *Enqueuer) {
		if name != "" {
			e.defaultQueue = name
		}
	}
}

// NewEnqueuer creates a new Enqueuer.
func NewEnqueuer(repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	e := &Enqueuer{
		repo:         repo,
		defaultQueue: DefaultQueueName,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type enqueueOptions struct {
	taskName   string
	delay      time.Duration
	maxRetries int8
}

// EnqueueOption configures a single Enqueue call.
type EnqueueOption func(*enqueueOptions)

// WithTaskName overrides the qualified-type task name.
func WithTaskName(name string) EnqueueOption {
	return func(o *enqueueOptions) { o.taskName = name }
}

// WithDelay schedules the task after the given duration.
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *enqueueOptions) { o.delay = d }
}

// WithMaxRetries sets how many times the worker retries a failing task.
func WithMaxRetries(n int8) EnqueueOption {
	return func(o *enqueueOptions) { o.maxRetries = n }
}

// Enqueue marshals the payload and stores a pending task named after the
// payload's type.
func (e *Enqueuer) Enqueue(ctx context.Context, payload any, opts ...EnqueueOption) error {
	if payload == nil {
		return ErrPayloadNil
	}

	options := &enqueueOptions{maxRetries: 3}
	for _, opt := range opts {
		opt(options)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	taskName := options.taskName
	if taskName == "" {
		taskName = TaskName(payload)
	}

	task := &Task{
		ID:          uuid.New(),
		Queue:       e.defaultQueue,
		TaskName:    taskName,
		Payload:     payloadBytes,
		Status:      TaskStatusPending,
		MaxRetries:  options.maxRetries,
		ScheduledAt: time.Now().Add(options.delay),
		CreatedAt:   time.Now(),
	}
	if err := e.repo.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to create task %q in queue %q: %w", task.TaskName, task.Queue, err)
	}
	return nil
}
