package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// WorkerRepository defines the storage operations the worker needs.
type WorkerRepository interface {
	// ClaimTask atomically claims the next pending task from the queues,
	// returning ErrNoTaskAvailable when there is nothing to do.
	ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string) (*Task, error)

	// CompleteTask marks the task as completed.
	CompleteTask(ctx context.Context, taskID uuid.UUID) error

	// FailTask records the error. The task is rescheduled while retries
	// remain and marked failed once they are exhausted.
	FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error
}

// Worker polls the repository and dispatches claimed tasks to registered
// handlers. One worker processes one task at a time: the callers of this
// module enqueue small dispatch batches, not bulk jobs.
type Worker struct {
	repo         WorkerRepository
	handlers     map[string]Handler
	queues       []string
	workerID     uuid.UUID
	pullInterval time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithQueues sets the queues the worker polls.
func WithQueues(queues ...string) WorkerOption {
	return func(w *Worker) {
		if len(queues) > 0 {
			w.queues = queues
		}
	}
}

// WithPullInterval sets the idle polling interval.
func WithPullInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pullInterval = d
		}
	}
}

// WithWorkerLogger sets the logger for the Worker.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// NewWorker creates a task worker.
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	w := &Worker{
		repo:         repo,
		handlers:     make(map[string]Handler),
		queues:       []string{DefaultQueueName},
		workerID:     uuid.New(),
		pullInterval: 5 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// RegisterHandlers registers task handlers by name.
func (w *Worker) RegisterHandlers(handlers ...Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range handlers {
		if h != nil {
			w.handlers[h.Name()] = h
		}
	}
}

// Start begins processing tasks in the background until Stop is called or
// the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return ErrWorkerStarted
	}
	if len(w.handlers) == 0 {
		w.mu.Unlock()
		return ErrNoHandlers
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

// Stop cancels processing and waits for the in-flight task to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		if err := w.processOne(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if !errors.Is(err, ErrNoTaskAvailable) {
				w.logger.LogAttrs(ctx, slog.LevelError, "Task processing failed",
					logger.Error(err),
				)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

func (w *Worker) processOne(ctx context.Context) error {
	task, err := w.repo.ClaimTask(ctx, w.workerID, w.queues)
	if err != nil {
		return err
	}

	w.mu.Lock()
	handler, ok := w.handlers[task.TaskName]
	w.mu.Unlock()
	if !ok {
		msg := fmt.Sprintf("no handler registered for task %q", task.TaskName)
		if err := w.repo.FailTask(ctx, task.ID, msg); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrNoHandlerForTask, task.TaskName)
	}

	if err := handler.Handle(ctx, task.Payload); err != nil {
		w.logger.LogAttrs(ctx, slog.LevelWarn, "Task handler failed",
			slog.String("task_name", task.TaskName),
			slog.String("task_id", task.ID.String()),
			logger.Error(err),
		)
		return w.repo.FailTask(ctx, task.ID, err.Error())
	}
	return w.repo.CompleteTask(ctx, task.ID)
}
