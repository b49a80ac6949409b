package notification

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// dispatchTaskName is the qualified task name the queue policy matches
// against.
var dispatchTaskName = queue.TaskName(DispatchTask{})

// Deliverer executes a dispatch task. InlineDeliverer runs it in the
// calling goroutine; QueuedDeliverer hands it to the asynchronous
// executor. Both produce the same observable outcome, only the execution
// point differs.
type Deliverer interface {
	Deliver(ctx context.Context, task DispatchTask) error
}

// InlineDeliverer runs dispatch tasks synchronously through an Engine.
type InlineDeliverer struct {
	engine *Engine
}

// NewInlineDeliverer creates an inline deliverer.
func NewInlineDeliverer(engine *Engine) *InlineDeliverer {
	return &InlineDeliverer{engine: engine}
}

// Deliver implements Deliverer.
func (d *InlineDeliverer) Deliver(ctx context.Context, task DispatchTask) error {
	return d.engine.runTask(ctx, task)
}

// QueuedDeliverer submits dispatch tasks to the queue. With perRecipient
// set, a batch is split into one task per recipient so a slow or failing
// recipient never delays the others inside a single task.
type QueuedDeliverer struct {
	enqueuer     *queue.Enqueuer
	perRecipient bool
}

// NewQueuedDeliverer creates a queue-backed deliverer.
func NewQueuedDeliverer(enqueuer *queue.Enqueuer, perRecipient bool) *QueuedDeliverer {
	return &QueuedDeliverer{
		enqueuer:     enqueuer,
		perRecipient: perRecipient,
	}
}

// Deliver implements Deliverer.
func (d *QueuedDeliverer) Deliver(ctx context.Context, task DispatchTask) error {
	if !d.perRecipient {
		return d.enqueuer.Enqueue(ctx, task)
	}
	for _, user := range task.Users {
		single := task
		single.Users = []User{user}
		if err := d.enqueuer.Enqueue(ctx, single); err != nil {
			return fmt.Errorf("failed to enqueue dispatch for user %s: %w", user.ID, err)
		}
	}
	return nil
}

// TaskHandler returns the queue handler that replays queued dispatch tasks
// through the engine. Register it on the worker processing the dispatch
// queue.
func (e *Engine) TaskHandler() queue.Handler {
	return queue.NewTaskHandler(func(ctx context.Context, task DispatchTask) error {
		return e.runTask(ctx, task)
	})
}
