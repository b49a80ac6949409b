package queue

import (
	"context"
	"encoding/json"
)

// Handler processes tasks of a single named type.
type Handler interface {
	Name() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// TaskHandlerFunc is the typed function a handler wraps.
type TaskHandlerFunc[T any] func(ctx context.Context, payload T) error

// NewTaskHandler creates a Handler that decodes payloads into T and calls
// the given function. The handler name is derived from T's qualified type
// name, matching what Enqueue stores.
func NewTaskHandler[T any](handler TaskHandlerFunc[T]) Handler {
	var payload T
	return &taskHandler[T]{
		name:    TaskName(payload),
		handler: handler,
	}
}

type taskHandler[T any] struct {
	name    string
	handler TaskHandlerFunc[T]
}

func (h *taskHandler[T]) Name() string {
	return h.name
}

func (h *taskHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return err
	}
	return h.handler(ctx, t)
}
