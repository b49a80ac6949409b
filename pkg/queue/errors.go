package queue

import "errors"

var (
	ErrRepositoryNil    = errors.New("queue.errors.repository_nil")
	ErrPayloadNil       = errors.New("queue.errors.payload_nil")
	ErrNoTaskAvailable  = errors.New("queue.errors.no_task_available")
	ErrNoHandlerForTask = errors.New("queue.errors.no_handler_for_task")
	ErrWorkerStarted    = errors.New("queue.errors.worker_already_started")
	ErrNoHandlers       = errors.New("queue.errors.no_handlers_registered")
)
