// Package queue implements the minimal asynchronous executor the
// notification dispatch layer defers to: an Enqueuer that stores JSON
// payload tasks, a polling Worker that claims and runs them through typed
// handlers, and an in-memory repository for development and tests.
//
// The executor owns retry policy; callers submit work fire-and-forget.
//
// # Usage
//
//	repo := queue.NewMemoryRepository()
//	enq, _ := queue.NewEnqueuer(repo)
//	_ = enq.Enqueue(ctx, SomeTask{...})
//
//	w, _ := queue.NewWorker(repo)
//	w.RegisterHandlers(queue.NewTaskHandler(func(ctx context.Context, t SomeTask) error {
//	    return process(ctx, t)
//	}))
//	_ = w.Start(ctx)
//	defer w.Stop()
package queue
