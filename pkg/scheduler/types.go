package scheduler

import "context"

// Work is one schedulable task. The context it receives ends when the caller
// abandons the task, the future is stopped, or the scheduler shuts down.
type Work[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	Data T
	Err  error
}

// Future is the pending outcome of a submitted task. C yields exactly one
// Result; Stop cancels the task and resolves the future if it has not
// resolved yet.
type Future[T any] struct {
	c    chan T
	stop func()
}

func (f *Future[T]) C() <-chan T { return f.c }

func (f *Future[T]) Stop() { f.stop() }
