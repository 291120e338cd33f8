package loader

import (
	"context"
	"sync"
)

// Cancellable is anything that can be asked to stop.
type Cancellable interface {
	Cancel()
}

// CancelFunc adapts a plain function, such as a context.CancelFunc, to Cancellable.
type CancelFunc func()

// Cancel calls f
func (f CancelFunc) Cancel() { f() }

// Task owns a pending completion. Cancelling the task drops the completion
// and cancels the wrapped operation; completing it delivers at most once.
type Task[T any] struct {
	mu         sync.Mutex
	completion func(T, error)
	wrapped    Cancellable
}

// NewTask wraps completion and the cancel handle of the operation that will produce its result.
func NewTask[T any](completion func(T, error), wrapped Cancellable) *Task[T] {
	return &Task[T]{
		completion: completion,
		wrapped:    wrapped,
	}
}

// Complete delivers the result unless the task was cancelled or already completed.
func (t *Task[T]) Complete(value T, err error) {
	t.mu.Lock()
	completion := t.completion
	t.completion = nil
	t.mu.Unlock()

	if completion != nil {
		completion(value, err)
	}
}

// Cancel prevents any further delivery and cancels the wrapped operation.
// It is safe to call repeatedly and after completion.
func (t *Task[T]) Cancel() {
	t.mu.Lock()
	t.completion = nil
	wrapped := t.wrapped
	t.mu.Unlock()

	if wrapped != nil {
		wrapped.Cancel()
	}
}

// Start runs load on a new goroutine and delivers its result to completion
// through the returned Task. Cancelling the task cancels the context load runs with.
func Start[T any](ctx context.Context, load LoadFunc[T], completion func(T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	task := NewTask(completion, CancelFunc(cancel))

	go func() {
		defer cancel()

		value, err := load(ctx)
		task.Complete(value, err)
	}()

	return task
}
