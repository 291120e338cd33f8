package loader

import (
	"context"
	"sync"
)

// Executor runs functions in a particular execution context. Decorating a
// completion with an Executor changes where it is delivered, never what is delivered.
type Executor interface {
	Execute(ctx context.Context, fn func(ctx context.Context))
}

type inlineExecutor struct{}

func (inlineExecutor) Execute(ctx context.Context, fn func(ctx context.Context)) {
	fn(ctx)
}

// Inline runs every function immediately on the calling goroutine.
var Inline Executor = inlineExecutor{}

// DeliverOn wraps completion so it is invoked through exec.
func DeliverOn[T any](ctx context.Context, exec Executor, completion func(T, error)) func(T, error) {
	return func(value T, err error) {
		exec.Execute(ctx, func(context.Context) {
			completion(value, err)
		})
	}
}

type queueKey struct{}

type job struct {
	ctx context.Context
	fn  func(ctx context.Context)
}

// Queue is a serial Executor backed by a single goroutine. Functions
// submitted from code already running on the queue run inline.
type Queue struct {
	jobs      chan job
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue starts a queue that buffers up to size pending functions
func NewQueue(size int) *Queue {
	q := &Queue{
		jobs: make(chan job, size),
		done: make(chan struct{}),
	}

	go q.run()

	return q
}

// Execute schedules fn on the queue. It blocks while the buffer is full and
// drops fn once the queue is closed.
func (q *Queue) Execute(ctx context.Context, fn func(ctx context.Context)) {
	if current, ok := ctx.Value(queueKey{}).(*Queue); ok && current == q {
		fn(ctx)
		return
	}

	select {
	case q.jobs <- job{ctx: ctx, fn: fn}:
	case <-q.done:
	}
}

// Close stops the queue. Functions still pending are discarded.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

func (q *Queue) run() {
	for {
		select {
		case j := <-q.jobs:
			j.fn(context.WithValue(j.ctx, queueKey{}, q))
		case <-q.done:
			return
		}
	}
}
