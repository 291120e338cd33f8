package loader

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Coalescer shares one in-flight load between concurrent callers asking for
// the same key. The shared load keeps running while at least one caller
// waits for it and is cancelled when the last one leaves.
type Coalescer struct {
	group singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewCoalescer creates an empty Coalescer
func NewCoalescer() *Coalescer {
	return &Coalescer{flights: make(map[string]*flight)}
}

// Coalesce wraps load so that concurrent calls through c with the same key
// result in a single execution of load.
func Coalesce[T any](c *Coalescer, key string, load LoadFunc[T]) LoadFunc[T] {
	if c == nil {
		return load
	}

	return func(ctx context.Context) (T, error) {
		var zero T

		val, err := c.do(ctx, key, func(shared context.Context) (any, error) {
			return load(shared)
		})

		if err != nil {
			return zero, err
		}

		return val.(T), nil
	}
}

func (c *Coalescer) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	f := c.join(ctx, key)

	ch := c.group.DoChan(key, func() (any, error) {
		return fn(f.ctx)
	})

	select {
	case res := <-ch:
		c.leave(key, f)
		return res.Val, res.Err
	case <-ctx.Done():
		c.leave(key, f)
		return nil, ctx.Err()
	}
}

func (c *Coalescer) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.flights[key]

	if !ok {
		sharedCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: sharedCtx, cancel: cancel}
		c.flights[key] = f
	}

	f.waiters++

	return f
}

func (c *Coalescer) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.waiters--

	if f.waiters > 0 {
		return
	}

	f.cancel()

	if c.flights[key] == f {
		delete(c.flights, key)
		// Later callers must start a fresh load instead of joining a cancelled one
		c.group.Forget(key)
	}
}
