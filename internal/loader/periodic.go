package loader

import (
	"context"
	"sync/atomic"
	"time"
)

// Periodically starts load every interval and blocks until ctx is done.
// A tick that arrives while the previous run is still in flight is skipped,
// so runs never overlap. A non-positive interval returns immediately.
func Periodically[T any](ctx context.Context, interval time.Duration, load LoadFunc[T], completion func(T, error)) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var running atomic.Bool

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !running.CompareAndSwap(false, true) {
				continue
			}

			Start(ctx, func(ctx context.Context) (T, error) {
				defer running.Store(false)
				return load(ctx)
			}, completion)
		}
	}
}
