package loader

import (
	"context"
	"errors"
	"time"

	"github.com/nDmitry/imagefeed/internal/app"
)

// cacheWriteTimeout bounds a write-through save once the caller's
// cancellation no longer applies to it.
const cacheWriteTimeout = 5 * time.Second

// Caching returns a LoadFunc that, after load succeeds, saves the resource
// before returning it. Save errors are logged and dropped. Nothing is saved
// when load fails.
func Caching[T any](load LoadFunc[T], save func(context.Context, T) error) LoadFunc[T] {
	return func(ctx context.Context) (T, error) {
		resource, err := load(ctx)

		if err != nil {
			return resource, err
		}

		// A completed fetch is cached even if the caller gives up meanwhile
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
		defer cancel()

		if err := save(saveCtx, resource); err != nil {
			app.Logger().Warn("Failed to cache loaded resource", "error", err)
		}

		return resource, nil
	}
}

// Fallback returns a LoadFunc that tries primary and, only if it fails,
// returns whatever secondary returns. The primary error is discarded.
func Fallback[T any](primary, secondary LoadFunc[T]) LoadFunc[T] {
	return func(ctx context.Context) (T, error) {
		resource, err := primary(ctx)

		if err == nil {
			return resource, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			var zero T
			return zero, ctxErr
		}

		return secondary(ctx)
	}
}

// WithTimeout bounds load by timeout. Hitting the deadline is reported as
// ErrConnectivity; a zero timeout leaves load untouched.
func WithTimeout[T any](load LoadFunc[T], timeout time.Duration) LoadFunc[T] {
	if timeout <= 0 {
		return load
	}

	return func(ctx context.Context) (T, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		resource, err := load(timeoutCtx)

		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			var zero T
			return zero, ErrConnectivity
		}

		return resource, err
	}
}
