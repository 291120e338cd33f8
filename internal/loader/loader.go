// Package loader composes remote and local resource loaders into
// offline-first pipelines: fetch remotely, cache on success, serve the last
// cached value when the remote is unavailable.
package loader

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrConnectivity is returned when the remote server could not be reached
	ErrConnectivity = errors.New("connectivity error")

	// ErrInvalidData is returned for a non-2xx response or an undecodable body
	ErrInvalidData = errors.New("invalid data")

	// ErrNotFound is returned when the cache holds no entry
	ErrNotFound = errors.New("cache entry not found")

	// ErrExpired is returned when the cached entry is older than the policy allows
	ErrExpired = errors.New("cache entry expired")
)

// LoadFunc produces a resource. It blocks until the resource is available,
// the load fails, or ctx is cancelled.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Clock is the current time source used by cache policies.
type Clock func() time.Time
