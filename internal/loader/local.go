package loader

import (
	"context"
	"fmt"
	"time"
)

// DefaultMaxCacheAge is how long feed and comment entries stay valid.
const DefaultMaxCacheAge = 7 * 24 * time.Hour

// Cached is a stored resource together with the instant it was written.
type Cached[T any] struct {
	Value     T
	Timestamp time.Time
}

// Store persists a single cached resource.
// Retrieve returns nil, nil when there is no entry.
type Store[T any] interface {
	Retrieve(ctx context.Context) (*Cached[T], error)
	Insert(ctx context.Context, value T, timestamp time.Time) error
	Delete(ctx context.Context) error
}

// CachePolicy decides whether a cache entry is still usable.
// A zero MaxAge means entries never expire.
type CachePolicy struct {
	MaxAge time.Duration
}

// NewCachePolicy returns a policy with the given max age
func NewCachePolicy(maxAge time.Duration) CachePolicy {
	return CachePolicy{MaxAge: maxAge}
}

// Validate reports whether an entry written at timestamp is valid at now.
// The upper bound is exclusive: an entry exactly MaxAge old is expired.
func (p CachePolicy) Validate(timestamp, now time.Time) bool {
	if p.MaxAge <= 0 {
		return true
	}

	return now.Before(timestamp.Add(p.MaxAge))
}

// Local loads, saves and validates a resource held in a Store.
type Local[T any] struct {
	store  Store[T]
	policy CachePolicy
	now    Clock
}

// NewLocal creates a local loader. now is the only time source the loader uses.
func NewLocal[T any](store Store[T], policy CachePolicy, now Clock) *Local[T] {
	return &Local[T]{
		store:  store,
		policy: policy,
		now:    now,
	}
}

// Load returns the cached resource, ErrNotFound when the store is empty or
// ErrExpired when the entry is too old. Expired entries are never returned.
func (l *Local[T]) Load(ctx context.Context) (T, error) {
	var zero T

	cached, err := l.store.Retrieve(ctx)

	if err != nil {
		return zero, fmt.Errorf("could not retrieve cache: %w", err)
	}

	if cached == nil {
		return zero, ErrNotFound
	}

	if !l.policy.Validate(cached.Timestamp, l.now()) {
		return zero, ErrExpired
	}

	return cached.Value, nil
}

// Save replaces the cached entry with value stamped at the current time.
// The old entry is deleted first; a failed delete aborts the insert.
func (l *Local[T]) Save(ctx context.Context, value T) error {
	if err := l.store.Delete(ctx); err != nil {
		return fmt.Errorf("could not delete cache: %w", err)
	}

	if err := l.store.Insert(ctx, value, l.now()); err != nil {
		return fmt.Errorf("could not insert cache: %w", err)
	}

	return nil
}

// ValidateCache deletes the entry if it has expired. A retrieval error means
// there is nothing to validate and is not returned.
func (l *Local[T]) ValidateCache(ctx context.Context) error {
	cached, err := l.store.Retrieve(ctx)

	if err != nil || cached == nil {
		return nil
	}

	if l.policy.Validate(cached.Timestamp, l.now()) {
		return nil
	}

	if err := l.store.Delete(ctx); err != nil {
		return fmt.Errorf("could not delete expired cache: %w", err)
	}

	return nil
}
