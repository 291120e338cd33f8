// Package cache stores cached resources in a pluggable key-value backend.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not found in the cache
var ErrCacheMiss = errors.New("cache miss")

// Record is a stored payload and the instant it was written
type Record struct {
	Payload   []byte
	Timestamp time.Time
}

// Backend defines the interface for cache storage.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get retrieves a record, returning ErrCacheMiss if the key is absent
	Get(ctx context.Context, key string) (*Record, error)

	// Set stores a record, replacing any previous one
	Set(ctx context.Context, key string, record Record) error

	// Delete removes a key. Deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// Keys lists the stored keys starting with prefix
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources used by the cache
	Close() error
}
