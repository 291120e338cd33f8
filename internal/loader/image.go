package loader

import (
	"context"
	"fmt"
	"time"
)

// ImageDataStore persists raw image bytes keyed by image URL.
// RetrieveData returns nil, nil when there is no entry for url.
type ImageDataStore interface {
	RetrieveData(ctx context.Context, url string) (*Cached[[]byte], error)
	InsertData(ctx context.Context, data []byte, url string, timestamp time.Time) error
	DeleteData(ctx context.Context, url string) error
}

// LocalImageData is the per-URL counterpart of Local for image bytes.
// With a zero policy MaxAge image data never expires.
type LocalImageData struct {
	store  ImageDataStore
	policy CachePolicy
	now    Clock
}

// NewLocalImageData creates a local image data loader
func NewLocalImageData(store ImageDataStore, policy CachePolicy, now Clock) *LocalImageData {
	return &LocalImageData{
		store:  store,
		policy: policy,
		now:    now,
	}
}

// Load returns the cached bytes for url.
func (l *LocalImageData) Load(ctx context.Context, url string) ([]byte, error) {
	cached, err := l.store.RetrieveData(ctx, url)

	if err != nil {
		return nil, fmt.Errorf("could not retrieve image data: %w", err)
	}

	if cached == nil || len(cached.Value) == 0 {
		return nil, ErrNotFound
	}

	if !l.policy.Validate(cached.Timestamp, l.now()) {
		return nil, ErrExpired
	}

	return cached.Value, nil
}

// Save stores data for url, overwriting any previous entry.
func (l *LocalImageData) Save(ctx context.Context, data []byte, url string) error {
	if err := l.store.InsertData(ctx, data, url, l.now()); err != nil {
		return fmt.Errorf("could not insert image data: %w", err)
	}

	return nil
}

// ValidateCache deletes the entry for url if it has expired.
func (l *LocalImageData) ValidateCache(ctx context.Context, url string) error {
	cached, err := l.store.RetrieveData(ctx, url)

	if err != nil || cached == nil {
		return nil
	}

	if l.policy.Validate(cached.Timestamp, l.now()) {
		return nil
	}

	if err := l.store.DeleteData(ctx, url); err != nil {
		return fmt.Errorf("could not delete expired image data: %w", err)
	}

	return nil
}

// Loader binds url, producing a LoadFunc for pipelines.
func (l *LocalImageData) Loader(url string) LoadFunc[[]byte] {
	return func(ctx context.Context) ([]byte, error) {
		return l.Load(ctx, url)
	}
}

// Saver binds url, producing a save callback for Caching.
func (l *LocalImageData) Saver(url string) func(context.Context, []byte) error {
	return func(ctx context.Context, data []byte) error {
		return l.Save(ctx, data, url)
	}
}
