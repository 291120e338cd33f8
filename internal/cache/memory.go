package cache

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryBackend keeps records in process memory. Records are lost on restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]Record)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) (*Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.records[key]

	if !ok {
		return nil, ErrCacheMiss
	}

	record.Payload = slices.Clone(record.Payload)

	return &record, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, record Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record.Payload = slices.Clone(record.Payload)
	b.records[key] = record

	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.records, key)

	return nil
}

func (b *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0)

	for key := range b.records {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	slices.Sort(keys)

	return keys, nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
