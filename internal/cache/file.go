package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// FileBackend stores every record in its own JSON file, named by the hash of its key.
// This is suitable for single-instance deployments.
type FileBackend struct {
	mu  sync.RWMutex
	dir string
}

type fileRecord struct {
	Key       string    `json:"key"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewFileBackend creates the cache directory if needed
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create cache directory: %w", err)
	}

	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, strconv.FormatUint(xxhash.Sum64String(key), 16)+".json")
}

func (b *FileBackend) Get(_ context.Context, key string) (*Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, err := readFileRecord(b.path(key))

	if err != nil {
		return nil, err
	}

	// A hash collision is a miss
	if record.Key != key {
		return nil, ErrCacheMiss
	}

	return &Record{Payload: record.Payload, Timestamp: record.Timestamp}, nil
}

func (b *FileBackend) Set(_ context.Context, key string, record Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := json.Marshal(fileRecord{Key: key, Payload: record.Payload, Timestamp: record.Timestamp})

	if err != nil {
		return fmt.Errorf("could not marshal cache record: %w", err)
	}

	path := b.path(key)

	// Write atomically using temp file + rename
	tmpFile := path + ".tmp"

	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("could not write cache file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("could not rename cache file: %w", err)
	}

	return nil
}

func (b *FileBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(b.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not delete cache file: %w", err)
	}

	return nil
}

func (b *FileBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	paths, err := filepath.Glob(filepath.Join(b.dir, "*.json"))

	if err != nil {
		return nil, fmt.Errorf("could not list cache files: %w", err)
	}

	keys := make([]string, 0, len(paths))

	for _, path := range paths {
		record, err := readFileRecord(path)

		if err != nil {
			// Unreadable files are skipped, the next Set for their key overwrites them
			continue
		}

		if strings.HasPrefix(record.Key, prefix) {
			keys = append(keys, record.Key)
		}
	}

	slices.Sort(keys)

	return keys, nil
}

func (b *FileBackend) Close() error {
	return nil
}

func readFileRecord(path string) (*fileRecord, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCacheMiss
		}

		return nil, fmt.Errorf("could not read cache file: %w", err)
	}

	var record fileRecord

	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("could not parse cache file: %w", err)
	}

	return &record, nil
}
