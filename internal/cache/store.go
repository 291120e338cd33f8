package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nDmitry/imagefeed/internal/entity"
	"github.com/nDmitry/imagefeed/internal/loader"
)

const (
	feedKey        = "feed"
	commentsPrefix = "comments:"
	imagePrefix    = "image:"
)

// JSONStore is a loader.Store keeping one JSON-encoded value under a fixed key
type JSONStore[T any] struct {
	backend Backend
	key     string
}

func NewJSONStore[T any](backend Backend, key string) *JSONStore[T] {
	return &JSONStore[T]{backend: backend, key: key}
}

// NewFeedStore returns the store for the cached feed
func NewFeedStore(backend Backend) *JSONStore[[]entity.FeedItem] {
	return NewJSONStore[[]entity.FeedItem](backend, feedKey)
}

// NewCommentsStore returns the store for the cached comments of one image
func NewCommentsStore(backend Backend, imageID uuid.UUID) *JSONStore[[]entity.Comment] {
	return NewJSONStore[[]entity.Comment](backend, commentsPrefix+imageID.String())
}

// CommentImageIDs lists the images that have cached comments
func CommentImageIDs(ctx context.Context, backend Backend) ([]uuid.UUID, error) {
	keys, err := backend.Keys(ctx, commentsPrefix)

	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(keys))

	for _, key := range keys {
		id, err := uuid.Parse(strings.TrimPrefix(key, commentsPrefix))

		if err != nil {
			continue
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// Retrieve returns nil, nil when nothing is cached
func (s *JSONStore[T]) Retrieve(ctx context.Context) (*loader.Cached[T], error) {
	record, err := s.backend.Get(ctx, s.key)

	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}

		return nil, err
	}

	var value T

	if err := json.Unmarshal(record.Payload, &value); err != nil {
		return nil, fmt.Errorf("could not decode cached %s: %w", s.key, err)
	}

	return &loader.Cached[T]{Value: value, Timestamp: record.Timestamp}, nil
}

func (s *JSONStore[T]) Insert(ctx context.Context, value T, timestamp time.Time) error {
	payload, err := json.Marshal(value)

	if err != nil {
		return fmt.Errorf("could not encode %s: %w", s.key, err)
	}

	return s.backend.Set(ctx, s.key, Record{Payload: payload, Timestamp: timestamp})
}

func (s *JSONStore[T]) Delete(ctx context.Context) error {
	return s.backend.Delete(ctx, s.key)
}

// ImageDataStore is a loader.ImageDataStore keeping raw bytes per image URL
type ImageDataStore struct {
	backend Backend
}

func NewImageDataStore(backend Backend) *ImageDataStore {
	return &ImageDataStore{backend: backend}
}

func (s *ImageDataStore) RetrieveData(ctx context.Context, url string) (*loader.Cached[[]byte], error) {
	record, err := s.backend.Get(ctx, imagePrefix+url)

	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}

		return nil, err
	}

	return &loader.Cached[[]byte]{Value: record.Payload, Timestamp: record.Timestamp}, nil
}

func (s *ImageDataStore) InsertData(ctx context.Context, data []byte, url string, timestamp time.Time) error {
	return s.backend.Set(ctx, imagePrefix+url, Record{Payload: data, Timestamp: timestamp})
}

func (s *ImageDataStore) DeleteData(ctx context.Context, url string) error {
	return s.backend.Delete(ctx, imagePrefix+url)
}

// URLs lists the image URLs that have cached data
func (s *ImageDataStore) URLs(ctx context.Context) ([]string, error) {
	keys, err := s.backend.Keys(ctx, imagePrefix)

	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(keys))

	for _, key := range keys {
		urls = append(urls, strings.TrimPrefix(key, imagePrefix))
	}

	return urls, nil
}
