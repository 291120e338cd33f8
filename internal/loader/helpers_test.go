package loader

import (
	"context"
	"sync"
	"time"
)

// MockHTTPClient is a mock implementation of the HTTPClient interface
type MockHTTPClient struct {
	GetFunc func(ctx context.Context, url string) (*Response, error)
}

func (m *MockHTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	return m.GetFunc(ctx, url)
}

// MockStore is a mock implementation of the Store interface
type MockStore struct {
	RetrieveFunc func(ctx context.Context) (*Cached[[]string], error)
	InsertFunc   func(ctx context.Context, value []string, timestamp time.Time) error
	DeleteFunc   func(ctx context.Context) error
}

func (m *MockStore) Retrieve(ctx context.Context) (*Cached[[]string], error) {
	return m.RetrieveFunc(ctx)
}

func (m *MockStore) Insert(ctx context.Context, value []string, timestamp time.Time) error {
	return m.InsertFunc(ctx, value, timestamp)
}

func (m *MockStore) Delete(ctx context.Context) error {
	return m.DeleteFunc(ctx)
}

// memoryStore is a working Store that records the operations it receives
type memoryStore struct {
	mu       sync.Mutex
	cached   *Cached[[]string]
	messages []string
}

func (s *memoryStore) Retrieve(_ context.Context) (*Cached[[]string], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, "retrieve")

	return s.cached, nil
}

func (s *memoryStore) Insert(_ context.Context, value []string, timestamp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, "insert")
	s.cached = &Cached[[]string]{Value: value, Timestamp: timestamp}

	return nil
}

func (s *memoryStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, "delete")
	s.cached = nil

	return nil
}

func (s *memoryStore) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.messages...)
}

// MockImageDataStore is a mock implementation of the ImageDataStore interface
type MockImageDataStore struct {
	RetrieveDataFunc func(ctx context.Context, url string) (*Cached[[]byte], error)
	InsertDataFunc   func(ctx context.Context, data []byte, url string, timestamp time.Time) error
	DeleteDataFunc   func(ctx context.Context, url string) error
}

func (m *MockImageDataStore) RetrieveData(ctx context.Context, url string) (*Cached[[]byte], error) {
	return m.RetrieveDataFunc(ctx, url)
}

func (m *MockImageDataStore) InsertData(ctx context.Context, data []byte, url string, timestamp time.Time) error {
	return m.InsertDataFunc(ctx, data, url, timestamp)
}

func (m *MockImageDataStore) DeleteData(ctx context.Context, url string) error {
	return m.DeleteDataFunc(ctx, url)
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func succeeding[T any](value T) LoadFunc[T] {
	return func(context.Context) (T, error) { return value, nil }
}

func failing[T any](err error) LoadFunc[T] {
	return func(context.Context) (T, error) {
		var zero T
		return zero, err
	}
}
