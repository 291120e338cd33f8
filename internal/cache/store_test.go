package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nDmitry/imagefeed/internal/entity"
	"github.com/nDmitry/imagefeed/internal/loader"
)

var (
	_ loader.Store[[]entity.FeedItem] = (*JSONStore[[]entity.FeedItem])(nil)
	_ loader.Store[[]entity.Comment]  = (*JSONStore[[]entity.Comment])(nil)
	_ loader.ImageDataStore           = (*ImageDataStore)(nil)
)

// MockBackend is a mock implementation of the Backend interface
type MockBackend struct {
	GetFunc    func(ctx context.Context, key string) (*Record, error)
	SetFunc    func(ctx context.Context, key string, record Record) error
	DeleteFunc func(ctx context.Context, key string) error
	KeysFunc   func(ctx context.Context, prefix string) ([]string, error)
}

func (m *MockBackend) Get(ctx context.Context, key string) (*Record, error) {
	return m.GetFunc(ctx, key)
}

func (m *MockBackend) Set(ctx context.Context, key string, record Record) error {
	return m.SetFunc(ctx, key, record)
}

func (m *MockBackend) Delete(ctx context.Context, key string) error {
	return m.DeleteFunc(ctx, key)
}

func (m *MockBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	return m.KeysFunc(ctx, prefix)
}

func (m *MockBackend) Close() error {
	return nil
}

func TestFeedStore(t *testing.T) {
	ctx := context.Background()
	store := NewFeedStore(NewMemoryBackend())
	description := "Description"
	items := []entity.FeedItem{
		{ID: uuid.New(), Description: &description, URL: "https://a.com/1.jpg"},
		{ID: uuid.New(), URL: "https://a.com/2.jpg"},
	}
	written := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	cached, err := store.Retrieve(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached, "empty store retrieves nothing")

	require.NoError(t, store.Insert(ctx, items, written))

	cached, err = store.Retrieve(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, items, cached.Value)
	assert.Equal(t, written, cached.Timestamp)

	require.NoError(t, store.Delete(ctx))

	cached, err = store.Retrieve(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestJSONStore_RetrieveErrors(t *testing.T) {
	backendErr := errors.New("connection reset")

	t.Run("Backend error", func(t *testing.T) {
		store := NewFeedStore(&MockBackend{
			GetFunc: func(context.Context, string) (*Record, error) { return nil, backendErr },
		})

		_, err := store.Retrieve(context.Background())
		assert.ErrorIs(t, err, backendErr)
	})

	t.Run("Corrupted payload", func(t *testing.T) {
		store := NewFeedStore(&MockBackend{
			GetFunc: func(context.Context, string) (*Record, error) {
				return &Record{Payload: []byte("{not json")}, nil
			},
		})

		_, err := store.Retrieve(context.Background())
		assert.Error(t, err)
	})
}

func TestCommentsStore(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	first, second := uuid.New(), uuid.New()
	written := time.Now().UTC()

	comments := []entity.Comment{{ID: uuid.New(), Message: "m", CreatedAt: written.Truncate(time.Second), Username: "u"}}

	require.NoError(t, NewCommentsStore(backend, first).Insert(ctx, comments, written))
	require.NoError(t, NewCommentsStore(backend, second).Insert(ctx, nil, written))
	require.NoError(t, NewFeedStore(backend).Insert(ctx, nil, written))

	cached, err := NewCommentsStore(backend, first).Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal(t, comments, cached.Value)

	ids, err := CommentImageIDs(ctx, backend)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{first, second}, ids)
}

func TestImageDataStore(t *testing.T) {
	ctx := context.Background()
	store := NewImageDataStore(NewMemoryBackend())
	const url = "https://a.com/1.jpg"
	written := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	cached, err := store.RetrieveData(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, cached)

	require.NoError(t, store.InsertData(ctx, []byte("data"), url, written))

	cached, err = store.RetrieveData(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), cached.Value)
	assert.Equal(t, written, cached.Timestamp)

	urls, err := store.URLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{url}, urls)

	require.NoError(t, store.DeleteData(ctx, url))

	cached, err = store.RetrieveData(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestNew(t *testing.T) {
	backend, err := New(context.Background(), entity.CacheConfig{Type: entity.CacheTypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, backend)

	backend, err = New(context.Background(), entity.CacheConfig{Type: entity.CacheTypeFile, File: entity.FileCacheConfig{Dir: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)

	_, err = New(context.Background(), entity.CacheConfig{Type: "etcd"})
	assert.Error(t, err)
}

// Local loaders work the same over any backend
func TestLocalOverBackend(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	local := loader.NewLocal[[]entity.FeedItem](NewFeedStore(NewMemoryBackend()), loader.NewCachePolicy(loader.DefaultMaxCacheAge), clock)

	items := []entity.FeedItem{{ID: uuid.New(), URL: "https://a.com/1.jpg"}}
	require.NoError(t, local.Save(ctx, items))

	now = now.AddDate(0, 0, 7)

	_, err := local.Load(ctx)
	assert.ErrorIs(t, err, loader.ErrExpired)

	require.NoError(t, local.ValidateCache(ctx))

	_, err = local.Load(ctx)
	assert.ErrorIs(t, err, loader.ErrNotFound)
}
