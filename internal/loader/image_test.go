package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalImageData_Load(t *testing.T) {
	const url = "https://a-url.com/image.jpg"
	data := []byte("image data")

	tests := []struct {
		name        string
		policy      CachePolicy
		cached      *Cached[[]byte]
		retrieveErr error
		expected    []byte
		expectedErr error
	}{
		{
			name:        "Not found",
			expectedErr: ErrNotFound,
		},
		{
			name:        "Empty data counts as not found",
			cached:      &Cached[[]byte]{Value: []byte{}, Timestamp: fixedNow},
			expectedErr: ErrNotFound,
		},
		{
			name:     "Old data is served without expiration",
			cached:   &Cached[[]byte]{Value: data, Timestamp: fixedNow.AddDate(-1, 0, 0)},
			expected: data,
		},
		{
			name:        "Old data expires under a max age",
			policy:      NewCachePolicy(24 * time.Hour),
			cached:      &Cached[[]byte]{Value: data, Timestamp: fixedNow.Add(-24 * time.Hour)},
			expectedErr: ErrExpired,
		},
		{
			name:        "Retrieval error",
			retrieveErr: errors.New("disk error"),
			expectedErr: errors.New("disk error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockImageDataStore{
				RetrieveDataFunc: func(_ context.Context, u string) (*Cached[[]byte], error) {
					assert.Equal(t, url, u)
					return tt.cached, tt.retrieveErr
				},
			}

			local := NewLocalImageData(store, tt.policy, fixedClock(fixedNow))

			result, err := local.Loader(url)(context.Background())

			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr.Error())
				assert.Nil(t, result)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLocalImageData_Save(t *testing.T) {
	const url = "https://a-url.com/image.jpg"

	var inserted struct {
		data      []byte
		url       string
		timestamp time.Time
	}

	store := &MockImageDataStore{
		InsertDataFunc: func(_ context.Context, data []byte, u string, timestamp time.Time) error {
			inserted.data = data
			inserted.url = u
			inserted.timestamp = timestamp
			return nil
		},
	}

	local := NewLocalImageData(store, CachePolicy{}, fixedClock(fixedNow))

	require.NoError(t, local.Saver(url)(context.Background(), []byte("data")))
	assert.Equal(t, []byte("data"), inserted.data)
	assert.Equal(t, url, inserted.url)
	assert.Equal(t, fixedNow, inserted.timestamp)
}

func TestLocalImageData_ValidateCache(t *testing.T) {
	const url = "https://a-url.com/image.jpg"

	var deleted []string

	store := &MockImageDataStore{
		RetrieveDataFunc: func(_ context.Context, _ string) (*Cached[[]byte], error) {
			return &Cached[[]byte]{Value: []byte("x"), Timestamp: fixedNow.Add(-2 * time.Hour)}, nil
		},
		DeleteDataFunc: func(_ context.Context, u string) error {
			deleted = append(deleted, u)
			return nil
		},
	}

	t.Run("Kept without max age", func(t *testing.T) {
		local := NewLocalImageData(store, CachePolicy{}, fixedClock(fixedNow))
		require.NoError(t, local.ValidateCache(context.Background(), url))
		assert.Empty(t, deleted)
	})

	t.Run("Deleted past max age", func(t *testing.T) {
		local := NewLocalImageData(store, NewCachePolicy(time.Hour), fixedClock(fixedNow))
		require.NoError(t, local.ValidateCache(context.Background(), url))
		assert.Equal(t, []string{url}, deleted)
	})
}
