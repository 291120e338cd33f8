package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestCachePolicy_Validate(t *testing.T) {
	policy := NewCachePolicy(DefaultMaxCacheAge)
	written := fixedNow.Add(-time.Hour)

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{name: "Just written", now: written, expected: true},
		{name: "One nanosecond before max age", now: written.Add(DefaultMaxCacheAge - time.Nanosecond), expected: true},
		{name: "Exactly max age", now: written.Add(DefaultMaxCacheAge), expected: false},
		{name: "Past max age", now: written.Add(DefaultMaxCacheAge + time.Second), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, policy.Validate(written, tt.now))
		})
	}

	t.Run("Zero max age never expires", func(t *testing.T) {
		assert.True(t, CachePolicy{}.Validate(written, written.AddDate(10, 0, 0)))
	})
}

func TestLocal_Load(t *testing.T) {
	items := []string{"a", "b"}

	tests := []struct {
		name        string
		cached      *Cached[[]string]
		expected    []string
		expectedErr error
	}{
		{
			name:        "Empty cache",
			expectedErr: ErrNotFound,
		},
		{
			name:     "Three-day-old cache",
			cached:   &Cached[[]string]{Value: items, Timestamp: fixedNow.AddDate(0, 0, -3)},
			expected: items,
		},
		{
			name:     "Less than seven days old",
			cached:   &Cached[[]string]{Value: items, Timestamp: fixedNow.Add(-DefaultMaxCacheAge + time.Second)},
			expected: items,
		},
		{
			name:        "Exactly seven days old",
			cached:      &Cached[[]string]{Value: items, Timestamp: fixedNow.Add(-DefaultMaxCacheAge)},
			expectedErr: ErrExpired,
		},
		{
			name:        "Nine-day-old cache",
			cached:      &Cached[[]string]{Value: items, Timestamp: fixedNow.AddDate(0, 0, -9)},
			expectedErr: ErrExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{cached: tt.cached}
			local := NewLocal[[]string](store, NewCachePolicy(DefaultMaxCacheAge), fixedClock(fixedNow))

			result, err := local.Load(context.Background())

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}

			assert.Equal(t, []string{"retrieve"}, store.Messages(), "load must not modify the store")
		})
	}
}

func TestLocal_LoadFailsOnRetrievalError(t *testing.T) {
	retrievalErr := errors.New("disk error")

	store := &MockStore{
		RetrieveFunc: func(_ context.Context) (*Cached[[]string], error) {
			return nil, retrievalErr
		},
	}

	local := NewLocal[[]string](store, NewCachePolicy(DefaultMaxCacheAge), fixedClock(fixedNow))

	_, err := local.Load(context.Background())

	assert.ErrorIs(t, err, retrievalErr)
}

func TestLocal_SaveThenLoadRoundTrip(t *testing.T) {
	store := &memoryStore{}
	now := fixedNow
	clock := func() time.Time { return now }
	local := NewLocal[[]string](store, NewCachePolicy(DefaultMaxCacheAge), clock)

	require.NoError(t, local.Save(context.Background(), []string{"first"}))
	require.NoError(t, local.Save(context.Background(), []string{"second"}))

	now = fixedNow.Add(DefaultMaxCacheAge - time.Minute)

	result, err := local.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, result)
	assert.True(t, fixedNow.Equal(store.cached.Timestamp), "timestamp must be the instant of the write")
}

func TestLocal_Save(t *testing.T) {
	deleteErr := errors.New("delete failed")
	insertErr := errors.New("insert failed")

	tests := []struct {
		name             string
		deleteErr        error
		insertErr        error
		expectedMessages []string
		expectedErr      error
	}{
		{
			name:             "Deletes before inserting",
			expectedMessages: []string{"delete", "insert"},
		},
		{
			name:             "Delete failure skips insert",
			deleteErr:        deleteErr,
			expectedMessages: []string{"delete"},
			expectedErr:      deleteErr,
		},
		{
			name:             "Insert failure is returned",
			insertErr:        insertErr,
			expectedMessages: []string{"delete", "insert"},
			expectedErr:      insertErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var messages []string
			var insertedAt time.Time

			store := &MockStore{
				DeleteFunc: func(_ context.Context) error {
					messages = append(messages, "delete")
					return tt.deleteErr
				},
				InsertFunc: func(_ context.Context, _ []string, timestamp time.Time) error {
					messages = append(messages, "insert")
					insertedAt = timestamp
					return tt.insertErr
				},
			}

			local := NewLocal[[]string](store, NewCachePolicy(DefaultMaxCacheAge), fixedClock(fixedNow))

			err := local.Save(context.Background(), []string{"item"})

			assert.Equal(t, tt.expectedMessages, messages)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, fixedNow, insertedAt)
		})
	}
}

func TestLocal_ValidateCache(t *testing.T) {
	tests := []struct {
		name             string
		cached           *Cached[[]string]
		expectedMessages []string
	}{
		{
			name:             "Empty cache is left alone",
			expectedMessages: []string{"retrieve"},
		},
		{
			name:             "Valid cache is kept",
			cached:           &Cached[[]string]{Value: []string{"a"}, Timestamp: fixedNow.AddDate(0, 0, -3)},
			expectedMessages: []string{"retrieve"},
		},
		{
			name:             "Cache at the expiration boundary is deleted",
			cached:           &Cached[[]string]{Value: []string{"a"}, Timestamp: fixedNow.Add(-DefaultMaxCacheAge)},
			expectedMessages: []string{"retrieve", "delete"},
		},
		{
			name:             "Expired cache is deleted",
			cached:           &Cached[[]string]{Value: []string{"a"}, Timestamp: fixedNow.AddDate(0, 0, -9)},
			expectedMessages: []string{"retrieve", "delete"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{cached: tt.cached}
			local := NewLocal[[]string](store, NewCachePolicy(DefaultMaxCacheAge), fixedClock(fixedNow))

			require.NoError(t, local.ValidateCache(context.Background()))
			assert.Equal(t, tt.expectedMessages, store.Messages())
		})
	}

	t.Run("Retrieval error is not escalated", func(t *testing.T) {
		store := &MockStore{
			RetrieveFunc: func(_ context.Context) (*Cached[[]string], error) {
				return nil, errors.New("corrupted")
			},
			DeleteFunc: func(_ context.Context) error {
				t.Fatal("Delete should not be called on retrieval error")
				return nil
			},
		}

		local := NewLocal[[]string](store, NewCachePolicy(DefaultMaxCacheAge), fixedClock(fixedNow))

		assert.NoError(t, local.ValidateCache(context.Background()))
	})

	t.Run("Delete failure is returned", func(t *testing.T) {
		deleteErr := errors.New("delete failed")

		store := &MockStore{
			RetrieveFunc: func(_ context.Context) (*Cached[[]string], error) {
				return &Cached[[]string]{Timestamp: fixedNow.AddDate(0, 0, -30)}, nil
			},
			DeleteFunc: func(_ context.Context) error {
				return deleteErr
			},
		}

		local := NewLocal[[]string](store, NewCachePolicy(DefaultMaxCacheAge), fixedClock(fixedNow))

		assert.ErrorIs(t, local.ValidateCache(context.Background()), deleteErr)
	})
}
