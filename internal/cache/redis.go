package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldPayload   = "payload"
	fieldTimestamp = "timestamp"
)

// RedisBackend stores each record as a hash holding its payload and timestamp.
// Keys are namespaced with a prefix so the database can be shared.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to the Redis server at url, e.g. redis://localhost:6379/0
func NewRedisBackend(ctx context.Context, url, prefix string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)

	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test the connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}

	return &RedisBackend{client: client, prefix: prefix}, nil
}

func (b *RedisBackend) Get(ctx context.Context, key string) (*Record, error) {
	fields, err := b.client.HGetAll(ctx, b.prefix+key).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}

		return nil, err
	}

	if len(fields) == 0 {
		return nil, ErrCacheMiss
	}

	nanos, err := strconv.ParseInt(fields[fieldTimestamp], 10, 64)

	if err != nil {
		return nil, fmt.Errorf("invalid timestamp for %s: %w", key, err)
	}

	return &Record{
		Payload:   []byte(fields[fieldPayload]),
		Timestamp: time.Unix(0, nanos).UTC(),
	}, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, record Record) error {
	return b.client.HSet(ctx, b.prefix+key,
		fieldPayload, record.Payload,
		fieldTimestamp, record.Timestamp.UnixNano(),
	).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, b.prefix+key).Err()
}

func (b *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	iter := b.client.Scan(ctx, 0, b.prefix+prefix+"*", 100).Iterator()

	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), b.prefix))
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("could not scan keys: %w", err)
	}

	return keys, nil
}

// Close releases the Redis client
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
