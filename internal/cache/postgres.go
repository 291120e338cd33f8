package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	payload    BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresBackend stores records in a PostgreSQL table through a connection pool
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend connects to url and creates the cache table if needed
func NewPostgresBackend(ctx context.Context, url string, maxConns int32) (*PostgresBackend, error) {
	poolCfg, err := pgxpool.ParseConfig(url)

	if err != nil {
		return nil, fmt.Errorf("could not parse PostgreSQL URL: %w", err)
	}

	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)

	if err != nil {
		return nil, fmt.Errorf("could not create PostgreSQL connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not ping PostgreSQL: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not create cache table: %w", err)
	}

	return &PostgresBackend{pool: pool}, nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) (*Record, error) {
	var record Record

	err := b.pool.QueryRow(ctx,
		`SELECT payload, updated_at FROM cache_entries WHERE key = $1`, key,
	).Scan(&record.Payload, &record.Timestamp)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCacheMiss
		}

		return nil, fmt.Errorf("could not query cache entry: %w", err)
	}

	return &record, nil
}

func (b *PostgresBackend) Set(ctx context.Context, key string, record Record) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO cache_entries (key, payload, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		key, record.Payload, record.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("could not upsert cache entry: %w", err)
	}

	return nil
}

func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.pool.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("could not delete cache entry: %w", err)
	}

	return nil
}

func (b *PostgresBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT key FROM cache_entries WHERE left(key, length($1)) = $1 ORDER BY key`, prefix,
	)

	if err != nil {
		return nil, fmt.Errorf("could not list cache keys: %w", err)
	}

	defer rows.Close()

	return scanKeys(rows)
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
