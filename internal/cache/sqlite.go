package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key       TEXT PRIMARY KEY,
	payload   BLOB NOT NULL,
	timestamp INTEGER NOT NULL
)`

// SQLiteBackend stores records in a single SQLite table
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens or creates the database at path.
// It enables WAL mode for better concurrent read/write performance.
func NewSQLiteBackend(ctx context.Context, path string) (*SQLiteBackend, error) {
	// Ensure directory exists
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create directory %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)

	db, err := sql.Open("sqlite", dsn)

	if err != nil {
		return nil, fmt.Errorf("could not open SQLite database: %w", err)
	}

	// SQLite only allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not create cache table: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) (*Record, error) {
	var record Record
	var nanos int64

	err := b.db.QueryRowContext(ctx,
		`SELECT payload, timestamp FROM cache_entries WHERE key = ?`, key,
	).Scan(&record.Payload, &nanos)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss
		}

		return nil, fmt.Errorf("could not query cache entry: %w", err)
	}

	record.Timestamp = time.Unix(0, nanos).UTC()

	return &record, nil
}

func (b *SQLiteBackend) Set(ctx context.Context, key string, record Record) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, payload, timestamp) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET payload = excluded.payload, timestamp = excluded.timestamp`,
		key, record.Payload, record.Timestamp.UnixNano(),
	)

	if err != nil {
		return fmt.Errorf("could not upsert cache entry: %w", err)
	}

	return nil
}

func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("could not delete cache entry: %w", err)
	}

	return nil
}

func (b *SQLiteBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT key FROM cache_entries WHERE substr(key, 1, length(?1)) = ?1 ORDER BY key`, prefix,
	)

	if err != nil {
		return nil, fmt.Errorf("could not list cache keys: %w", err)
	}

	defer rows.Close()

	return scanKeys(rows)
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

type keyRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanKeys(rows keyRows) ([]string, error) {
	keys := make([]string, 0)

	for rows.Next() {
		var key string

		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("could not scan cache key: %w", err)
		}

		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate cache keys: %w", err)
	}

	return keys, nil
}
