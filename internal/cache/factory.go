package cache

import (
	"context"
	"fmt"

	"github.com/nDmitry/imagefeed/internal/entity"
)

// New creates the backend selected by cfg.Type and verifies the connection
func New(ctx context.Context, cfg entity.CacheConfig) (Backend, error) {
	switch cfg.Type {
	case "", entity.CacheTypeMemory:
		return NewMemoryBackend(), nil
	case entity.CacheTypeFile:
		return NewFileBackend(cfg.File.Dir)
	case entity.CacheTypeRedis:
		return NewRedisBackend(ctx, cfg.Redis.URL, cfg.Redis.Prefix)
	case entity.CacheTypeSQLite:
		return NewSQLiteBackend(ctx, cfg.SQLite.Path)
	case entity.CacheTypePostgreSQL:
		return NewPostgresBackend(ctx, cfg.PostgreSQL.URL, cfg.PostgreSQL.MaxConns)
	case entity.CacheTypeMongoDB:
		return NewMongoBackend(ctx, cfg.MongoDB.URL, cfg.MongoDB.Database, cfg.MongoDB.Collection)
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}
