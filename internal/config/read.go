package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nDmitry/imagefeed/internal/entity"
	"github.com/nDmitry/imagefeed/internal/loader"
)

// envPattern matches ${VAR} and ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// Defaults returns the configuration used for every key the file and environment leave unset
func Defaults() entity.Config {
	return entity.Config{
		Server: entity.ServerConfig{Port: "8080"},
		Remote: entity.RemoteConfig{
			Driver:      entity.RemoteDriverHTTP,
			Timeout:     10 * time.Second,
			UserAgent:   "imagefeed/1.0",
			PageSize:    10,
			Coalesce:    true,
			Parallelism: 2,
			MaxBodySize: 10 << 20,
		},
		Cache: entity.CacheConfig{
			Type:             entity.CacheTypeMemory,
			MaxAge:           loader.DefaultMaxCacheAge,
			ValidateInterval: time.Hour,
			File:             entity.FileCacheConfig{Dir: "data/cache"},
			Redis:            entity.RedisCacheConfig{Prefix: "imagefeed:"},
			SQLite:           entity.SQLiteConfig{Path: "data/imagefeed.db"},
			PostgreSQL:       entity.PostgreSQLConfig{MaxConns: 4},
			MongoDB:          entity.MongoDBConfig{Database: "imagefeed", Collection: "cache_entries"},
		},
		Log: entity.LogConfig{Level: "info"},
	}
}

// Read loads the configuration from a YAML file at configPath. A missing file
// is not an error: defaults and environment variables are used instead.
// Variables from a .env file in the working directory are loaded first.
func Read(configPath string) (*entity.Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := Defaults()

	contents, err := os.ReadFile(configPath)

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	if err == nil {
		if err = yaml.Unmarshal(expandEnv(contents), &config); err != nil {
			return nil, fmt.Errorf("could not parse config file: %w", err)
		}
	}

	if err = applyEnv(&config); err != nil {
		return nil, err
	}

	if err = validate(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func expandEnv(contents []byte) []byte {
	return envPattern.ReplaceAllFunc(contents, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)

		if value, ok := os.LookupEnv(string(parts[1])); ok && value != "" {
			return []byte(value)
		}

		return parts[2]
	})
}

// nolint: cyclop
func applyEnv(config *entity.Config) error {
	stringVars := map[string]*string{
		"HTTP_SERVER_PORT": &config.Server.Port,
		"REMOTE_BASE_URL":  &config.Remote.BaseURL,
		"REMOTE_DRIVER":    &config.Remote.Driver,
		"CACHE_TYPE":       &config.Cache.Type,
		"CACHE_DIR":        &config.Cache.File.Dir,
		"REDIS_URL":        &config.Cache.Redis.URL,
		"SQLITE_PATH":      &config.Cache.SQLite.Path,
		"DATABASE_URL":     &config.Cache.PostgreSQL.URL,
		"MONGODB_URL":      &config.Cache.MongoDB.URL,
		"LOG_FORMAT":       &config.Log.Format,
		"LOG_LEVEL":        &config.Log.Level,
	}

	for key, target := range stringVars {
		if value := os.Getenv(key); value != "" {
			*target = value
		}
	}

	durations := map[string]*time.Duration{
		"REMOTE_TIMEOUT":          &config.Remote.Timeout,
		"CACHE_MAX_AGE":           &config.Cache.MaxAge,
		"CACHE_IMAGE_MAX_AGE":     &config.Cache.ImageMaxAge,
		"CACHE_VALIDATE_INTERVAL": &config.Cache.ValidateInterval,
	}

	for key, target := range durations {
		value := os.Getenv(key)

		if value == "" {
			continue
		}

		d, err := time.ParseDuration(value)

		if err != nil {
			return fmt.Errorf("%s must be a duration: %w", key, err)
		}

		*target = d
	}

	if value := os.Getenv("REMOTE_IMAGE_HOSTS"); value != "" {
		config.Remote.ImageHosts = nil

		for _, host := range strings.Split(value, ",") {
			if host = strings.TrimSpace(host); host != "" {
				config.Remote.ImageHosts = append(config.Remote.ImageHosts, host)
			}
		}
	}

	if value := os.Getenv("REMOTE_COALESCE"); value != "" {
		coalesce, err := strconv.ParseBool(value)

		if err != nil {
			return fmt.Errorf("REMOTE_COALESCE must be a boolean: %w", err)
		}

		config.Remote.Coalesce = coalesce
	}

	return nil
}

// nolint: cyclop
func validate(config *entity.Config) error {
	if config.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}

	if u, err := url.Parse(config.Remote.BaseURL); err != nil || !u.IsAbs() {
		return fmt.Errorf("remote.base_url must be an absolute URL")
	}

	if !slices.Contains([]string{entity.RemoteDriverHTTP, entity.RemoteDriverColly}, config.Remote.Driver) {
		return fmt.Errorf("remote.driver must be %s or %s", entity.RemoteDriverHTTP, entity.RemoteDriverColly)
	}

	if config.Remote.PageSize <= 0 {
		return fmt.Errorf("remote.page_size must be positive")
	}

	if config.Remote.Timeout < 0 || config.Cache.MaxAge < 0 || config.Cache.ImageMaxAge < 0 {
		return fmt.Errorf("durations must be non-negative")
	}

	if config.Cache.ValidateInterval <= 0 {
		return fmt.Errorf("cache.validate_interval must be positive")
	}

	switch config.Cache.Type {
	case entity.CacheTypeMemory:
	case entity.CacheTypeFile:
		if config.Cache.File.Dir == "" {
			return fmt.Errorf("cache.file.dir is required")
		}
	case entity.CacheTypeRedis:
		if config.Cache.Redis.URL == "" {
			return fmt.Errorf("cache.redis.url is required")
		}
	case entity.CacheTypeSQLite:
		if config.Cache.SQLite.Path == "" {
			return fmt.Errorf("cache.sqlite.path is required")
		}
	case entity.CacheTypePostgreSQL:
		if config.Cache.PostgreSQL.URL == "" {
			return fmt.Errorf("cache.postgresql.url is required")
		}
	case entity.CacheTypeMongoDB:
		if config.Cache.MongoDB.URL == "" {
			return fmt.Errorf("cache.mongodb.url is required")
		}
	default:
		return fmt.Errorf("unknown cache.type %q", config.Cache.Type)
	}

	return nil
}
