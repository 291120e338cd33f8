package entity

import "time"

const (
	RemoteDriverHTTP  = "http"
	RemoteDriverColly = "colly"
)

const (
	CacheTypeMemory     = "memory"
	CacheTypeFile       = "file"
	CacheTypeRedis      = "redis"
	CacheTypeSQLite     = "sqlite"
	CacheTypePostgreSQL = "postgresql"
	CacheTypeMongoDB    = "mongodb"
)

const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Remote RemoteConfig `yaml:"remote"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// RemoteConfig describes the image feed API and how it is reached.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
	// Driver is either "http" or "colly".
	Driver    string        `yaml:"driver"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	// Items requested per feed page.
	PageSize int `yaml:"page_size"`
	// Coalesce shares one in-flight request between concurrent callers of the same resource.
	Coalesce bool `yaml:"coalesce"`
	// Max concurrent requests per domain, colly driver only.
	Parallelism int `yaml:"parallelism"`
	// Delay between requests to the same domain, colly driver only.
	Delay time.Duration `yaml:"delay"`
	// In bytes.
	MaxBodySize int64 `yaml:"max_body_size"`
	// ImageHosts may always be served as image data. Other image URLs are
	// served only when they belong to an item of the cached feed.
	ImageHosts []string `yaml:"image_hosts"`
}

type CacheConfig struct {
	Type string `yaml:"type"`
	// MaxAge applies to feed and comments.
	MaxAge time.Duration `yaml:"max_age"`
	// ImageMaxAge of 0 keeps image data forever.
	ImageMaxAge      time.Duration    `yaml:"image_max_age"`
	ValidateInterval time.Duration    `yaml:"validate_interval"`
	File             FileCacheConfig  `yaml:"file"`
	Redis            RedisCacheConfig `yaml:"redis"`
	SQLite           SQLiteConfig     `yaml:"sqlite"`
	PostgreSQL       PostgreSQLConfig `yaml:"postgresql"`
	MongoDB          MongoDBConfig    `yaml:"mongodb"`
}

type FileCacheConfig struct {
	Dir string `yaml:"dir"`
}

type RedisCacheConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgreSQLConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type MongoDBConfig struct {
	URL        string `yaml:"url"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type LogConfig struct {
	// Format is "json" or "text"; empty picks text on a terminal.
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}
