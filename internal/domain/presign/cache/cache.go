package cache

import (
	"context"
	"time"
)

// Entry is a recently issued signed URL, keyed by the URL it replaced.
type Entry struct {
	URL      string    `json:"url"`
	CachedAt time.Time `json:"cached_at"`
}

// Cache short-circuits repeat reissue calls for the same stale URL. Entries
// older than the configured validity window count as misses.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, entry Entry) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the high level cache selection parameters.
type Config struct {
	Driver string
	TTL    time.Duration
	Redis  *RedisConfig
	Memory *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
