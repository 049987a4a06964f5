package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis constructs a redis-backed URL cache.
func NewRedis(cfg Config) (Cache, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "presign:url:"
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisCache{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}, nil
}

// key hashes the cached URL; raw presigned URLs are too long and too
// secret-bearing to use as redis keys directly.
func (c *redisCache) key(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *redisCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false, err
	}
	if time.Since(entry.CachedAt) > c.ttl {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (c *redisCache) Put(ctx context.Context, key string, entry Entry) error {
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), data, c.ttl).Err()
}

func (c *redisCache) Clear(ctx context.Context) error {
	var cursor uint64
	pattern := c.prefix + "*"
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}
	return nil
}

func (c *redisCache) Stats(ctx context.Context) (map[string]any, error) {
	var cursor uint64
	total := 0
	pattern := c.prefix + "*"
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		total += len(keys)
		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}
	return map[string]any{
		"type":        "redis",
		"total":       total,
		"ttl_seconds": int(c.ttl.Seconds()),
	}, nil
}

func (c *redisCache) Close(context.Context) error {
	return c.client.Close()
}
