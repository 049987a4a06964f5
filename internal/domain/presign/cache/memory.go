package cache

import (
	"context"
	"sync"
	"time"
)

type memoryCache struct {
	entries     map[string]Entry
	mutex       sync.RWMutex
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-memory URL cache.
func NewMemory(cfg Config) Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	cleanup := time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	c := &memoryCache{
		entries:     make(map[string]Entry),
		ttl:         ttl,
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go c.gcLoop()
	return c
}

func (c *memoryCache) gcLoop() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *memoryCache) evictExpired() {
	now := time.Now()
	c.mutex.Lock()
	for key, entry := range c.entries {
		if now.Sub(entry.CachedAt) > c.ttl {
			delete(c.entries, key)
		}
	}
	c.mutex.Unlock()
}

func (c *memoryCache) Get(_ context.Context, key string) (Entry, bool, error) {
	c.mutex.RLock()
	entry, ok := c.entries[key]
	c.mutex.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	if time.Since(entry.CachedAt) > c.ttl {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (c *memoryCache) Put(_ context.Context, key string, entry Entry) error {
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}
	c.mutex.Lock()
	c.entries[key] = entry
	c.mutex.Unlock()
	return nil
}

func (c *memoryCache) Clear(context.Context) error {
	c.mutex.Lock()
	c.entries = make(map[string]Entry)
	c.mutex.Unlock()
	return nil
}

func (c *memoryCache) Stats(context.Context) (map[string]any, error) {
	now := time.Now()
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	total := len(c.entries)
	active := 0
	for _, entry := range c.entries {
		if now.Sub(entry.CachedAt) <= c.ttl {
			active++
		}
	}
	return map[string]any{
		"type":        "memory",
		"total":       total,
		"active":      active,
		"ttl_seconds": int(c.ttl.Seconds()),
	}, nil
}

func (c *memoryCache) Close(context.Context) error {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	return nil
}
