package cache

import (
	"fmt"
)

// Driver identifiers supported by the presign cache.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// New creates a URL cache based on the provided configuration.
func New(cfg Config) (Cache, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(cfg), nil
	case DriverRedis:
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported presign cache driver: %s", driver)
	}
}
