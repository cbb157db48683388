package cache

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type Memory[V any] struct {
	cache *gocache.Cache
}

func NewMemory[V any](config Config) *Memory[V] {
	if config.CleanupInterval == 0 {
		config.CleanupInterval = 10 * time.Minute
	}

	slog.Debug("Memory cache initialized", "cleanup_interval", config.CleanupInterval)

	return &Memory[V]{
		cache: gocache.New(gocache.NoExpiration, config.CleanupInterval),
	}
}

func (c *Memory[V]) Has(ctx context.Context, key string) (bool, error) {
	_, found := c.cache.Get(key)
	return found, nil
}

func (c *Memory[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	value, found := c.cache.Get(key)
	if !found {
		return zero, false, nil
	}

	typed, ok := value.(V)
	if !ok {
		return zero, false, nil
	}
	return typed, true, nil
}

func (c *Memory[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.cache.Set(key, value, ttl)
	slog.Debug("Memory cache stored entry", "key", key, "ttl", ttl)
	return nil
}

func (c *Memory[V]) Clear(ctx context.Context) error {
	c.cache.Flush()
	slog.Debug("Memory cache cleared")
	return nil
}

func (c *Memory[V]) Close() error {
	c.cache.Flush()
	return nil
}
