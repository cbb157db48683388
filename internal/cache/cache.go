package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeSQLite = "sqlite"
)

// Store is a string-keyed cache with per-entry expiry. Expired entries are
// never returned.
type Store[V any] interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Clear(ctx context.Context) error
	Close() error
}

type Config struct {
	Type            string
	Prefix          string
	CleanupInterval time.Duration

	Address  string
	Password string
	DB       int

	Path string
}

func Open[V any](ctx context.Context, config Config) (Store[V], error) {
	switch config.Type {
	case "", TypeMemory:
		return NewMemory[V](config), nil
	case TypeRedis:
		return NewRedis[V](ctx, config)
	case TypeSQLite:
		return NewSQLite[V](ctx, config.Path)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}
