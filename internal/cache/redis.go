package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "deliciousfeed"

// Redis stores JSON-encoded values under "<prefix>:<key>" and lets Redis
// expire them.
type Redis[V any] struct {
	client *redis.Client
	prefix string
}

func NewRedis[V any](ctx context.Context, config Config) (*Redis[V], error) {
	if config.Address == "" {
		config.Address = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Address, err)
	}

	slog.Info("Redis cache initialized", "address", config.Address, "db", config.DB)
	return NewRedisWithClient[V](client, config.Prefix), nil
}

func NewRedisWithClient[V any](client *redis.Client, prefix string) *Redis[V] {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis[V]{
		client: client,
		prefix: prefix,
	}
}

func (c *Redis[V]) key(key string) string {
	return c.prefix + ":" + key
}

func (c *Redis[V]) Has(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key %s: %w", key, err)
	}
	return n > 0, nil
}

func (c *Redis[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, false, fmt.Errorf("failed to decode cached value for %s: %w", key, err)
	}
	return value, true, nil
}

func (c *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}

	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}

	slog.Debug("Redis cache stored entry", "key", key, "ttl", ttl)
	return nil
}

func (c *Redis[V]) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+":*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}

	slog.Debug("Redis cache cleared", "prefix", c.prefix, "keys", len(keys))
	return nil
}

func (c *Redis[V]) Close() error {
	return c.client.Close()
}
