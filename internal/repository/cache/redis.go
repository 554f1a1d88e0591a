package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/oshokin/panel-sentinel/internal/config"
	"github.com/oshokin/panel-sentinel/internal/repository/store"
)

// RedisKeyValue stores keys in redis under a common prefix, without expiry.
type RedisKeyValue struct {
	client *redis.Client
	prefix string
}

var _ store.KeyValue = (*RedisKeyValue)(nil)

// NewRedisClient builds a client from the cache settings.
func NewRedisClient(cfg *config.CacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// NewRedisKeyValue wraps client. Keys are stored as prefix+key.
func NewRedisKeyValue(client *redis.Client, prefix string) *RedisKeyValue {
	return &RedisKeyValue{
		client: client,
		prefix: prefix,
	}
}

// Ping checks that redis is reachable.
func (r *RedisKeyValue) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	return nil
}

// Close closes the underlying client.
func (r *RedisKeyValue) Close() error {
	return r.client.Close()
}

// CacheGet implements store.KeyValue.
func (r *RedisKeyValue) CacheGet(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", store.ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("redis get %q: %w", key, err)
	}

	return value, nil
}

// CacheSet implements store.KeyValue.
func (r *RedisKeyValue) CacheSet(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}

	return nil
}
