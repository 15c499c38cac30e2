package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// kvPrefix namespaces poller keys inside a shared Redis.
const kvPrefix = "kv:"

type RedisStore struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// GetValue implements KeyValueStore.
func (s *RedisStore) GetValue(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, kvPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting %s: %w", key, err)
	}
	return val, true, nil
}

// SetValue implements KeyValueStore.
func (s *RedisStore) SetValue(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, kvPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}
