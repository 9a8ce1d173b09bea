// Package cache adapts Redis to the key-value interface the waiting list
// service memoizes positions and counts through.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"agora/internal/config"
)

type Redis struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection with a ping.
func New(conf *config.Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,

		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	return &Redis{client: client}, nil
}

// NewWithClient wraps an existing client. Used by tests with a mock client.
func NewWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// GetInt reads an integer value; the second return reports a hit.
// A missing key is a miss, not an error.
func (r *Redis) GetInt(ctx context.Context, key string) (int64, bool, error) {
	v, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (r *Redis) SetInt(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Healthy pings the server with a short deadline.
func (r *Redis) Healthy() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
