package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/game_catalog/internal/config"
)

const pingTimeout = 5 * time.Second

// NewRedisClient creates a Redis client and pings it. The client is closed when the ping fails.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.GetRedisAddr(), err)
	}

	return client, nil
}

// WaitForRedis retries NewRedisClient with a constant delay between attempts
func WaitForRedis(cfg *config.Config, maxRetries int, retryDelay time.Duration) (*redis.Client, error) {
	var client *redis.Client
	connect := func() error {
		var err error
		client, err = NewRedisClient(cfg)
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), uint64(max(maxRetries-1, 0)))
	if err := backoff.Retry(connect, policy); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis after %d retries: %w", maxRetries, err)
	}
	return client, nil
}
