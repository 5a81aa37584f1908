package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/game_catalog/internal/domain"
)

// RedisCache caches each user's review of a game for the catalog API
type RedisCache struct {
	client    *redis.Client
	reviewTTL time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, reviewTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    client,
		reviewTTL: reviewTTL,
	}
}

func reviewKey(userID, gameID int64) string {
	return fmt.Sprintf("review:user:%d:game:%d", userID, gameID)
}

// GetReview retrieves the cached review of userID for gameID
func (c *RedisCache) GetReview(ctx context.Context, userID, gameID int64) (*domain.Review, error) {
	val, err := c.client.Get(ctx, reviewKey(userID, gameID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var review domain.Review
	if err := json.Unmarshal(val, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

// SetReview stores a review in cache
func (c *RedisCache) SetReview(ctx context.Context, userID, gameID int64, review *domain.Review) error {
	data, err := json.Marshal(review)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, reviewKey(userID, gameID), data, c.reviewTTL).Err()
}

// InvalidateReview removes the cached review of userID for gameID
func (c *RedisCache) InvalidateReview(ctx context.Context, userID, gameID int64) error {
	err := c.client.Del(ctx, reviewKey(userID, gameID)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
