package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
)

// RedisCache implements caching for rating stats and review list pages
type RedisCache struct {
	client         *redis.Client
	ratingStatsTTL time.Duration
	reviewsListTTL time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, ratingStatsTTL, reviewsListTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:         client,
		ratingStatsTTL: ratingStatsTTL,
		reviewsListTTL: reviewsListTTL,
	}
}

// cachedPage is the stored shape of one review list page
type cachedPage struct {
	Reviews []*domain.Review `json:"reviews"`
	Total   int              `json:"total"`
}

func (c *RedisCache) ratingStatsKey(productID int64) string {
	return fmt.Sprintf("product:%d:rating_stats", productID)
}

func (c *RedisCache) reviewsListKey(f domain.ReviewFilter) string {
	minRating, maxRating := 0, 0
	if f.MinRating != nil {
		minRating = *f.MinRating
	}
	if f.MaxRating != nil {
		maxRating = *f.MaxRating
	}
	return fmt.Sprintf("product:%d:reviews:p%d:l%d:s%s:%s:r%d-%d:v%t:q%s",
		f.ProductID, f.Page, f.Limit, f.SortBy, f.SortOrder, minRating, maxRating, f.VerifiedOnly, f.Query)
}

func (c *RedisCache) productCacheKeysSet(productID int64) string {
	return fmt.Sprintf("product:%d:cache_keys", productID)
}

// GetRatingStats retrieves cached rating stats for a product
func (c *RedisCache) GetRatingStats(ctx context.Context, productID int64) (*domain.RatingStats, error) {
	val, err := c.client.Get(ctx, c.ratingStatsKey(productID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var stats domain.RatingStats
	if err := json.Unmarshal([]byte(val), &stats); err != nil {
		return nil, err
	}

	return &stats, nil
}

// SetRatingStats stores rating stats in cache
func (c *RedisCache) SetRatingStats(ctx context.Context, stats *domain.RatingStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.ratingStatsKey(stats.ProductID), data, c.ratingStatsTTL).Err()
}

// GetReviewsList retrieves a cached review list page for a filter
func (c *RedisCache) GetReviewsList(ctx context.Context, f domain.ReviewFilter) ([]*domain.Review, int, error) {
	val, err := c.client.Get(ctx, c.reviewsListKey(f)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, err
	}

	var page cachedPage
	if err := json.Unmarshal([]byte(val), &page); err != nil {
		return nil, 0, err
	}

	return page.Reviews, page.Total, nil
}

// SetReviewsList stores a review list page in cache and tracks the key in a SET
func (c *RedisCache) SetReviewsList(ctx context.Context, f domain.ReviewFilter, reviews []*domain.Review, total int) error {
	key := c.reviewsListKey(f)
	trackingKey := c.productCacheKeysSet(f.ProductID)

	data, err := json.Marshal(cachedPage{Reviews: reviews, Total: total})
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.reviewsListTTL)
	pipe.SAdd(ctx, trackingKey, key)
	pipe.Expire(ctx, trackingKey, c.reviewsListTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateProduct removes every cache entry for a product using SET-based
// key tracking
func (c *RedisCache) InvalidateProduct(ctx context.Context, productID int64) error {
	trackingKey := c.productCacheKeysSet(productID)

	keys, err := c.client.SMembers(ctx, trackingKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	keys = append(keys, trackingKey, c.ratingStatsKey(productID))
	return c.client.Unlink(ctx, keys...).Err()
}
