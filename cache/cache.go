// Package cache wraps the Redis client used for course view counters. The
// client is constructed in main and passed to its consumers; counters are
// eventually consistent and have no coupling to the payout ledger.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func New(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Cache{client: client}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func viewKey(courseID string) string {
	return "course:views:" + courseID
}

func (c *Cache) IncrementCourseView(ctx context.Context, courseID string) (int64, error) {
	return c.client.Incr(ctx, viewKey(courseID)).Result()
}

func (c *Cache) CourseViews(ctx context.Context, courseID string) (int64, error) {
	count, err := c.client.Get(ctx, viewKey(courseID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}
