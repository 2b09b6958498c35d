// Package cache provides a Redis-backed cache for shortened URL records.
//
// The cache sits in front of the persistent store on the redirect path.
// Entries are JSON-serialized records keyed by a fixed prefix plus the
// short code and expire after a configurable TTL. A missing entry is a
// normal miss, not an error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/udogan/url-shortener/internal/models"
)

// ErrCacheMiss is returned when the requested short code has no cache entry.
var ErrCacheMiss = errors.New("cache miss")

// New connects to Redis with the given options and verifies the
// connection with a ping.
func New(ctx context.Context, opt *redis.Options) (*redis.Client, error) {
	const op = "cache.New"

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return client, nil
}

// URLCache caches URL records in Redis.
type URLCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewURLCache returns a URLCache that stores entries under the given key
// prefix with the given TTL.
func NewURLCache(client *redis.Client, prefix string, ttl time.Duration) *URLCache {
	return &URLCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *URLCache) key(shortCode string) string {
	return c.prefix + shortCode
}

// Get retrieves the cached record for the given short code.
// It returns ErrCacheMiss when no entry exists.
func (c *URLCache) Get(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "cache.URLCache.Get"

	data, err := c.client.Get(ctx, c.key(shortCode)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, ErrCacheMiss)
		}

		return nil, fmt.Errorf("%s: failed to get cache entry: %w", op, err)
	}

	url := new(models.URL)
	if err := json.Unmarshal(data, url); err != nil {
		return nil, fmt.Errorf("%s: failed to unmarshal cache entry: %w", op, err)
	}

	return url, nil
}

// Set stores the record under its short code, resetting the TTL.
func (c *URLCache) Set(ctx context.Context, url *models.URL) error {
	const op = "cache.URLCache.Set"

	data, err := json.Marshal(url)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal cache entry: %w", op, err)
	}

	if err := c.client.Set(ctx, c.key(url.ShortCode), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set cache entry: %w", op, err)
	}

	return nil
}

// Delete removes the cache entry for the given short code. Deleting an
// absent entry is not an error.
func (c *URLCache) Delete(ctx context.Context, shortCode string) error {
	const op = "cache.URLCache.Delete"

	if err := c.client.Del(ctx, c.key(shortCode)).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete cache entry: %w", op, err)
	}

	return nil
}
