// Package cache provides a redis-backed store for resolved thumbnails, so
// repeated archive runs skip the network probes for videos seen before.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ThumbnailTTL bounds how long a resolved thumbnail is trusted.
const ThumbnailTTL = 30 * 24 * time.Hour

// Cache maps video IDs to resolved thumbnail URLs in redis. Keys
// carry the configured prefix and expire after ThumbnailTTL.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to url and verifies the connection.
func NewRedisCache(url string, prefix string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return New(client, prefix), nil
}

// New wraps an existing client.
func New(client *redis.Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix, ttl: ThumbnailTTL}
}

// Key joins parts with ":" under the cache prefix.
func (c *Cache) Key(parts ...string) string {
	if c.prefix == "" {
		return strings.Join(parts, ":")
	}
	return c.prefix + ":" + strings.Join(parts, ":")
}

// Get returns the cached thumbnail for videoID. Cache errors count as a miss.
func (c *Cache) Get(ctx context.Context, videoID string) (string, bool) {
	url, err := c.client.Get(ctx, c.Key("thumb", videoID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Thumbnail cache read failed", "video_id", videoID, "error", err)
		}
		return "", false
	}
	return url, true
}

// Set stores the thumbnail for videoID. Failures are logged and ignored.
func (c *Cache) Set(ctx context.Context, videoID, url string) {
	if err := c.client.Set(ctx, c.Key("thumb", videoID), url, c.ttl).Err(); err != nil {
		slog.Warn("Thumbnail cache write failed", "video_id", videoID, "error", err)
	}
}

// Close closes the redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
