package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// StoreProcessedImage caches a rendered image blob. The cache degrades
// gracefully: a write failure is logged and swallowed so image serving
// keeps working, just slower.
func (s *Store) StoreProcessedImage(ctx context.Context, cacheKey string, data []byte) {
	if err := s.client.Set(ctx, imageKey(cacheKey), data, ImageTTL).Err(); err != nil {
		slog.Warn("image cache write failed", "key", cacheKey, "error", err)
	}
}

// GetProcessedImage returns a cached image blob, or nil when absent.
func (s *Store) GetProcessedImage(ctx context.Context, cacheKey string) ([]byte, error) {
	raw, err := s.client.Get(ctx, imageKey(cacheKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return raw, err
}
