package store

import (
	"context"
	"fmt"
	"time"
)

// Allow applies a fixed-window rate limit to one client. The counter is
// shared across server instances. The window expiry is set only when
// the counter is created, so a steady stream of requests cannot keep
// extending the window.
func (s *Store) Allow(ctx context.Context, client string, limit int64, window time.Duration) (bool, error) {
	key := rateLimitKey(client)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}
	return incr.Val() <= limit, nil
}
