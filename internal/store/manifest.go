package store

import (
	"context"
	"log/slog"

	"github.com/voyagen/streamvault/internal/catalog"
)

// CachedManifest returns the tenant's catalog summary, serving from the
// manifest cache when fresh and rebuilding from the live channel set
// otherwise. Failing to write the cache entry is logged, not fatal.
func (s *Store) CachedManifest(ctx context.Context, tenant string) (catalog.Summary, error) {
	key := manifestKey(tenant)
	if v, err := getJSON[catalog.Summary](ctx, s, key); err == nil {
		return v, nil
	}
	channels, err := s.GetAllChannels(ctx, tenant)
	if err != nil {
		return catalog.Summary{}, err
	}
	sum := catalog.Build(channels, s.now())
	if err := setJSON(ctx, s, key, sum, ManifestTTL); err != nil {
		slog.Warn("manifest cache write failed", "error", err)
	}
	return sum, nil
}

// InvalidateManifest drops the cached summary. Called after every
// channel-set replacement and configuration change.
func (s *Store) InvalidateManifest(ctx context.Context, tenant string) error {
	return s.client.Del(ctx, manifestKey(tenant)).Err()
}
