package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/grafana/regexp"

	"github.com/voyagen/streamvault/internal/models"
)

// imageKinds are the processed-image variants derived per channel.
var imageKinds = []string{"poster", "background", "logo", "icon"}

// StoreLogoOverride writes a logo override and invalidates the cached
// images of every channel the pattern currently matches, so the next
// image request re-renders with the new logo.
func (s *Store) StoreLogoOverride(ctx context.Context, tenant string, ov models.LogoOverride) error {
	if ov.IsRegex {
		if _, err := regexp.Compile(ov.Pattern); err != nil {
			return fmt.Errorf("%w: logo override pattern %q: %v", models.ErrConfigInvalid, ov.Pattern, err)
		}
	}
	if err := setJSON(ctx, s, overrideKey(tenant, ov.Pattern), ov, 0); err != nil {
		return fmt.Errorf("store logo override: %w", err)
	}
	s.invalidateImagesFor(ctx, tenant, ov)
	return nil
}

// DeleteLogoOverride removes an override and invalidates the affected
// image cache entries, restoring the original logos on next render.
func (s *Store) DeleteLogoOverride(ctx context.Context, tenant, pattern string) error {
	ov, err := getJSON[models.LogoOverride](ctx, s, overrideKey(tenant, pattern))
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, overrideKey(tenant, pattern)).Err(); err != nil {
		return fmt.Errorf("delete logo override: %w", err)
	}
	s.invalidateImagesFor(ctx, tenant, ov)
	return nil
}

// GetLogoOverride resolves the override for one channel id. Exact
// matches take precedence over regex patterns.
func (s *Store) GetLogoOverride(ctx context.Context, tenant, channelID string) (string, bool, error) {
	if ov, err := getJSON[models.LogoOverride](ctx, s, overrideKey(tenant, channelID)); err == nil && !ov.IsRegex {
		return ov.LogoURL, true, nil
	}
	overrides, err := s.ListLogoOverrides(ctx, tenant)
	if err != nil {
		return "", false, err
	}
	for pattern, ov := range overrides {
		if !ov.IsRegex {
			continue
		}
		re, err := regexp.Compile("^(?:" + pattern + ")")
		if err != nil {
			slog.Warn("invalid logo override pattern", "pattern", pattern)
			continue
		}
		if re.MatchString(channelID) {
			return ov.LogoURL, true, nil
		}
	}
	return "", false, nil
}

// ListLogoOverrides returns all overrides for a tenant keyed by pattern.
func (s *Store) ListLogoOverrides(ctx context.Context, tenant string) (map[string]models.LogoOverride, error) {
	keys, err := s.scanKeys(ctx, overridePattern(tenant))
	if err != nil {
		return nil, err
	}
	prefix := overrideKey(tenant, "")
	overrides := make(map[string]models.LogoOverride, len(keys))
	for _, key := range keys {
		ov, err := getJSON[models.LogoOverride](ctx, s, key)
		if err != nil {
			continue
		}
		overrides[strings.TrimPrefix(key, prefix)] = ov
	}
	return overrides, nil
}

// invalidateImagesFor drops cached images for every channel id the
// override touches. Regex overrides expand against the current channel
// set, not just future ones. Best effort: failures are logged.
func (s *Store) invalidateImagesFor(ctx context.Context, tenant string, ov models.LogoOverride) {
	ids := []string{ov.Pattern}
	if ov.IsRegex {
		re, err := regexp.Compile("^(?:" + ov.Pattern + ")")
		if err != nil {
			return
		}
		channels, err := s.GetAllChannels(ctx, tenant)
		if err != nil {
			slog.Warn("image cache invalidation skipped", "error", err)
			return
		}
		ids = ids[:0]
		for id := range channels {
			if re.MatchString(id) {
				ids = append(ids, id)
			}
		}
	}
	for _, id := range ids {
		for _, kind := range imageKinds {
			if err := s.client.Del(ctx, imageKey(ImageCacheKey(id, kind))).Err(); err != nil {
				slog.Warn("image cache invalidation failed", "channel", id, "error", err)
			}
			if err := s.delPattern(ctx, imageKey(ImageCacheKey(id, kind))+"_placeholder_*"); err != nil {
				slog.Warn("placeholder cache invalidation failed", "channel", id, "error", err)
			}
		}
	}
}
