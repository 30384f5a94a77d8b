package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/voyagen/streamvault/internal/models"
)

// StoreChannels replaces the tenant's entire channel set. Event records
// with a resolved start get TTL = start + grace - now and are skipped
// entirely when that is already non-positive; non-events and events
// without a resolved start are stored without expiry. Keys from the
// previous set that are absent from the new one are deleted, and the
// manifest cache is invalidated as the final step so readers never pair
// a fresh channel set with a stale manifest.
func (s *Store) StoreChannels(ctx context.Context, tenant string, channels []models.Channel) error {
	now := s.now()
	existing, err := s.scanKeys(ctx, channelPattern(tenant))
	if err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(channels))
	pipe := s.client.Pipeline()
	for _, ch := range channels {
		key := channelKey(tenant, ch.ID)
		data, err := json.Marshal(ch)
		if err != nil {
			return fmt.Errorf("store marshal channel %s: %w", ch.ID, err)
		}
		if ch.IsEvent && ch.Start != nil {
			ttl := EventTTL(*ch.Start, now)
			if ttl <= 0 {
				// Already past the grace window; invisible immediately.
				continue
			}
			pipe.Set(ctx, key, data, ttl)
		} else {
			pipe.Set(ctx, key, data, 0)
		}
		keep[key] = struct{}{}
	}

	var stale []string
	for _, key := range existing {
		if _, ok := keep[key]; !ok {
			stale = append(stale, key)
		}
	}
	if len(stale) > 0 {
		pipe.Del(ctx, stale...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store channels for tenant: %w", err)
	}
	return s.InvalidateManifest(ctx, tenant)
}

// GetAllChannels returns the tenant's live channel set keyed by channel
// id. TTL eviction in Redis is authoritative; expired events simply do
// not appear.
func (s *Store) GetAllChannels(ctx context.Context, tenant string) (map[string]models.Channel, error) {
	keys, err := s.scanKeys(ctx, channelPattern(tenant))
	if err != nil {
		return nil, err
	}
	channels := make(map[string]models.Channel, len(keys))
	if len(keys) == 0 {
		return channels, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("fetch channels: %w", err)
	}

	prefix := strings.TrimSuffix(channelPattern(tenant), "*")
	for i, cmd := range cmds {
		raw, err := cmd.Bytes()
		if err != nil {
			// Key expired between SCAN and GET.
			continue
		}
		var ch models.Channel
		if err := json.Unmarshal(raw, &ch); err != nil {
			continue
		}
		id := strings.TrimPrefix(keys[i], prefix)
		channels[id] = ch
	}
	return channels, nil
}

// GetChannel returns one channel record, or ErrNotFound.
func (s *Store) GetChannel(ctx context.Context, tenant, id string) (models.Channel, error) {
	return getJSON[models.Channel](ctx, s, channelKey(tenant, id))
}
