package store

import (
	"context"
	"errors"

	"github.com/voyagen/streamvault/internal/models"
)

// StoreEPG replaces the tenant's merged guide wholesale. The blob
// carries its own TTL, independent of event lifetimes.
func (s *Store) StoreEPG(ctx context.Context, tenant string, guide map[string][]models.Program) error {
	return setJSON(ctx, s, epgKey(tenant), guide, EPGTTL)
}

// GetEPG returns the tenant's merged guide, or an empty map when none
// is stored.
func (s *Store) GetEPG(ctx context.Context, tenant string) (map[string][]models.Program, error) {
	guide, err := getJSON[map[string][]models.Program](ctx, s, epgKey(tenant))
	if errors.Is(err, ErrNotFound) {
		return map[string][]models.Program{}, nil
	}
	return guide, err
}

// GetChannelPrograms returns the program list for one channel, or nil
// when the tenant has no guide data for it.
func (s *Store) GetChannelPrograms(ctx context.Context, tenant, channelID string) ([]models.Program, error) {
	guide, err := s.GetEPG(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return guide[channelID], nil
}
