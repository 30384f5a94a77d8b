package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/voyagen/streamvault/internal/models"
)

// StoreTenantConfig writes a tenant's configuration. Configurations are
// replaced wholesale; the manifest cache is invalidated because the
// catalog may change shape with new sources.
func (s *Store) StoreTenantConfig(ctx context.Context, tenant string, cfg models.TenantConfig) error {
	if err := setJSON(ctx, s, tenantConfigKey(tenant), cfg, 0); err != nil {
		return fmt.Errorf("store tenant config: %w", err)
	}
	return s.InvalidateManifest(ctx, tenant)
}

// GetTenantConfig returns a tenant's configuration, or ErrNotFound when
// the tenant is not configured.
func (s *Store) GetTenantConfig(ctx context.Context, tenant string) (models.TenantConfig, error) {
	return getJSON[models.TenantConfig](ctx, s, tenantConfigKey(tenant))
}

// ListTenants enumerates every configured tenant token. The scheduler
// treats this as complete ground truth when rebuilding jobs.
func (s *Store) ListTenants(ctx context.Context) ([]string, error) {
	keys, err := s.scanKeys(ctx, tenantConfigKey("*"))
	if err != nil {
		return nil, err
	}
	prefix := tenantConfigKey("")
	tenants := make([]string, 0, len(keys))
	for _, key := range keys {
		tenants = append(tenants, strings.TrimPrefix(key, prefix))
	}
	return tenants, nil
}

// DeleteTenant purges a tenant's configuration and every derived
// record. The scheduler entry is removed separately by the caller.
func (s *Store) DeleteTenant(ctx context.Context, tenant string) error {
	if err := s.client.Del(ctx,
		tenantConfigKey(tenant),
		epgKey(tenant),
		manifestKey(tenant),
		historyKey(tenant),
	).Err(); err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if err := s.delPattern(ctx, channelPattern(tenant)); err != nil {
		return err
	}
	return s.delPattern(ctx, overridePattern(tenant))
}
