// Package scheduler owns per-tenant refresh jobs and the ingest run
// itself: fetch playlists, parse channels, merge EPG data, and replace
// the tenant's stored catalog.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/voyagen/streamvault/internal/epg"
	"github.com/voyagen/streamvault/internal/models"
	"github.com/voyagen/streamvault/internal/playlist"
	"github.com/voyagen/streamvault/internal/store"
)

// Scheduler runs one cron entry per tenant. Registration replaces any
// existing entry atomically, so a tenant never has two concurrent
// schedules.
type Scheduler struct {
	store     *store.Store
	playlist  *playlist.Parser
	epg       *epg.Parser
	client    *http.Client
	userAgent string

	cron *cron.Cron

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// New builds a Scheduler. The HTTP client bounds per-source fetch time.
func New(st *store.Store, pl *playlist.Parser, ep *epg.Parser, client *http.Client, userAgent string) *Scheduler {
	return &Scheduler{
		store:     st,
		playlist:  pl,
		epg:       ep,
		client:    client,
		userAgent: userAgent,
		cron:      cron.New(),
		jobs:      make(map[string]cron.EntryID),
	}
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for any in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Register installs or replaces the tenant's refresh job. The schedule
// is validated before the old entry is touched, so a bad expression
// never drops a working job.
func (s *Scheduler) Register(tenant, schedule string) error {
	if schedule == "" {
		schedule = models.DefaultSchedule
	}
	spec, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("%w: cron expression %q: %v", models.ErrConfigInvalid, schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.jobs[tenant]; ok {
		s.cron.Remove(old)
	}
	s.jobs[tenant] = s.cron.Schedule(spec, cron.FuncJob(func() {
		s.runScheduled(tenant)
	}))
	return nil
}

// Remove drops the tenant's refresh job, if any.
func (s *Scheduler) Remove(tenant string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.jobs[tenant]; ok {
		s.cron.Remove(id)
		delete(s.jobs, tenant)
	}
}

// ReloadAll rebuilds every job from stored tenant configurations.
// Called at startup so schedules survive restarts.
func (s *Scheduler) ReloadAll(ctx context.Context) error {
	tenants, err := s.store.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("reload schedules: %w", err)
	}

	s.mu.Lock()
	for tenant, id := range s.jobs {
		s.cron.Remove(id)
		delete(s.jobs, tenant)
	}
	s.mu.Unlock()

	for _, tenant := range tenants {
		cfg, err := s.store.GetTenantConfig(ctx, tenant)
		if err != nil {
			slog.Warn("skipping tenant with unreadable config", "tenant", tenant, "error", err)
			continue
		}
		if err := s.Register(tenant, cfg.Schedule); err != nil {
			slog.Warn("skipping tenant with invalid schedule", "tenant", tenant, "error", err)
		}
	}
	slog.Info("schedules reloaded", "tenants", len(tenants))
	return nil
}

// TriggerNow runs a refresh for the tenant synchronously.
func (s *Scheduler) TriggerNow(ctx context.Context, tenant string, cfg models.TenantConfig) error {
	return s.run(ctx, tenant, cfg)
}

// runScheduled is the cron entry point. It re-reads the configuration
// so schedule-time state, not registration-time state, drives the run.
func (s *Scheduler) runScheduled(tenant string) {
	ctx := context.Background()
	cfg, err := s.store.GetTenantConfig(ctx, tenant)
	if err != nil {
		slog.Error("scheduled refresh skipped: config unreadable", "tenant", tenant, "error", err)
		return
	}
	if err := s.run(ctx, tenant, cfg); err != nil {
		slog.Error("scheduled refresh failed", "tenant", tenant, "error", err)
	}
}
