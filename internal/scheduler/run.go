package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/voyagen/streamvault/internal/match"
	"github.com/voyagen/streamvault/internal/models"
	"github.com/voyagen/streamvault/internal/playlist"
	"github.com/voyagen/streamvault/internal/store"
)

// ingestLockTTL bounds how long a crashed run can block its tenant.
const ingestLockTTL = 30 * time.Minute

// Run statuses recorded in the tenant's refresh history.
const (
	StatusSuccess        = "success"
	StatusPartialFailure = "partial_failure"
	StatusFatal          = "fatal"
)

// run executes one refresh for a tenant. A failing source degrades the
// run, it does not abort it; only a run yielding zero channels is fatal,
// and a fatal run leaves the existing catalog untouched.
func (s *Scheduler) run(ctx context.Context, tenant string, cfg models.TenantConfig) error {
	unlock, err := s.store.TryLockIngest(ctx, tenant, ingestLockTTL)
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			slog.Info("refresh already running", "tenant", tenant)
			return err
		}
		return fmt.Errorf("refresh %s: %w", tenant, err)
	}
	defer unlock()

	started := time.Now()
	var (
		channels  []models.Channel
		guideURLs []string
		srcErrs   []string
	)
	for _, source := range cfg.Sources {
		content, err := playlist.FetchSource(ctx, s.client, source, s.userAgent)
		if err != nil {
			slog.Warn("playlist source failed", "tenant", tenant, "source", source, "error", err)
			srcErrs = append(srcErrs, fmt.Sprintf("%s: %v", source, err))
			continue
		}
		res, err := s.playlist.Parse(content)
		if err != nil {
			slog.Warn("playlist source unparseable", "tenant", tenant, "source", source, "error", err)
			srcErrs = append(srcErrs, fmt.Sprintf("%s: %v", source, err))
			continue
		}
		channels = append(channels, res.Channels...)
		guideURLs = append(guideURLs, res.GuideURLs...)
	}

	status := deriveStatus(len(channels), len(srcErrs))
	rec := store.RunRecord{
		Time:    started.UTC(),
		Status:  status,
		Sources: len(cfg.Sources),
		Errors:  srcErrs,
	}

	if status == StatusFatal {
		rec.Duration = time.Since(started)
		s.store.AppendRunRecord(ctx, tenant, rec)
		return fmt.Errorf("refresh %s: no source yielded channels", tenant)
	}

	events := 0
	for _, ch := range channels {
		if ch.IsEvent {
			events++
		}
	}
	rec.Channels = len(channels)
	rec.Events = events

	if err := s.store.StoreChannels(ctx, tenant, channels); err != nil {
		rec.Status = StatusFatal
		rec.Errors = append(rec.Errors, err.Error())
		rec.Duration = time.Since(started)
		s.store.AppendRunRecord(ctx, tenant, rec)
		return fmt.Errorf("refresh %s: %w", tenant, err)
	}

	rec.Errors = append(rec.Errors, s.refreshGuide(ctx, tenant, channels, guideURLs)...)

	rec.Duration = time.Since(started)
	s.store.AppendRunRecord(ctx, tenant, rec)
	slog.Info("refresh complete",
		"tenant", tenant,
		"status", rec.Status,
		"channels", rec.Channels,
		"events", rec.Events,
		"duration", rec.Duration)
	return nil
}

// refreshGuide gathers EPG sources from the playlists (url-tvg headers
// plus per-channel guide URLs), merges them, and stores the result.
// Guide failures never fail the refresh; the catalog stands on its own.
// They are returned so the run record reflects them.
func (s *Scheduler) refreshGuide(ctx context.Context, tenant string, channels []models.Channel, guideURLs []string) []string {
	sources := make([]string, 0, len(guideURLs))
	seen := make(map[string]struct{})
	for _, u := range guideURLs {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			sources = append(sources, u)
		}
	}
	for _, ch := range channels {
		if ch.GuideURL == "" {
			continue
		}
		if _, ok := seen[ch.GuideURL]; !ok {
			seen[ch.GuideURL] = struct{}{}
			sources = append(sources, ch.GuideURL)
		}
	}
	if len(sources) == 0 {
		return nil
	}

	var guideErrs []string
	merged := make(map[string][]models.Program)
	for _, source := range sources {
		guide, err := s.epg.Fetch(ctx, source)
		if err != nil {
			slog.Warn("EPG source failed", "tenant", tenant, "source", source, "error", err)
			guideErrs = append(guideErrs, fmt.Sprintf("%s: %v", source, err))
			continue
		}
		match.Merge(merged, match.Match(guide, channels))
	}
	if len(merged) == 0 {
		return guideErrs
	}

	if err := s.store.StoreEPG(ctx, tenant, merged); err != nil {
		slog.Warn("EPG store failed", "tenant", tenant, "error", err)
		guideErrs = append(guideErrs, fmt.Sprintf("store guide: %v", err))
		return guideErrs
	}
	// Guide data feeds the manifest too, so invalidate once more after
	// the EPG write.
	if err := s.store.InvalidateManifest(ctx, tenant); err != nil {
		slog.Warn("manifest invalidation failed", "tenant", tenant, "error", err)
	}
	return guideErrs
}

// deriveStatus classifies a run from its channel yield and source
// failures.
func deriveStatus(channelCount, errCount int) string {
	switch {
	case channelCount == 0:
		return StatusFatal
	case errCount > 0:
		return StatusPartialFailure
	default:
		return StatusSuccess
	}
}
