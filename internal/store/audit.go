package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AuditEntry records one administrative action. The audit log is a
// single capped list shared across tenants.
type AuditEntry struct {
	ID     uuid.UUID `json:"id"`
	Time   time.Time `json:"time"`
	Action string    `json:"action"`
	Tenant string    `json:"tenant"`
	Detail string    `json:"detail,omitempty"`
}

const auditLogCap = 1000

// AppendAudit records an administrative action. Best effort: audit
// failures never fail the action they describe.
func (s *Store) AppendAudit(ctx context.Context, action, tenant, detail string) {
	entry := AuditEntry{
		ID:     uuid.New(),
		Time:   s.now().UTC(),
		Action: action,
		Tenant: tenant,
		Detail: detail,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		slog.Warn("audit marshal failed", "error", err)
		return
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, auditLogKey, data)
	pipe.LTrim(ctx, auditLogKey, 0, auditLogCap-1)
	pipe.Expire(ctx, auditLogKey, HistoryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("audit write failed", "action", action, "error", err)
	}
}

// RecentAudit returns the newest audit entries, most recent first.
func (s *Store) RecentAudit(ctx context.Context, n int64) ([]AuditEntry, error) {
	raw, err := s.client.LRange(ctx, auditLogKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("audit read: %w", err)
	}
	entries := make([]AuditEntry, 0, len(raw))
	for _, item := range raw {
		var e AuditEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// RunRecord summarises one ingest run for a tenant.
type RunRecord struct {
	Time     time.Time     `json:"time"`
	Status   string        `json:"status"`
	Channels int           `json:"channels"`
	Events   int           `json:"events"`
	Sources  int           `json:"sources"`
	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}

const runHistoryCap = 20

// AppendRunRecord pushes an ingest run summary onto the tenant's
// history. Best effort, like the audit log.
func (s *Store) AppendRunRecord(ctx context.Context, tenant string, rec RunRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Warn("run record marshal failed", "error", err)
		return
	}
	key := historyKey(tenant)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, runHistoryCap-1)
	pipe.Expire(ctx, key, HistoryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("run record write failed", "tenant", tenant, "error", err)
	}
}

// RunHistory returns the tenant's recent ingest runs, newest first.
func (s *Store) RunHistory(ctx context.Context, tenant string) ([]RunRecord, error) {
	raw, err := s.client.LRange(ctx, historyKey(tenant), 0, runHistoryCap-1).Result()
	if err != nil {
		return nil, fmt.Errorf("run history read: %w", err)
	}
	records := make([]RunRecord, 0, len(raw))
	for _, item := range raw {
		var r RunRecord
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
