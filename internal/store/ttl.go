package store

import "time"

// TTL policy. Centralised here as pure functions of an explicit "now"
// so expiry behavior is testable without touching the clock.
const (
	// EventGrace keeps an event visible after its scheduled start.
	EventGrace = 4 * time.Hour
	// EPGTTL bounds guide data; ingestion refreshes it well before.
	EPGTTL = 7 * 24 * time.Hour
	// ImageTTL bounds the processed-image cache.
	ImageTTL = 7 * 24 * time.Hour
	// ManifestTTL bounds the derived catalog summary.
	ManifestTTL = 15 * time.Minute
	// HistoryTTL bounds parse history and the audit trail.
	HistoryTTL = 90 * 24 * time.Hour
)

// EventTTL returns the remaining lifetime of an event that starts at
// start: the interval until start plus the grace window. A value <= 0
// means the event is already past and must not be stored.
func EventTTL(start, now time.Time) time.Duration {
	return start.Add(EventGrace).Sub(now)
}
