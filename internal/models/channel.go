package models

import "time"

// PlaceholderLogo is the sentinel logo URI emitted when no logo is
// available for a channel. The image transform layer recognises it and
// draws a placeholder instead of fetching.
const PlaceholderLogo = "https://via.placeholder.com/240x135.png?text=No+Logo"

// Channel represents a single playlist entry: either a standing channel
// or a dated one-off event (IsEvent). Event fields are only populated
// when IsEvent is true; Start is nil when the event time could not be
// extracted from the title.
type Channel struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Group     string            `json:"group"`
	Logo      string            `json:"logo,omitempty"`
	StreamURL string            `json:"stream_url"`
	GuideURL  string            `json:"guide_url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`

	IsEvent bool       `json:"is_event"`
	Sport   string     `json:"sport,omitempty"`
	Team1   string     `json:"team1,omitempty"`
	Team2   string     `json:"team2,omitempty"`
	Start   *time.Time `json:"start,omitempty"` // UTC event start
}
