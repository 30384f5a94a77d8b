package models

import "time"

// Program is one guide entry for a channel, produced by the EPG parser.
// Start and Stop are UTC; Stop may be the zero value when the feed
// omits it.
type Program struct {
	ChannelID   string    `json:"channel_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop,omitempty"`
}
