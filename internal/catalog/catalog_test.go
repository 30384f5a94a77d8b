package catalog

import (
	"testing"
	"time"

	"github.com/voyagen/streamvault/internal/models"
)

func TestBuild(t *testing.T) {
	now := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)
	channels := map[string]models.Channel{
		"a": {ID: "a", Group: "Sports"},
		"b": {ID: "b", Group: "News"},
		"c": {ID: "c", Group: "Sports"},
		"d": {ID: "d", IsEvent: true, Sport: "NBA"},
		"e": {ID: "e", IsEvent: true, Sport: "NFL"},
	}

	sum := Build(channels, now)
	if sum.ChannelCount != 3 {
		t.Errorf("Expected 3 channels, got %d", sum.ChannelCount)
	}
	if sum.EventCount != 2 {
		t.Errorf("Expected 2 events, got %d", sum.EventCount)
	}
	if len(sum.Categories) != 2 || sum.Categories[0] != "News" || sum.Categories[1] != "Sports" {
		t.Errorf("Expected sorted categories [News Sports], got %v", sum.Categories)
	}
	if len(sum.Sports) != 2 || sum.Sports[0] != "NBA" || sum.Sports[1] != "NFL" {
		t.Errorf("Expected sorted sports [NBA NFL], got %v", sum.Sports)
	}
	if !sum.GeneratedAt.Equal(now) {
		t.Errorf("Expected generated_at %v, got %v", now, sum.GeneratedAt)
	}
}

func TestApplyOverridesExactWins(t *testing.T) {
	channels := []models.Channel{
		{ID: "espn.us", Logo: "http://old/espn.png"},
		{ID: "espn.uk", Logo: "http://old/espnuk.png"},
	}
	overrides := map[string]models.LogoOverride{
		"espn.us": {Pattern: "espn.us", LogoURL: "http://exact/logo.png"},
		"espn":    {Pattern: "espn", LogoURL: "http://regex/logo.png", IsRegex: true},
	}
	ApplyOverrides(channels, overrides)
	if channels[0].Logo != "http://exact/logo.png" {
		t.Errorf("Expected exact override to win, got '%s'", channels[0].Logo)
	}
	if channels[1].Logo != "http://regex/logo.png" {
		t.Errorf("Expected regex override, got '%s'", channels[1].Logo)
	}
}

func TestApplyOverridesAnchored(t *testing.T) {
	channels := []models.Channel{{ID: "us.espn", Logo: "http://old/logo.png"}}
	overrides := map[string]models.LogoOverride{
		"espn": {Pattern: "espn", LogoURL: "http://new/logo.png", IsRegex: true},
	}
	ApplyOverrides(channels, overrides)
	if channels[0].Logo != "http://old/logo.png" {
		t.Errorf("Expected pattern anchored at start not to match 'us.espn', got '%s'", channels[0].Logo)
	}
}

func TestApplyOverridesInvalidPatternSkipped(t *testing.T) {
	channels := []models.Channel{{ID: "espn.us", Logo: "http://old/logo.png"}}
	overrides := map[string]models.LogoOverride{
		"(": {Pattern: "(", LogoURL: "http://new/logo.png", IsRegex: true},
	}
	ApplyOverrides(channels, overrides)
	if channels[0].Logo != "http://old/logo.png" {
		t.Errorf("Expected invalid pattern to be skipped, got '%s'", channels[0].Logo)
	}
}
