package match

import (
	"testing"
	"time"

	"github.com/voyagen/streamvault/internal/models"
)

func prog(channel, title string, start time.Time) models.Program {
	return models.Program{ChannelID: channel, Title: title, Start: start}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("ESPN.US"); got != "espn us" {
		t.Errorf("Expected 'espn us', got '%s'", got)
	}
	if Normalize("ESPN.US") != Normalize("espn_us") {
		t.Error("Expected dot and underscore forms to normalize equal")
	}
}

func TestMatchExactID(t *testing.T) {
	channels := []models.Channel{{ID: "espn.us", Name: "ESPN"}}
	guide := map[string][]models.Program{
		"espn.us": {prog("espn.us", "Game", time.Now())},
	}
	matched := Match(guide, channels)
	if len(matched["espn.us"]) != 1 {
		t.Fatalf("Expected exact-id match, got %v", matched)
	}
}

func TestMatchByName(t *testing.T) {
	channels := []models.Channel{{ID: "ch-42", Name: "espn"}}
	guide := map[string][]models.Program{
		"ESPN.US": {prog("ESPN.US", "Game", time.Now())},
	}
	matched := Match(guide, channels)
	if len(matched["ch-42"]) != 1 {
		t.Fatalf("Expected name-based match onto 'ch-42', got %v", matched)
	}
}

func TestMatchUnmatchedDropped(t *testing.T) {
	channels := []models.Channel{{ID: "abc", Name: "Some Channel"}}
	guide := map[string][]models.Program{
		"totally.unrelated.zzz": {prog("totally.unrelated.zzz", "Game", time.Now())},
	}
	matched := Match(guide, channels)
	if len(matched) != 0 {
		t.Fatalf("Expected unmatched EPG channel to be dropped, got %v", matched)
	}
}

func TestMatchSortsPrograms(t *testing.T) {
	channels := []models.Channel{{ID: "espn.us", Name: "ESPN"}}
	base := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)
	guide := map[string][]models.Program{
		"espn.us": {
			prog("espn.us", "Later", base.Add(2*time.Hour)),
			prog("espn.us", "Earlier", base),
		},
	}
	matched := Match(guide, channels)
	progs := matched["espn.us"]
	if len(progs) != 2 || progs[0].Title != "Earlier" {
		t.Fatalf("Expected programs sorted by start, got %v", progs)
	}
}

func TestMerge(t *testing.T) {
	base := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)
	into := map[string][]models.Program{
		"a": {prog("a", "Second", base.Add(time.Hour))},
	}
	from := map[string][]models.Program{
		"a": {prog("a", "First", base)},
		"b": {prog("b", "Only", base)},
	}
	Merge(into, from)
	if len(into["a"]) != 2 || into["a"][0].Title != "First" {
		t.Errorf("Expected merged and sorted list for 'a', got %v", into["a"])
	}
	if len(into["b"]) != 1 {
		t.Errorf("Expected 'b' to be added, got %v", into["b"])
	}
}
