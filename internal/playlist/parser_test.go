package playlist

import (
	"errors"
	"testing"
	"time"

	"github.com/voyagen/streamvault/internal/models"
)

// fixedNow keeps event classification deterministic: the fixture event
// starts 2025-11-08, so the clock is pinned shortly before it.
var fixedNow = time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)

func newTestParser() *Parser {
	p := NewParser("", "")
	p.Now = func() time.Time { return fixedNow }
	return p
}

func TestParseMissingHeader(t *testing.T) {
	_, err := newTestParser().Parse("#EXTINF:-1,Some Channel\nhttp://example.com/stream")
	if !errors.Is(err, ErrNoHeader) {
		t.Fatalf("Expected ErrNoHeader, got %v", err)
	}
}

func TestParseTrimsLeadingGarbage(t *testing.T) {
	content := "some proxy banner\n#EXTM3U\n" +
		"#EXTINF:-1 tvg-id=\"espn.us\" group-title=\"Sports\",ESPN\n" +
		"http://example.com/espn\n"
	res, err := newTestParser().Parse(content)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Channels) != 1 {
		t.Fatalf("Expected 1 channel, got %d", len(res.Channels))
	}
}

func TestParseChannelAttributes(t *testing.T) {
	content := "#EXTM3U url-tvg=\"http://example.com/guide.xml\"\n" +
		"#EXTINF:-1 tvg-id=\"espn.us\" tvg-name=\"ESPN\" tvg-logo=\"http://example.com/espn.png\" group-title=\"Sports\",ESPN\n" +
		"http://example.com/espn\n"
	res, err := newTestParser().Parse(content)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.GuideURLs) != 1 || res.GuideURLs[0] != "http://example.com/guide.xml" {
		t.Errorf("Expected guide URL from url-tvg, got %v", res.GuideURLs)
	}
	if len(res.Channels) != 1 {
		t.Fatalf("Expected 1 channel, got %d", len(res.Channels))
	}
	ch := res.Channels[0]
	if ch.ID != "espn.us" {
		t.Errorf("Expected id 'espn.us', got '%s'", ch.ID)
	}
	if ch.Name != "ESPN" {
		t.Errorf("Expected name 'ESPN', got '%s'", ch.Name)
	}
	if ch.Group != "Sports" {
		t.Errorf("Expected group 'Sports', got '%s'", ch.Group)
	}
	if ch.Logo != "http://example.com/espn.png" {
		t.Errorf("Expected logo from tvg-logo, got '%s'", ch.Logo)
	}
	if ch.StreamURL != "http://example.com/espn" {
		t.Errorf("Expected stream URL, got '%s'", ch.StreamURL)
	}
	if ch.IsEvent {
		t.Error("Plain channel must not be classified as an event")
	}
}

func TestParseEventClassification(t *testing.T) {
	content := "#EXTM3U\n" +
		"#EXTINF:-1 group-title=\"NBA\",11/08/2025 08:10:00 PM EST = Portland Trail Blazers @ Miami Heat\n" +
		"http://example.com/game\n"
	res, err := newTestParser().Parse(content)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Channels) != 1 {
		t.Fatalf("Expected 1 channel, got %d", len(res.Channels))
	}
	ch := res.Channels[0]
	if !ch.IsEvent {
		t.Fatal("Expected event classification")
	}
	if ch.Sport != "NBA" {
		t.Errorf("Expected sport 'NBA', got '%s'", ch.Sport)
	}
	if ch.Team1 != "Portland Trail Blazers" {
		t.Errorf("Expected team1 'Portland Trail Blazers', got '%s'", ch.Team1)
	}
	if ch.Team2 != "Miami Heat" {
		t.Errorf("Expected team2 'Miami Heat', got '%s'", ch.Team2)
	}
	if ch.Start == nil {
		t.Fatal("Expected resolved start time")
	}
	want := time.Date(2025, time.November, 9, 1, 10, 0, 0, time.UTC)
	if !ch.Start.Equal(want) {
		t.Errorf("Expected start %v, got %v", want, *ch.Start)
	}
	if ch.Name != "Portland Trail Blazers @ Miami Heat\nNov 8 8:10PM" {
		t.Errorf("Unexpected display title %q", ch.Name)
	}
}

func TestEventIDStableAcrossRuns(t *testing.T) {
	content := "#EXTM3U\n" +
		"#EXTINF:-1 group-title=\"NBA\",11/08/2025 08:10:00 PM EST = Portland Trail Blazers @ Miami Heat\n" +
		"http://example.com/game\n"
	p := newTestParser()
	first, err := p.Parse(content)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Parse(content)
	if err != nil {
		t.Fatal(err)
	}
	if first.Channels[0].ID == "" {
		t.Fatal("Expected derived id")
	}
	if first.Channels[0].ID != second.Channels[0].ID {
		t.Errorf("Event id not stable: %s vs %s", first.Channels[0].ID, second.Channels[0].ID)
	}
}

func TestPastEventDropped(t *testing.T) {
	content := "#EXTM3U\n" +
		"#EXTINF:-1 group-title=\"NBA\",11/08/2025 08:10:00 PM EST = Portland Trail Blazers @ Miami Heat\n" +
		"http://example.com/game\n"
	p := NewParser("", "")
	// A day after the event, well past the grace window.
	p.Now = func() time.Time { return time.Date(2025, time.November, 10, 0, 0, 0, 0, time.UTC) }
	res, err := p.Parse(content)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Channels) != 0 {
		t.Errorf("Expected past event to be dropped, got %d channels", len(res.Channels))
	}
}

func TestEventWithinGraceKept(t *testing.T) {
	content := "#EXTM3U\n" +
		"#EXTINF:-1 group-title=\"NBA\",11/08/2025 08:10:00 PM EST = Portland Trail Blazers @ Miami Heat\n" +
		"http://example.com/game\n"
	p := NewParser("", "")
	// Two hours after the start: still inside the 4h grace window.
	p.Now = func() time.Time { return time.Date(2025, time.November, 9, 3, 10, 0, 0, time.UTC) }
	res, err := p.Parse(content)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Channels) != 1 {
		t.Errorf("Expected in-grace event to be kept, got %d channels", len(res.Channels))
	}
}

func TestExtgrpGroupInjection(t *testing.T) {
	content := "#EXTM3U\n" +
		"#EXTGRP:News\n" +
		"#EXTINF:-1 tvg-id=\"cnn.us\",CNN\n" +
		"http://example.com/cnn\n"
	res, err := newTestParser().Parse(content)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Channels) != 1 {
		t.Fatalf("Expected 1 channel, got %d", len(res.Channels))
	}
	if res.Channels[0].Group != "News" {
		t.Errorf("Expected group 'News' from #EXTGRP, got '%s'", res.Channels[0].Group)
	}
}

func TestVLCOptHeaders(t *testing.T) {
	content := "#EXTM3U\n" +
		"#EXTINF:-1 tvg-id=\"a\",Channel A\n" +
		"#EXTVLCOPT:http-referrer=http://example.com/\n" +
		"#EXTVLCOPT:http-user-agent=TestAgent/1.0\n" +
		"http://example.com/a\n"
	res, err := newTestParser().Parse(content)
	if err != nil {
		t.Fatal(err)
	}
	ch := res.Channels[0]
	if ch.Headers["Referer"] != "http://example.com/" {
		t.Errorf("Expected Referer header, got %v", ch.Headers)
	}
	if ch.Headers["User-Agent"] != "TestAgent/1.0" {
		t.Errorf("Expected User-Agent header, got %v", ch.Headers)
	}
}

func TestLogoFallbackPlaceholder(t *testing.T) {
	content := "#EXTM3U\n" +
		"#EXTINF:-1 tvg-id=\"a\" group-title=\"Some Group\",Channel A\n" +
		"http://example.com/a\n"
	res, err := newTestParser().Parse(content)
	if err != nil {
		t.Fatal(err)
	}
	if res.Channels[0].Logo != models.PlaceholderLogo {
		t.Errorf("Expected placeholder logo, got '%s'", res.Channels[0].Logo)
	}
}

func TestNameFallsBackToExtinfTail(t *testing.T) {
	content := "#EXTM3U\n" +
		"#EXTINF:-1 group-title=\"Misc\",My Channel Name\n" +
		"http://example.com/x\n"
	res, err := newTestParser().Parse(content)
	if err != nil {
		t.Fatal(err)
	}
	if res.Channels[0].Name != "My Channel Name" {
		t.Errorf("Expected name from EXTINF tail, got '%s'", res.Channels[0].Name)
	}
	if res.Channels[0].ID == "" {
		t.Error("Expected hashed id for channel without tvg-id")
	}
}
