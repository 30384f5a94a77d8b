package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/voyagen/streamvault/internal/epg"
	"github.com/voyagen/streamvault/internal/models"
)

func TestRegisterInvalidSchedule(t *testing.T) {
	s := New(nil, nil, nil, nil, "")
	if err := s.Register("tenant-a", "not a cron"); !errors.Is(err, models.ErrConfigInvalid) {
		t.Fatalf("Expected ErrConfigInvalid, got %v", err)
	}
	if len(s.jobs) != 0 {
		t.Errorf("Expected no job registered, got %d", len(s.jobs))
	}
}

func TestRegisterReplacesExistingJob(t *testing.T) {
	s := New(nil, nil, nil, nil, "")
	if err := s.Register("tenant-a", "0 */6 * * *"); err != nil {
		t.Fatal(err)
	}
	first := s.jobs["tenant-a"]
	if err := s.Register("tenant-a", "30 */2 * * *"); err != nil {
		t.Fatal(err)
	}
	if len(s.jobs) != 1 {
		t.Fatalf("Expected exactly one job after re-registration, got %d", len(s.jobs))
	}
	if s.jobs["tenant-a"] == first {
		t.Error("Expected re-registration to install a new cron entry")
	}
}

func TestRegisterBadScheduleKeepsOldJob(t *testing.T) {
	s := New(nil, nil, nil, nil, "")
	if err := s.Register("tenant-a", "0 */6 * * *"); err != nil {
		t.Fatal(err)
	}
	old := s.jobs["tenant-a"]
	if err := s.Register("tenant-a", "61 * * * *"); err == nil {
		t.Fatal("Expected invalid schedule to be rejected")
	}
	if s.jobs["tenant-a"] != old {
		t.Error("Expected the working job to survive a failed re-registration")
	}
}

func TestRegisterEmptyScheduleUsesDefault(t *testing.T) {
	s := New(nil, nil, nil, nil, "")
	if err := s.Register("tenant-a", ""); err != nil {
		t.Fatalf("Expected empty schedule to fall back to default, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	s := New(nil, nil, nil, nil, "")
	if err := s.Register("tenant-a", "0 */6 * * *"); err != nil {
		t.Fatal(err)
	}
	s.Remove("tenant-a")
	if len(s.jobs) != 0 {
		t.Errorf("Expected job removed, got %d", len(s.jobs))
	}
	// Removing an unknown tenant is a no-op.
	s.Remove("tenant-b")
}

func TestRefreshGuideReportsSourceFailures(t *testing.T) {
	s := New(nil, nil, epg.NewParser(nil, ""), nil, "")
	channels := []models.Channel{{ID: "a", GuideURL: "not-a-real-guide.xml"}}
	// A scheme-less guide URL fails at the HTTP client without touching
	// the network, and the failure must land in the run's error list.
	errs := s.refreshGuide(context.Background(), "tenant-a", channels, nil)
	if len(errs) != 1 {
		t.Fatalf("Expected 1 guide error, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "not-a-real-guide.xml") {
		t.Errorf("Expected error to name the failing source, got %q", errs[0])
	}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		channels int
		errs     int
		want     string
	}{
		{100, 0, StatusSuccess},
		{100, 2, StatusPartialFailure},
		{0, 3, StatusFatal},
		{0, 0, StatusFatal},
	}
	for _, c := range cases {
		if got := deriveStatus(c.channels, c.errs); got != c.want {
			t.Errorf("deriveStatus(%d, %d): expected %s, got %s", c.channels, c.errs, c.want, got)
		}
	}
}
