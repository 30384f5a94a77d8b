package epg

import (
	"bytes"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

var guideNow = time.Date(2025, time.November, 1, 12, 0, 0, 0, time.UTC)

func newTestParser() *Parser {
	p := NewParser(nil, "")
	p.Now = func() time.Time { return guideNow }
	return p
}

const xmltvFixture = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="test">
  <channel id="espn.us"><display-name>ESPN</display-name></channel>
  <programme start="20251101140000 +0000" stop="20251101160000 +0000" channel="espn.us">
    <title>Afternoon Game</title>
    <desc>Live coverage</desc>
    <category>Sports</category>
  </programme>
  <programme start="20251101120000 +0000" stop="20251101140000 +0000" channel="espn.us">
    <title>Noon Show</title>
  </programme>
  <programme start="20250101120000 +0000" stop="20250101140000 +0000" channel="espn.us">
    <title>Long Gone</title>
  </programme>
  <programme start="20261225120000 +0000" stop="20261225140000 +0000" channel="espn.us">
    <title>Too Far Out</title>
  </programme>
</tv>`

func TestParseXMLTV(t *testing.T) {
	guide, err := newTestParser().Parse([]byte(xmltvFixture))
	if err != nil {
		t.Fatal(err)
	}
	progs := guide["espn.us"]
	if len(progs) != 2 {
		t.Fatalf("Expected 2 programs inside the window, got %d", len(progs))
	}
	// Sorted ascending by start.
	if progs[0].Title != "Noon Show" {
		t.Errorf("Expected 'Noon Show' first, got '%s'", progs[0].Title)
	}
	if progs[1].Title != "Afternoon Game" {
		t.Errorf("Expected 'Afternoon Game' second, got '%s'", progs[1].Title)
	}
	if progs[1].Description != "Live coverage" {
		t.Errorf("Expected description, got '%s'", progs[1].Description)
	}
	if progs[1].Category != "Sports" {
		t.Errorf("Expected category 'Sports', got '%s'", progs[1].Category)
	}
	wantStart := time.Date(2025, time.November, 1, 14, 0, 0, 0, time.UTC)
	if !progs[1].Start.Equal(wantStart) {
		t.Errorf("Expected start %v, got %v", wantStart, progs[1].Start)
	}
	wantStop := time.Date(2025, time.November, 1, 16, 0, 0, 0, time.UTC)
	if !progs[1].Stop.Equal(wantStop) {
		t.Errorf("Expected stop %v, got %v", wantStop, progs[1].Stop)
	}
}

func TestParseNamespacedFeed(t *testing.T) {
	data := `<?xml version="1.0"?>
<tv xmlns="urn:example:xmltv">
  <programme start="20251101140000 +0000" channel="espn.us">
    <title>Afternoon Game</title>
  </programme>
</tv>`
	guide, err := newTestParser().Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(guide["espn.us"]) != 1 {
		t.Fatalf("Expected namespaced feed to decode, got %v", guide)
	}
}

func TestParseGzipped(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(xmltvFixture)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	guide, err := newTestParser().Parse(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(guide["espn.us"]) != 2 {
		t.Errorf("Expected 2 programs from gzipped feed, got %d", len(guide["espn.us"]))
	}
}

func TestParseOffsetTimestamps(t *testing.T) {
	data := `<tv>
  <programme start="20251101120000 -0500" channel="a">
    <title>Offset Show</title>
  </programme>
</tv>`
	guide, err := newTestParser().Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	progs := guide["a"]
	if len(progs) != 1 {
		t.Fatalf("Expected 1 program, got %d", len(progs))
	}
	want := time.Date(2025, time.November, 1, 17, 0, 0, 0, time.UTC)
	if !progs[0].Start.Equal(want) {
		t.Errorf("Expected %v, got %v", want, progs[0].Start)
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := newTestParser().Parse([]byte("<tv><programme")); err == nil {
		t.Fatal("Expected error for malformed XML")
	}
}

func TestParseSkipsBrokenEntries(t *testing.T) {
	data := `<tv>
  <programme start="" channel="a"><title>No Start</title></programme>
  <programme start="20251101120000 +0000" channel=""><title>No Channel</title></programme>
  <programme start="20251101120000 +0000" channel="a"></programme>
</tv>`
	guide, err := newTestParser().Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	progs := guide["a"]
	if len(progs) != 1 {
		t.Fatalf("Expected 1 usable program, got %d", len(progs))
	}
	if progs[0].Title != "Unknown" {
		t.Errorf("Expected 'Unknown' title fallback, got '%s'", progs[0].Title)
	}
}
