// Package epg parses XMLTV program guides, optionally gzip-compressed,
// into per-channel program lists windowed to near-term entries.
package epg

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/voyagen/streamvault/internal/models"
)

const (
	// Programs that ended this long ago are dropped.
	lookBehind = 2 * time.Hour
	// Programs further out than this are dropped.
	lookAhead = 30 * 24 * time.Hour
)

// Parser fetches and decodes XMLTV guides. Now is injectable for the
// windowing tests.
type Parser struct {
	Client    *http.Client
	UserAgent string
	Now       func() time.Time
}

// NewParser builds a Parser using the given HTTP client.
func NewParser(client *http.Client, userAgent string) *Parser {
	return &Parser{Client: client, UserAgent: userAgent, Now: time.Now}
}

func (p *Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Fetch loads a guide from an http(s) URL, file:// URL, or local path
// and parses it. Gzip content is detected by its magic bytes.
func (p *Parser) Fetch(ctx context.Context, source string) (map[string][]models.Program, error) {
	data, err := p.fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	return p.Parse(data)
}

func (p *Parser) fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "file://") {
		source = strings.TrimPrefix(source, "file://")
	}
	if _, err := os.Stat(source); err == nil {
		return os.ReadFile(source)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("epg request %s: %w", source, err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("epg fetch %s: %w", source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("epg fetch %s: HTTP %d", source, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// xmltv wire structs. Tags omit namespaces on purpose: encoding/xml
// matches local names, so namespaced and plain feeds both decode.
type xmltvDoc struct {
	XMLName    xml.Name         `xml:"tv"`
	Programmes []xmltvProgramme `xml:"programme"`
}

type xmltvProgramme struct {
	Start    string `xml:"start,attr"`
	Stop     string `xml:"stop,attr"`
	Channel  string `xml:"channel,attr"`
	Title    string `xml:"title"`
	Desc     string `xml:"desc"`
	Category string `xml:"category"`
}

// Parse decodes XMLTV bytes into channel-id keyed program lists,
// filtered to [now-2h, now+30d] and sorted ascending by start.
func (p *Parser) Parse(data []byte) (map[string][]models.Program, error) {
	data, err := maybeGunzip(data)
	if err != nil {
		return nil, fmt.Errorf("epg decompress: %w", err)
	}

	var doc xmltvDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("epg parse: %w", err)
	}

	now := p.now()
	earliest := now.Add(-lookBehind)
	latest := now.Add(lookAhead)

	byChannel := make(map[string][]models.Program)
	for _, prog := range doc.Programmes {
		if prog.Channel == "" {
			continue
		}
		start, ok := parseXMLTVTime(prog.Start)
		if !ok {
			continue
		}
		if start.Before(earliest) || start.After(latest) {
			continue
		}
		entry := models.Program{
			ChannelID:   prog.Channel,
			Title:       textOr(prog.Title, "Unknown"),
			Description: strings.TrimSpace(prog.Desc),
			Category:    strings.TrimSpace(prog.Category),
			Start:       start,
		}
		if stop, ok := parseXMLTVTime(prog.Stop); ok {
			entry.Stop = stop
		}
		byChannel[prog.Channel] = append(byChannel[prog.Channel], entry)
	}

	for id := range byChannel {
		progs := byChannel[id]
		sort.Slice(progs, func(i, j int) bool { return progs[i].Start.Before(progs[j].Start) })
	}
	return byChannel, nil
}

// parseXMLTVTime decodes "20231222120000 +0000" or the offset-free
// "20231222120000" variant, returning a UTC instant.
func parseXMLTVTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	stamp, offset, _ := strings.Cut(s, " ")
	if len(stamp) < 14 {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102150405", stamp[:14])
	if err != nil {
		return time.Time{}, false
	}
	loc := time.UTC
	if len(offset) == 5 && (offset[0] == '+' || offset[0] == '-') {
		hours := int(offset[1]-'0')*10 + int(offset[2]-'0')
		mins := int(offset[3]-'0')*10 + int(offset[4]-'0')
		secs := hours*3600 + mins*60
		if offset[0] == '-' {
			secs = -secs
		}
		loc = time.FixedZone(offset, secs)
	}
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	return t.UTC(), true
}

func maybeGunzip(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func textOr(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return s
}
