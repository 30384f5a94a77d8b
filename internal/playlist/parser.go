package playlist

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grafana/regexp"

	"github.com/voyagen/streamvault/internal/models"
)

// ErrNoHeader is returned when playlist content has no #EXTM3U marker
// anywhere; such a source is skipped as a whole.
var ErrNoHeader = errors.New("playlist is missing the #EXTM3U header")

// DefaultGroup is injected when neither a group-title attribute nor a
// preceding #EXTGRP directive names a category.
const DefaultGroup = "Uncategorized"

// EventGraceWindow is how long after its start an event remains
// ingestable; older events are dropped at parse time.
const EventGraceWindow = 4 * time.Hour

var (
	reTvgID     = regexp.MustCompile(`tvg-id="([^"]*)"`)
	reTvgName   = regexp.MustCompile(`tvg-name="([^"]*)"`)
	reTvgLogo   = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	reGroup     = regexp.MustCompile(`group-title="([^"]*)"`)
	reGuideURL  = regexp.MustCompile(`url-tvg="([^"]+)"`)
	reCommaName = regexp.MustCompile(`,([^\n\r\t]*)`)
	reExtinf    = regexp.MustCompile(`^#EXTINF:-?[0-9.]*`)

	// A channel is an event iff its name carries both a date and a time.
	reEventDate = regexp.MustCompile(`(?i)\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\b[ -]\d{1,2}[, -]\d{2,4}`)
	reEventTime = regexp.MustCompile(`(?i)\d{1,2}:\d{2}(?::\d{2})?\s*(?:AM|PM)?\s*(?:ET|EST|EDT|UTC)?\s*=?\s*`)

	reTeams      = regexp.MustCompile(`(?i)^(.*?)\s(?:@|VS)\s(.*)$`)
	reEdgeEquals = regexp.MustCompile(`^\s*=\s*|\s*=\s*$`)
)

// displayZone renders event times for catalog titles. A fixed reference
// zone keeps listings consistent across tenants.
var displayZone = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// Result is the outcome of parsing one playlist source.
type Result struct {
	Channels []models.Channel
	// GuideURLs are EPG locations advertised via url-tvg in the
	// playlist header.
	GuideURLs []string
}

// Parser turns raw M3U text into channel records, classifying dated
// event entries and normalising their start times to UTC.
type Parser struct {
	Extractor *EventTimeExtractor
	// StaticDir and BaseURL derive category fallback logos; when the
	// asset is absent the placeholder sentinel is used instead.
	StaticDir string
	BaseURL   string
	Grace     time.Duration
	Now       func() time.Time
}

// NewParser builds a Parser with the default extractor and grace window.
func NewParser(staticDir, baseURL string) *Parser {
	return &Parser{
		Extractor: NewEventTimeExtractor(nil, nil),
		StaticDir: staticDir,
		BaseURL:   baseURL,
		Grace:     EventGraceWindow,
		Now:       time.Now,
	}
}

func (p *Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Parse reads M3U content and returns the channel records it contains.
// Content before the #EXTM3U marker is trimmed; a missing marker fails
// the whole source with ErrNoHeader.
func (p *Parser) Parse(content string) (*Result, error) {
	idx := strings.Index(content, "#EXTM3U")
	if idx < 0 {
		return nil, ErrNoHeader
	}
	content = content[idx:]

	res := &Result{}
	scanner := bufio.NewScanner(strings.NewReader(content))
	// Some playlists carry very long EXTINF lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	currentGroup := DefaultGroup
	var extinf string
	var headers map[string]string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#EXTM3U"):
			if m := reGuideURL.FindStringSubmatch(line); m != nil {
				res.GuideURLs = append(res.GuideURLs, m[1])
			}
		case strings.HasPrefix(line, "#EXTGRP:"):
			currentGroup = strings.TrimSpace(strings.TrimPrefix(line, "#EXTGRP:"))
		case strings.HasPrefix(line, "#EXTINF"):
			if !strings.Contains(line, "group-title") {
				grp := currentGroup
				line = reExtinf.ReplaceAllStringFunc(line, func(m string) string {
					return m + ` group-title="` + grp + `"`
				})
			}
			extinf = line
			headers = nil
		case strings.HasPrefix(line, "#EXTVLCOPT:"):
			key, value, ok := strings.Cut(strings.TrimPrefix(line, "#EXTVLCOPT:"), "=")
			if !ok {
				continue
			}
			name := ""
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "http-referrer":
				name = "Referer"
			case "http-user-agent":
				name = "User-Agent"
			case "http-origin":
				name = "Origin"
			}
			if name != "" {
				if headers == nil {
					headers = map[string]string{}
				}
				headers[name] = strings.TrimSpace(value)
			}
		case strings.HasPrefix(line, "#"):
			// Unrelated directive.
		case line != "":
			if extinf == "" {
				continue
			}
			if ch, ok := p.buildChannel(extinf, line, headers); ok {
				res.Channels = append(res.Channels, ch)
			}
			extinf = ""
			headers = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// buildChannel assembles one record from its metadata line and stream
// URL. It returns false for events whose start is already further in
// the past than the grace window; those must not be stored at all.
func (p *Parser) buildChannel(extinf, streamURL string, headers map[string]string) (models.Channel, bool) {
	name := attr(reTvgName, extinf)
	if name == "" {
		name = strings.TrimSpace(attr(reCommaName, extinf))
	}
	if name == "" {
		name = "Unknown Channel"
	}
	group := attr(reGroup, extinf)
	if group == "" {
		group = "Other"
	}

	ch := models.Channel{
		Name:      name,
		Group:     group,
		StreamURL: streamURL,
		GuideURL:  attr(reGuideURL, extinf),
		Headers:   headers,
	}

	id := attr(reTvgID, extinf)
	title := name

	if reEventDate.MatchString(name) && reEventTime.MatchString(name) {
		ch.IsEvent = true
		ch.Sport = group
		if start, ok := p.Extractor.Extract(name); ok {
			if p.now().Sub(start) > p.Grace {
				return models.Channel{}, false
			}
			utc := start.UTC()
			ch.Start = &utc
			cleaned := cleanEventName(name)
			display := formatDisplayTime(utc)
			if m := reTeams.FindStringSubmatch(cleaned); m != nil {
				ch.Team1 = strings.TrimSpace(m[1])
				ch.Team2 = strings.TrimSpace(m[2])
				title = ch.Team1 + " @ " + ch.Team2 + "\n" + display
			} else {
				title = cleaned + "\n" + display
			}
			if id == "" {
				id = hashID(title + "_" + utc.Format("2006-01-02 15:04:05"))
			}
		} else {
			// Unresolved start: keep the event, best effort.
			title = cleanEventName(name)
		}
	}

	if id == "" {
		id = hashID(name)
	}
	ch.ID = id
	ch.Name = title
	ch.Logo = p.resolveLogo(attr(reTvgLogo, extinf), group)
	return ch, true
}

// resolveLogo prefers the playlist's logo, then a static asset derived
// from the category, then the placeholder sentinel.
func (p *Parser) resolveLogo(logo, group string) string {
	if logo != "" {
		return logo
	}
	filename := strings.ReplaceAll(strings.ToLower(group), " ", "-") + ".png"
	if p.StaticDir != "" {
		if _, err := os.Stat(filepath.Join(p.StaticDir, filename)); err == nil {
			return p.BaseURL + "/static/" + filename
		}
	}
	return models.PlaceholderLogo
}

// cleanEventName strips date/time substrings and stray "=" separators.
func cleanEventName(s string) string {
	s = strings.TrimSpace(reEventDate.ReplaceAllString(s, ""))
	s = strings.TrimSpace(reEventTime.ReplaceAllString(s, ""))
	return strings.TrimSpace(reEdgeEquals.ReplaceAllString(s, ""))
}

// formatDisplayTime renders "Nov 8 8:10PM" in the display zone.
func formatDisplayTime(t time.Time) string {
	s := t.In(displayZone).Format("Jan 02 03:04PM")
	s = strings.ReplaceAll(s, " 0", " ")
	return strings.ReplaceAll(s, ":00", "")
}

func hashID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func attr(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
