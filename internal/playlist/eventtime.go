package playlist

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/araddon/dateparse"
	"github.com/grafana/regexp"
)

// DefaultZonePreference is the order in which timezone abbreviations
// are preferred when an event title lists several (e.g. "EST/CST/PST").
// US east-coast listings win; this mirrors how upstream providers
// advertise start times and is configurable per extractor.
var DefaultZonePreference = []string{"EST", "EDT", "CST", "CDT", "MST", "MDT", "PST", "PDT", "UK", "UTC"}

// DefaultZoneLocations maps the supported abbreviations to IANA zones.
// UK resolves to Europe/London so BST is honoured; tenants whose
// providers treat UK as plain UTC can supply their own map.
var DefaultZoneLocations = map[string]string{
	"EST": "America/New_York",
	"EDT": "America/New_York",
	"CST": "America/Chicago",
	"CDT": "America/Chicago",
	"MST": "America/Denver",
	"MDT": "America/Denver",
	"PST": "America/Los_Angeles",
	"PDT": "America/Los_Angeles",
	"UK":  "Europe/London",
	"UTC": "UTC",
}

// monthNumbers converts month-name dates to the numeric form the date
// parser handles unambiguously.
var monthNumbers = map[string]string{
	"jan": "01", "feb": "02", "mar": "03", "apr": "04",
	"may": "05", "jun": "06", "jul": "07", "aug": "08",
	"sep": "09", "oct": "10", "nov": "11", "dec": "12",
}

var (
	reMonthDashDate = regexp.MustCompile(`([A-Za-z]{3,})-([0-9]{1,2})-([0-9]{4})`)
	reUTCQuality    = regexp.MustCompile(`UTC\s+(HD|SD)\b`)
	reParenTime     = regexp.MustCompile(`\(\d{1,2}:\d{2}`)
	re12HourTime    = regexp.MustCompile(`\d{1,2}:\d{2} [AP]M`)
	reLeading24h    = regexp.MustCompile(`^\d{1,2}:\d{2}\s+`)
	reNoise         = regexp.MustCompile(`[^A-Za-z0-9: \-/]`)
)

// EventTimeExtractor isolates a date/time expression from a messy event
// title and normalises it to a UTC instant. It is a pipeline of pure
// string transforms feeding a best-effort date parser; any failure
// yields (zero, false), never an error.
type EventTimeExtractor struct {
	zones     []string
	locations map[string]string
	reParenTZ *regexp.Regexp
	reZone    *regexp.Regexp
	reByZone  map[string]*regexp.Regexp
}

// NewEventTimeExtractor builds an extractor with the given timezone
// preference order and abbreviation-to-IANA-zone map; nil selects
// DefaultZonePreference and DefaultZoneLocations.
func NewEventTimeExtractor(zones []string, locations map[string]string) *EventTimeExtractor {
	if len(zones) == 0 {
		zones = DefaultZonePreference
	}
	if locations == nil {
		locations = DefaultZoneLocations
	}
	alts := strings.Join(zones, "|")
	byZone := make(map[string]*regexp.Regexp, len(zones))
	for _, z := range zones {
		byZone[z] = regexp.MustCompile(`\b` + z + `\b`)
	}
	return &EventTimeExtractor{
		zones:     zones,
		locations: locations,
		reParenTZ: regexp.MustCompile(`\(([^)]*?(` + alts + `)[^)]*?)\)`),
		reZone:    regexp.MustCompile(`\b(` + alts + `)\b`),
		reByZone:  byZone,
	}
}

// Extract returns the event start as a UTC instant, or false when no
// date/time could be recovered from the title.
func (e *EventTimeExtractor) Extract(title string) (time.Time, bool) {
	s := strings.TrimSpace(title)
	if s == "" {
		return time.Time{}, false
	}

	// Descriptive text is carried after "=" or before " - "; keep the
	// segment that holds the timestamp.
	if i := strings.Index(s, "="); i >= 0 {
		s = strings.TrimSpace(s[:i])
	} else if strings.Contains(s, " - ") {
		parts := strings.Split(s, " - ")
		s = strings.TrimSpace(parts[len(parts)-1])
	}

	// A parenthesised multi-timezone listing like "(8PM EST/7PM CST)"
	// collapses to the first slash-delimited segment naming a
	// preferred zone, falling back to the first segment.
	if m := e.reParenTZ.FindStringSubmatch(s); m != nil {
		parts := strings.Split(m[1], "/")
		picked := ""
	scan:
		for _, part := range parts {
			part = strings.TrimSpace(part)
			for _, z := range e.zones {
				if strings.Contains(part, z) {
					picked = part
					break scan
				}
			}
		}
		if picked == "" {
			picked = strings.TrimSpace(parts[0])
		}
		s = picked
	}

	// "Nov-06-2025" -> "11/06/2025"
	s = reMonthDashDate.ReplaceAllStringFunc(s, func(m string) string {
		sub := reMonthDashDate.FindStringSubmatch(m)
		month, ok := monthNumbers[strings.ToLower(sub[1][:3])]
		if !ok {
			return sub[1] + " " + sub[2] + " " + sub[3]
		}
		if len(sub[2]) == 1 {
			sub[2] = "0" + sub[2]
		}
		return month + "/" + sub[2] + "/" + sub[3]
	})
	// "UTC HD" / "UTC SD" quality suffixes collapse to plain "UTC".
	s = reUTCQuality.ReplaceAllString(s, "UTC")
	// "(19:30 ..." parenthesised times lose the digits.
	if reParenTime.MatchString(s) {
		s = reParenTime.ReplaceAllString(s, "(")
	}
	// When both a raw 24-hour time and a 12-hour AM/PM time appear,
	// drop the leading 24-hour one so the parser sees a single time.
	if re12HourTime.MatchString(s) {
		s = reLeading24h.ReplaceAllString(s, "")
	}
	s = reNoise.ReplaceAllString(s, " ")

	zone := e.resolveZone(s)
	// Strip zone tokens; the abbreviation is re-applied as a location
	// below, which sidesteps the parser's ambiguous zone handling.
	s = e.reZone.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}

	t, err := dateparse.ParseIn(s, e.location(zone))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// resolveZone walks the preference order and returns the first
// abbreviation present in s as a whole word, or "" when none appears.
func (e *EventTimeExtractor) resolveZone(s string) string {
	for _, z := range e.zones {
		if e.reByZone[z].MatchString(s) {
			return z
		}
	}
	return ""
}

func (e *EventTimeExtractor) location(zone string) *time.Location {
	name, ok := e.locations[zone]
	if !ok {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
