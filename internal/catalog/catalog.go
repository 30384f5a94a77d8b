// Package catalog derives the tenant-facing summary of a channel set:
// the distinct category and sport lists a consumer browses by.
package catalog

import (
	"sort"
	"time"

	"github.com/grafana/regexp"

	"github.com/voyagen/streamvault/internal/models"
)

// Summary is the derived catalog manifest for one tenant. It is cached
// separately from raw channel data with a short TTL.
type Summary struct {
	Categories   []string  `json:"categories"`
	Sports       []string  `json:"sports"`
	ChannelCount int       `json:"channel_count"`
	EventCount   int       `json:"event_count"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// Build computes the summary from a live channel set.
func Build(channels map[string]models.Channel, now time.Time) Summary {
	categories := map[string]struct{}{}
	sports := map[string]struct{}{}
	sum := Summary{GeneratedAt: now.UTC()}
	for _, ch := range channels {
		if ch.IsEvent {
			sum.EventCount++
			if ch.Sport != "" {
				sports[ch.Sport] = struct{}{}
			}
			continue
		}
		sum.ChannelCount++
		if ch.Group != "" {
			categories[ch.Group] = struct{}{}
		}
	}
	sum.Categories = sortedKeys(categories)
	sum.Sports = sortedKeys(sports)
	return sum
}

// ApplyOverrides rewrites channel logos per the tenant's overrides.
// Exact-id overrides take precedence over regex patterns; regex
// patterns are anchored at the start of the id, and invalid patterns
// are skipped.
func ApplyOverrides(channels []models.Channel, overrides map[string]models.LogoOverride) {
	if len(overrides) == 0 {
		return
	}
	type compiled struct {
		re  *regexp.Regexp
		url string
	}
	var patterns []compiled
	for _, ov := range overrides {
		if !ov.IsRegex {
			continue
		}
		re, err := regexp.Compile("^(?:" + ov.Pattern + ")")
		if err != nil {
			continue
		}
		patterns = append(patterns, compiled{re: re, url: ov.LogoURL})
	}

	for i := range channels {
		if ov, ok := overrides[channels[i].ID]; ok && !ov.IsRegex {
			channels[i].Logo = ov.LogoURL
			continue
		}
		for _, p := range patterns {
			if p.re.MatchString(channels[i].ID) {
				channels[i].Logo = p.url
				break
			}
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
