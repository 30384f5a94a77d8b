// Package match reconciles EPG channel identifiers against playlist
// channel identifiers using a fallback chain of strategies.
package match

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/voyagen/streamvault/internal/models"
)

// Normalize lowers an identifier and flattens the punctuation providers
// use interchangeably, so "ESPN.US" and "espn_us" compare equal.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ".", " ")
	return strings.ReplaceAll(s, "_", " ")
}

// Match associates each EPG channel id with at most one playlist
// channel id and returns the programs re-keyed accordingly. Strategies,
// first hit wins:
//
//  1. exact id equality
//  2. normalized EPG id equals / contains / is contained by the
//     playlist channel's display name
//  3. the same comparison against the playlist id itself
//
// Unmatched EPG channels are logged and dropped.
func Match(guide map[string][]models.Program, channels []models.Channel) map[string][]models.Program {
	byID := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = struct{}{}
	}

	matched := make(map[string][]models.Program)
	for epgID, programs := range guide {
		target := resolve(epgID, byID, channels)
		if target == "" {
			slog.Debug("no playlist channel for EPG channel", "epg_id", epgID)
			continue
		}
		matched[target] = append(matched[target], programs...)
	}

	for id := range matched {
		progs := matched[id]
		sort.Slice(progs, func(i, j int) bool { return progs[i].Start.Before(progs[j].Start) })
	}
	return matched
}

// Merge folds programs from one EPG source into an accumulated guide
// and keeps every channel's list sorted by start time.
func Merge(into, from map[string][]models.Program) {
	for id, progs := range from {
		into[id] = append(into[id], progs...)
		merged := into[id]
		sort.Slice(merged, func(i, j int) bool { return merged[i].Start.Before(merged[j].Start) })
	}
}

func resolve(epgID string, byID map[string]struct{}, channels []models.Channel) string {
	if _, ok := byID[epgID]; ok {
		return epgID
	}
	norm := Normalize(epgID)
	for _, ch := range channels {
		name := strings.ToLower(ch.Name)
		if name != "" && (norm == name || strings.Contains(name, norm) || strings.Contains(norm, name)) {
			return ch.ID
		}
		id := Normalize(ch.ID)
		if norm == id || strings.Contains(id, norm) || strings.Contains(norm, id) {
			return ch.ID
		}
	}
	return ""
}
