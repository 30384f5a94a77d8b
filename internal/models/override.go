package models

// LogoOverride replaces a channel's logo URI. Pattern is either an
// exact channel id or, when IsRegex is set, a regular expression
// matched against channel ids. Overrides are created and deleted by
// explicit administrative action and are never touched by ingestion.
type LogoOverride struct {
	Pattern string `json:"pattern"`
	LogoURL string `json:"logo_url"`
	IsRegex bool   `json:"is_regex"`
}
