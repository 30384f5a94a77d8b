package models

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"
)

// ErrConfigInvalid is returned when a tenant configuration fails
// validation. Invalid configurations are rejected before any job is
// scheduled, never silently defaulted.
var ErrConfigInvalid = errors.New("invalid tenant configuration")

// DefaultSchedule refreshes every six hours.
const DefaultSchedule = "0 */6 * * *"

const (
	maxSources     = 50
	minTokenLength = 8
	maxTokenLength = 256
)

// TenantConfig is one tenant's configuration: playlist sources, refresh
// schedule, and catalog settings. It is created on registration and
// replaced wholesale on update, never partially mutated.
type TenantConfig struct {
	Sources      []string `json:"sources"`
	Schedule     string   `json:"schedule"`
	BaseURL      string   `json:"base_url"`
	PasswordHash string   `json:"password_hash,omitempty"`
	Timezone     string   `json:"timezone,omitempty"` // IANA name, e.g. "America/New_York"
}

// Validate checks the configuration and normalises the base URL.
// All failures wrap ErrConfigInvalid.
func (c *TenantConfig) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: at least one playlist source is required", ErrConfigInvalid)
	}
	if len(c.Sources) > maxSources {
		return fmt.Errorf("%w: at most %d playlist sources allowed", ErrConfigInvalid, maxSources)
	}
	for i, src := range c.Sources {
		src = strings.TrimSpace(src)
		if src == "" {
			return fmt.Errorf("%w: source %d is empty", ErrConfigInvalid, i)
		}
		if err := ValidateSourceURL(src); err != nil {
			return err
		}
		c.Sources[i] = src
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if err := ValidateCron(c.Schedule); err != nil {
		return err
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", ErrConfigInvalid)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrConfigInvalid, c.Timezone)
		}
	}
	return nil
}

// ValidateCron checks a standard 5-field cron expression
// (minute hour day month day-of-week).
func ValidateCron(expr string) error {
	expr = strings.TrimSpace(expr)
	if fields := strings.Fields(expr); len(fields) != 5 {
		return fmt.Errorf("%w: cron expression %q must have 5 fields, got %d", ErrConfigInvalid, expr, len(fields))
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("%w: cron expression %q: %v", ErrConfigInvalid, expr, err)
	}
	return nil
}

// ValidateSourceURL accepts http, https, and file URLs.
func ValidateSourceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: source %q: %v", ErrConfigInvalid, raw, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("%w: source %q is missing a host", ErrConfigInvalid, raw)
		}
	case "file":
		if u.Path == "" {
			return fmt.Errorf("%w: source %q is missing a path", ErrConfigInvalid, raw)
		}
	case "":
		// Bare local paths are allowed for sources read from disk.
		if u.Path == "" {
			return fmt.Errorf("%w: source %q is missing a path", ErrConfigInvalid, raw)
		}
	default:
		return fmt.Errorf("%w: source %q has unsupported scheme %q", ErrConfigInvalid, raw, u.Scheme)
	}
	return nil
}

// NewSecretToken returns a URL-safe random token identifying a tenant.
func NewSecretToken(bytes int) string {
	b := make([]byte, bytes)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// ValidateSecretToken checks length and character-set bounds on a
// tenant token supplied by a caller.
func ValidateSecretToken(token string) error {
	if len(token) < minTokenLength || len(token) > maxTokenLength {
		return fmt.Errorf("%w: token must be %d-%d characters", ErrConfigInvalid, minTokenLength, maxTokenLength)
	}
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: token contains invalid character %q", ErrConfigInvalid, r)
		}
	}
	return nil
}

// HashPassword hashes an optional tenant password with bcrypt.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password cannot be empty", ErrConfigInvalid)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches a bcrypt hash.
func VerifyPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
