package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrMissingRedisURL is returned when no Redis URL is configured.
var ErrMissingRedisURL = errors.New("REDIS_URL is required")

// Config holds application configuration: the Redis connection, server
// binding, fetcher settings, and the API rate limit.
type Config struct {
	RedisURL        string        `yaml:"redis_url" env:"REDIS_URL"`
	ServerPort      string        `yaml:"server_port" env:"SERVER_PORT"`
	UserAgent       string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout         time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`
	StaticDir       string        `yaml:"static_dir" env:"STATIC_DIR"`
	RateLimit       int64         `yaml:"rate_limit" env:"RATE_LIMIT"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window" env:"RATE_LIMIT_WINDOW"`
}

func defaults() *Config {
	return &Config{
		ServerPort:      "8080",
		UserAgent:       "StreamVault/1.0",
		Timeout:         30 * time.Second,
		StaticDir:       "static",
		RateLimit:       10,
		RateLimitWindow: time.Minute,
	}
}

// Load builds config from environment variables.
// If REDIS_URL is not set, Load tries to load .env.local and .env from
// the current directory. REDIS_URL is required; everything else has a
// working default.
func Load() (*Config, error) {
	if os.Getenv("REDIS_URL") == "" {
		loadEnvFiles()
	}
	c := defaults()
	c.RedisURL = os.Getenv("REDIS_URL")
	if s := os.Getenv("SERVER_PORT"); s != "" {
		c.ServerPort = s
	}
	if s := os.Getenv("FETCHER_USER_AGENT"); s != "" {
		c.UserAgent = s
	}
	if s := os.Getenv("FETCHER_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.Timeout = d
		}
	}
	if s := os.Getenv("STATIC_DIR"); s != "" {
		c.StaticDir = s
	}
	if s := os.Getenv("RATE_LIMIT"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			c.RateLimit = n
		}
	}
	if s := os.Getenv("RATE_LIMIT_WINDOW"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.RateLimitWindow = d
		}
	}
	if c.RedisURL == "" {
		return nil, ErrMissingRedisURL
	}
	return c, nil
}
