package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	RedisURL        string `yaml:"redis_url"`
	ServerPort      string `yaml:"server_port"`
	UserAgent       string `yaml:"user_agent"`
	Timeout         string `yaml:"timeout"`
	StaticDir       string `yaml:"static_dir"`
	RateLimit       int64  `yaml:"rate_limit"`
	RateLimitWindow string `yaml:"rate_limit_window"`
}

// LoadFromFile loads config from a YAML file. redis_url is required.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.RedisURL == "" {
		return nil, ErrMissingRedisURL
	}
	c := defaults()
	c.RedisURL = f.RedisURL
	if f.ServerPort != "" {
		c.ServerPort = f.ServerPort
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}
	if f.StaticDir != "" {
		c.StaticDir = f.StaticDir
	}
	if f.RateLimit > 0 {
		c.RateLimit = f.RateLimit
	}
	if f.RateLimitWindow != "" {
		if d, err := time.ParseDuration(f.RateLimitWindow); err == nil {
			c.RateLimitWindow = d
		}
	}
	return c, nil
}
