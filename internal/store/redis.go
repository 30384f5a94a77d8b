// Package store is the Redis-backed tenant store: configuration,
// TTL-governed channel and event records, EPG data, logo overrides, the
// processed-image cache, manifest cache, rate-limit counters, and the
// audit trail. All per-tenant keys are namespaced by the tenant token;
// tenant isolation is enforced by key layout, not locks.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps a go-redis client with the tenant key layout and TTL
// policy. now is injectable so TTL computation is deterministic under
// test.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

// Open parses a Redis URL (e.g. "redis://host:6379/0") and returns a
// connected store. Call Ping to verify the connection. Transient
// connection failures retry with capped exponential backoff.
func Open(rawURL string) (*Store, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.MaxRetries = 5
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 3 * time.Second
	return &Store{client: redis.NewClient(opts), now: time.Now}, nil
}

// Ping checks the connection to Redis.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close shuts down the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Client returns the underlying go-redis client for direct access.
func (s *Store) Client() *redis.Client {
	return s.client
}

// --- generic JSON helpers ---

func getJSON[T any](ctx context.Context, s *Store, key string) (T, error) {
	var zero T
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return zero, ErrNotFound
		}
		return zero, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("store unmarshal %s: %w", key, err)
	}
	return v, nil
}

func setJSON(ctx context.Context, s *Store, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store marshal %s: %w", key, err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// scanKeys collects all keys matching a glob pattern. Uses SCAN so it
// is safe for production, unlike KEYS.
func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("store scan %s: %w", pattern, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// delPattern deletes all keys matching a glob pattern.
func (s *Store) delPattern(ctx context.Context, pattern string) error {
	keys, err := s.scanKeys(ctx, pattern)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
