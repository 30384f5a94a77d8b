package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrLocked is returned by TryLockIngest when an ingest run for the
// tenant is already in progress.
var ErrLocked = errors.New("ingest already in progress")

// TryLockIngest acquires the per-tenant ingest lock with the Redis
// SET NX EX pattern. On success it returns an unlock function that MUST
// be called (typically via defer) to release the lock. The TTL bounds
// how long a crashed run can block the tenant.
func (s *Store) TryLockIngest(ctx context.Context, tenant string, ttl time.Duration) (unlock func(), err error) {
	key := ingestLockKey(tenant)
	// Random token ensures only the holder can release the lock.
	token := randomToken()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ingest lock %s: %w", tenant, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	// unlock deletes the key only if the token still matches (Lua script for atomicity).
	unlockScript := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0
	`
	return func() {
		// Use a background context so unlock works even if the run context is cancelled.
		_ = s.client.Eval(context.Background(), unlockScript, []string{key}, token).Err()
	}, nil
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
