package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/send-governor/internal/domain"
)

// RedisStore implements Store on Redis so that every host shares one quota.
// All mutations run as pre-compiled Lua scripts: the check must happen in
// the same atomic step as the increment, a GET → check → INCR round trip
// would admit over the limit under concurrent callers.
type RedisStore struct {
	client *redis.Client

	reserveScript   *redis.Script
	releaseScript   *redis.Script
	recipientScript *redis.Script

	now func() time.Time
}

// Lua script for atomic window reservation. Checks the limit BEFORE
// incrementing and sets the key TTL on first write.
const reserveLuaScript = `
local key = KEYS[1]
local n = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local current = tonumber(redis.call("GET", key) or "0")
if current + n > limit then
    local remaining = limit - current
    if remaining < 0 then
        remaining = 0
    end
    return {0, remaining}
end

local new = redis.call("INCRBY", key, n)
if new == n then
    redis.call("EXPIRE", key, ttl)
end
return {1, limit - new}
`

// Lua script for compensating release. Floors the counter at zero so a
// double release can never drive capacity negative.
const releaseLuaScript = `
local key = KEYS[1]
local n = tonumber(ARGV[1])

local current = tonumber(redis.call("GET", key) or "0")
if current <= 0 then
    return 0
end
if n > current then
    n = current
end
return redis.call("DECRBY", key, n)
`

// Lua script for the bounded unique-recipient set. Re-adding a seen hash
// is a no-op success; a new hash past the cap is rejected.
const recipientLuaScript = `
local key = KEYS[1]
local hash = ARGV[1]
local limit = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

if redis.call("SISMEMBER", key, hash) == 1 then
    return 1
end
if redis.call("SCARD", key) >= limit then
    return 0
end
redis.call("SADD", key, hash)
if redis.call("SCARD", key) == 1 then
    redis.call("EXPIRE", key, ttl)
end
return 1
`

// NewRedisStore creates a usage store with pre-compiled Lua scripts.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:          client,
		reserveScript:   redis.NewScript(reserveLuaScript),
		releaseScript:   redis.NewScript(releaseLuaScript),
		recipientScript: redis.NewScript(recipientLuaScript),
		now:             time.Now,
	}
}

// NewRedisStoreFromURL creates a usage store by connecting to Redis and
// verifying the connection.
func NewRedisStoreFromURL(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisStore(client), nil
}

// countKey buckets the counter by window start, so rollover needs no
// cleanup: the next window simply lives under the next key and the old one
// expires on its TTL (retained roughly one extra period for audit reads).
func countKey(accountID string, kind domain.WindowKind, now time.Time) string {
	return fmt.Sprintf("usage:%s:%s:%s", accountID, kind, kind.WindowKey(now))
}

func recipientKey(accountID string, kind domain.WindowKind, now time.Time) string {
	return countKey(accountID, kind, now) + ":rcpt"
}

func windowTTLSeconds(kind domain.WindowKind) int {
	// One full extra period before the superseded window expires.
	return int(2 * kind.Period() / time.Second)
}

// Reserve atomically consumes n units of the window's capacity.
func (s *RedisStore) Reserve(ctx context.Context, accountID string, kind domain.WindowKind, n, limit int) (Reservation, error) {
	now := s.now()
	res, err := s.reserveScript.Run(ctx, s.client,
		[]string{countKey(accountID, kind, now)},
		n, limit, windowTTLSeconds(kind),
	).Slice()
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve %s window: %w", kind, err)
	}

	allowed := res[0].(int64) == 1
	remaining := int(res[1].(int64))
	if allowed {
		return Reservation{Allowed: true, Remaining: remaining}, nil
	}
	return Reservation{
		Allowed:    false,
		Remaining:  remaining,
		Reason:     limitReason(kind),
		RetryAfter: kind.Start(now).Add(kind.Period()).Sub(now),
	}, nil
}

// Release restores previously reserved capacity, flooring at zero.
func (s *RedisStore) Release(ctx context.Context, accountID string, kind domain.WindowKind, n int) error {
	err := s.releaseScript.Run(ctx, s.client,
		[]string{countKey(accountID, kind, s.now())}, n,
	).Err()
	if err != nil {
		return fmt.Errorf("release %s window: %w", kind, err)
	}
	return nil
}

// RecordUniqueRecipient adds a recipient hash to the window's bounded set.
func (s *RedisStore) RecordUniqueRecipient(ctx context.Context, accountID string, kind domain.WindowKind, recipientHash string, limit int) (bool, error) {
	res, err := s.recipientScript.Run(ctx, s.client,
		[]string{recipientKey(accountID, kind, s.now())},
		recipientHash, limit, windowTTLSeconds(kind),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("record unique recipient: %w", err)
	}
	return res == 1, nil
}

// Usage returns an advisory snapshot of the active window. Reads go through
// a pipeline, never a lock.
func (s *RedisStore) Usage(ctx context.Context, accountID string, kind domain.WindowKind) (Snapshot, error) {
	now := s.now()

	pipe := s.client.Pipeline()
	sentCmd := pipe.Get(ctx, countKey(accountID, kind, now))
	rcptCmd := pipe.SCard(ctx, recipientKey(accountID, kind, now))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return Snapshot{}, fmt.Errorf("usage snapshot: %w", err)
	}

	sent, _ := sentCmd.Int()
	rcpt, _ := rcptCmd.Result()

	return Snapshot{
		WindowStart:      kind.Start(now),
		SentCount:        sent,
		UniqueRecipients: int(rcpt),
	}, nil
}

// Close closes the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
