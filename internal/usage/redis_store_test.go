package usage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/send-governor/internal/domain"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client)
}

func TestRedisReserve_ChecksBeforeIncrementing(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	r, err := s.Reserve(ctx, "acct-1", domain.WindowDaily, 40, 50)
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	assert.Equal(t, 10, r.Remaining)

	// A batch that does not fit is denied whole; the counter must not move.
	r, err = s.Reserve(ctx, "acct-1", domain.WindowDaily, 11, 50)
	require.NoError(t, err)
	assert.False(t, r.Allowed)
	assert.Equal(t, 10, r.Remaining)
	assert.Equal(t, ReasonDailyLimit, r.Reason)
	assert.Greater(t, r.RetryAfter, time.Duration(0))

	snap, err := s.Usage(ctx, "acct-1", domain.WindowDaily)
	require.NoError(t, err)
	assert.Equal(t, 40, snap.SentCount)
}

func TestRedisReserve_ExactFitAllowed(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	r, err := s.Reserve(ctx, "acct-1", domain.WindowHourly, 10, 10)
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)

	r, err = s.Reserve(ctx, "acct-1", domain.WindowHourly, 1, 10)
	require.NoError(t, err)
	assert.False(t, r.Allowed)
	assert.Equal(t, ReasonHourlyLimit, r.Reason)
}

func TestRedisRelease_FloorsAtZero(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	_, err := s.Reserve(ctx, "acct-1", domain.WindowDaily, 5, 50)
	require.NoError(t, err)

	require.NoError(t, s.Release(ctx, "acct-1", domain.WindowDaily, 3))
	snap, err := s.Usage(ctx, "acct-1", domain.WindowDaily)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.SentCount)

	// Double release clamps to the current count.
	require.NoError(t, s.Release(ctx, "acct-1", domain.WindowDaily, 10))
	snap, err = s.Usage(ctx, "acct-1", domain.WindowDaily)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.SentCount)
}

func TestRedisRecordUniqueRecipient_DedupesAndCaps(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	ok, err := s.RecordUniqueRecipient(ctx, "acct-1", domain.WindowDaily, "hash-a", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	// Replay of a seen hash is a no-op success, not a slot.
	ok, err = s.RecordUniqueRecipient(ctx, "acct-1", domain.WindowDaily, "hash-a", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.RecordUniqueRecipient(ctx, "acct-1", domain.WindowDaily, "hash-b", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.RecordUniqueRecipient(ctx, "acct-1", domain.WindowDaily, "hash-c", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	snap, err := s.Usage(ctx, "acct-1", domain.WindowDaily)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.UniqueRecipients)
}

func TestRedisUsage_EmptyWindowReadsZero(t *testing.T) {
	s := newTestRedisStore(t)

	snap, err := s.Usage(context.Background(), "untouched", domain.WindowDaily)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.SentCount)
	assert.Equal(t, 0, snap.UniqueRecipients)
}
