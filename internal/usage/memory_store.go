package usage

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ignite/send-governor/internal/domain"
)

const shardCount = 64

// retainedWindows caps how many superseded windows are kept per key for audit.
const retainedWindows = 8

// MemoryStore is an in-process Store. Accounts hash onto a fixed table of
// mutex-guarded shards, so two accounts almost never share a critical
// section and there is no global lock. Suitable for single-node
// deployments and tests; multi-host deployments use RedisStore.
type MemoryStore struct {
	shards [shardCount]*memoryShard
	now    func() time.Time
}

type memoryShard struct {
	mu      sync.RWMutex
	windows map[string]*memoryWindow // accountID|kind
}

type memoryWindow struct {
	start      time.Time
	sent       int
	recipients map[string]struct{}
	superseded []domain.UsageWindow
}

// NewMemoryStore creates an empty in-process usage store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for i := range s.shards {
		s.shards[i] = &memoryShard{windows: make(map[string]*memoryWindow)}
	}
	return s
}

func (s *MemoryStore) shard(accountID string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(accountID))
	return s.shards[h.Sum32()%shardCount]
}

func windowMapKey(accountID string, kind domain.WindowKind) string {
	return accountID + "|" + string(kind)
}

// active returns the live window for (account, kind), rolling over lazily
// when the wall clock has crossed the boundary. The closed window is
// superseded, never mutated. Caller must hold the shard write lock.
func (sh *memoryShard) active(accountID string, kind domain.WindowKind, now time.Time) *memoryWindow {
	k := windowMapKey(accountID, kind)
	start := kind.Start(now)
	w := sh.windows[k]
	if w == nil {
		w = &memoryWindow{start: start, recipients: make(map[string]struct{})}
		sh.windows[k] = w
		return w
	}
	if !w.start.Equal(start) {
		w.superseded = append(w.superseded, domain.UsageWindow{
			AccountID:        accountID,
			Kind:             kind,
			WindowStart:      w.start,
			SentCount:        w.sent,
			UniqueRecipients: len(w.recipients),
		})
		if len(w.superseded) > retainedWindows {
			w.superseded = w.superseded[len(w.superseded)-retainedWindows:]
		}
		w.start = start
		w.sent = 0
		w.recipients = make(map[string]struct{})
	}
	return w
}

// Reserve atomically consumes n units of the window's capacity.
func (s *MemoryStore) Reserve(_ context.Context, accountID string, kind domain.WindowKind, n, limit int) (Reservation, error) {
	now := s.now()
	sh := s.shard(accountID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w := sh.active(accountID, kind, now)
	if w.sent+n > limit {
		remaining := limit - w.sent
		if remaining < 0 {
			remaining = 0
		}
		return Reservation{
			Allowed:    false,
			Remaining:  remaining,
			Reason:     limitReason(kind),
			RetryAfter: w.start.Add(kind.Period()).Sub(now),
		}, nil
	}
	w.sent += n
	return Reservation{Allowed: true, Remaining: limit - w.sent}, nil
}

// Release restores previously reserved capacity, flooring at zero.
func (s *MemoryStore) Release(_ context.Context, accountID string, kind domain.WindowKind, n int) error {
	now := s.now()
	sh := s.shard(accountID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w := sh.active(accountID, kind, now)
	w.sent -= n
	if w.sent < 0 {
		w.sent = 0
	}
	return nil
}

// RecordUniqueRecipient adds a recipient hash to the window's bounded set.
func (s *MemoryStore) RecordUniqueRecipient(_ context.Context, accountID string, kind domain.WindowKind, recipientHash string, limit int) (bool, error) {
	now := s.now()
	sh := s.shard(accountID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w := sh.active(accountID, kind, now)
	if _, seen := w.recipients[recipientHash]; seen {
		return true, nil
	}
	if len(w.recipients) >= limit {
		return false, nil
	}
	w.recipients[recipientHash] = struct{}{}
	return true, nil
}

// Usage returns an advisory snapshot of the active window. A window that
// has rolled over but not yet been touched by a reservation reads as empty.
func (s *MemoryStore) Usage(_ context.Context, accountID string, kind domain.WindowKind) (Snapshot, error) {
	now := s.now()
	start := kind.Start(now)
	sh := s.shard(accountID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	w := sh.windows[windowMapKey(accountID, kind)]
	if w == nil || !w.start.Equal(start) {
		return Snapshot{WindowStart: start}, nil
	}
	return Snapshot{
		WindowStart:      w.start,
		SentCount:        w.sent,
		UniqueRecipients: len(w.recipients),
	}, nil
}
