package sendlog

import (
	"context"
	"time"

	"github.com/ignite/send-governor/internal/domain"
)

// Repository defines the data access contract for the send attempt log.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Insert appends a new pending attempt.
	Insert(ctx context.Context, a *domain.SendAttempt) error

	// MarkOutcome transitions the oldest pending attempt for
	// (accountID, recipientHash) to the given terminal outcome. Returns
	// ErrAttemptNotFound when no pending attempt exists (including when
	// the outcome was already recorded).
	MarkOutcome(ctx context.Context, accountID, recipientHash string, outcome domain.Outcome, at time.Time) error

	// TrailingByCount returns the most recent n attempts, newest first.
	TrailingByCount(ctx context.Context, accountID string, n int) ([]domain.SendAttempt, error)

	// TrailingSince returns attempts made at or after since, newest first.
	TrailingSince(ctx context.Context, accountID string, since time.Time) ([]domain.SendAttempt, error)
}

// Recalculator triggers a reputation pass after recorded outcomes.
// *reputation.Engine satisfies this.
type Recalculator interface {
	Recalculate(ctx context.Context, accountID string) (*domain.ReputationRecord, error)
}

// Lock serializes a recalculation across hosts. distlock.DistLock
// satisfies this.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockFactory builds a lock for the given key. Optional; without one,
// recalculations are only serialized within this process.
type LockFactory func(key string) Lock
