package reputation

import (
	"context"
	"time"

	"github.com/ignite/send-governor/internal/domain"
)

// AccountRepository is the engine's view of account storage.
// Implementations must be safe for concurrent use.
type AccountRepository interface {
	// Get returns an account. Returns ErrAccountNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Account, error)

	// UpdateTier writes the tier, suspension reason and suspension time in
	// one statement. A nil suspendedAt clears the suspension fields.
	UpdateTier(ctx context.Context, id string, t domain.Tier, reason string, suspendedAt *time.Time) error
}

// RecordRepository stores the per-account reputation summary.
type RecordRepository interface {
	// Get returns the record, or ErrRecordNotFound for accounts that have
	// never been recalculated.
	Get(ctx context.Context, accountID string) (*domain.ReputationRecord, error)

	// Save upserts the record.
	Save(ctx context.Context, rec *domain.ReputationRecord) error
}

// HistoryReader reads the trailing send log. The send log store satisfies
// this directly.
type HistoryReader interface {
	// TrailingByCount returns the most recent n attempts, newest first.
	TrailingByCount(ctx context.Context, accountID string, n int) ([]domain.SendAttempt, error)

	// TrailingSince returns attempts made at or after since, newest first.
	TrailingSince(ctx context.Context, accountID string, since time.Time) ([]domain.SendAttempt, error)
}
