package usage

import (
	"context"
	"time"

	"github.com/ignite/send-governor/internal/domain"
)

// Denial reasons returned in Reservation.Reason.
const (
	ReasonDailyLimit  = "daily limit reached"
	ReasonHourlyLimit = "hourly limit reached"
)

func limitReason(kind domain.WindowKind) string {
	if kind == domain.WindowHourly {
		return ReasonHourlyLimit
	}
	return ReasonDailyLimit
}

// Reservation is the result of an atomic check-and-increment against one
// window. When Allowed is false, RetryAfter says how long until the window
// rolls over and capacity returns.
type Reservation struct {
	Allowed    bool
	Remaining  int
	Reason     string
	RetryAfter time.Duration
}

// Snapshot is an advisory view of one account window, served to status
// readers without entering the reservation critical section.
type Snapshot struct {
	WindowStart      time.Time
	SentCount        int
	UniqueRecipients int
}

// Store tracks per-account, per-window send counters.
//
// Implementations must guarantee that for any interleaving of concurrent
// Reserve calls on the same (account, kind), the sum of admitted counts
// never exceeds the limit, and that operations on different accounts never
// contend on a shared lock.
type Store interface {
	// Reserve atomically consumes n units of the window's capacity.
	Reserve(ctx context.Context, accountID string, kind domain.WindowKind, n, limit int) (Reservation, error)

	// Release returns previously reserved capacity, flooring at zero.
	// Safe to call concurrently with fresh reservations.
	Release(ctx context.Context, accountID string, kind domain.WindowKind, n int) error

	// RecordUniqueRecipient adds a recipient hash to the window's bounded
	// set. Returns false once the set holds limit distinct hashes; an
	// already-counted hash always returns true.
	RecordUniqueRecipient(ctx context.Context, accountID string, kind domain.WindowKind, recipientHash string, limit int) (bool, error)

	// Usage returns an advisory snapshot of the active window.
	Usage(ctx context.Context, accountID string, kind domain.WindowKind) (Snapshot, error)
}
