package alert

import (
	"context"
	"errors"

	"github.com/ignite/send-governor/internal/domain"
)

// ErrAlertNotFound is returned when acknowledging an unknown alert.
var ErrAlertNotFound = errors.New("alert not found")

// Repository defines the data access contract for alerts.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts the alert unless one already exists for its
	// (AccountID, WindowKey, Threshold). Returns true when the alert was
	// actually created.
	Create(ctx context.Context, a *domain.Alert) (bool, error)

	// List returns an account's alerts, newest first. With unreadOnly,
	// acknowledged alerts are filtered out.
	List(ctx context.Context, accountID string, unreadOnly bool) ([]domain.Alert, error)

	// Acknowledge marks an alert read. Returns ErrAlertNotFound for
	// unknown IDs.
	Acknowledge(ctx context.Context, alertID string) error
}
