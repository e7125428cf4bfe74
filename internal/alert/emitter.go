package alert

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/send-governor/internal/domain"
	"github.com/ignite/send-governor/internal/pkg/logger"
)

// Notifier pushes an alert to an out-of-band channel (operator email).
type Notifier interface {
	Notify(ctx context.Context, a domain.Alert) error
}

// Emitter deduplicates and records alerts, and forwards Critical ones to
// the notifier. Notification failures never fail the emitting call path.
type Emitter struct {
	repo     Repository
	notifier Notifier
}

// NewEmitter creates an alert emitter. notifier may be nil.
func NewEmitter(repo Repository, notifier Notifier) *Emitter {
	return &Emitter{repo: repo, notifier: notifier}
}

// Emit records one alert for (accountID, windowKey, threshold). Repeat
// emissions within the same window are silently dropped.
func (e *Emitter) Emit(ctx context.Context, accountID string, level domain.AlertLevel, threshold, windowKey, message string) {
	a := domain.Alert{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Level:     level,
		Threshold: threshold,
		WindowKey: windowKey,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	created, err := e.repo.Create(ctx, &a)
	if err != nil {
		logger.Error("alert create failed",
			"account_id", accountID, "threshold", threshold, "error", err.Error())
		return
	}
	if !created {
		return // already emitted this window
	}

	logger.Info("alert emitted",
		"account_id", accountID, "level", string(level),
		"threshold", threshold, "window_key", windowKey)

	if e.notifier != nil && level == domain.AlertCritical {
		if err := e.notifier.Notify(ctx, a); err != nil {
			logger.Error("alert notification failed",
				"account_id", accountID, "threshold", threshold, "error", err.Error())
		}
	}
}

// List returns an account's alerts, newest first.
func (e *Emitter) List(ctx context.Context, accountID string, unreadOnly bool) ([]domain.Alert, error) {
	return e.repo.List(ctx, accountID, unreadOnly)
}

// Acknowledge marks an alert read.
func (e *Emitter) Acknowledge(ctx context.Context, alertID string) error {
	return e.repo.Acknowledge(ctx, alertID)
}
