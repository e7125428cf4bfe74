package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/send-governor/internal/domain"
	"github.com/ignite/send-governor/internal/pkg/logger"
	"github.com/ignite/send-governor/internal/reputation"
	"github.com/ignite/send-governor/internal/tier"
	"github.com/ignite/send-governor/internal/usage"
)

// AccountReader is the controller's read-only view of accounts.
type AccountReader interface {
	Get(ctx context.Context, id string) (*domain.Account, error)
}

// ReputationReader serves the last committed reputation snapshot.
// *reputation.Engine satisfies this.
type ReputationReader interface {
	Record(ctx context.Context, accountID string) (*domain.ReputationRecord, error)
}

// AlertSink receives threshold-crossing notifications.
// *alert.Emitter satisfies this.
type AlertSink interface {
	Emit(ctx context.Context, accountID string, level domain.AlertLevel, threshold, windowKey, message string)
}

// Config holds the controller's operational policy.
type Config struct {
	// WarnRemainingFraction attaches a warning once remaining capacity in
	// a window drops to this fraction of its limit.
	WarnRemainingFraction float64 `yaml:"warn_remaining_fraction"`
	// StorageTimeout bounds every storage call on the admission path.
	StorageTimeout time.Duration `yaml:"storage_timeout"`
}

// DefaultConfig returns the shipped controller policy.
func DefaultConfig() Config {
	return Config{
		WarnRemainingFraction: 0.2,
		StorageTimeout:        2 * time.Second,
	}
}

// Controller decides admission for send attempts.
type Controller struct {
	accounts AccountReader
	windows  usage.Store
	tiers    *tier.Policy
	rep      ReputationReader
	alerts   AlertSink
	cfg      Config
	now      func() time.Time
}

// NewController creates an admission controller. alerts may be nil.
func NewController(accounts AccountReader, windows usage.Store, tiers *tier.Policy, rep ReputationReader, alerts AlertSink, cfg Config) *Controller {
	if cfg.WarnRemainingFraction <= 0 {
		cfg.WarnRemainingFraction = DefaultConfig().WarnRemainingFraction
	}
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = DefaultConfig().StorageTimeout
	}
	return &Controller{
		accounts: accounts,
		windows:  windows,
		tiers:    tiers,
		rep:      rep,
		alerts:   alerts,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Check decides whether the account may send requestedCount messages right
// now, reserving that capacity when it says yes.
func (c *Controller) Check(ctx context.Context, accountID string, requestedCount int) Decision {
	acct, err := c.getAccount(ctx, accountID)
	if errors.Is(err, reputation.ErrAccountNotFound) {
		return Decision{Allowed: false, Reason: ReasonInvalidAccount, Detail: "unknown account"}
	}
	if err != nil {
		return c.failClosed(ctx, accountID, fmt.Errorf("account lookup: %w", err))
	}

	if acct.Suspended() {
		return Decision{Allowed: false, Reason: ReasonAccountSuspended, Detail: acct.SuspensionReason}
	}

	limits := c.tiers.LimitsFor(acct.Tier)

	daily, err := c.reserve(ctx, accountID, domain.WindowDaily, requestedCount, limits.Daily)
	if err != nil {
		return c.failClosed(ctx, accountID, fmt.Errorf("daily reserve: %w", err))
	}
	if !daily.Allowed {
		return denied(daily, daily.Remaining, c.hourlyRemaining(ctx, accountID, limits.Hourly))
	}

	hourly, err := c.reserve(ctx, accountID, domain.WindowHourly, requestedCount, limits.Hourly)
	if err != nil {
		c.rollback(accountID, domain.WindowDaily, requestedCount)
		return c.failClosed(ctx, accountID, fmt.Errorf("hourly reserve: %w", err))
	}
	if !hourly.Allowed {
		// All-or-nothing: hand the daily units back before denying.
		c.rollback(accountID, domain.WindowDaily, requestedCount)
		return denied(hourly, daily.Remaining+requestedCount, hourly.Remaining)
	}

	d := Decision{
		Allowed:         true,
		RemainingDaily:  daily.Remaining,
		RemainingHourly: hourly.Remaining,
	}
	c.attachWarnings(ctx, &d, accountID, limits)
	return d
}

// Release restores capacity for sends that were admitted but never
// happened (transport failure unrelated to policy).
func (c *Controller) Release(ctx context.Context, accountID string, count int) error {
	for _, kind := range []domain.WindowKind{domain.WindowDaily, domain.WindowHourly} {
		rctx, cancel := context.WithTimeout(ctx, c.cfg.StorageTimeout)
		err := c.windows.Release(rctx, accountID, kind, count)
		cancel()
		if err != nil {
			return fmt.Errorf("release %s: %w", kind, err)
		}
	}
	return nil
}

// RecordRecipient counts a recipient hash against the account's
// unique-recipient cap for the current daily window. Returns false when
// the cap is reached; the send-count reservation is unaffected.
func (c *Controller) RecordRecipient(ctx context.Context, accountID, recipientHash string) (bool, error) {
	acct, err := c.getAccount(ctx, accountID)
	if err != nil {
		return false, err
	}
	limits := c.tiers.LimitsFor(acct.Tier)

	rctx, cancel := context.WithTimeout(ctx, c.cfg.StorageTimeout)
	defer cancel()
	return c.windows.RecordUniqueRecipient(rctx, accountID, domain.WindowDaily, recipientHash, limits.UniqueRecipients)
}

// Status assembles the advisory account summary from last-committed
// snapshots; it never enters the reservation critical section.
func (c *Controller) Status(ctx context.Context, accountID string) (*Status, error) {
	acct, err := c.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	limits := c.tiers.LimitsFor(acct.Tier)

	rec, err := c.rep.Record(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("reputation record: %w", err)
	}

	daily, err := c.windows.Usage(ctx, accountID, domain.WindowDaily)
	if err != nil {
		return nil, fmt.Errorf("daily usage: %w", err)
	}
	hourly, err := c.windows.Usage(ctx, accountID, domain.WindowHourly)
	if err != nil {
		return nil, fmt.Errorf("hourly usage: %w", err)
	}

	return &Status{
		AccountID:            acct.ID,
		Tier:                 acct.Tier,
		Score:                rec.Score,
		DailyUsed:            daily.SentCount,
		DailyLimit:           limits.Daily,
		HourlyUsed:           hourly.SentCount,
		HourlyLimit:          limits.Hourly,
		UniqueRecipientsUsed: daily.UniqueRecipients,
		UniqueRecipientLimit: limits.UniqueRecipients,
		Suspended:            acct.Suspended(),
		SuspensionReason:     acct.SuspensionReason,
		WarmupDaysRemaining:  c.tiers.WarmupDaysRemaining(acct.AgeDays(c.now())),
	}, nil
}

func (c *Controller) getAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.StorageTimeout)
	defer cancel()
	return c.accounts.Get(actx, accountID)
}

// hourlyRemaining is best-effort context for a daily denial; a lookup
// failure just reports zero rather than masking the denial.
func (c *Controller) hourlyRemaining(ctx context.Context, accountID string, limit int) int {
	rctx, cancel := context.WithTimeout(ctx, c.cfg.StorageTimeout)
	defer cancel()
	snap, err := c.windows.Usage(rctx, accountID, domain.WindowHourly)
	if err != nil {
		return 0
	}
	remaining := limit - snap.SentCount
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (c *Controller) reserve(ctx context.Context, accountID string, kind domain.WindowKind, n, limit int) (usage.Reservation, error) {
	rctx, cancel := context.WithTimeout(ctx, c.cfg.StorageTimeout)
	defer cancel()
	return c.windows.Reserve(rctx, accountID, kind, n, limit)
}

// rollback hands back a reservation taken earlier in a check that is now
// being denied. Detached from the caller's context: the compensation must
// run even when the caller has gone away.
func (c *Controller) rollback(accountID string, kind domain.WindowKind, n int) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.StorageTimeout)
	defer cancel()
	if err := c.windows.Release(ctx, accountID, kind, n); err != nil {
		logger.Error("reservation rollback failed",
			"account_id", accountID, "kind", string(kind), "error", err.Error())
	}
}

// failClosed denies on infrastructure failure and leaves a Warning so
// operators see the degradation.
func (c *Controller) failClosed(ctx context.Context, accountID string, err error) Decision {
	logger.Error("admission storage failure, denying",
		"account_id", accountID, "error", err.Error())
	if c.alerts != nil {
		c.alerts.Emit(ctx, accountID, domain.AlertWarning, "storage_unavailable",
			domain.WindowHourly.WindowKey(c.now()),
			"admission denied due to storage unavailability")
	}
	return Decision{Allowed: false, Reason: ReasonStorageUnavailable, Detail: "storage unavailable, denied"}
}

func (c *Controller) attachWarnings(ctx context.Context, d *Decision, accountID string, limits domain.Limits) {
	if c.warnThreshold(d.RemainingDaily, limits.Daily) {
		msg := fmt.Sprintf("daily capacity low: %d of %d remaining", d.RemainingDaily, limits.Daily)
		d.Warnings = append(d.Warnings, msg)
		if c.alerts != nil {
			c.alerts.Emit(ctx, accountID, domain.AlertWarning, "daily_capacity_low",
				domain.WindowDaily.WindowKey(c.now()), msg)
		}
	}
	if c.warnThreshold(d.RemainingHourly, limits.Hourly) {
		msg := fmt.Sprintf("hourly capacity low: %d of %d remaining", d.RemainingHourly, limits.Hourly)
		d.Warnings = append(d.Warnings, msg)
		if c.alerts != nil {
			c.alerts.Emit(ctx, accountID, domain.AlertWarning, "hourly_capacity_low",
				domain.WindowHourly.WindowKey(c.now()), msg)
		}
	}
}

func (c *Controller) warnThreshold(remaining, limit int) bool {
	if limit <= 0 {
		return false
	}
	return float64(remaining) <= c.cfg.WarnRemainingFraction*float64(limit)
}

func denied(r usage.Reservation, remainingDaily, remainingHourly int) Decision {
	return Decision{
		Allowed:         false,
		Reason:          ReasonQuotaExceeded,
		Detail:          r.Reason,
		RemainingDaily:  remainingDaily,
		RemainingHourly: remainingHourly,
		RetryAfter:      r.RetryAfter,
		RetryAfterSecs:  int(r.RetryAfter / time.Second),
	}
}
