package reputation

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/send-governor/internal/domain"
	"github.com/ignite/send-governor/internal/pkg/logger"
	"github.com/ignite/send-governor/internal/tier"
)

// Config holds the scoring and suspension policy. Every constant here is
// deployment policy, not engine logic: the weighting of bounce vs complaint
// vs delivery is configurable and the shipped values are only a starting
// point.
type Config struct {
	DeliveryWeight  float64 `yaml:"delivery_weight"`
	BounceWeight    float64 `yaml:"bounce_weight"`
	ComplaintWeight float64 `yaml:"complaint_weight"`

	// SuspensionFloor: score below this forces tier=suspended.
	SuspensionFloor float64 `yaml:"suspension_floor"`
	// ComplaintCeiling: trailing complaint rate above this forces
	// tier=suspended regardless of score.
	ComplaintCeiling float64 `yaml:"complaint_ceiling"`
	// Cooldown: minimum suspension length before reinstatement is even
	// considered. Reinstatement additionally requires zero complaints
	// during the cooldown.
	Cooldown time.Duration `yaml:"cooldown"`

	// LookbackCount bounds the trailing history by attempt count.
	// LookbackWindow, when set, switches the lookback to time-based.
	LookbackCount  int           `yaml:"lookback_count"`
	LookbackWindow time.Duration `yaml:"lookback_window"`

	// MinSampleSize: below this many scored outcomes the account keeps the
	// neutral score and no suspension rule fires.
	MinSampleSize int `yaml:"min_sample_size"`
}

// DefaultConfig returns the shipped scoring policy.
func DefaultConfig() Config {
	return Config{
		DeliveryWeight:   2.0,
		BounceWeight:     30.0,
		ComplaintWeight:  60.0,
		SuspensionFloor:  2.5,
		ComplaintCeiling: 0.005,
		Cooldown:         72 * time.Hour,
		LookbackCount:    200,
		MinSampleSize:    10,
	}
}

// Engine recalculates reputation and applies tier transitions.
type Engine struct {
	accounts AccountRepository
	records  RecordRepository
	history  HistoryReader
	tiers    *tier.Policy
	cfg      Config
	now      func() time.Time
}

// NewEngine creates a reputation engine.
func NewEngine(accounts AccountRepository, records RecordRepository, history HistoryReader, tiers *tier.Policy, cfg Config) *Engine {
	return &Engine{
		accounts: accounts,
		records:  records,
		history:  history,
		tiers:    tiers,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Recalculate recomputes the account's score from trailing history and
// applies any tier transition that follows from it. It is idempotent: two
// runs over identical history produce bit-identical scores.
func (e *Engine) Recalculate(ctx context.Context, accountID string) (*domain.ReputationRecord, error) {
	acct, err := e.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var attempts []domain.SendAttempt
	if e.cfg.LookbackWindow > 0 {
		attempts, err = e.history.TrailingSince(ctx, accountID, e.now().Add(-e.cfg.LookbackWindow))
	} else {
		attempts, err = e.history.TrailingByCount(ctx, accountID, e.cfg.LookbackCount)
	}
	if err != nil {
		return nil, fmt.Errorf("read trailing history: %w", err)
	}

	rec := e.tally(accountID, attempts)

	newTier, reason := e.resolveTier(acct, rec, attempts)
	if newTier != acct.Tier {
		var suspendedAt *time.Time
		if newTier == domain.TierSuspended {
			t := e.now()
			suspendedAt = &t
		}
		if err := e.accounts.UpdateTier(ctx, accountID, newTier, reason, suspendedAt); err != nil {
			return nil, fmt.Errorf("update tier: %w", err)
		}
		logger.Warn("tier transition",
			"account_id", accountID,
			"from", string(acct.Tier),
			"to", string(newTier),
			"reason", reason,
			"score", fmt.Sprintf("%.2f", rec.Score))
	}

	if err := e.records.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save reputation record: %w", err)
	}
	return rec, nil
}

// Record returns the last committed reputation record, or a neutral one for
// accounts that have never been recalculated.
func (e *Engine) Record(ctx context.Context, accountID string) (*domain.ReputationRecord, error) {
	rec, err := e.records.Get(ctx, accountID)
	if err == ErrRecordNotFound {
		return &domain.ReputationRecord{AccountID: accountID, Score: domain.NeutralScore}, nil
	}
	return rec, err
}

// tally folds the trailing attempts into a fresh record. Only
// reputation-bearing terminal outcomes count toward TotalSent: pending
// attempts are still in flight and transport failures say nothing about
// the recipient list.
func (e *Engine) tally(accountID string, attempts []domain.SendAttempt) *domain.ReputationRecord {
	rec := &domain.ReputationRecord{
		AccountID:          accountID,
		LastRecalculatedAt: e.now(),
	}
	for _, a := range attempts {
		switch a.Outcome {
		case domain.OutcomeDelivered:
			rec.TotalDelivered++
		case domain.OutcomeBounced:
			rec.TotalBounced++
		case domain.OutcomeComplained:
			rec.TotalComplained++
		default:
			continue
		}
		rec.TotalSent++
	}
	rec.Score = e.score(rec)
	return rec
}

// score derives the 0–10 score. Monotonic by construction: bounce and
// complaint rates only subtract, delivery rate only adds.
func (e *Engine) score(rec *domain.ReputationRecord) float64 {
	if rec.TotalSent < e.cfg.MinSampleSize {
		return domain.NeutralScore
	}
	s := domain.NeutralScore +
		e.cfg.DeliveryWeight*rec.DeliveryRate() -
		e.cfg.BounceWeight*rec.BounceRate() -
		e.cfg.ComplaintWeight*rec.ComplaintRate()
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return s
}
