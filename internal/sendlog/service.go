package sendlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/send-governor/internal/domain"
	"github.com/ignite/send-governor/internal/pkg/logger"
)

const recalcTimeout = 30 * time.Second

// Service implements the send log business logic: append attempts, record
// terminal outcomes, and trigger reputation recalculation every
// recalcEvery outcomes per account.
type Service struct {
	repo        Repository
	recalc      Recalculator
	locks       LockFactory
	recalcEvery int

	mu     sync.Mutex
	counts map[string]int
}

// NewService creates a send log service. recalcEvery <= 0 disables the
// automatic recalculation trigger (outcomes are still recorded).
func NewService(repo Repository, recalc Recalculator, recalcEvery int) *Service {
	return &Service{
		repo:        repo,
		recalc:      recalc,
		recalcEvery: recalcEvery,
		counts:      make(map[string]int),
	}
}

// SetLockFactory installs cross-host serialization for recalculation
// triggers. Without it, concurrent hosts may recalculate the same account
// twice; that is wasteful but harmless since recalculation is idempotent.
func (s *Service) SetLockFactory(f LockFactory) { s.locks = f }

// LogAttempt appends a pending attempt for an admitted send.
func (s *Service) LogAttempt(ctx context.Context, accountID, recipientHash string) (*domain.SendAttempt, error) {
	a := &domain.SendAttempt{
		ID:            uuid.New().String(),
		AccountID:     accountID,
		RecipientHash: recipientHash,
		AttemptedAt:   time.Now().UTC(),
		Outcome:       domain.OutcomePending,
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// RecordOutcome transitions a pending attempt to its terminal outcome and
// counts it toward the recalculation trigger. Recording the same outcome
// twice returns ErrAttemptNotFound; callers ingesting at-least-once event
// streams treat that as success.
func (s *Service) RecordOutcome(ctx context.Context, accountID, recipientHash string, outcome domain.Outcome, at time.Time) error {
	if !outcome.Terminal() {
		return ErrNotTerminal
	}
	if err := s.repo.MarkOutcome(ctx, accountID, recipientHash, outcome, at); err != nil {
		return err
	}
	s.maybeRecalc(accountID)
	return nil
}

func (s *Service) maybeRecalc(accountID string) {
	if s.recalc == nil || s.recalcEvery <= 0 {
		return
	}
	s.mu.Lock()
	s.counts[accountID]++
	due := s.counts[accountID]%s.recalcEvery == 0
	s.mu.Unlock()
	if !due {
		return
	}

	// Detached: a recalculation failure must never block or fail the
	// outcome path. The counter keeps running, so the next trigger retries.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recalcTimeout)
		defer cancel()

		if s.locks != nil {
			lock := s.locks("recalc:" + accountID)
			ok, err := lock.Acquire(ctx)
			if err != nil || !ok {
				return // another host has it
			}
			defer lock.Release(ctx)
		}

		if _, err := s.recalc.Recalculate(ctx, accountID); err != nil {
			logger.Error("reputation recalculation failed",
				"account_id", accountID, "error", err.Error())
		}
	}()
}
