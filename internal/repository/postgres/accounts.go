package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/send-governor/internal/domain"
	"github.com/ignite/send-governor/internal/reputation"
)

// AccountRepo implements reputation.AccountRepository against PostgreSQL.
type AccountRepo struct{ db *sql.DB }

// NewAccountRepo creates a Postgres-backed account repository.
func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

func (r *AccountRepo) Get(ctx context.Context, id string) (*domain.Account, error) {
	a := &domain.Account{}
	var suspendedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, tier, COALESCE(suspension_reason,''), suspended_at
		FROM accounts
		WHERE id = $1
	`, id).Scan(&a.ID, &a.CreatedAt, &a.Tier, &a.SuspensionReason, &suspendedAt)
	if err == sql.ErrNoRows {
		return nil, reputation.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if suspendedAt.Valid {
		t := suspendedAt.Time
		a.SuspendedAt = &t
	}
	return a, nil
}

func (r *AccountRepo) UpdateTier(ctx context.Context, id string, tier domain.Tier, reason string, suspendedAt *time.Time) error {
	var at sql.NullTime
	if suspendedAt != nil {
		at = sql.NullTime{Time: *suspendedAt, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET tier = $1, suspension_reason = $2, suspended_at = $3, updated_at = NOW()
		WHERE id = $4
	`, tier, reason, at, id)
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return reputation.ErrAccountNotFound
	}
	return nil
}

// Create registers a new sending account starting at the entry tier.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, created_at, tier, suspension_reason, updated_at)
		VALUES ($1, $2, $3, '', NOW())
	`, a.ID, a.CreatedAt, a.Tier)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}
