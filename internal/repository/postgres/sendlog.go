package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/send-governor/internal/domain"
	"github.com/ignite/send-governor/internal/sendlog"
)

// SendLogRepo implements sendlog.Repository against PostgreSQL.
type SendLogRepo struct{ db *sql.DB }

// NewSendLogRepo creates a Postgres-backed send log repository.
func NewSendLogRepo(db *sql.DB) *SendLogRepo { return &SendLogRepo{db: db} }

func (r *SendLogRepo) Insert(ctx context.Context, a *domain.SendAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO send_attempts (id, account_id, recipient_hash, attempted_at, outcome)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.AccountID, a.RecipientHash, a.AttemptedAt, a.Outcome)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (r *SendLogRepo) MarkOutcome(ctx context.Context, accountID, recipientHash string, outcome domain.Outcome, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE send_attempts
		SET outcome = $1, resolved_at = $2
		WHERE id = (
			SELECT id FROM send_attempts
			WHERE account_id = $3 AND recipient_hash = $4 AND outcome = 'pending'
			ORDER BY attempted_at ASC
			LIMIT 1
		)
	`, outcome, at, accountID, recipientHash)
	if err != nil {
		return fmt.Errorf("mark outcome: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sendlog.ErrAttemptNotFound
	}
	return nil
}

func (r *SendLogRepo) TrailingByCount(ctx context.Context, accountID string, n int) ([]domain.SendAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, recipient_hash, attempted_at, outcome
		FROM send_attempts
		WHERE account_id = $1
		ORDER BY attempted_at DESC
		LIMIT $2
	`, accountID, n)
	if err != nil {
		return nil, fmt.Errorf("trailing attempts: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func (r *SendLogRepo) TrailingSince(ctx context.Context, accountID string, since time.Time) ([]domain.SendAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, recipient_hash, attempted_at, outcome
		FROM send_attempts
		WHERE account_id = $1 AND attempted_at >= $2
		ORDER BY attempted_at DESC
	`, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("trailing attempts since: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func scanAttempts(rows *sql.Rows) ([]domain.SendAttempt, error) {
	var out []domain.SendAttempt
	for rows.Next() {
		var a domain.SendAttempt
		if err := rows.Scan(&a.ID, &a.AccountID, &a.RecipientHash, &a.AttemptedAt, &a.Outcome); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
