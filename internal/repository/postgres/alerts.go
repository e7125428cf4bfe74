package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/send-governor/internal/alert"
	"github.com/ignite/send-governor/internal/domain"
)

// AlertRepo implements alert.Repository against PostgreSQL. Idempotence
// rides on the unique index over (account_id, window_key, threshold).
type AlertRepo struct{ db *sql.DB }

// NewAlertRepo creates a Postgres-backed alert repository.
func NewAlertRepo(db *sql.DB) *AlertRepo { return &AlertRepo{db: db} }

func (r *AlertRepo) Create(ctx context.Context, a *domain.Alert) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (id, account_id, level, threshold, window_key, message, acknowledged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7)
		ON CONFLICT (account_id, window_key, threshold) DO NOTHING
	`, a.ID, a.AccountID, a.Level, a.Threshold, a.WindowKey, a.Message, a.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("create alert: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *AlertRepo) List(ctx context.Context, accountID string, unreadOnly bool) ([]domain.Alert, error) {
	q := `
		SELECT id, account_id, level, threshold, window_key, message, acknowledged, created_at
		FROM alerts
		WHERE account_id = $1`
	if unreadOnly {
		q += ` AND acknowledged = false`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Level, &a.Threshold,
			&a.WindowKey, &a.Message, &a.Acknowledged, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AlertRepo) Acknowledge(ctx context.Context, alertID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET acknowledged = true WHERE id = $1
	`, alertID)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return alert.ErrAlertNotFound
	}
	return nil
}
