package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/send-governor/internal/domain"
	"github.com/ignite/send-governor/internal/reputation"
)

// ReputationRepo implements reputation.RecordRepository against PostgreSQL.
type ReputationRepo struct{ db *sql.DB }

// NewReputationRepo creates a Postgres-backed reputation record repository.
func NewReputationRepo(db *sql.DB) *ReputationRepo { return &ReputationRepo{db: db} }

func (r *ReputationRepo) Get(ctx context.Context, accountID string) (*domain.ReputationRecord, error) {
	rec := &domain.ReputationRecord{}
	err := r.db.QueryRowContext(ctx, `
		SELECT account_id, score, total_sent, total_delivered, total_bounced,
		       total_complained, last_recalculated_at
		FROM reputation_records
		WHERE account_id = $1
	`, accountID).Scan(
		&rec.AccountID, &rec.Score, &rec.TotalSent, &rec.TotalDelivered,
		&rec.TotalBounced, &rec.TotalComplained, &rec.LastRecalculatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, reputation.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reputation record: %w", err)
	}
	return rec, nil
}

func (r *ReputationRepo) Save(ctx context.Context, rec *domain.ReputationRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reputation_records
			(account_id, score, total_sent, total_delivered, total_bounced,
			 total_complained, last_recalculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id) DO UPDATE SET
			score = EXCLUDED.score,
			total_sent = EXCLUDED.total_sent,
			total_delivered = EXCLUDED.total_delivered,
			total_bounced = EXCLUDED.total_bounced,
			total_complained = EXCLUDED.total_complained,
			last_recalculated_at = EXCLUDED.last_recalculated_at
	`, rec.AccountID, rec.Score, rec.TotalSent, rec.TotalDelivered,
		rec.TotalBounced, rec.TotalComplained, rec.LastRecalculatedAt)
	if err != nil {
		return fmt.Errorf("save reputation record: %w", err)
	}
	return nil
}
