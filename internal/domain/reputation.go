package domain

import "time"

// NeutralScore is the score assigned to accounts with no send history.
const NeutralScore = 5.0

// ReputationRecord summarizes recent delivery quality for one account.
// Mutated exclusively by the reputation engine; callers treat it as
// read-only.
type ReputationRecord struct {
	AccountID          string    `json:"account_id" db:"account_id"`
	Score              float64   `json:"score" db:"score"` // [0.0, 10.0]
	TotalSent          int       `json:"total_sent" db:"total_sent"`
	TotalDelivered     int       `json:"total_delivered" db:"total_delivered"`
	TotalBounced       int       `json:"total_bounced" db:"total_bounced"`
	TotalComplained    int       `json:"total_complained" db:"total_complained"`
	LastRecalculatedAt time.Time `json:"last_recalculated_at" db:"last_recalculated_at"`
}

// BounceRate returns bounced/sent, 0 when nothing was sent.
func (r *ReputationRecord) BounceRate() float64 {
	if r.TotalSent == 0 {
		return 0
	}
	return float64(r.TotalBounced) / float64(r.TotalSent)
}

// ComplaintRate returns complained/sent, 0 when nothing was sent.
func (r *ReputationRecord) ComplaintRate() float64 {
	if r.TotalSent == 0 {
		return 0
	}
	return float64(r.TotalComplained) / float64(r.TotalSent)
}

// DeliveryRate returns delivered/sent, 0 when nothing was sent.
func (r *ReputationRecord) DeliveryRate() float64 {
	if r.TotalSent == 0 {
		return 0
	}
	return float64(r.TotalDelivered) / float64(r.TotalSent)
}
