package domain

import "time"

// Outcome is the delivery result of a single send attempt.
type Outcome string

const (
	OutcomePending    Outcome = "pending"
	OutcomeDelivered  Outcome = "delivered"
	OutcomeBounced    Outcome = "bounced"
	OutcomeComplained Outcome = "complained"
	OutcomeFailed     Outcome = "failed" // transport failure unrelated to policy
)

// Terminal reports whether o is a final outcome. A pending attempt
// transitions to a terminal outcome exactly once.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeDelivered, OutcomeBounced, OutcomeComplained, OutcomeFailed:
		return true
	}
	return false
}

// SendAttempt is one entry in the append-only send log. Recipient
// addresses never appear in the engine; only their hashes do.
type SendAttempt struct {
	ID            string    `json:"id" db:"id"`
	AccountID     string    `json:"account_id" db:"account_id"`
	RecipientHash string    `json:"recipient_hash" db:"recipient_hash"`
	AttemptedAt   time.Time `json:"attempted_at" db:"attempted_at"`
	Outcome       Outcome   `json:"outcome" db:"outcome"`
}
