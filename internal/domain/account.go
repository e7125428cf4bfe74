package domain

import "time"

// Tier is a named bucket determining an account's current sending limits.
type Tier string

const (
	TierNew        Tier = "new"
	TierWarming    Tier = "warming"
	TierActive     Tier = "active"
	TierRestricted Tier = "restricted"
	TierSuspended  Tier = "suspended"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierNew, TierWarming, TierActive, TierRestricted, TierSuspended:
		return true
	}
	return false
}

// Account is a sending account as seen by the admission engine. The account
// record is owned by the auth subsystem; this engine only reads it and writes
// Tier, SuspensionReason and SuspendedAt.
type Account struct {
	ID               string     `json:"id" db:"id"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	Tier             Tier       `json:"tier" db:"tier"`
	SuspensionReason string     `json:"suspension_reason,omitempty" db:"suspension_reason"`
	SuspendedAt      *time.Time `json:"suspended_at,omitempty" db:"suspended_at"`
}

// Suspended reports whether the account is currently barred from sending.
func (a *Account) Suspended() bool {
	return a.Tier == TierSuspended
}

// AgeDays returns whole calendar days elapsed since account creation.
func (a *Account) AgeDays(now time.Time) int {
	d := int(now.Sub(a.CreatedAt).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
