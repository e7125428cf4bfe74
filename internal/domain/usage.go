package domain

import "time"

// WindowKind identifies the length of a usage-tracking window.
type WindowKind string

const (
	WindowDaily  WindowKind = "daily"
	WindowHourly WindowKind = "hourly"
)

// Period returns the fixed length of windows of this kind.
func (k WindowKind) Period() time.Duration {
	if k == WindowHourly {
		return time.Hour
	}
	return 24 * time.Hour
}

// Start returns the period-aligned start of the window containing t.
// Windows are half-open [start, start+period): an instant exactly at
// start+period belongs to the next window.
func (k WindowKind) Start(t time.Time) time.Time {
	return t.UTC().Truncate(k.Period())
}

// WindowKey returns the canonical string label for the window containing t:
// "2006-01-02" for daily, "2006-01-02T15" for hourly. Used for Redis key
// bucketing and for alert deduplication.
func (k WindowKind) WindowKey(t time.Time) string {
	if k == WindowHourly {
		return t.UTC().Format("2006-01-02T15")
	}
	return t.UTC().Format("2006-01-02")
}

// UsageWindow is a point-in-time view of one account's counters for a
// single window. Superseded windows are retained for audit; at most one
// window per (account, kind) is active.
type UsageWindow struct {
	AccountID        string     `json:"account_id" db:"account_id"`
	Kind             WindowKind `json:"kind" db:"kind"`
	WindowStart      time.Time  `json:"window_start" db:"window_start"`
	SentCount        int        `json:"sent_count" db:"sent_count"`
	UniqueRecipients int        `json:"unique_recipients" db:"unique_recipients"`
}
