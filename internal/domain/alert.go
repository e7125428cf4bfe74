package domain

import "time"

// AlertLevel is the severity of a threshold-crossing notification.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Alert is a threshold-crossing notification for one account. The
// (AccountID, WindowKey, Threshold) triple is unique: crossing 80% usage
// emits one Warning per window, not one per request.
type Alert struct {
	ID           string     `json:"id" db:"id"`
	AccountID    string     `json:"account_id" db:"account_id"`
	Level        AlertLevel `json:"level" db:"level"`
	Threshold    string     `json:"threshold" db:"threshold"`
	WindowKey    string     `json:"window_key" db:"window_key"`
	Message      string     `json:"message" db:"message"`
	Acknowledged bool       `json:"acknowledged" db:"acknowledged"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
