package admission

import (
	"time"

	"github.com/ignite/send-governor/internal/domain"
)

// Reason classifies a denied decision so batch senders can branch
// deterministically.
type Reason string

const (
	ReasonQuotaExceeded      Reason = "quota_exceeded"
	ReasonAccountSuspended   Reason = "account_suspended"
	ReasonStorageUnavailable Reason = "storage_unavailable"
	ReasonInvalidAccount     Reason = "invalid_account"
)

// Decision is the structured result of an admission check. It is a value,
// never an error: denial is a normal outcome.
type Decision struct {
	Allowed         bool          `json:"allowed"`
	Reason          Reason        `json:"reason,omitempty"`
	Detail          string        `json:"detail,omitempty"`
	RemainingDaily  int           `json:"remaining_daily"`
	RemainingHourly int           `json:"remaining_hourly"`
	RetryAfter      time.Duration `json:"-"`
	RetryAfterSecs  int           `json:"retry_after_seconds,omitempty"`
	Warnings        []string      `json:"warnings,omitempty"`
}

// Status is the read-only account summary served to UI pollers.
type Status struct {
	AccountID            string      `json:"account_id"`
	Tier                 domain.Tier `json:"tier"`
	Score                float64     `json:"score"`
	DailyUsed            int         `json:"daily_used"`
	DailyLimit           int         `json:"daily_limit"`
	HourlyUsed           int         `json:"hourly_used"`
	HourlyLimit          int         `json:"hourly_limit"`
	UniqueRecipientsUsed int         `json:"unique_recipients_used"`
	UniqueRecipientLimit int         `json:"unique_recipient_limit"`
	Suspended            bool        `json:"suspended"`
	SuspensionReason     string      `json:"suspension_reason,omitempty"`
	WarmupDaysRemaining  int         `json:"warmup_days_remaining"`
}
