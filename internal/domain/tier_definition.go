package domain

// Limits are the concrete per-window caps a tier grants.
type Limits struct {
	Daily            int `json:"daily_limit"`
	Hourly           int `json:"hourly_limit"`
	UniqueRecipients int `json:"unique_recipient_limit"`
}

// TierDefinition is configuration, not per-account state. The full table is
// loaded at startup so policy changes never require code changes.
//
// Hysteresis invariant: MinScoreToEnter > MinScoreToExit, so a score
// hovering at a boundary cannot oscillate the account between tiers.
type TierDefinition struct {
	Tier                    Tier    `json:"tier" yaml:"tier"`
	DailyLimit              int     `json:"daily_limit" yaml:"daily_limit"`
	HourlyLimit             int     `json:"hourly_limit" yaml:"hourly_limit"`
	UniqueRecipientLimit    int     `json:"unique_recipient_limit" yaml:"unique_recipient_limit"`
	MinScoreToEnter         float64 `json:"min_score_to_enter" yaml:"min_score_to_enter"`
	MinScoreToExit          float64 `json:"min_score_to_exit" yaml:"min_score_to_exit"`
	MinElapsedDaysToPromote int     `json:"min_elapsed_days_to_promote" yaml:"min_elapsed_days_to_promote"`
	MinDeliveredToPromote   int     `json:"min_delivered_to_promote" yaml:"min_delivered_to_promote"`
}

// Limits returns the per-window caps this definition grants.
func (d TierDefinition) Limits() Limits {
	return Limits{
		Daily:            d.DailyLimit,
		Hourly:           d.HourlyLimit,
		UniqueRecipients: d.UniqueRecipientLimit,
	}
}
