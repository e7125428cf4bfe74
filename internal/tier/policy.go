// Package tier maps an account's tier to concrete sending limits and
// implements the promotion/demotion rules between tiers.
//
// The definition table is configuration loaded at startup; nothing in this
// package hard-codes policy beyond the shipped defaults.
package tier

import (
	"fmt"

	"github.com/ignite/send-governor/internal/domain"
)

// DefaultDefinitions is the shipped tier table. Deployments override it in
// config; established senders typically raise Active toward 2000/day.
var DefaultDefinitions = []domain.TierDefinition{
	{
		Tier:                 domain.TierNew,
		DailyLimit:           50,
		HourlyLimit:          10,
		UniqueRecipientLimit: 30,
	},
	{
		Tier:                    domain.TierWarming,
		DailyLimit:              200,
		HourlyLimit:             40,
		UniqueRecipientLimit:    100,
		MinScoreToEnter:         4.0,
		MinScoreToExit:          3.0,
		MinElapsedDaysToPromote: 3,
		MinDeliveredToPromote:   25,
	},
	{
		Tier:                    domain.TierActive,
		DailyLimit:              500,
		HourlyLimit:             100,
		UniqueRecipientLimit:    300,
		MinScoreToEnter:         6.0,
		MinScoreToExit:          4.5,
		MinElapsedDaysToPromote: 14,
		MinDeliveredToPromote:   200,
	},
	{
		Tier:                 domain.TierRestricted,
		DailyLimit:           50,
		HourlyLimit:          10,
		UniqueRecipientLimit: 20,
	},
	{
		Tier: domain.TierSuspended,
	},
}

// Policy is a pure lookup over the tier definition table.
type Policy struct {
	defs map[domain.Tier]domain.TierDefinition
}

// NewPolicy builds a policy from a definition table. Tiers missing from the
// table fall back to the shipped defaults. The hysteresis invariant
// (MinScoreToEnter > MinScoreToExit wherever both are set) is enforced here
// so a misconfigured table fails at startup, not at 3am.
func NewPolicy(defs []domain.TierDefinition) (*Policy, error) {
	m := make(map[domain.Tier]domain.TierDefinition, len(DefaultDefinitions))
	for _, d := range DefaultDefinitions {
		m[d.Tier] = d
	}
	for _, d := range defs {
		if !d.Tier.Valid() {
			return nil, fmt.Errorf("unknown tier %q in tier table", d.Tier)
		}
		m[d.Tier] = d
	}
	for _, d := range m {
		if d.MinScoreToEnter != 0 && d.MinScoreToEnter <= d.MinScoreToExit {
			return nil, fmt.Errorf("tier %s: min_score_to_enter (%.2f) must exceed min_score_to_exit (%.2f)",
				d.Tier, d.MinScoreToEnter, d.MinScoreToExit)
		}
	}
	return &Policy{defs: m}, nil
}

// Default returns a policy over the shipped definition table.
func Default() *Policy {
	p, err := NewPolicy(nil)
	if err != nil {
		panic(err) // defaults are statically valid
	}
	return p
}

// LimitsFor returns the concrete caps for a tier.
func (p *Policy) LimitsFor(t domain.Tier) domain.Limits {
	return p.defs[t].Limits()
}

// Definition returns the full definition for a tier.
func (p *Policy) Definition(t domain.Tier) domain.TierDefinition {
	return p.defs[t]
}

// WarmupStage returns the tier an account earns purely from warm-up:
// elapsed calendar days since creation AND delivered volume, never the
// numeric score. A low-volume but clean sender still warms up on schedule.
func (p *Policy) WarmupStage(elapsedDays, delivered int) domain.Tier {
	active := p.defs[domain.TierActive]
	if elapsedDays >= active.MinElapsedDaysToPromote && delivered >= active.MinDeliveredToPromote {
		return domain.TierActive
	}
	warming := p.defs[domain.TierWarming]
	if elapsedDays >= warming.MinElapsedDaysToPromote && delivered >= warming.MinDeliveredToPromote {
		return domain.TierWarming
	}
	return domain.TierNew
}

// WarmupDaysRemaining returns whole days until the account reaches the
// Active warm-up threshold, 0 once it is eligible.
func (p *Policy) WarmupDaysRemaining(elapsedDays int) int {
	remaining := p.defs[domain.TierActive].MinElapsedDaysToPromote - elapsedDays
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ShouldDemote reports whether the score has fallen below the exit
// threshold of the account's current tier. The exit threshold sits
// strictly below the entry threshold, so a score hovering at the boundary
// cannot bounce the account back and forth.
func (p *Policy) ShouldDemote(current domain.Tier, score float64) bool {
	def, ok := p.defs[current]
	if !ok || def.MinScoreToExit == 0 {
		return false
	}
	return score < def.MinScoreToExit
}

// MayRepromote reports whether a restricted account's score has recovered
// enough to re-enter the given tier.
func (p *Policy) MayRepromote(target domain.Tier, score float64) bool {
	def, ok := p.defs[target]
	if !ok {
		return false
	}
	return score >= def.MinScoreToEnter
}
