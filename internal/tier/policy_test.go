package tier

import (
	"testing"

	"github.com/ignite/send-governor/internal/domain"
)

func TestNewPolicy_OverridesMergeOverDefaults(t *testing.T) {
	p, err := NewPolicy([]domain.TierDefinition{
		{
			Tier:                    domain.TierActive,
			DailyLimit:              2000,
			HourlyLimit:             400,
			UniqueRecipientLimit:    1200,
			MinScoreToEnter:         6.0,
			MinScoreToExit:          4.5,
			MinElapsedDaysToPromote: 14,
			MinDeliveredToPromote:   200,
		},
	})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	if got := p.LimitsFor(domain.TierActive).Daily; got != 2000 {
		t.Errorf("overridden Active daily limit = %d, want 2000", got)
	}
	// Untouched tiers keep their defaults.
	if got := p.LimitsFor(domain.TierNew).Daily; got != 50 {
		t.Errorf("New daily limit = %d, want default 50", got)
	}
}

func TestNewPolicy_RejectsBrokenHysteresis(t *testing.T) {
	_, err := NewPolicy([]domain.TierDefinition{
		{Tier: domain.TierWarming, MinScoreToEnter: 3.0, MinScoreToExit: 3.0},
	})
	if err == nil {
		t.Fatal("expected error when enter threshold does not exceed exit threshold")
	}
}

func TestNewPolicy_RejectsUnknownTier(t *testing.T) {
	_, err := NewPolicy([]domain.TierDefinition{{Tier: "platinum"}})
	if err == nil {
		t.Fatal("expected error for unknown tier name")
	}
}

func TestWarmupStage_RequiresBothDaysAndVolume(t *testing.T) {
	p := Default()

	cases := []struct {
		name        string
		elapsedDays int
		delivered   int
		want        domain.Tier
	}{
		{"brand new", 0, 0, domain.TierNew},
		{"days but no volume", 5, 10, domain.TierNew},
		{"volume but no days", 1, 500, domain.TierNew},
		{"warming eligible", 3, 25, domain.TierWarming},
		{"warming, not yet active", 10, 150, domain.TierWarming},
		{"active eligible", 14, 200, domain.TierActive},
		{"long past active", 100, 5000, domain.TierActive},
	}
	for _, tc := range cases {
		if got := p.WarmupStage(tc.elapsedDays, tc.delivered); got != tc.want {
			t.Errorf("%s: WarmupStage(%d, %d) = %s, want %s",
				tc.name, tc.elapsedDays, tc.delivered, got, tc.want)
		}
	}
}

func TestWarmupDaysRemaining(t *testing.T) {
	p := Default()
	if got := p.WarmupDaysRemaining(0); got != 14 {
		t.Errorf("day 0: remaining = %d, want 14", got)
	}
	if got := p.WarmupDaysRemaining(10); got != 4 {
		t.Errorf("day 10: remaining = %d, want 4", got)
	}
	if got := p.WarmupDaysRemaining(30); got != 0 {
		t.Errorf("day 30: remaining = %d, want 0", got)
	}
}

func TestShouldDemote_UsesExitThresholdOnly(t *testing.T) {
	p := Default()

	// Active exits at 4.5; a score between exit and enter must not demote.
	if p.ShouldDemote(domain.TierActive, 5.0) {
		t.Error("score 5.0 sits above the Active exit threshold, no demotion")
	}
	if !p.ShouldDemote(domain.TierActive, 4.4) {
		t.Error("score 4.4 sits below the Active exit threshold, expected demotion")
	}
	// Tiers without thresholds never demote on score.
	if p.ShouldDemote(domain.TierNew, 0.1) {
		t.Error("New has no exit threshold and must not demote")
	}
}

func TestMayRepromote_UsesEntryThreshold(t *testing.T) {
	p := Default()

	if p.MayRepromote(domain.TierActive, 5.9) {
		t.Error("score 5.9 is below the Active entry threshold")
	}
	if !p.MayRepromote(domain.TierActive, 6.0) {
		t.Error("score 6.0 meets the Active entry threshold")
	}
}

func TestLimitsFor_SuspendedIsZero(t *testing.T) {
	p := Default()
	l := p.LimitsFor(domain.TierSuspended)
	if l.Daily != 0 || l.Hourly != 0 || l.UniqueRecipients != 0 {
		t.Errorf("suspended limits = %+v, want all zero", l)
	}
}
