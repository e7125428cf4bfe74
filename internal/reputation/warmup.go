package reputation

import (
	"fmt"
	"time"

	"github.com/ignite/send-governor/internal/domain"
)

// resolveTier decides the account's next tier from the freshly tallied
// record. Rules, in priority order:
//
//  1. Suspended accounts stay suspended until the cooldown has elapsed with
//     zero complaints and the score sits above the floor; reinstatement
//     lands on the warm-up stage, never straight back to the old tier.
//  2. A complaint rate above the ceiling, or a score below the floor,
//     forces suspension (the only transition that ignores elapsed time).
//  3. A score below the current tier's exit threshold demotes to
//     restricted. Restricted accounts re-enter their warm-up stage only
//     once the score clears that stage's strictly higher entry threshold.
//  4. Otherwise warm-up advances New → Warming → Active purely on elapsed
//     days and delivered volume. Warm-up never demotes.
func (e *Engine) resolveTier(acct *domain.Account, rec *domain.ReputationRecord, attempts []domain.SendAttempt) (domain.Tier, string) {
	now := e.now()
	elapsed := acct.AgeDays(now)

	if acct.Tier == domain.TierSuspended {
		if acct.SuspendedAt == nil || now.Sub(*acct.SuspendedAt) < e.cfg.Cooldown {
			return domain.TierSuspended, acct.SuspensionReason
		}
		if complaintsSince(attempts, *acct.SuspendedAt) > 0 {
			return domain.TierSuspended, acct.SuspensionReason
		}
		if rec.TotalSent >= e.cfg.MinSampleSize && rec.Score < e.cfg.SuspensionFloor {
			return domain.TierSuspended, acct.SuspensionReason
		}
		return e.tiers.WarmupStage(elapsed, rec.TotalDelivered), ""
	}

	if rec.TotalSent >= e.cfg.MinSampleSize {
		if rate := rec.ComplaintRate(); rate > e.cfg.ComplaintCeiling {
			return domain.TierSuspended,
				fmt.Sprintf("complaint rate %.3f%% exceeds %.3f%% ceiling", rate*100, e.cfg.ComplaintCeiling*100)
		}
		if rec.Score < e.cfg.SuspensionFloor {
			return domain.TierSuspended,
				fmt.Sprintf("score %.2f below %.2f floor", rec.Score, e.cfg.SuspensionFloor)
		}
	}

	stage := e.tiers.WarmupStage(elapsed, rec.TotalDelivered)

	if acct.Tier == domain.TierRestricted {
		if stage != domain.TierNew && !e.tiers.MayRepromote(stage, rec.Score) {
			return domain.TierRestricted, ""
		}
		return stage, ""
	}

	if e.tiers.ShouldDemote(acct.Tier, rec.Score) {
		return domain.TierRestricted, ""
	}

	if tierRank(stage) > tierRank(acct.Tier) {
		return stage, ""
	}
	return acct.Tier, ""
}

func tierRank(t domain.Tier) int {
	switch t {
	case domain.TierWarming:
		return 1
	case domain.TierActive:
		return 2
	default:
		return 0
	}
}

func complaintsSince(attempts []domain.SendAttempt, since time.Time) int {
	n := 0
	for _, a := range attempts {
		if a.Outcome == domain.OutcomeComplained && !a.AttemptedAt.Before(since) {
			n++
		}
	}
	return n
}
