// Package enforcement turns confidence scores into graduated restrictions and keeps them
// in step with the external account-status engine.
package enforcement

import (
	"time"

	"github.com/robalyx/warden/internal/database/types/enum"
)

// Tier thresholds. Lower bounds are inclusive.
const (
	SoftThreshold           = 0.3
	HardThreshold           = 0.6
	SuspensionRiskThreshold = 0.8
)

// Restriction durations per tier.
const (
	SoftVisibilityDuration = 48 * time.Hour
	HardVisibilityDuration = 72 * time.Hour
	HardPostingDuration    = 48 * time.Hour
)

// LiftCandidateAge is how long an automatic restriction must stand on an active account
// before it is proposed for lifting.
const LiftCandidateAge = 24 * time.Hour

// TierFor maps a confidence score to an enforcement tier.
func TierFor(score float64) enum.Tier {
	switch {
	case score >= SuspensionRiskThreshold:
		return enum.TierSuspensionRisk
	case score >= HardThreshold:
		return enum.TierHard
	case score >= SoftThreshold:
		return enum.TierSoft
	default:
		return enum.TierNone
	}
}

// plan is the set of effects a tier produces.
type plan struct {
	visibility         enum.VisibilityTier
	visibilityDuration time.Duration // Zero means no expiry
	freezePosting      bool
	postingDuration    time.Duration
	reasons            []enum.ReasonCode
	priorityFloor      enum.Priority
	notification       enum.NotificationLevel
	accountStatus      enum.AccountStatus
	featureLocks       []string
}

func planFor(tier enum.Tier) (plan, bool) {
	switch tier {
	case enum.TierSoft:
		return plan{
			visibility:         enum.VisibilityLow,
			visibilityDuration: SoftVisibilityDuration,
			reasons:            []enum.ReasonCode{enum.ReasonHighRiskContent},
			notification:       enum.NotificationSoft,
			accountStatus:      enum.AccountSoftRestricted,
			featureLocks:       []string{enum.FeatureLockDiscovery},
		}, true
	case enum.TierHard:
		return plan{
			visibility:         enum.VisibilityHidden,
			visibilityDuration: HardVisibilityDuration,
			freezePosting:      true,
			postingDuration:    HardPostingDuration,
			reasons:            []enum.ReasonCode{enum.ReasonPersistentViolations},
			notification:       enum.NotificationHard,
			accountStatus:      enum.AccountHardRestricted,
			featureLocks:       []string{enum.FeatureLockDiscovery, enum.FeatureLockPosting},
		}, true
	case enum.TierSuspensionRisk:
		return plan{
			visibility:    enum.VisibilityHidden,
			freezePosting: true,
			reasons:       []enum.ReasonCode{enum.ReasonPersistentViolations, enum.ReasonHighRiskContent},
			priorityFloor: enum.PriorityCritical,
			notification:  enum.NotificationSuspended,
			accountStatus: enum.AccountHardRestricted,
			featureLocks:  []string{enum.FeatureLockDiscovery, enum.FeatureLockPosting},
		}, true
	case enum.TierNone:
		return plan{}, false
	default:
		return plan{}, false
	}
}

// visibilityRank orders visibility tiers from least to most restrictive.
func visibilityRank(tier enum.VisibilityTier) int {
	switch tier {
	case enum.VisibilityLow:
		return 1
	case enum.VisibilityHidden:
		return 2
	case enum.VisibilityNormal:
		return 0
	default:
		return 0
	}
}

// accountVisibility collapses the dispatcher's visibility tiers onto the two tiers the
// account-status engine understands.
func accountVisibility(tier enum.VisibilityTier) enum.VisibilityTier {
	if tier == enum.VisibilityHidden || tier == enum.VisibilityLow {
		return enum.VisibilityLow
	}
	return enum.VisibilityNormal
}

// expiryAfter returns the deadline for a duration, or nil for no expiry.
func expiryAfter(now time.Time, d time.Duration) *time.Time {
	if d <= 0 {
		return nil
	}
	t := now.Add(d)
	return &t
}

// outlasts checks if expiry a ends no earlier than expiry b. Nil never ends.
func outlasts(a, b *time.Time) bool {
	if a == nil {
		return true
	}
	if b == nil {
		return false
	}
	return !a.Before(*b)
}
