package cases

import (
	"slices"

	"github.com/robalyx/warden/internal/database/types/enum"
)

// Reason groups used by the priority and review rules.
var (
	criticalReasons = []enum.ReasonCode{ //nolint:gochecknoglobals // -
		enum.ReasonIdentityFraud,
		enum.ReasonMinorSafety,
		enum.ReasonCriminalActivity,
	}
	highReasons = []enum.ReasonCode{ //nolint:gochecknoglobals // -
		enum.ReasonKycMismatch,
		enum.ReasonHighRiskContent,
		enum.ReasonCoordinatedAbuse,
	}
	alwaysReviewReasons = []enum.ReasonCode{ //nolint:gochecknoglobals // -
		enum.ReasonIdentityFraud,
		enum.ReasonKycMismatch,
		enum.ReasonHighRiskContent,
		enum.ReasonMinorSafety,
		enum.ReasonCriminalActivity,
		enum.ReasonPersistentViolations,
		enum.ReasonMonetizationBypass,
		enum.ReasonGovernanceBypass,
	}
)

const (
	highConfidence   = 0.8
	mediumConfidence = 0.6
)

// Priority derives a case priority from its reason codes and confidence. The first
// matching rule wins.
func Priority(codes []enum.ReasonCode, confidence float64) enum.Priority {
	switch {
	case containsAny(codes, criticalReasons):
		return enum.PriorityCritical
	case confidence > highConfidence || containsAny(codes, highReasons):
		return enum.PriorityHigh
	case confidence > mediumConfidence || slices.Contains(codes, enum.ReasonPersistentViolations):
		return enum.PriorityMedium
	default:
		return enum.PriorityLow
	}
}

// RequiresReview checks if a case must be looked at by a human.
func RequiresReview(codes []enum.ReasonCode, confidence float64) bool {
	return confidence > highConfidence || containsAny(codes, alwaysReviewReasons)
}

func containsAny(codes, set []enum.ReasonCode) bool {
	return slices.ContainsFunc(codes, func(c enum.ReasonCode) bool {
		return slices.Contains(set, c)
	})
}
