package confidence

import (
	"time"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
)

const (
	// SignalWindow bounds the audit and report history feeding the score.
	SignalWindow = 30 * 24 * time.Hour
	// AnomalyWindow bounds the anomaly detections feeding the score.
	AnomalyWindow = 7 * 24 * time.Hour
)

// AIScanScore normalizes the AI flag count.
func AIScanScore(aiFlags int) float64 {
	return clamp(float64(aiFlags) * 0.2)
}

// CommunityFlagScore normalizes community flags from the trust profile and from
// community moderators' flag actions.
func CommunityFlagScore(profileFlags, moderatorFlags int) float64 {
	return clamp(float64(profileFlags+moderatorFlags) * 0.1)
}

// TrustedModActionScore normalizes the restrictive actions taken by trusted moderators.
func TrustedModActionScore(actions int) float64 {
	return clamp(float64(actions) * 0.25)
}

// UserReportScore normalizes the number of distinct reporters.
func UserReportScore(uniqueReporters int) float64 {
	return clamp(float64(uniqueReporters) * 0.1)
}

// severity is the violation weight of an actioned case by priority.
var severity = map[enum.Priority]float64{ //nolint:gochecknoglobals // -
	enum.PriorityLow:      0.1,
	enum.PriorityMedium:   0.2,
	enum.PriorityHigh:     0.3,
	enum.PriorityCritical: 0.5,
}

// ViolationHistoryScore sums the severity of cases resolved against the user.
func ViolationHistoryScore(cases []*types.ModerationCase) float64 {
	var total float64
	for _, c := range cases {
		if c.Resolution == nil || c.Resolution.Outcome != enum.OutcomeActioned {
			continue
		}
		if c.Status != enum.CaseStatusResolved && c.Status != enum.CaseStatusAppealed {
			continue
		}
		total += severity[c.Priority]
	}
	return clamp(total)
}

// AnomalyScore takes the strongest detection and adds a little for each additional one.
func AnomalyScore(events []*types.AnomalyEvent) float64 {
	if len(events) == 0 {
		return 0
	}

	var strongest float64
	for _, e := range events {
		strongest = max(strongest, e.Severity)
	}
	return clamp(strongest + 0.1*float64(len(events)-1))
}

// auditCounts tallies the audit entries against a user that feed the score.
// Reversed entries are ignored.
func auditCounts(entries []*types.ModerationAuditLog) (communityFlags, trustedActions int) {
	for _, entry := range entries {
		if entry.IsReversed() {
			continue
		}
		switch {
		case entry.ActorLevel >= enum.LevelTrustedMod && entry.Restrictive:
			trustedActions++
		case entry.ActorLevel == enum.LevelCommunityMod && entry.ActionType == enum.ActionFlagUser:
			communityFlags++
		}
	}
	return communityFlags, trustedActions
}
