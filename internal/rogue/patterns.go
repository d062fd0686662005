package rogue

import (
	"fmt"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
)

// Pattern thresholds.
const (
	ReversalRatio         = 0.30
	ReversalMinActions    = 10
	VolumeLimit           = 500
	TargetLimit           = 10
	ClusterRatio          = 0.80
	RestrictiveRatio      = 0.70
	RestrictiveMinActions = 20
)

// Stats summarizes a moderator's audit entries over the analysis window.
type Stats struct {
	Total       int
	Reversed    int
	Restrictive int
	MaxTarget   int // Most actions taken against a single user
	MaxHour     int // Most actions taken in a single hour of the day (UTC)
}

// Summarize builds the stats of a set of audit entries.
func Summarize(entries []*types.ModerationAuditLog) Stats {
	var stats Stats
	targets := make(map[string]int)
	var hours [24]int

	for _, entry := range entries {
		stats.Total++
		if entry.IsReversed() {
			stats.Reversed++
		}
		if entry.Restrictive {
			stats.Restrictive++
		}

		targets[entry.TargetUserID]++
		stats.MaxTarget = max(stats.MaxTarget, targets[entry.TargetUserID])

		hour := entry.CreatedAt.UTC().Hour()
		hours[hour]++
		stats.MaxHour = max(stats.MaxHour, hours[hour])
	}

	return stats
}

// FalsePositiveRate is the share of actions that were later reversed.
func (s Stats) FalsePositiveRate() float64 {
	return ratio(s.Reversed, s.Total)
}

// Match returns every pattern the stats trigger.
func (s Stats) Match() []types.RoguePatternMatch {
	var matches []types.RoguePatternMatch

	if r := s.FalsePositiveRate(); s.Total > ReversalMinActions && r > ReversalRatio {
		matches = append(matches, types.RoguePatternMatch{
			Type:        enum.RoguePatternHighReversal,
			Description: fmt.Sprintf("%d of %d actions reversed", s.Reversed, s.Total),
			Value:       r,
		})
	}

	if s.Total > VolumeLimit {
		matches = append(matches, types.RoguePatternMatch{
			Type:        enum.RoguePatternExcessiveVolume,
			Description: fmt.Sprintf("%d actions in 7 days", s.Total),
			Value:       float64(s.Total),
		})
	}

	if s.MaxTarget > TargetLimit {
		matches = append(matches, types.RoguePatternMatch{
			Type:        enum.RoguePatternTargetedActions,
			Description: fmt.Sprintf("%d actions against a single user", s.MaxTarget),
			Value:       float64(s.MaxTarget),
		})
	}

	if r := ratio(s.MaxHour, s.Total); r > ClusterRatio {
		matches = append(matches, types.RoguePatternMatch{
			Type:        enum.RoguePatternTimeClustering,
			Description: fmt.Sprintf("%.0f%% of actions in one hour of the day", r*100),
			Value:       r,
		})
	}

	if r := ratio(s.Restrictive, s.Total); s.Total > RestrictiveMinActions && r > RestrictiveRatio {
		matches = append(matches, types.RoguePatternMatch{
			Type:        enum.RoguePatternRestrictiveBias,
			Description: fmt.Sprintf("%d of %d actions restrictive", s.Restrictive, s.Total),
			Value:       r,
		})
	}

	return matches
}

func ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
