package rogue_test

import (
	"testing"
	"time"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/rogue"
	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stats rogue.Stats
		want  []enum.RoguePattern
	}{
		{
			name:  "quiet moderator",
			stats: rogue.Stats{Total: 20, Reversed: 2, Restrictive: 5, MaxTarget: 2, MaxHour: 4},
		},
		{
			name:  "reversal ratio needs volume",
			stats: rogue.Stats{Total: 10, Reversed: 9, MaxTarget: 1, MaxHour: 1},
		},
		{
			name:  "high reversal",
			stats: rogue.Stats{Total: 11, Reversed: 4, MaxTarget: 1, MaxHour: 1},
			want:  []enum.RoguePattern{enum.RoguePatternHighReversal},
		},
		{
			name:  "excessive volume",
			stats: rogue.Stats{Total: 501, MaxTarget: 1, MaxHour: 30},
			want:  []enum.RoguePattern{enum.RoguePatternExcessiveVolume},
		},
		{
			name:  "targeted actions",
			stats: rogue.Stats{Total: 30, MaxTarget: 11, MaxHour: 3},
			want:  []enum.RoguePattern{enum.RoguePatternTargetedActions},
		},
		{
			name:  "time clustering",
			stats: rogue.Stats{Total: 20, MaxTarget: 1, MaxHour: 17},
			want:  []enum.RoguePattern{enum.RoguePatternTimeClustering},
		},
		{
			name:  "clustering at low volume",
			stats: rogue.Stats{Total: 8, MaxTarget: 1, MaxHour: 8},
			want:  []enum.RoguePattern{enum.RoguePatternTimeClustering},
		},
		{
			name:  "clustering ratio at threshold",
			stats: rogue.Stats{Total: 10, MaxTarget: 1, MaxHour: 8},
		},
		{
			name:  "no actions",
			stats: rogue.Stats{},
		},
		{
			name:  "restrictive bias",
			stats: rogue.Stats{Total: 21, Restrictive: 15, MaxTarget: 1, MaxHour: 2},
			want:  []enum.RoguePattern{enum.RoguePatternRestrictiveBias},
		},
		{
			name:  "restrictive ratio at threshold",
			stats: rogue.Stats{Total: 30, Restrictive: 21, MaxTarget: 1, MaxHour: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got []enum.RoguePattern
			for _, match := range tt.stats.Match() {
				got = append(got, match.Type)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	reversedAt := base.Add(time.Hour)
	entries := []*types.ModerationAuditLog{
		{TargetUserID: "user-1", CreatedAt: base, Restrictive: true},
		{TargetUserID: "user-1", CreatedAt: base.Add(10 * time.Minute), ReversedAt: &reversedAt},
		{TargetUserID: "user-2", CreatedAt: base.Add(2 * time.Hour), Restrictive: true},
	}

	stats := rogue.Summarize(entries)
	assert.Equal(t, rogue.Stats{Total: 3, Reversed: 1, Restrictive: 2, MaxTarget: 2, MaxHour: 2}, stats)
	assert.InDelta(t, 1.0/3, stats.FalsePositiveRate(), 1e-9)
	assert.Zero(t, rogue.Stats{}.FalsePositiveRate())
}
