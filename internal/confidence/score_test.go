package confidence_test

import (
	"testing"

	"github.com/robalyx/warden/internal/confidence"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		sources     []confidence.SourceScore
		want        float64
		contributed int
	}{
		{
			name:    "no sources",
			sources: nil,
			want:    0,
		},
		{
			name: "all zero",
			sources: []confidence.SourceScore{
				{Type: enum.SourceAIScan, Score: 0},
				{Type: enum.SourceUserReport, Score: 0},
			},
			want: 0,
		},
		{
			name: "single source is not diluted",
			sources: []confidence.SourceScore{
				{Type: enum.SourceAIScan, Score: 0.8},
				{Type: enum.SourceUserReport, Score: 0},
			},
			want:        0.8,
			contributed: 1,
		},
		{
			name: "weighted average",
			sources: []confidence.SourceScore{
				{Type: enum.SourceAIScan, Score: 1},             // 0.25
				{Type: enum.SourceViolationHistory, Score: 0.5}, // 0.05
			},
			want:        0.30 / 0.35,
			contributed: 2,
		},
		{
			name: "out of range inputs are clamped",
			sources: []confidence.SourceScore{
				{Type: enum.SourceAIScan, Score: 4},
				{Type: enum.SourceCommunityFlag, Score: -1},
			},
			want:        1,
			contributed: 1,
		},
		{
			name: "unknown source ignored",
			sources: []confidence.SourceScore{
				{Type: "telepathy", Score: 1},
				{Type: enum.SourceUserReport, Score: 0.2},
			},
			want:        0.2,
			contributed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			score, sources := confidence.Score(tt.sources)
			assert.InDelta(t, tt.want, score, 1e-9)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
			assert.Len(t, sources, tt.contributed)
		})
	}
}

func TestSubRules(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.6, confidence.AIScanScore(3), 1e-9)
	assert.InDelta(t, 1.0, confidence.AIScanScore(12), 1e-9)
	assert.InDelta(t, 0.5, confidence.CommunityFlagScore(3, 2), 1e-9)
	assert.InDelta(t, 0.75, confidence.TrustedModActionScore(3), 1e-9)
	assert.InDelta(t, 1.0, confidence.UserReportScore(15), 1e-9)

	assert.InDelta(t, 0, confidence.AnomalyScore(nil), 1e-9)
	assert.InDelta(t, 0.9, confidence.AnomalyScore([]*types.AnomalyEvent{
		{Severity: 0.7}, {Severity: 0.2}, {Severity: 0.4},
	}), 1e-9)
}

func TestViolationHistoryScore(t *testing.T) {
	t.Parallel()

	actioned := &types.CaseResolution{Outcome: enum.OutcomeActioned}
	dismissed := &types.CaseResolution{Outcome: enum.OutcomeDismissed}

	cases := []*types.ModerationCase{
		{Status: enum.CaseStatusResolved, Priority: enum.PriorityCritical, Resolution: actioned},
		{Status: enum.CaseStatusAppealed, Priority: enum.PriorityMedium, Resolution: actioned},
		{Status: enum.CaseStatusResolved, Priority: enum.PriorityHigh, Resolution: dismissed},
		{Status: enum.CaseStatusOpen, Priority: enum.PriorityHigh},
	}
	assert.InDelta(t, 0.7, confidence.ViolationHistoryScore(cases), 1e-9)

	many := make([]*types.ModerationCase, 5)
	for i := range many {
		many[i] = &types.ModerationCase{
			Status: enum.CaseStatusResolved, Priority: enum.PriorityCritical, Resolution: actioned,
		}
	}
	assert.InDelta(t, 1.0, confidence.ViolationHistoryScore(many), 1e-9)
}
