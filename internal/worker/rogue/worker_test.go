package rogue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/database/memory"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/worker/core"
	"github.com/robalyx/warden/internal/worker/rogue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeAnalyzer map[string]*types.RogueModeratorDetection

func (f fakeAnalyzer) AnalyzeModeratorBehavior(
	_ context.Context, moderatorID string,
) (*types.RogueModeratorDetection, error) {
	if moderatorID == "broken" {
		return nil, errors.New("analysis failed")
	}
	return f[moderatorID], nil
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	store := memory.New()
	entries := []struct {
		actor string
		level int
		at    time.Time
	}{
		{"mod-a", 2, baseTime.Add(-time.Hour)},
		{"mod-b", 1, baseTime.Add(-2 * time.Hour)},
		{"mod-c", 3, baseTime.Add(-3 * time.Hour)},
		{"broken", 2, baseTime.Add(-time.Hour)},
		{"user-x", 0, baseTime.Add(-time.Hour)},
		{"mod-old", 2, baseTime.Add(-8 * 24 * time.Hour)},
	}
	for i, e := range entries {
		require.NoError(t, store.AppendAudit(t.Context(), &types.ModerationAuditLog{
			ID:           string(rune('a' + i)),
			ActorID:      e.actor,
			ActorLevel:   e.level,
			TargetUserID: "target",
			ActionType:   enum.ActionFlagUser,
			CreatedAt:    e.at,
		}))
	}

	analyzer := fakeAnalyzer{
		"mod-a": {ModeratorID: "mod-a", Patterns: make([]types.RoguePatternMatch, 1)},
		"mod-c": {ModeratorID: "mod-c", Patterns: make([]types.RoguePatternMatch, 3), AutoSuspended: true},
	}

	worker := rogue.NewWorker(
		store, analyzer, core.NewStatusReporter(client, "rogue", zap.NewNop()),
		rogue.Options{BatchSize: 3}, zap.NewNop(),
	).WithClock(func() time.Time { return baseTime })

	summary, err := worker.RunOnce(t.Context())
	require.NoError(t, err)

	assert.Equal(t, rogue.Summary{Analyzed: 4, Detected: 2, Suspended: 1, Failed: 1}, summary)
}
