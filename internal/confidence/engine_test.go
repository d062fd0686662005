package confidence_test

import (
	"errors"
	"testing"
	"time"

	"github.com/robalyx/warden/internal/confidence"
	"github.com/robalyx/warden/internal/database/memory"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupEngine(t *testing.T, now time.Time) (*confidence.Engine, *memory.Store) {
	t.Helper()

	store := memory.New()
	engine := confidence.NewEngine(store, confidence.Sources{
		Profiles:  store,
		Reports:   store,
		Anomalies: store,
		Audit:     store,
		Cases:     store,
	}, zap.NewNop()).WithClock(func() time.Time { return now })

	return engine, store
}

func TestComputeStoresScore(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine, store := setupEngine(t, now)
	ctx := t.Context()

	store.PutTrustProfile(&types.TrustProfile{UserID: "user-1", AIFlags: 5, UpdatedAt: now})
	require.NoError(t, store.AppendAudit(ctx, &types.ModerationAuditLog{
		ID: "a1", ActorID: "mod-1", ActorLevel: enum.LevelTrustedMod, TargetUserID: "user-1",
		ActionType: enum.ActionApplyPostingRestriction, Restrictive: true, CreatedAt: now.Add(-time.Hour),
	}))

	result, err := engine.Compute(ctx, "user-1")
	require.NoError(t, err)

	// AI 1.0 × 0.25 and trusted mod 0.25 × 0.25 over a weight of 0.5
	assert.InDelta(t, (0.25+0.0625)/0.5, result.Score, 1e-9)
	assert.Len(t, result.Sources, 2)

	stored, err := store.GetConfidence(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, result.Score, stored.Score, 1e-9)
	assert.Equal(t, now, stored.CalculatedAt)
}

func TestComputeIgnoresReversedAndStaleActions(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine, store := setupEngine(t, now)
	ctx := t.Context()

	reversedAt := now.Add(-time.Minute)
	entries := []*types.ModerationAuditLog{
		{
			ID: "reversed", ActorID: "mod-1", ActorLevel: enum.LevelTrustedMod, TargetUserID: "user-1",
			ActionType: enum.ActionFlagUser, Restrictive: true, CreatedAt: now.Add(-time.Hour),
			ReversedAt: &reversedAt,
		},
		{
			ID: "stale", ActorID: "mod-1", ActorLevel: enum.LevelTrustedMod, TargetUserID: "user-1",
			ActionType: enum.ActionFlagUser, Restrictive: true, CreatedAt: now.Add(-40 * 24 * time.Hour),
		},
	}
	for _, entry := range entries {
		require.NoError(t, store.AppendAudit(ctx, entry))
	}

	result, err := engine.Compute(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, result.Score)
	assert.Empty(t, result.Sources)
}

func TestComputeToleratesFailingSource(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine, store := setupEngine(t, now)
	ctx := t.Context()

	store.FailAnomalies(errors.New("feed down"))
	store.PutTrustProfile(&types.TrustProfile{UserID: "user-1", CommunityFlags: 4, UpdatedAt: now})
	for i, reporter := range []string{"r1", "r2", "r2"} {
		require.NoError(t, store.CreateReport(ctx, &types.ContentReport{
			ID: string(rune('a' + i)), ReporterID: reporter, ReportedUserID: "user-1", CreatedAt: now.Add(-time.Hour),
		}))
	}

	result, err := engine.Compute(ctx, "user-1")
	require.NoError(t, err)

	// Community 0.4 × 0.15 and reports 0.2 × 0.15 over a weight of 0.3
	assert.InDelta(t, 0.3, result.Score, 1e-9)
}

func TestComputeUsesAnomalies(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine, store := setupEngine(t, now)

	store.AddAnomaly(&types.AnomalyEvent{ID: "x", UserID: "user-1", Severity: 0.5, DetectedAt: now.Add(-time.Hour)})
	store.AddAnomaly(&types.AnomalyEvent{ID: "y", UserID: "user-1", Severity: 0.9, DetectedAt: now.Add(-10 * 24 * time.Hour)})

	result, err := engine.Compute(t.Context(), "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.Score, 1e-9)
}
