package rogue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/robalyx/warden/internal/cases"
	"github.com/robalyx/warden/internal/database/memory"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/rogue"
	"github.com/robalyx/warden/internal/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)

type recordingOpener struct {
	mu       sync.Mutex
	requests []cases.CreateRequest
}

func (o *recordingOpener) Create(_ context.Context, req cases.CreateRequest) (*cases.CreateResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, req)
	return &cases.CreateResult{
		Case: &types.ModerationCase{ID: fmt.Sprintf("case-%d", len(o.requests)), SubjectUserID: req.SubjectUserID},
	}, nil
}

type recordingAlerter struct {
	mu         sync.Mutex
	detections []*types.RogueModeratorDetection
}

func (a *recordingAlerter) AlertRogueModerator(_ context.Context, d *types.RogueModeratorDetection) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detections = append(a.detections, d)
}

type testEnv struct {
	detector *rogue.Detector
	store    *memory.Store
	roles    *role.Service
	opener   *recordingOpener
	alerter  *recordingAlerter
	now      *time.Time
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	store := memory.New()
	require.NoError(t, store.SaveUserRoles(t.Context(), &types.UserRoles{
		UserID: "mod-1",
		Roles:  []enum.Role{enum.RoleUser, enum.RoleTrustedMod},
	}))

	now := baseTime
	roles := role.NewService(store, logger)
	env := &testEnv{
		store:   store,
		roles:   roles,
		opener:  &recordingOpener{},
		alerter: &recordingAlerter{},
		now:     &now,
	}
	env.detector = rogue.NewDetector(store, store, env.opener, roles, env.alerter, logger).
		WithClock(func() time.Time { return *env.now })

	return env
}

// seedActions writes total actions for mod-1, one hour apart against distinct users,
// with the first reversed entries marked as reversed.
func (e *testEnv) seedActions(t *testing.T, total, reversed int) {
	t.Helper()

	for i := range total {
		entry := &types.ModerationAuditLog{
			ID:           fmt.Sprintf("audit-%d", i),
			ActorID:      "mod-1",
			ActorLevel:   enum.LevelTrustedMod,
			TargetUserID: fmt.Sprintf("user-%d", i),
			ActionType:   enum.ActionApplyVisibilityRestriction,
			Reversible:   true,
			Restrictive:  true,
			CreatedAt:    baseTime.Add(-time.Duration(i+1) * time.Hour),
		}
		if i < reversed {
			at := baseTime.Add(-30 * time.Minute)
			entry.ReversedAt = &at
			entry.ReversedBy = "admin-1"
		}
		require.NoError(t, e.store.AppendAudit(t.Context(), entry))
	}
}

func TestAnalyzeSuspendsHighReversalModerator(t *testing.T) {
	t.Parallel()
	env := setupTest(t)
	ctx := t.Context()
	env.seedActions(t, 20, 15)

	detection, err := env.detector.Analyze(ctx, "mod-1")
	require.NoError(t, err)
	require.NotNil(t, detection)

	assert.Equal(t, 20, detection.TotalActions)
	assert.Equal(t, 15, detection.ReversedActions)
	assert.InDelta(t, 0.75, detection.FalsePositiveRate, 1e-9)
	assert.True(t, detection.AutoSuspended)
	assert.Equal(t, "case-1", detection.CaseID)
	require.Len(t, detection.Patterns, 1)
	assert.Equal(t, enum.RoguePatternHighReversal, detection.Patterns[0].Type)

	roles, err := env.roles.GetRoles(ctx, "mod-1")
	require.NoError(t, err)
	assert.Equal(t, []enum.Role{enum.RoleUser}, roles.Roles)
	assert.Equal(t, "case-1", roles.SuspensionCaseID)
	require.NotNil(t, roles.SuspendedAt)

	require.Len(t, env.opener.requests, 1)
	req := env.opener.requests[0]
	assert.Equal(t, "mod-1", req.SubjectUserID)
	assert.Equal(t, []enum.ReasonCode{enum.ReasonGovernanceBypass}, req.ReasonCodes)
	assert.Equal(t, enum.PriorityCritical, req.PriorityFloor)

	assert.Len(t, env.store.Detections("mod-1"), 1)
	assert.Len(t, env.alerter.detections, 1)
}

func TestAnalyzeFlagsWithoutSuspension(t *testing.T) {
	t.Parallel()
	env := setupTest(t)
	ctx := t.Context()
	env.seedActions(t, 12, 4)

	detection, err := env.detector.Analyze(ctx, "mod-1")
	require.NoError(t, err)
	require.NotNil(t, detection)
	assert.False(t, detection.AutoSuspended)

	level, err := env.roles.GetLevel(ctx, "mod-1")
	require.NoError(t, err)
	assert.Equal(t, enum.LevelTrustedMod, level)
}

func TestAnalyzeQuietModerator(t *testing.T) {
	t.Parallel()
	env := setupTest(t)
	env.seedActions(t, 20, 2)

	detection, err := env.detector.Analyze(t.Context(), "mod-1")
	require.NoError(t, err)
	assert.Nil(t, detection)
	assert.Empty(t, env.opener.requests)
	assert.Empty(t, env.alerter.detections)
}

func TestAnalyzeDeduplicatesWithinADay(t *testing.T) {
	t.Parallel()
	env := setupTest(t)
	ctx := t.Context()
	env.seedActions(t, 12, 4)

	first, err := env.detector.Analyze(ctx, "mod-1")
	require.NoError(t, err)
	require.NotNil(t, first)

	*env.now = baseTime.Add(23 * time.Hour)
	second, err := env.detector.Analyze(ctx, "mod-1")
	require.NoError(t, err)
	assert.Nil(t, second)

	*env.now = baseTime.Add(25 * time.Hour)
	third, err := env.detector.Analyze(ctx, "mod-1")
	require.NoError(t, err)
	require.NotNil(t, third)

	assert.Len(t, env.store.Detections("mod-1"), 2)
	assert.Len(t, env.opener.requests, 2)
}
