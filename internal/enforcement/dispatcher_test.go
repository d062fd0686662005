package enforcement_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robalyx/warden/internal/cases"
	"github.com/robalyx/warden/internal/database/memory"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/enforcement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixedScorer float64

func (s fixedScorer) Compute(_ context.Context, userID string) (*types.EnforcementConfidence, error) {
	return &types.EnforcementConfidence{UserID: userID, Score: float64(s)}, nil
}

type recordingOpener struct {
	mu       sync.Mutex
	requests []cases.CreateRequest
	err      error
}

func (o *recordingOpener) Create(_ context.Context, req cases.CreateRequest) (*cases.CreateResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	o.requests = append(o.requests, req)
	return &cases.CreateResult{
		Case:   &types.ModerationCase{ID: "case-1", SubjectUserID: req.SubjectUserID},
		Merged: len(o.requests) > 1,
	}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	levels []enum.NotificationLevel
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, _ string, level enum.NotificationLevel) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.levels = append(n.levels, level)
	return n.err
}

type testEnv struct {
	dispatcher *enforcement.Dispatcher
	store      *memory.Store
	opener     *recordingOpener
	notifier   *recordingNotifier
	now        *time.Time
}

func setupTest(t *testing.T, score float64) *testEnv {
	t.Helper()

	now := baseTime
	env := &testEnv{
		store:    memory.New(),
		opener:   &recordingOpener{},
		notifier: &recordingNotifier{},
		now:      &now,
	}
	env.dispatcher = enforcement.NewDispatcher(
		env.store, env.store, env.opener, fixedScorer(score), env.notifier, zap.NewNop(),
	).WithClock(func() time.Time { return *env.now })

	return env
}

func TestApplyNoneTier(t *testing.T) {
	t.Parallel()
	env := setupTest(t, 0.2999)

	outcome, err := env.dispatcher.Apply(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.TierNone, outcome.Tier)
	assert.Empty(t, outcome.CaseID)
	assert.Empty(t, env.opener.requests)
	assert.Empty(t, env.notifier.levels)

	current, err := env.dispatcher.CurrentRestrictions(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, current.Visibility)
	assert.Nil(t, current.Posting)
}

func TestApplySoftTier(t *testing.T) {
	t.Parallel()
	env := setupTest(t, 0.3)
	ctx := t.Context()

	outcome, err := env.dispatcher.Apply(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.TierSoft, outcome.Tier)
	assert.Equal(t, "case-1", outcome.CaseID)

	current, err := env.dispatcher.CurrentRestrictions(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, current.Visibility)
	assert.Equal(t, enum.VisibilityLow, current.Visibility.Tier)
	assert.True(t, current.Visibility.Automatic)
	assert.Equal(t, types.OpenedByAuto, current.Visibility.AppliedBy)
	require.NotNil(t, current.Visibility.ExpiresAt)
	assert.Equal(t, baseTime.Add(48*time.Hour), *current.Visibility.ExpiresAt)
	assert.Nil(t, current.Posting)

	require.Len(t, env.opener.requests, 1)
	req := env.opener.requests[0]
	assert.Equal(t, []enum.ReasonCode{enum.ReasonHighRiskContent}, req.ReasonCodes)
	assert.Equal(t, types.OpenedByAuto, req.OpenedBy)
	require.NotNil(t, req.Confidence)
	assert.InDelta(t, 0.3, *req.Confidence, 1e-9)

	assert.Equal(t, []enum.NotificationLevel{enum.NotificationSoft}, env.notifier.levels)

	state, err := env.store.GetAccountState(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.AccountSoftRestricted, state.AccountStatus)
	assert.Equal(t, []string{enum.FeatureLockDiscovery}, state.FeatureLocks)
	assert.Equal(t, enum.VisibilityLow, state.VisibilityTier)
}

func TestApplyHardTier(t *testing.T) {
	t.Parallel()
	env := setupTest(t, 0.7999)
	ctx := t.Context()

	outcome, err := env.dispatcher.Apply(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.TierHard, outcome.Tier)

	current, err := env.dispatcher.CurrentRestrictions(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, current.Visibility)
	assert.Equal(t, enum.VisibilityHidden, current.Visibility.Tier)
	assert.Equal(t, baseTime.Add(72*time.Hour), *current.Visibility.ExpiresAt)
	require.NotNil(t, current.Posting)
	assert.True(t, current.Posting.Restricted)
	assert.Equal(t, baseTime.Add(48*time.Hour), *current.Posting.ExpiresAt)

	assert.Equal(t, []enum.ReasonCode{enum.ReasonPersistentViolations}, env.opener.requests[0].ReasonCodes)
	assert.Equal(t, []enum.NotificationLevel{enum.NotificationHard}, env.notifier.levels)

	state, err := env.store.GetAccountState(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.AccountHardRestricted, state.AccountStatus)
	assert.ElementsMatch(t, []string{enum.FeatureLockDiscovery, enum.FeatureLockPosting}, state.FeatureLocks)
	assert.Equal(t, enum.VisibilityLow, state.VisibilityTier)
}

func TestApplySuspensionRiskTier(t *testing.T) {
	t.Parallel()
	env := setupTest(t, 0.8)
	ctx := t.Context()

	outcome, err := env.dispatcher.Apply(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.TierSuspensionRisk, outcome.Tier)

	current, err := env.dispatcher.CurrentRestrictions(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.VisibilityHidden, current.Visibility.Tier)
	assert.Nil(t, current.Visibility.ExpiresAt)
	assert.True(t, current.Posting.Restricted)
	assert.Nil(t, current.Posting.ExpiresAt)

	req := env.opener.requests[0]
	assert.Equal(t, enum.PriorityCritical, req.PriorityFloor)
	assert.ElementsMatch(t,
		[]enum.ReasonCode{enum.ReasonPersistentViolations, enum.ReasonHighRiskContent}, req.ReasonCodes)
	assert.Equal(t, []enum.NotificationLevel{enum.NotificationSuspended}, env.notifier.levels)
}

func TestApplyNeverWeakensRestriction(t *testing.T) {
	t.Parallel()
	env := setupTest(t, 0.35)
	ctx := t.Context()

	require.NoError(t, env.dispatcher.ApplyVisibility(ctx, "user-1", enum.VisibilityHidden, "trusted-1", 0))
	require.NoError(t, env.store.SaveAccountState(ctx, &types.AccountEnforcementState{
		UserID:         "user-1",
		AccountStatus:  enum.AccountSuspended,
		FeatureLocks:   []string{"payouts"},
		VisibilityTier: enum.VisibilityLow,
		UpdatedAt:      baseTime,
	}))

	_, err := env.dispatcher.Apply(ctx, "user-1")
	require.NoError(t, err)

	current, err := env.dispatcher.CurrentRestrictions(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.VisibilityHidden, current.Visibility.Tier)
	assert.Equal(t, "trusted-1", current.Visibility.AppliedBy)
	assert.Nil(t, current.Visibility.ExpiresAt)

	state, err := env.store.GetAccountState(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.AccountSuspended, state.AccountStatus)
	assert.ElementsMatch(t, []string{"payouts", enum.FeatureLockDiscovery}, state.FeatureLocks)
}

func TestApplyExtendsShorterRestriction(t *testing.T) {
	t.Parallel()
	env := setupTest(t, 0.65)
	ctx := t.Context()

	require.NoError(t, env.dispatcher.ApplyVisibility(ctx, "user-1", enum.VisibilityHidden, "trusted-1", time.Hour))

	_, err := env.dispatcher.Apply(ctx, "user-1")
	require.NoError(t, err)

	current, err := env.dispatcher.CurrentRestrictions(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, types.OpenedByAuto, current.Visibility.AppliedBy)
	assert.Equal(t, baseTime.Add(72*time.Hour), *current.Visibility.ExpiresAt)
}

func TestApplySurvivesNotifierFailure(t *testing.T) {
	t.Parallel()
	env := setupTest(t, 0.5)
	env.notifier.err = errors.New("outbox down")

	outcome, err := env.dispatcher.Apply(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.TierSoft, outcome.Tier)
}

func TestApplyPropagatesCaseFailure(t *testing.T) {
	t.Parallel()
	env := setupTest(t, 0.5)
	env.opener.err = errors.New("database down")

	_, err := env.dispatcher.Apply(t.Context(), "user-1")
	require.Error(t, err)
	assert.Empty(t, env.notifier.levels)
}

func TestCurrentRestrictionsDropsExpired(t *testing.T) {
	t.Parallel()
	env := setupTest(t, 0)
	ctx := t.Context()

	require.NoError(t, env.dispatcher.ApplyVisibility(ctx, "user-1", enum.VisibilityLow, "trusted-1", time.Hour))
	require.NoError(t, env.dispatcher.ApplyPosting(ctx, "user-1", "trusted-1", 2*time.Hour))

	*env.now = baseTime.Add(time.Hour)

	current, err := env.dispatcher.CurrentRestrictions(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, current.Visibility)
	require.NotNil(t, current.Posting)

	_, err = env.store.GetVisibilityRestriction(ctx, "user-1")
	require.ErrorIs(t, err, types.ErrRestrictionNotFound)
}

func TestApplyVisibilityRejectsUnknownTier(t *testing.T) {
	t.Parallel()
	env := setupTest(t, 0)

	err := env.dispatcher.ApplyVisibility(t.Context(), "user-1", "invisible", "trusted-1", 0)
	require.ErrorIs(t, err, enforcement.ErrInvalidVisibility)
}

func TestLiftRestrictions(t *testing.T) {
	t.Parallel()
	env := setupTest(t, 0.65)
	ctx := t.Context()

	_, err := env.dispatcher.Apply(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, env.dispatcher.LiftRestrictions(ctx, "user-1", "admin-1"))

	current, err := env.dispatcher.CurrentRestrictions(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, current.Visibility)
	assert.Nil(t, current.Posting)

	state, err := env.store.GetAccountState(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.AccountActive, state.AccountStatus)
	assert.Equal(t, enum.VisibilityNormal, state.VisibilityTier)
	assert.Empty(t, state.FeatureLocks)
}

func TestSync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        enum.AccountStatus
		seed          func(ctx context.Context, d *enforcement.Dispatcher) error
		advance       time.Duration
		wantChanged   bool
		wantCandidate bool
		check         func(t *testing.T, current *enforcement.Restrictions)
	}{
		{
			name:        "suspended account is hidden and frozen",
			status:      enum.AccountSuspended,
			wantChanged: true,
			check: func(t *testing.T, current *enforcement.Restrictions) {
				t.Helper()
				assert.Equal(t, enum.VisibilityHidden, current.Visibility.Tier)
				assert.Nil(t, current.Visibility.ExpiresAt)
				assert.True(t, current.Posting.Restricted)
				assert.Nil(t, current.Posting.ExpiresAt)
			},
		},
		{
			name:        "hard restricted account gets low visibility",
			status:      enum.AccountHardRestricted,
			wantChanged: true,
			check: func(t *testing.T, current *enforcement.Restrictions) {
				t.Helper()
				assert.Equal(t, enum.VisibilityLow, current.Visibility.Tier)
				assert.Nil(t, current.Posting)
			},
		},
		{
			name:   "hard restricted account keeps hidden visibility",
			status: enum.AccountHardRestricted,
			seed: func(ctx context.Context, d *enforcement.Dispatcher) error {
				return d.ApplyVisibility(ctx, "user-1", enum.VisibilityHidden, "trusted-1", 0)
			},
			check: func(t *testing.T, current *enforcement.Restrictions) {
				t.Helper()
				assert.Equal(t, enum.VisibilityHidden, current.Visibility.Tier)
			},
		},
		{
			name:   "active account with fresh manual restriction",
			status: enum.AccountActive,
			seed: func(ctx context.Context, d *enforcement.Dispatcher) error {
				return d.ApplyVisibility(ctx, "user-1", enum.VisibilityLow, "trusted-1", 0)
			},
			advance: 48 * time.Hour,
			check: func(t *testing.T, current *enforcement.Restrictions) {
				t.Helper()
				assert.NotNil(t, current.Visibility)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := setupTest(t, 0)
			ctx := t.Context()

			if tt.seed != nil {
				require.NoError(t, tt.seed(ctx, env.dispatcher))
			}
			require.NoError(t, env.store.SaveAccountState(ctx, &types.AccountEnforcementState{
				UserID:         "user-1",
				AccountStatus:  tt.status,
				FeatureLocks:   []string{},
				VisibilityTier: enum.VisibilityNormal,
				UpdatedAt:      baseTime,
			}))
			*env.now = baseTime.Add(tt.advance)

			result, err := env.dispatcher.Sync(ctx, "user-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, result.Changed)
			assert.Equal(t, tt.wantCandidate, result.LiftCandidate)

			current, err := env.dispatcher.CurrentRestrictions(ctx, "user-1")
			require.NoError(t, err)
			tt.check(t, current)
		})
	}
}

func TestSyncFlagsStaleAutomaticRestriction(t *testing.T) {
	t.Parallel()
	env := setupTest(t, 0.8)
	ctx := t.Context()

	_, err := env.dispatcher.Apply(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, env.store.SaveAccountState(ctx, &types.AccountEnforcementState{
		UserID:         "user-1",
		AccountStatus:  enum.AccountActive,
		FeatureLocks:   []string{},
		VisibilityTier: enum.VisibilityNormal,
		UpdatedAt:      baseTime,
	}))

	*env.now = baseTime.Add(23 * time.Hour)
	result, err := env.dispatcher.Sync(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, result.LiftCandidate)

	*env.now = baseTime.Add(25 * time.Hour)
	result, err = env.dispatcher.Sync(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, result.LiftCandidate)

	current, err := env.dispatcher.CurrentRestrictions(ctx, "user-1")
	require.NoError(t, err)
	assert.NotNil(t, current.Visibility)
}
