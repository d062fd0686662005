package governance_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/cases"
	"github.com/robalyx/warden/internal/database/memory"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/governance"
	"github.com/robalyx/warden/internal/notify"
	"github.com/robalyx/warden/internal/queue"
	"github.com/robalyx/warden/internal/ratelimit"
	"github.com/robalyx/warden/internal/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	engine *governance.Engine
	store  *memory.Store
	redis  *miniredis.Miniredis
	now    *time.Time
}

func setupTest(t *testing.T, limits map[enum.ActionType]ratelimit.Limit) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	logger := zap.NewNop()
	store := memory.New()
	for userID, roles := range map[string][]enum.Role{
		"community-1": {enum.RoleUser, enum.RoleCommunityMod},
		"trusted-1":   {enum.RoleUser, enum.RoleTrustedMod},
		"trusted-2":   {enum.RoleUser, enum.RoleTrustedMod},
		"admin-1":     {enum.RoleUser, enum.RoleAdmin},
		"admin-2":     {enum.RoleUser, enum.RoleAdmin},
		"admin-3":     {enum.RoleUser, enum.RoleAdmin},
	} {
		require.NoError(t, store.SaveUserRoles(t.Context(), &types.UserRoles{UserID: userID, Roles: roles}))
	}

	now := baseTime
	clock := func() time.Time { return now }

	limiter := ratelimit.NewLimiter(client, logger).WithClock(clock)
	if limits != nil {
		limiter.WithLimits(limits)
	}

	engine := governance.New(governance.Options{
		Stores:   governance.StoresFrom(store),
		Queue:    queue.NewManager(client, logger),
		Limiter:  limiter,
		Notifier: notify.NewOutbox(client, logger),
		Alerter:  notify.NopAlerter{},
	}, logger).WithClock(clock)

	return &testEnv{engine: engine, store: store, redis: mr, now: &now}
}

func TestAssignCase(t *testing.T) {
	t.Parallel()
	env := setupTest(t, nil)
	ctx := t.Context()

	caseID, err := env.engine.CreateCase(ctx, "user-1", []enum.ReasonCode{enum.ReasonSpam}, types.OpenedByAuto)
	require.NoError(t, err)

	err = env.engine.AssignCase(ctx, caseID, "community-1", "community-1")
	require.ErrorIs(t, err, role.ErrInsufficientLevel)

	require.NoError(t, env.engine.AssignCase(ctx, caseID, "trusted-1", "trusted-1"))

	c, err := env.engine.Cases().Get(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, enum.CaseStatusUnderReview, c.Status)
	assert.Equal(t, "trusted-1", c.AssigneeID)

	entries, err := env.store.ListAuditByActor(ctx, "trusted-1", baseTime.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, enum.ActionAssignCase, entries[0].ActionType)
	assert.Equal(t, "user-1", entries[0].TargetUserID)
	assert.Equal(t, caseID, entries[0].CaseID)
	assert.Equal(t, enum.LevelTrustedMod, entries[0].ActorLevel)
}

func TestCreateCaseByModeratorRequiresLevel(t *testing.T) {
	t.Parallel()
	env := setupTest(t, nil)
	ctx := t.Context()

	_, err := env.engine.CreateCase(ctx, "user-1", []enum.ReasonCode{enum.ReasonSpam}, "user-2")
	require.ErrorIs(t, err, role.ErrInsufficientLevel)

	first, err := env.engine.CreateCase(ctx, "user-1", []enum.ReasonCode{enum.ReasonSpam}, "community-1")
	require.NoError(t, err)

	second, err := env.engine.CreateCase(ctx, "user-1", []enum.ReasonCode{enum.ReasonHarassment}, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestModeratorActionsAreRateLimited(t *testing.T) {
	t.Parallel()
	env := setupTest(t, map[enum.ActionType]ratelimit.Limit{
		enum.ActionFlagUser: {Count: 2, Window: time.Hour},
	})
	ctx := t.Context()

	for range 2 {
		_, err := env.engine.FlagUser(ctx, "community-1", "user-1", []enum.ReasonCode{enum.ReasonSpam})
		require.NoError(t, err)
	}

	result := env.engine.CheckRateLimit(ctx, "community-1", enum.ActionFlagUser)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)

	_, err := env.engine.FlagUser(ctx, "community-1", "user-1", []enum.ReasonCode{enum.ReasonSpam})
	require.ErrorIs(t, err, governance.ErrRateLimited)

	entries, err := env.store.ListAuditByActor(ctx, "community-1", baseTime.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	*env.now = baseTime.Add(61 * time.Minute)
	_, err = env.engine.FlagUser(ctx, "community-1", "user-1", []enum.ReasonCode{enum.ReasonSpam})
	require.NoError(t, err)
}

func TestReverseAction(t *testing.T) {
	t.Parallel()
	env := setupTest(t, nil)
	ctx := t.Context()

	require.NoError(t, env.engine.RestrictVisibility(ctx, "trusted-1", "user-1", enum.VisibilityHidden, time.Hour))

	entries, err := env.store.ListAuditByActor(ctx, "trusted-1", baseTime.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	auditID := entries[0].ID
	assert.True(t, entries[0].Reversible)
	assert.True(t, entries[0].Restrictive)

	err = env.engine.ReverseAction(ctx, "trusted-1", auditID)
	require.ErrorIs(t, err, governance.ErrSelfReversal)

	err = env.engine.ReverseAction(ctx, "community-1", auditID)
	require.ErrorIs(t, err, role.ErrInsufficientLevel)

	require.NoError(t, env.engine.ReverseAction(ctx, "trusted-2", auditID))

	current, err := env.engine.Enforcement().CurrentRestrictions(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, current.Visibility)

	reversed, err := env.store.GetAudit(ctx, auditID)
	require.NoError(t, err)
	assert.True(t, reversed.IsReversed())
	assert.Equal(t, "trusted-2", reversed.ReversedBy)

	err = env.engine.ReverseAction(ctx, "trusted-2", auditID)
	require.ErrorIs(t, err, types.ErrAuditAlreadyReversed)
}

func TestReverseActionRejectsIrreversible(t *testing.T) {
	t.Parallel()
	env := setupTest(t, nil)
	ctx := t.Context()

	_, err := env.engine.AssignRoles(ctx, "admin-1", "user-9", []enum.Role{enum.RoleCommunityMod})
	require.NoError(t, err)

	entries, err := env.store.ListAuditByActor(ctx, "admin-1", baseTime.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	err = env.engine.ReverseAction(ctx, "admin-2", entries[0].ID)
	require.ErrorIs(t, err, governance.ErrNotReversible)
}

func TestAssignRoles(t *testing.T) {
	t.Parallel()
	env := setupTest(t, nil)
	ctx := t.Context()

	_, err := env.engine.AssignRoles(ctx, "trusted-1", "user-1", []enum.Role{enum.RoleTrustedMod})
	require.ErrorIs(t, err, role.ErrInsufficientLevel)

	record, err := env.engine.AssignRoles(ctx, "admin-1", "user-1", []enum.Role{enum.RoleTrustedMod})
	require.NoError(t, err)
	assert.ElementsMatch(t, []enum.Role{enum.RoleUser, enum.RoleTrustedMod}, record.Roles)

	level, err := env.engine.Roles().GetLevel(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.LevelTrustedMod, level)
}

func TestSuspensionQuorumSuspendsAccount(t *testing.T) {
	t.Parallel()
	env := setupTest(t, nil)
	ctx := t.Context()

	approvalID, err := env.engine.RequestSuspensionApproval(ctx, "user-1", "admin-1", "repeated fraud", "")
	require.NoError(t, err)

	approved, actioned, err := env.engine.ApproveSuspension(ctx, approvalID, "admin-2")
	require.NoError(t, err)
	assert.False(t, approved)
	assert.False(t, actioned)

	approved, actioned, err = env.engine.ApproveSuspension(ctx, approvalID, "admin-3")
	require.NoError(t, err)
	assert.True(t, approved)
	assert.True(t, actioned)

	state, err := env.store.GetAccountState(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.AccountSuspended, state.AccountStatus)

	current, err := env.engine.Enforcement().CurrentRestrictions(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, current.Visibility)
	assert.Equal(t, enum.VisibilityHidden, current.Visibility.Tier)
	require.NotNil(t, current.Posting)
	assert.True(t, current.Posting.Restricted)
}

func TestApplyFederatedEnforcement(t *testing.T) {
	t.Parallel()
	env := setupTest(t, nil)
	ctx := t.Context()

	tier, err := env.engine.ApplyFederatedEnforcement(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.TierNone, tier)

	env.store.PutTrustProfile(&types.TrustProfile{UserID: "user-1", AIFlags: 5, UpdatedAt: baseTime})

	tier, err = env.engine.ApplyFederatedEnforcement(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enum.TierSuspensionRisk, tier)

	cases, err := env.engine.Cases().ListBySubject(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, enum.PriorityCritical, cases[0].Priority)

	items, err := env.redis.List(notify.OutboxKey)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAppealFlow(t *testing.T) {
	t.Parallel()
	env := setupTest(t, nil)
	ctx := t.Context()

	caseID, err := env.engine.FlagUser(ctx, "trusted-1", "user-1", []enum.ReasonCode{enum.ReasonHarassment})
	require.NoError(t, err)
	require.NoError(t, env.engine.RestrictPosting(ctx, "trusted-1", "user-1", 0))

	err = env.engine.ResolveCase(ctx, caseID, "trusted-1", cases.Resolution{Outcome: enum.OutcomeActioned})
	require.ErrorIs(t, err, role.ErrInsufficientLevel)
	require.NoError(t, env.engine.ResolveCase(ctx, caseID, "admin-1", cases.Resolution{Outcome: enum.OutcomeActioned}))

	appealID, err := env.engine.SubmitAppeal(ctx, caseID, "user-1", "this was a misunderstanding")
	require.NoError(t, err)

	err = env.engine.ReviewAppeal(ctx, appealID, "trusted-1", enum.AppealOverturned, "agreed")
	require.ErrorIs(t, err, role.ErrInsufficientLevel)
	require.NoError(t, env.engine.ReviewAppeal(ctx, appealID, "admin-2", enum.AppealOverturned, "agreed"))

	current, err := env.engine.Enforcement().CurrentRestrictions(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, current.Posting)

	c, err := env.engine.Cases().Get(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, enum.OutcomeDismissed, c.Resolution.Outcome)
}

func TestEscalateCase(t *testing.T) {
	t.Parallel()
	env := setupTest(t, nil)
	ctx := t.Context()

	caseID, err := env.engine.CreateCase(ctx, "user-1", []enum.ReasonCode{enum.ReasonSpam}, types.OpenedByAuto)
	require.NoError(t, err)

	err = env.engine.EscalateCase(ctx, caseID, "community-1", "needs a senior look")
	require.ErrorIs(t, err, role.ErrInsufficientLevel)

	require.NoError(t, env.engine.EscalateCase(ctx, caseID, "trusted-1", "needs a senior look"))

	c, err := env.engine.Cases().Get(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, enum.CaseStatusEscalated, c.Status)

	entries, err := env.store.ListAuditByActor(ctx, "trusted-1", baseTime.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, enum.ActionEscalateCase, entries[0].ActionType)
	assert.Equal(t, "user-1", entries[0].TargetUserID)
	assert.Equal(t, caseID, entries[0].CaseID)

	assert.Equal(t, 49, env.engine.CheckRateLimit(ctx, "trusted-1", enum.ActionEscalateCase).Remaining)
}

func TestClaimAppeal(t *testing.T) {
	t.Parallel()
	env := setupTest(t, nil)
	ctx := t.Context()

	caseID, err := env.engine.CreateCase(ctx, "user-1", []enum.ReasonCode{enum.ReasonSpam}, types.OpenedByAuto)
	require.NoError(t, err)
	require.NoError(t, env.engine.ResolveCase(ctx, caseID, "admin-1", cases.Resolution{Outcome: enum.OutcomeActioned}))

	appealID, err := env.engine.SubmitAppeal(ctx, caseID, "user-1", "this was a misunderstanding")
	require.NoError(t, err)

	err = env.engine.ClaimAppeal(ctx, appealID, "trusted-1")
	require.ErrorIs(t, err, role.ErrInsufficientLevel)

	require.NoError(t, env.engine.ClaimAppeal(ctx, appealID, "admin-2"))

	claimed, err := env.engine.Appeals().Get(ctx, appealID)
	require.NoError(t, err)
	assert.Equal(t, enum.AppealStatusUnderReview, claimed.Status)
	assert.Equal(t, "admin-2", claimed.ClaimedBy)

	entries, err := env.store.ListAuditByActor(ctx, "admin-2", baseTime.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, enum.ActionClaimAppeal, entries[0].ActionType)
	assert.Equal(t, "user-1", entries[0].TargetUserID)
	assert.Equal(t, caseID, entries[0].CaseID)
	assert.Equal(t, appealID, entries[0].Details["appealId"])
}
