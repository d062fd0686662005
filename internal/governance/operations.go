package governance

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/robalyx/warden/internal/cases"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/ratelimit"
	"github.com/robalyx/warden/internal/role"
	"go.uber.org/zap"
)

// CreateCase opens a case against a subject, or merges the reasons into the subject's
// open case. Cases opened by a moderator require at least community moderator level.
func (e *Engine) CreateCase(
	ctx context.Context, subjectUserID string, reasonCodes []enum.ReasonCode, openedBy string,
) (string, error) {
	if openedBy != "" && openedBy != types.OpenedByAuto {
		level, err := e.roles.GetLevel(ctx, openedBy)
		if err != nil {
			return "", fmt.Errorf("failed to get moderator level: %w", err)
		}
		if err := role.RequireLevel(level, enum.LevelCommunityMod); err != nil {
			return "", err
		}
	}

	result, err := e.cases.Create(ctx, cases.CreateRequest{
		SubjectUserID: subjectUserID,
		ReasonCodes:   reasonCodes,
		OpenedBy:      openedBy,
	})
	if err != nil {
		return "", err
	}
	return result.Case.ID, nil
}

// AssignCase hands a case to a reviewer.
func (e *Engine) AssignCase(ctx context.Context, caseID, assigneeID, assignedBy string) error {
	a, err := e.authorize(ctx, assignedBy, enum.ActionAssignCase)
	if err != nil {
		return err
	}

	c, err := e.cases.Assign(ctx, caseID, assigneeID, assignedBy)
	if err != nil {
		return err
	}

	e.complete(ctx, a, c.SubjectUserID, caseID, map[string]any{"assigneeId": assigneeID})
	return nil
}

// ResolveCase records a reviewer's decision on a case.
func (e *Engine) ResolveCase(ctx context.Context, caseID, reviewerID string, resolution cases.Resolution) error {
	a, err := e.authorize(ctx, reviewerID, enum.ActionResolveCase)
	if err != nil {
		return err
	}

	c, err := e.cases.Resolve(ctx, caseID, reviewerID, resolution)
	if err != nil {
		return err
	}

	e.complete(ctx, a, c.SubjectUserID, caseID, map[string]any{"outcome": resolution.Outcome})
	return nil
}

// EscalateCase hands a case up for senior review.
func (e *Engine) EscalateCase(ctx context.Context, caseID, actorID, note string) error {
	a, err := e.authorize(ctx, actorID, enum.ActionEscalateCase)
	if err != nil {
		return err
	}

	c, err := e.cases.Escalate(ctx, caseID, actorID, note)
	if err != nil {
		return err
	}

	e.complete(ctx, a, c.SubjectUserID, caseID, map[string]any{"note": note})
	return nil
}

// SubmitAppeal files an appeal for the owner of a resolved case. Appeals are rate
// limited but, as user actions, not written to the moderation audit log.
func (e *Engine) SubmitAppeal(ctx context.Context, caseID, userID, explanation string) (string, error) {
	if result := e.limiter.Check(ctx, userID, enum.ActionSubmitAppeal); !result.Allowed {
		return "", fmt.Errorf("%w: %s, retry in %d minutes",
			ErrRateLimited, enum.ActionSubmitAppeal, result.RetryAfterMinutes)
	}

	submitted, err := e.appeals.Submit(ctx, caseID, userID, explanation)
	if err != nil {
		return "", err
	}

	if err := e.limiter.Record(ctx, userID, enum.ActionSubmitAppeal); err != nil {
		e.logger.Warn("Failed to record appeal submission",
			zap.String("userID", userID),
			zap.Error(err))
	}

	return submitted.ID, nil
}

// ReviewAppeal records an admin's decision on an appeal.
func (e *Engine) ReviewAppeal(
	ctx context.Context, appealID, reviewerID string, decision enum.AppealDecision, explanation string,
) error {
	a, err := e.authorize(ctx, reviewerID, enum.ActionReviewAppeal)
	if err != nil {
		return err
	}

	reviewed, err := e.appeals.Review(ctx, appealID, reviewerID, decision, explanation)
	if err != nil {
		return err
	}

	e.complete(ctx, a, reviewed.UserID, reviewed.CaseID, map[string]any{
		"appealId": appealID,
		"decision": decision,
	})
	return nil
}

// ClaimAppeal takes a pending appeal into review.
func (e *Engine) ClaimAppeal(ctx context.Context, appealID, reviewerID string) error {
	a, err := e.authorize(ctx, reviewerID, enum.ActionClaimAppeal)
	if err != nil {
		return err
	}

	claimed, err := e.appeals.Claim(ctx, appealID, reviewerID)
	if err != nil {
		return err
	}

	e.complete(ctx, a, claimed.UserID, claimed.CaseID, map[string]any{"appealId": appealID})
	return nil
}

// ApplyFederatedEnforcement scores a user and applies the resulting tier.
func (e *Engine) ApplyFederatedEnforcement(ctx context.Context, userID string) (enum.Tier, error) {
	outcome, err := e.enforcement.Apply(ctx, userID)
	if err != nil {
		return enum.TierNone, err
	}
	return outcome.Tier, nil
}

// CheckRateLimit reports whether a moderator may perform an action now.
func (e *Engine) CheckRateLimit(ctx context.Context, moderatorID string, actionType enum.ActionType) ratelimit.Result {
	return e.limiter.Check(ctx, moderatorID, actionType)
}

// AnalyzeModeratorBehavior runs the rogue moderator analysis for one moderator.
func (e *Engine) AnalyzeModeratorBehavior(
	ctx context.Context, moderatorID string,
) (*types.RogueModeratorDetection, error) {
	return e.rogue.Analyze(ctx, moderatorID)
}

// RequestSuspensionApproval opens a permanent suspension request.
func (e *Engine) RequestSuspensionApproval(
	ctx context.Context, targetUserID, requesterID, reason, caseID string,
) (string, error) {
	a, err := e.authorize(ctx, requesterID, enum.ActionRequestSuspension)
	if err != nil {
		return "", err
	}

	approval, err := e.appeals.RequestApproval(ctx, targetUserID, requesterID, reason, caseID)
	if err != nil {
		return "", err
	}

	e.complete(ctx, a, targetUserID, caseID, map[string]any{"approvalId": approval.ID})
	return approval.ID, nil
}

// ApproveSuspension adds an admin's approval to a suspension request. When the quorum
// is reached the suspension is carried out.
func (e *Engine) ApproveSuspension(ctx context.Context, approvalID, approverID string) (bool, bool, error) {
	a, err := e.authorize(ctx, approverID, enum.ActionApproveSuspension)
	if err != nil {
		return false, false, err
	}

	result, err := e.appeals.Approve(ctx, approvalID, approverID)
	if err != nil {
		return false, false, err
	}

	e.complete(ctx, a, result.Approval.TargetUserID, result.Approval.CaseID, map[string]any{
		"approvalId": approvalID,
		"actioned":   result.Actioned,
	})

	if result.Actioned {
		e.executeSuspension(ctx, result.Approval)
	}

	return result.Approved, result.Actioned, nil
}

// executeSuspension marks the account suspended and aligns restrictions with it.
// The approval is already committed; failures leave the statussync worker to catch up.
func (e *Engine) executeSuspension(ctx context.Context, approval *types.SuspensionApproval) {
	userID := approval.TargetUserID

	state, err := e.accounts.GetAccountState(ctx, userID)
	switch {
	case errors.Is(err, types.ErrAccountStateNotFound):
		state = &types.AccountEnforcementState{UserID: userID, FeatureLocks: []string{}}
	case err != nil:
		e.logger.Error("Failed to read account state for suspension",
			zap.String("approvalID", approval.ID),
			zap.String("userID", userID),
			zap.Error(err))
		return
	}
	state.AccountStatus = enum.AccountSuspended
	state.VisibilityTier = enum.VisibilityLow
	state.UpdatedAt = e.now()
	for _, lock := range []string{enum.FeatureLockDiscovery, enum.FeatureLockPosting} {
		if !slices.Contains(state.FeatureLocks, lock) {
			state.FeatureLocks = append(state.FeatureLocks, lock)
		}
	}

	if err := e.accounts.SaveAccountState(ctx, state); err != nil {
		e.logger.Error("Failed to suspend account after approval",
			zap.String("approvalID", approval.ID),
			zap.String("userID", userID),
			zap.Error(err))
		return
	}

	if _, err := e.enforcement.Sync(ctx, userID); err != nil {
		e.logger.Error("Failed to apply suspension restrictions",
			zap.String("approvalID", approval.ID),
			zap.String("userID", userID),
			zap.Error(err))
	}
}
