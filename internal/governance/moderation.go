package governance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/cases"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/enforcement"
)

var (
	// ErrNotReversible is returned when reversing an action that cannot be undone.
	ErrNotReversible = errors.New("action is not reversible")
	// ErrSelfReversal is returned when a moderator reverses their own action.
	ErrSelfReversal = errors.New("moderators cannot reverse their own actions")
)

// FlagUser records a moderator flag against a user and opens or merges a case.
func (e *Engine) FlagUser(
	ctx context.Context, moderatorID, targetUserID string, reasonCodes []enum.ReasonCode,
) (string, error) {
	a, err := e.authorize(ctx, moderatorID, enum.ActionFlagUser)
	if err != nil {
		return "", err
	}

	result, err := e.cases.Create(ctx, cases.CreateRequest{
		SubjectUserID: targetUserID,
		ReasonCodes:   reasonCodes,
		OpenedBy:      moderatorID,
	})
	if err != nil {
		return "", err
	}

	e.complete(ctx, a, targetUserID, result.Case.ID, map[string]any{"reasonCodes": reasonCodes})
	return result.Case.ID, nil
}

// RestrictVisibility sets a user's visibility tier. A zero duration never expires.
func (e *Engine) RestrictVisibility(
	ctx context.Context, moderatorID, targetUserID string, tier enum.VisibilityTier, duration time.Duration,
) error {
	a, err := e.authorize(ctx, moderatorID, enum.ActionApplyVisibilityRestriction)
	if err != nil {
		return err
	}

	if err := e.enforcement.ApplyVisibility(ctx, targetUserID, tier, moderatorID, duration); err != nil {
		return err
	}

	e.complete(ctx, a, targetUserID, "", map[string]any{
		"tier":     tier,
		"duration": duration.String(),
	})
	return nil
}

// RestrictPosting freezes a user's posting. A zero duration never expires.
func (e *Engine) RestrictPosting(
	ctx context.Context, moderatorID, targetUserID string, duration time.Duration,
) error {
	a, err := e.authorize(ctx, moderatorID, enum.ActionApplyPostingRestriction)
	if err != nil {
		return err
	}

	if err := e.enforcement.ApplyPosting(ctx, targetUserID, moderatorID, duration); err != nil {
		return err
	}

	e.complete(ctx, a, targetUserID, "", map[string]any{"duration": duration.String()})
	return nil
}

// EnforceFully hides a user and freezes their posting until a human lifts it.
func (e *Engine) EnforceFully(ctx context.Context, adminID, targetUserID, caseID string) error {
	a, err := e.authorize(ctx, adminID, enum.ActionFullEnforcement)
	if err != nil {
		return err
	}

	if err := e.enforcement.ApplyVisibility(ctx, targetUserID, enum.VisibilityHidden, adminID, 0); err != nil {
		return err
	}
	if err := e.enforcement.ApplyPosting(ctx, targetUserID, adminID, 0); err != nil {
		return err
	}

	e.complete(ctx, a, targetUserID, caseID, nil)
	return nil
}

// LiftRestrictions clears every restriction on a user.
func (e *Engine) LiftRestrictions(ctx context.Context, moderatorID, targetUserID string) error {
	a, err := e.authorize(ctx, moderatorID, enum.ActionLiftRestriction)
	if err != nil {
		return err
	}

	if err := e.enforcement.LiftRestrictions(ctx, targetUserID, moderatorID); err != nil {
		return err
	}

	e.complete(ctx, a, targetUserID, "", nil)
	return nil
}

// ReverseAction undoes another moderator's reversible action and marks its audit entry.
// Reversed restrictions are removed from the target.
func (e *Engine) ReverseAction(ctx context.Context, moderatorID, auditID string) error {
	a, err := e.authorize(ctx, moderatorID, enum.ActionReverseAction)
	if err != nil {
		return err
	}

	entry, err := e.audit.GetAudit(ctx, auditID)
	if err != nil {
		return err
	}
	if !entry.Reversible {
		return fmt.Errorf("%w: %s", ErrNotReversible, entry.ActionType)
	}
	if entry.ActorID == moderatorID {
		return ErrSelfReversal
	}
	if entry.IsReversed() {
		return types.ErrAuditAlreadyReversed
	}

	if err := e.undo(ctx, entry, moderatorID); err != nil {
		return err
	}

	if _, err := e.audit.MarkAuditReversed(ctx, auditID, moderatorID, e.now()); err != nil {
		return err
	}

	e.complete(ctx, a, entry.TargetUserID, entry.CaseID, map[string]any{
		"reversedAuditId": auditID,
		"reversedAction":  entry.ActionType,
	})
	return nil
}

// undo removes the effect of a restrictive action. Flags only stop counting once reversed.
func (e *Engine) undo(ctx context.Context, entry *types.ModerationAuditLog, moderatorID string) error {
	switch entry.ActionType {
	case enum.ActionApplyVisibilityRestriction:
		return e.enforcement.ApplyVisibility(ctx, entry.TargetUserID, enum.VisibilityNormal, moderatorID, 0)
	case enum.ActionApplyPostingRestriction:
		return e.enforcement.ClearPosting(ctx, entry.TargetUserID)
	case enum.ActionFullEnforcement:
		return e.enforcement.LiftRestrictions(ctx, entry.TargetUserID, moderatorID)
	default:
		return nil
	}
}

// AssignRoles replaces the roles of a user.
func (e *Engine) AssignRoles(
	ctx context.Context, adminID, targetUserID string, roles []enum.Role,
) (*types.UserRoles, error) {
	a, err := e.authorize(ctx, adminID, enum.ActionAssignRole)
	if err != nil {
		return nil, err
	}

	record, err := e.roles.AssignRoles(ctx, targetUserID, roles, adminID)
	if err != nil {
		return nil, err
	}

	e.complete(ctx, a, targetUserID, "", map[string]any{"roles": record.Roles})
	return record, nil
}

// SyncAccountStatus aligns a user's restrictions with the account-status engine.
// It is a system operation and carries no actor.
func (e *Engine) SyncAccountStatus(ctx context.Context, userID string) (*enforcement.SyncResult, error) {
	return e.enforcement.Sync(ctx, userID)
}
