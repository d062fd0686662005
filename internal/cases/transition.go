package cases

import (
	"context"
	"fmt"
	"slices"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/role"
	"go.uber.org/zap"
)

// resolvableStatuses are the statuses a reviewer may resolve from.
var resolvableStatuses = []enum.CaseStatus{ //nolint:gochecknoglobals // -
	enum.CaseStatusOpen,
	enum.CaseStatusUnderReview,
	enum.CaseStatusPendingAction,
	enum.CaseStatusEscalated,
}

// escalatableStatuses are the statuses a case may be escalated from.
var escalatableStatuses = []enum.CaseStatus{ //nolint:gochecknoglobals // -
	enum.CaseStatusOpen,
	enum.CaseStatusUnderReview,
	enum.CaseStatusPendingAction,
}

// Assign hands a case to a reviewer and takes it off the review queue.
func (m *Manager) Assign(ctx context.Context, caseID, assigneeID, assignedBy string) (*types.ModerationCase, error) {
	if err := m.requireLevel(ctx, assigneeID, enum.LevelTrustedMod); err != nil {
		return nil, err
	}

	updated, err := m.store.UpdateCase(ctx, caseID, func(c *types.ModerationCase) error {
		if !c.Status.IsOpen() {
			return fmt.Errorf("%w: cannot assign a %s case", ErrInvalidTransition, c.Status)
		}
		c.Status = enum.CaseStatusUnderReview
		c.AssigneeID = assigneeID
		c.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.removeFromQueue(ctx, caseID)
	m.appendHistory(ctx, caseID, assignedBy, enum.CaseActionAssigned, map[string]any{
		"assigneeId": assigneeID,
	})

	return updated, nil
}

// Resolve records a reviewer's decision on a case.
func (m *Manager) Resolve(
	ctx context.Context, caseID, reviewerID string, resolution Resolution,
) (*types.ModerationCase, error) {
	if !resolution.Outcome.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOutcome, resolution.Outcome)
	}
	if err := m.requireLevel(ctx, reviewerID, enum.LevelAdmin); err != nil {
		return nil, err
	}

	updated, err := m.store.UpdateCase(ctx, caseID, func(c *types.ModerationCase) error {
		if !slices.Contains(resolvableStatuses, c.Status) {
			return fmt.Errorf("%w: cannot resolve a %s case", ErrInvalidTransition, c.Status)
		}

		now := m.now()
		c.Resolution = &types.CaseResolution{
			Outcome:    resolution.Outcome,
			ReviewNote: resolution.ReviewNote,
			ReviewerID: reviewerID,
			ResolvedAt: now,
		}
		c.Status = enum.CaseStatusResolved
		if resolution.Outcome == enum.OutcomeEscalated {
			c.Status = enum.CaseStatusEscalated
		}
		c.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.removeFromQueue(ctx, caseID)
	m.appendHistory(ctx, caseID, reviewerID, enum.CaseActionResolved, map[string]any{
		"outcome":    resolution.Outcome,
		"reviewNote": resolution.ReviewNote,
	})

	return updated, nil
}

// Escalate sends a case up for admin attention without recording a resolution.
func (m *Manager) Escalate(ctx context.Context, caseID, actorID, note string) (*types.ModerationCase, error) {
	if err := m.requireLevel(ctx, actorID, enum.LevelTrustedMod); err != nil {
		return nil, err
	}

	updated, err := m.store.UpdateCase(ctx, caseID, func(c *types.ModerationCase) error {
		if !slices.Contains(escalatableStatuses, c.Status) {
			return fmt.Errorf("%w: cannot escalate a %s case", ErrInvalidTransition, c.Status)
		}
		c.Status = enum.CaseStatusEscalated
		c.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.removeFromQueue(ctx, caseID)
	m.appendHistory(ctx, caseID, actorID, enum.CaseActionEscalated, map[string]any{
		"note": note,
	})

	return updated, nil
}

// MarkAppealed moves a resolved case to Appealed once the subject files an appeal.
func (m *Manager) MarkAppealed(ctx context.Context, caseID, appealID, userID string) (*types.ModerationCase, error) {
	updated, err := m.store.UpdateCase(ctx, caseID, func(c *types.ModerationCase) error {
		if c.Status != enum.CaseStatusResolved {
			return fmt.Errorf("%w: cannot appeal a %s case", ErrInvalidTransition, c.Status)
		}
		c.Status = enum.CaseStatusAppealed
		c.AppealID = appealID
		c.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.appendHistoryAs(ctx, caseID, userID, enum.ActorUser, enum.CaseActionAppealed, map[string]any{
		"appealId": appealID,
	})

	return updated, nil
}

// RevertAppealed puts an appealed case back to Resolved when the appeal it was marked
// for could not be stored. It only acts while the case still points at that appeal.
func (m *Manager) RevertAppealed(
	ctx context.Context, caseID, appealID, previousAppealID, userID string,
) (*types.ModerationCase, error) {
	updated, err := m.store.UpdateCase(ctx, caseID, func(c *types.ModerationCase) error {
		if c.Status != enum.CaseStatusAppealed || c.AppealID != appealID {
			return fmt.Errorf("%w: case is %s for appeal %q", ErrInvalidTransition, c.Status, c.AppealID)
		}
		c.Status = enum.CaseStatusResolved
		c.AppealID = previousAppealID
		c.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.appendHistoryAs(ctx, caseID, userID, enum.ActorUser, enum.CaseActionAppealReverted, map[string]any{
		"appealId": appealID,
	})

	return updated, nil
}

// ApplyAppealDecision records an appeal decision on the appealed case.
// Overturned decisions void the violation; modified decisions send the case back for
// a fresh resolution.
func (m *Manager) ApplyAppealDecision(
	ctx context.Context, caseID, appealID, reviewerID string, decision enum.AppealDecision,
) (*types.ModerationCase, error) {
	updated, err := m.store.UpdateCase(ctx, caseID, func(c *types.ModerationCase) error {
		if c.Status != enum.CaseStatusAppealed {
			return fmt.Errorf("%w: case is %s, not appealed", ErrInvalidTransition, c.Status)
		}

		switch decision {
		case enum.AppealOverturned:
			if c.Resolution != nil {
				c.Resolution.Outcome = enum.OutcomeDismissed
			}
		case enum.AppealModified:
			c.Status = enum.CaseStatusPendingAction
		case enum.AppealUpheld:
		}
		c.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.appendHistory(ctx, caseID, reviewerID, enum.CaseActionAppealReviewed, map[string]any{
		"appealId": appealID,
		"decision": decision,
	})

	return updated, nil
}

// Get returns a case.
func (m *Manager) Get(ctx context.Context, caseID string) (*types.ModerationCase, error) {
	return m.store.GetCase(ctx, caseID)
}

// History returns the history of a case, oldest first.
func (m *Manager) History(ctx context.Context, caseID string) ([]*types.CaseHistoryEntry, error) {
	if _, err := m.store.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return m.store.GetCaseHistory(ctx, caseID)
}

// ListBySubject returns every case opened against a user.
func (m *Manager) ListBySubject(ctx context.Context, subjectUserID string) ([]*types.ModerationCase, error) {
	return m.store.ListCasesBySubject(ctx, subjectUserID)
}

func (m *Manager) requireLevel(ctx context.Context, userID string, minLevel int) error {
	level, err := m.levels.GetLevel(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get moderator level: %w", err)
	}
	return role.RequireLevel(level, minLevel)
}

func (m *Manager) removeFromQueue(ctx context.Context, caseID string) {
	if err := m.queue.Remove(ctx, caseID); err != nil {
		m.logger.Warn("Failed to remove case from review queue",
			zap.String("caseID", caseID),
			zap.Error(err))
	}
}

func (m *Manager) appendHistory(
	ctx context.Context, caseID, actorID string, action enum.CaseAction, details map[string]any,
) {
	actorType := enum.ActorModerator
	if actorID == types.OpenedByAuto {
		actorType = enum.ActorSystem
	}
	m.appendHistoryAs(ctx, caseID, actorID, actorType, action, details)
}

// appendHistoryAs writes a history entry. The mutation it describes is already stored,
// so a failed append is logged rather than returned.
func (m *Manager) appendHistoryAs(
	ctx context.Context, caseID, actorID string, actorType enum.ActorType, action enum.CaseAction,
	details map[string]any,
) {
	err := m.store.AppendCaseHistory(ctx, &types.CaseHistoryEntry{
		CaseID:    caseID,
		ActorID:   actorID,
		ActorType: actorType,
		Action:    action,
		Details:   details,
		CreatedAt: m.now(),
	})
	if err != nil {
		m.logger.Error("Failed to append case history",
			zap.String("caseID", caseID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}
