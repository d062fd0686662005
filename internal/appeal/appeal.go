// Package appeal lets users contest resolved cases and gates permanent suspensions
// behind a quorum of admins.
package appeal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/warden/internal/cases"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/role"
	"go.uber.org/zap"
)

var (
	// ErrAppealNotFound is returned when an appeal does not exist.
	ErrAppealNotFound = types.ErrAppealNotFound
	// ErrPendingAppealExists is returned when the case already has an appeal awaiting review.
	ErrPendingAppealExists = types.ErrPendingAppealExists
	// ErrNotCaseOwner is returned when a user appeals someone else's case.
	ErrNotCaseOwner = errors.New("case does not belong to the user")
	// ErrCaseNotResolved is returned when the case is not in a resolved state.
	ErrCaseNotResolved = errors.New("only resolved cases can be appealed")
	// ErrAppealAlreadyReviewed is returned when a decision was already recorded.
	ErrAppealAlreadyReviewed = errors.New("appeal already reviewed")
	// ErrAppealNotPending is returned when claiming an appeal someone already picked up.
	ErrAppealNotPending = errors.New("appeal is not pending")
	// ErrInvalidDecision is returned for unknown appeal decisions.
	ErrInvalidDecision = errors.New("invalid appeal decision")
	// ErrEmptyExplanation is returned when an appeal or decision carries no text.
	ErrEmptyExplanation = errors.New("explanation is required")
)

// ReviewerLevel is the moderator level needed to claim and review appeals.
const ReviewerLevel = enum.LevelAdmin

// Store persists appeals.
type Store interface {
	CreateAppeal(ctx context.Context, appeal *types.EnforcementAppeal) error
	GetAppeal(ctx context.Context, appealID string) (*types.EnforcementAppeal, error)
	GetOpenAppealByCase(ctx context.Context, caseID string) (*types.EnforcementAppeal, error)
	UpdateAppeal(
		ctx context.Context, appealID string, fn func(*types.EnforcementAppeal) error,
	) (*types.EnforcementAppeal, error)
	ListAppealsByCase(ctx context.Context, caseID string) ([]*types.EnforcementAppeal, error)
}

// CaseService is the part of the case manager appeals drive.
type CaseService interface {
	Get(ctx context.Context, caseID string) (*types.ModerationCase, error)
	MarkAppealed(ctx context.Context, caseID, appealID, userID string) (*types.ModerationCase, error)
	RevertAppealed(
		ctx context.Context, caseID, appealID, previousAppealID, userID string,
	) (*types.ModerationCase, error)
	ApplyAppealDecision(
		ctx context.Context, caseID, appealID, reviewerID string, decision enum.AppealDecision,
	) (*types.ModerationCase, error)
}

// LevelReader resolves the moderator level of a user.
type LevelReader interface {
	GetLevel(ctx context.Context, userID string) (int, error)
}

// RestrictionLifter clears the restrictions of a user whose case was overturned.
type RestrictionLifter interface {
	LiftRestrictions(ctx context.Context, userID, liftedBy string) error
}

// Service handles appeals and suspension approvals.
type Service struct {
	store     Store
	approvals ApprovalStore
	cases     CaseService
	levels    LevelReader
	lifter    RestrictionLifter
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates an appeal service.
func NewService(
	store Store, approvals ApprovalStore, cases CaseService, levels LevelReader, lifter RestrictionLifter,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:     store,
		approvals: approvals,
		cases:     cases,
		levels:    levels,
		lifter:    lifter,
		logger:    logger.Named("appeal_service"),
		now:       time.Now,
	}
}

// WithClock replaces the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit files an appeal against a resolved case owned by the user.
func (s *Service) Submit(ctx context.Context, caseID, userID, explanation string) (*types.EnforcementAppeal, error) {
	explanation = strings.TrimSpace(explanation)
	if explanation == "" {
		return nil, ErrEmptyExplanation
	}

	c, err := s.cases.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.SubjectUserID != userID {
		return nil, ErrNotCaseOwner
	}

	if err := s.checkNoOpenAppeal(ctx, caseID); err != nil {
		return nil, err
	}
	if c.Status != enum.CaseStatusResolved {
		return nil, fmt.Errorf("%w: case is %s", ErrCaseNotResolved, c.Status)
	}

	appeal := &types.EnforcementAppeal{
		ID:          uuid.NewString(),
		CaseID:      caseID,
		UserID:      userID,
		Status:      enum.AppealStatusPending,
		Explanation: explanation,
		SubmittedAt: s.now(),
	}

	// The case transition is the atomic guard against concurrent submissions.
	if _, err := s.cases.MarkAppealed(ctx, caseID, appeal.ID, userID); err != nil {
		if errors.Is(err, cases.ErrInvalidTransition) {
			if openErr := s.checkNoOpenAppeal(ctx, caseID); openErr != nil {
				return nil, openErr
			}
			return nil, ErrCaseNotResolved
		}
		return nil, fmt.Errorf("failed to mark case appealed: %w", err)
	}

	if err := s.store.CreateAppeal(ctx, appeal); err != nil {
		if _, revertErr := s.cases.RevertAppealed(ctx, caseID, appeal.ID, c.AppealID, userID); revertErr != nil {
			s.logger.Error("Case marked appealed but appeal was not stored",
				zap.String("caseID", caseID),
				zap.String("appealID", appeal.ID),
				zap.Error(err),
				zap.NamedError("revertError", revertErr))
		}
		return nil, fmt.Errorf("failed to create appeal: %w", err)
	}

	s.logger.Info("Appeal submitted",
		zap.String("caseID", caseID),
		zap.String("appealID", appeal.ID))

	return appeal, nil
}

// Claim marks a pending appeal as under review by an admin.
func (s *Service) Claim(ctx context.Context, appealID, reviewerID string) (*types.EnforcementAppeal, error) {
	if err := s.requireLevel(ctx, reviewerID, ReviewerLevel); err != nil {
		return nil, err
	}

	return s.store.UpdateAppeal(ctx, appealID, func(a *types.EnforcementAppeal) error {
		if a.Status != enum.AppealStatusPending {
			return fmt.Errorf("%w: appeal is %s", ErrAppealNotPending, a.Status)
		}
		a.Status = enum.AppealStatusUnderReview
		a.ClaimedBy = reviewerID
		return nil
	})
}

// Review records the decision on an appeal and applies it to the case.
// Upheld decisions reject the appeal; overturned and modified decisions approve it.
// Overturned appeals also lift the user's restrictions.
func (s *Service) Review(
	ctx context.Context, appealID, reviewerID string, decision enum.AppealDecision, explanation string,
) (*types.EnforcementAppeal, error) {
	if !decision.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
	explanation = strings.TrimSpace(explanation)
	if explanation == "" {
		return nil, ErrEmptyExplanation
	}
	if err := s.requireLevel(ctx, reviewerID, ReviewerLevel); err != nil {
		return nil, err
	}

	now := s.now()
	appeal, err := s.store.UpdateAppeal(ctx, appealID, func(a *types.EnforcementAppeal) error {
		if !a.Status.IsOpen() {
			return ErrAppealAlreadyReviewed
		}

		a.Status = enum.AppealStatusApproved
		if decision == enum.AppealUpheld {
			a.Status = enum.AppealStatusRejected
		}
		a.Outcome = &types.AppealOutcome{
			Decision:    decision,
			Explanation: explanation,
			ReviewerID:  reviewerID,
			ReviewedAt:  now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c, err := s.cases.ApplyAppealDecision(ctx, appeal.CaseID, appeal.ID, reviewerID, decision)
	if err != nil {
		return nil, fmt.Errorf("failed to apply appeal decision to case: %w", err)
	}

	if decision == enum.AppealOverturned {
		if err := s.lifter.LiftRestrictions(ctx, c.SubjectUserID, reviewerID); err != nil {
			s.logger.Warn("Failed to lift restrictions after overturned appeal",
				zap.String("appealID", appealID),
				zap.String("userID", c.SubjectUserID),
				zap.Error(err))
		}
	}

	s.logger.Info("Appeal reviewed",
		zap.String("appealID", appealID),
		zap.String("caseID", appeal.CaseID),
		zap.String("decision", string(decision)))

	return appeal, nil
}

// Get returns an appeal.
func (s *Service) Get(ctx context.Context, appealID string) (*types.EnforcementAppeal, error) {
	return s.store.GetAppeal(ctx, appealID)
}

// ListByCase returns every appeal filed against a case, oldest first.
func (s *Service) ListByCase(ctx context.Context, caseID string) ([]*types.EnforcementAppeal, error) {
	return s.store.ListAppealsByCase(ctx, caseID)
}

func (s *Service) checkNoOpenAppeal(ctx context.Context, caseID string) error {
	_, err := s.store.GetOpenAppealByCase(ctx, caseID)
	switch {
	case err == nil:
		return ErrPendingAppealExists
	case errors.Is(err, types.ErrAppealNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check open appeals: %w", err)
	}
}

func (s *Service) requireLevel(ctx context.Context, userID string, minLevel int) error {
	level, err := s.levels.GetLevel(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get moderator level: %w", err)
	}
	return role.RequireLevel(level, minLevel)
}
