package enforcement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/cases"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// RestrictionStore persists the current restrictions of each user.
type RestrictionStore interface {
	GetVisibilityRestriction(ctx context.Context, userID string) (*types.VisibilityRestriction, error)
	SaveVisibilityRestriction(ctx context.Context, r *types.VisibilityRestriction) error
	DeleteVisibilityRestriction(ctx context.Context, userID string) error
	GetPostingRestriction(ctx context.Context, userID string) (*types.PostingRestriction, error)
	SavePostingRestriction(ctx context.Context, r *types.PostingRestriction) error
	DeletePostingRestriction(ctx context.Context, userID string) error
}

// AccountStatusEngine is the external engine owning account status and feature locks.
type AccountStatusEngine interface {
	GetAccountState(ctx context.Context, userID string) (*types.AccountEnforcementState, error)
	SaveAccountState(ctx context.Context, state *types.AccountEnforcementState) error
}

// CaseOpener opens or merges cases for enforced users.
type CaseOpener interface {
	Create(ctx context.Context, req cases.CreateRequest) (*cases.CreateResult, error)
}

// Scorer computes the confidence score of a user.
type Scorer interface {
	Compute(ctx context.Context, userID string) (*types.EnforcementConfidence, error)
}

// Notifier tells users about enforcement using fixed copy.
type Notifier interface {
	Notify(ctx context.Context, userID string, level enum.NotificationLevel) error
}

// Outcome describes what Apply did for a user.
type Outcome struct {
	Tier       enum.Tier
	Confidence float64
	CaseID     string // Empty when no case was needed
	Merged     bool
}

// Restrictions are the unexpired restrictions of a user. Nil fields mean none.
type Restrictions struct {
	Visibility *types.VisibilityRestriction
	Posting    *types.PostingRestriction
}

// Dispatcher applies tiered enforcement.
type Dispatcher struct {
	restrictions RestrictionStore
	accounts     AccountStatusEngine
	cases        CaseOpener
	scorer       Scorer
	notifier     Notifier
	logger       *zap.Logger
	now          func() time.Time
}

// NewDispatcher creates an enforcement dispatcher.
func NewDispatcher(
	restrictions RestrictionStore, accounts AccountStatusEngine, cases CaseOpener, scorer Scorer,
	notifier Notifier, logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		restrictions: restrictions,
		accounts:     accounts,
		cases:        cases,
		scorer:       scorer,
		notifier:     notifier,
		logger:       logger.Named("enforcement"),
		now:          time.Now,
	}
}

// WithClock replaces the dispatcher clock.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Apply scores a user and applies the restrictions of the resulting tier.
// Restrictions never weaken one that is already stricter or longer.
// Notification and account-status reconciliation are best-effort.
func (d *Dispatcher) Apply(ctx context.Context, userID string) (*Outcome, error) {
	confidence, err := d.scorer.Compute(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute confidence: %w", err)
	}

	tier := TierFor(confidence.Score)
	outcome := &Outcome{Tier: tier, Confidence: confidence.Score}

	p, ok := planFor(tier)
	if !ok {
		return outcome, nil
	}

	now := d.now()
	if err := d.strengthenVisibility(ctx, &types.VisibilityRestriction{
		UserID:    userID,
		Tier:      p.visibility,
		AppliedBy: types.OpenedByAuto,
		Automatic: true,
		AppliedAt: now,
		ExpiresAt: expiryAfter(now, p.visibilityDuration),
	}); err != nil {
		return nil, err
	}

	if p.freezePosting {
		if err := d.strengthenPosting(ctx, &types.PostingRestriction{
			UserID:     userID,
			Restricted: true,
			AppliedBy:  types.OpenedByAuto,
			Automatic:  true,
			AppliedAt:  now,
			ExpiresAt:  expiryAfter(now, p.postingDuration),
		}); err != nil {
			return nil, err
		}
	}

	score := confidence.Score
	result, err := d.cases.Create(ctx, cases.CreateRequest{
		SubjectUserID: userID,
		ReasonCodes:   p.reasons,
		OpenedBy:      types.OpenedByAuto,
		PriorityFloor: p.priorityFloor,
		Confidence:    &score,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open enforcement case: %w", err)
	}
	outcome.CaseID = result.Case.ID
	outcome.Merged = result.Merged

	if err := d.notifier.Notify(ctx, userID, p.notification); err != nil {
		d.logger.Warn("Failed to notify user of enforcement",
			zap.String("userID", userID),
			zap.String("tier", string(tier)),
			zap.Error(err))
	}

	d.reconcile(ctx, userID, p)

	d.logger.Info("Applied enforcement",
		zap.String("userID", userID),
		zap.String("tier", string(tier)),
		zap.Float64("confidence", score),
		zap.String("caseID", outcome.CaseID))

	return outcome, nil
}

// strengthenVisibility saves the candidate unless the current restriction is stricter,
// or equally strict and lasts at least as long.
func (d *Dispatcher) strengthenVisibility(ctx context.Context, candidate *types.VisibilityRestriction) error {
	current, err := d.currentVisibility(ctx, candidate.UserID)
	if err != nil {
		return err
	}

	if current != nil {
		currentRank, candidateRank := visibilityRank(current.Tier), visibilityRank(candidate.Tier)
		if currentRank > candidateRank || (currentRank == candidateRank && outlasts(current.ExpiresAt, candidate.ExpiresAt)) {
			return nil
		}
	}

	if err := d.restrictions.SaveVisibilityRestriction(ctx, candidate); err != nil {
		return fmt.Errorf("failed to save visibility restriction: %w", err)
	}
	return nil
}

// strengthenPosting saves the candidate unless the current freeze lasts at least as long.
func (d *Dispatcher) strengthenPosting(ctx context.Context, candidate *types.PostingRestriction) error {
	current, err := d.currentPosting(ctx, candidate.UserID)
	if err != nil {
		return err
	}

	if current != nil && current.Restricted && outlasts(current.ExpiresAt, candidate.ExpiresAt) {
		return nil
	}

	if err := d.restrictions.SavePostingRestriction(ctx, candidate); err != nil {
		return fmt.Errorf("failed to save posting restriction: %w", err)
	}
	return nil
}

// reconcile pushes the tier's effects to the account-status engine without ever
// downgrading a more severe status it already holds.
func (d *Dispatcher) reconcile(ctx context.Context, userID string, p plan) {
	state, err := d.accountState(ctx, userID)
	if err != nil {
		d.logger.Warn("Failed to read account state for reconciliation",
			zap.String("userID", userID),
			zap.Error(err))
		return
	}

	if p.accountStatus.Severity() > state.AccountStatus.Severity() {
		state.AccountStatus = p.accountStatus
	}
	for _, lock := range p.featureLocks {
		state.FeatureLocks = addLock(state.FeatureLocks, lock)
	}
	if visibilityRank(accountVisibility(p.visibility)) > visibilityRank(state.VisibilityTier) {
		state.VisibilityTier = accountVisibility(p.visibility)
	}
	state.UpdatedAt = d.now()

	if err := d.accounts.SaveAccountState(ctx, state); err != nil {
		d.logger.Warn("Failed to reconcile account state",
			zap.String("userID", userID),
			zap.Error(err))
	}
}

// accountState returns the engine's state for a user, or an active default.
func (d *Dispatcher) accountState(ctx context.Context, userID string) (*types.AccountEnforcementState, error) {
	state, err := d.accounts.GetAccountState(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrAccountStateNotFound) {
			return &types.AccountEnforcementState{
				UserID:         userID,
				AccountStatus:  enum.AccountActive,
				FeatureLocks:   []string{},
				VisibilityTier: enum.VisibilityNormal,
			}, nil
		}
		return nil, err
	}
	if state.FeatureLocks == nil {
		state.FeatureLocks = []string{}
	}
	return state, nil
}

func addLock(locks []string, lock string) []string {
	for _, l := range locks {
		if l == lock {
			return locks
		}
	}
	return append(locks, lock)
}
