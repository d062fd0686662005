package enforcement

import (
	"context"
	"fmt"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// SyncResult describes what Sync did for a user.
type SyncResult struct {
	AccountStatus enum.AccountStatus
	Changed       bool // Whether any restriction was written
	LiftCandidate bool // Whether automatic restrictions look stale on an active account
}

// Sync aligns the restrictions with the account-status engine.
// Suspended accounts are fully hidden and frozen with no expiry and hard-restricted accounts
// are kept at least at low visibility. Active accounts holding automatic restrictions older
// than LiftCandidateAge are reported as lift candidates; nothing is lifted here.
func (d *Dispatcher) Sync(ctx context.Context, userID string) (*SyncResult, error) {
	state, err := d.accountState(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account state: %w", err)
	}

	current, err := d.CurrentRestrictions(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{AccountStatus: state.AccountStatus}
	now := d.now()

	switch state.AccountStatus {
	case enum.AccountSuspended:
		if current.Visibility == nil || current.Visibility.Tier != enum.VisibilityHidden || current.Visibility.ExpiresAt != nil {
			err := d.restrictions.SaveVisibilityRestriction(ctx, &types.VisibilityRestriction{
				UserID:    userID,
				Tier:      enum.VisibilityHidden,
				AppliedBy: types.OpenedByAuto,
				Automatic: true,
				AppliedAt: now,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to save visibility restriction: %w", err)
			}
			result.Changed = true
		}
		if current.Posting == nil || !current.Posting.Restricted || current.Posting.ExpiresAt != nil {
			err := d.restrictions.SavePostingRestriction(ctx, &types.PostingRestriction{
				UserID:     userID,
				Restricted: true,
				AppliedBy:  types.OpenedByAuto,
				Automatic:  true,
				AppliedAt:  now,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to save posting restriction: %w", err)
			}
			result.Changed = true
		}

	case enum.AccountHardRestricted:
		if current.Visibility == nil || visibilityRank(current.Visibility.Tier) < visibilityRank(enum.VisibilityLow) {
			err := d.restrictions.SaveVisibilityRestriction(ctx, &types.VisibilityRestriction{
				UserID:    userID,
				Tier:      enum.VisibilityLow,
				AppliedBy: types.OpenedByAuto,
				Automatic: true,
				AppliedAt: now,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to save visibility restriction: %w", err)
			}
			result.Changed = true
		}

	case enum.AccountActive:
		cutoff := now.Add(-LiftCandidateAge)
		if v := current.Visibility; v != nil && v.Automatic && v.AppliedAt.Before(cutoff) {
			result.LiftCandidate = true
		}
		if p := current.Posting; p != nil && p.Automatic && p.AppliedAt.Before(cutoff) {
			result.LiftCandidate = true
		}

	case enum.AccountSoftRestricted:
	}

	if result.Changed || result.LiftCandidate {
		d.logger.Info("Synchronized account restrictions",
			zap.String("userID", userID),
			zap.String("accountStatus", string(state.AccountStatus)),
			zap.Bool("changed", result.Changed),
			zap.Bool("liftCandidate", result.LiftCandidate))
	}

	return result, nil
}
