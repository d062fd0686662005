package enforcement

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// ErrInvalidVisibility is returned when a manual visibility restriction names an unknown tier.
var ErrInvalidVisibility = errors.New("invalid visibility tier")

// CurrentRestrictions returns the unexpired restrictions of a user.
// Expired restrictions found on the way are deleted.
func (d *Dispatcher) CurrentRestrictions(ctx context.Context, userID string) (*Restrictions, error) {
	visibility, err := d.currentVisibility(ctx, userID)
	if err != nil {
		return nil, err
	}

	posting, err := d.currentPosting(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Restrictions{Visibility: visibility, Posting: posting}, nil
}

func (d *Dispatcher) currentVisibility(ctx context.Context, userID string) (*types.VisibilityRestriction, error) {
	r, err := d.restrictions.GetVisibilityRestriction(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrRestrictionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get visibility restriction: %w", err)
	}

	if r.IsExpired(d.now()) {
		if err := d.restrictions.DeleteVisibilityRestriction(ctx, userID); err != nil {
			d.logger.Warn("Failed to delete expired visibility restriction",
				zap.String("userID", userID),
				zap.Error(err))
		}
		return nil, nil
	}
	return r, nil
}

func (d *Dispatcher) currentPosting(ctx context.Context, userID string) (*types.PostingRestriction, error) {
	r, err := d.restrictions.GetPostingRestriction(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrRestrictionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get posting restriction: %w", err)
	}

	if r.IsExpired(d.now()) {
		if err := d.restrictions.DeletePostingRestriction(ctx, userID); err != nil {
			d.logger.Warn("Failed to delete expired posting restriction",
				zap.String("userID", userID),
				zap.Error(err))
		}
		return nil, nil
	}
	return r, nil
}

// ApplyVisibility sets a moderator-chosen visibility tier, replacing whatever is in place.
// A zero duration never expires. Restoring normal visibility removes the restriction.
func (d *Dispatcher) ApplyVisibility(
	ctx context.Context, userID string, tier enum.VisibilityTier, appliedBy string, duration time.Duration,
) error {
	switch tier {
	case enum.VisibilityNormal:
		if err := d.restrictions.DeleteVisibilityRestriction(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear visibility restriction: %w", err)
		}
		return nil
	case enum.VisibilityLow, enum.VisibilityHidden:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidVisibility, tier)
	}

	now := d.now()
	err := d.restrictions.SaveVisibilityRestriction(ctx, &types.VisibilityRestriction{
		UserID:    userID,
		Tier:      tier,
		AppliedBy: appliedBy,
		Automatic: false,
		AppliedAt: now,
		ExpiresAt: expiryAfter(now, duration),
	})
	if err != nil {
		return fmt.Errorf("failed to save visibility restriction: %w", err)
	}
	return nil
}

// ApplyPosting freezes posting for a user, replacing any existing freeze.
// A zero duration never expires.
func (d *Dispatcher) ApplyPosting(ctx context.Context, userID, appliedBy string, duration time.Duration) error {
	now := d.now()
	err := d.restrictions.SavePostingRestriction(ctx, &types.PostingRestriction{
		UserID:     userID,
		Restricted: true,
		AppliedBy:  appliedBy,
		Automatic:  false,
		AppliedAt:  now,
		ExpiresAt:  expiryAfter(now, duration),
	})
	if err != nil {
		return fmt.Errorf("failed to save posting restriction: %w", err)
	}
	return nil
}

// LiftRestrictions clears every restriction on a user and releases the locks this
// dispatcher placed with the account-status engine. Suspended accounts keep their status.
func (d *Dispatcher) LiftRestrictions(ctx context.Context, userID, liftedBy string) error {
	if err := d.restrictions.DeleteVisibilityRestriction(ctx, userID); err != nil {
		return fmt.Errorf("failed to lift visibility restriction: %w", err)
	}
	if err := d.restrictions.DeletePostingRestriction(ctx, userID); err != nil {
		return fmt.Errorf("failed to lift posting restriction: %w", err)
	}

	state, err := d.accounts.GetAccountState(ctx, userID)
	switch {
	case errors.Is(err, types.ErrAccountStateNotFound):
	case err != nil:
		d.logger.Warn("Failed to read account state while lifting",
			zap.String("userID", userID),
			zap.Error(err))
	case state.AccountStatus != enum.AccountSuspended:
		state.AccountStatus = enum.AccountActive
		state.VisibilityTier = enum.VisibilityNormal
		state.FeatureLocks = slices.DeleteFunc(state.FeatureLocks, func(lock string) bool {
			return lock == enum.FeatureLockDiscovery || lock == enum.FeatureLockPosting
		})
		if state.FeatureLocks == nil {
			state.FeatureLocks = []string{}
		}
		state.UpdatedAt = d.now()
		if err := d.accounts.SaveAccountState(ctx, state); err != nil {
			d.logger.Warn("Failed to release account locks",
				zap.String("userID", userID),
				zap.Error(err))
		}
	}

	d.logger.Info("Lifted restrictions",
		zap.String("userID", userID),
		zap.String("liftedBy", liftedBy))

	return nil
}

// ClearPosting removes a user's posting freeze.
func (d *Dispatcher) ClearPosting(ctx context.Context, userID string) error {
	if err := d.restrictions.DeletePostingRestriction(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear posting restriction: %w", err)
	}
	return nil
}
