package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// RestrictionModel handles database operations for visibility and posting restrictions.
type RestrictionModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewRestriction creates a RestrictionModel instance.
func NewRestriction(db *bun.DB, logger *zap.Logger) *RestrictionModel {
	return &RestrictionModel{
		db:     db,
		logger: logger.Named("db_restriction"),
	}
}

// GetVisibilityRestriction retrieves the visibility restriction for a user.
func (m *RestrictionModel) GetVisibilityRestriction(
	ctx context.Context, userID string,
) (*types.VisibilityRestriction, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.VisibilityRestriction, error) {
		var restriction types.VisibilityRestriction
		err := m.db.NewSelect().
			Model(&restriction).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrRestrictionNotFound
			}
			return nil, fmt.Errorf("failed to get visibility restriction: %w", err)
		}

		return &restriction, nil
	})
}

// SaveVisibilityRestriction creates or replaces the visibility restriction for a user.
func (m *RestrictionModel) SaveVisibilityRestriction(ctx context.Context, r *types.VisibilityRestriction) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(r).
			On("CONFLICT (user_id) DO UPDATE").
			Set("tier = EXCLUDED.tier").
			Set("applied_by = EXCLUDED.applied_by").
			Set("automatic = EXCLUDED.automatic").
			Set("applied_at = EXCLUDED.applied_at").
			Set("expires_at = EXCLUDED.expires_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save visibility restriction: %w", err)
		}
		return nil
	})
}

// DeleteVisibilityRestriction removes the visibility restriction for a user.
func (m *RestrictionModel) DeleteVisibilityRestriction(ctx context.Context, userID string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.VisibilityRestriction)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete visibility restriction: %w", err)
		}
		return nil
	})
}

// GetPostingRestriction retrieves the posting restriction for a user.
func (m *RestrictionModel) GetPostingRestriction(ctx context.Context, userID string) (*types.PostingRestriction, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.PostingRestriction, error) {
		var restriction types.PostingRestriction
		err := m.db.NewSelect().
			Model(&restriction).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrRestrictionNotFound
			}
			return nil, fmt.Errorf("failed to get posting restriction: %w", err)
		}

		return &restriction, nil
	})
}

// SavePostingRestriction creates or replaces the posting restriction for a user.
func (m *RestrictionModel) SavePostingRestriction(ctx context.Context, r *types.PostingRestriction) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(r).
			On("CONFLICT (user_id) DO UPDATE").
			Set("restricted = EXCLUDED.restricted").
			Set("applied_by = EXCLUDED.applied_by").
			Set("automatic = EXCLUDED.automatic").
			Set("applied_at = EXCLUDED.applied_at").
			Set("expires_at = EXCLUDED.expires_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save posting restriction: %w", err)
		}
		return nil
	})
}

// DeletePostingRestriction removes the posting restriction for a user.
func (m *RestrictionModel) DeletePostingRestriction(ctx context.Context, userID string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.PostingRestriction)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete posting restriction: %w", err)
		}
		return nil
	})
}
