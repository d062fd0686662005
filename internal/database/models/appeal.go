package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// AppealModel handles database operations for enforcement appeals.
type AppealModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAppeal creates an AppealModel instance.
func NewAppeal(db *bun.DB, logger *zap.Logger) *AppealModel {
	return &AppealModel{
		db:     db,
		logger: logger.Named("db_appeal"),
	}
}

// CreateAppeal inserts a new appeal. Returns ErrPendingAppealExists when the
// partial unique index on undecided appeals rejects the row.
func (m *AppealModel) CreateAppeal(ctx context.Context, appeal *types.EnforcementAppeal) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(appeal).Exec(ctx)
		if err != nil {
			if dbretry.IsUniqueViolation(err) {
				return types.ErrPendingAppealExists
			}
			return fmt.Errorf("failed to create appeal: %w", err)
		}
		return nil
	})
}

// GetAppeal retrieves an appeal by ID.
func (m *AppealModel) GetAppeal(ctx context.Context, appealID string) (*types.EnforcementAppeal, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.EnforcementAppeal, error) {
		var appeal types.EnforcementAppeal
		err := m.db.NewSelect().
			Model(&appeal).
			Where("id = ?", appealID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrAppealNotFound
			}
			return nil, fmt.Errorf("failed to get appeal: %w", err)
		}

		return &appeal, nil
	})
}

// GetOpenAppealByCase retrieves the undecided appeal for a case.
func (m *AppealModel) GetOpenAppealByCase(ctx context.Context, caseID string) (*types.EnforcementAppeal, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.EnforcementAppeal, error) {
		var appeal types.EnforcementAppeal
		err := m.db.NewSelect().
			Model(&appeal).
			Where("case_id = ?", caseID).
			Where("status IN (?)", bun.In([]enum.AppealStatus{
				enum.AppealStatusPending, enum.AppealStatusUnderReview,
			})).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrAppealNotFound
			}
			return nil, fmt.Errorf("failed to get open appeal: %w", err)
		}

		return &appeal, nil
	})
}

// UpdateAppeal locks the appeal row, applies fn and writes the result back.
func (m *AppealModel) UpdateAppeal(
	ctx context.Context, appealID string, fn func(*types.EnforcementAppeal) error,
) (*types.EnforcementAppeal, error) {
	var appeal types.EnforcementAppeal

	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(&appeal).
			Where("id = ?", appealID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrAppealNotFound
			}
			return fmt.Errorf("failed to lock appeal: %w", err)
		}

		if err := fn(&appeal); err != nil {
			return err
		}

		if _, err := tx.NewUpdate().Model(&appeal).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("failed to update appeal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &appeal, nil
}

// ListAppealsByCase retrieves every appeal filed against a case, oldest first.
func (m *AppealModel) ListAppealsByCase(ctx context.Context, caseID string) ([]*types.EnforcementAppeal, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.EnforcementAppeal, error) {
		var appeals []*types.EnforcementAppeal
		err := m.db.NewSelect().
			Model(&appeals).
			Where("case_id = ?", caseID).
			Order("submitted_at ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list appeals: %w", err)
		}

		return appeals, nil
	})
}
