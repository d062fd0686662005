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

// ApprovalModel handles database operations for suspension quorums.
type ApprovalModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewApproval creates an ApprovalModel instance.
func NewApproval(db *bun.DB, logger *zap.Logger) *ApprovalModel {
	return &ApprovalModel{
		db:     db,
		logger: logger.Named("db_approval"),
	}
}

// CreateApproval inserts a new suspension approval request.
func (m *ApprovalModel) CreateApproval(ctx context.Context, approval *types.SuspensionApproval) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(approval).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create suspension approval: %w", err)
		}
		return nil
	})
}

// GetApproval retrieves a suspension approval by ID.
func (m *ApprovalModel) GetApproval(ctx context.Context, approvalID string) (*types.SuspensionApproval, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.SuspensionApproval, error) {
		var approval types.SuspensionApproval
		err := m.db.NewSelect().
			Model(&approval).
			Where("id = ?", approvalID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrApprovalNotFound
			}
			return nil, fmt.Errorf("failed to get suspension approval: %w", err)
		}

		return &approval, nil
	})
}

// UpdateApproval locks the approval row, applies fn and writes the result back.
// Approvers are appended under the row lock so concurrent approvals never drop one.
func (m *ApprovalModel) UpdateApproval(
	ctx context.Context, approvalID string, fn func(*types.SuspensionApproval) error,
) (*types.SuspensionApproval, error) {
	var approval types.SuspensionApproval

	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(&approval).
			Where("id = ?", approvalID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrApprovalNotFound
			}
			return fmt.Errorf("failed to lock suspension approval: %w", err)
		}

		if err := fn(&approval); err != nil {
			return err
		}

		if _, err := tx.NewUpdate().Model(&approval).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("failed to update suspension approval: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &approval, nil
}
