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

// AccountStateModel handles database operations for account enforcement state.
type AccountStateModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAccountState creates an AccountStateModel instance.
func NewAccountState(db *bun.DB, logger *zap.Logger) *AccountStateModel {
	return &AccountStateModel{
		db:     db,
		logger: logger.Named("db_account_state"),
	}
}

// GetAccountState retrieves the enforcement state of an account.
func (m *AccountStateModel) GetAccountState(
	ctx context.Context, userID string,
) (*types.AccountEnforcementState, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.AccountEnforcementState, error) {
		var state types.AccountEnforcementState
		err := m.db.NewSelect().
			Model(&state).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrAccountStateNotFound
			}
			return nil, fmt.Errorf("failed to get account state: %w", err)
		}

		return &state, nil
	})
}

// SaveAccountState creates or replaces the enforcement state of an account.
func (m *AccountStateModel) SaveAccountState(ctx context.Context, state *types.AccountEnforcementState) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(state).
			On("CONFLICT (user_id) DO UPDATE").
			Set("account_status = EXCLUDED.account_status").
			Set("feature_locks = EXCLUDED.feature_locks").
			Set("visibility_tier = EXCLUDED.visibility_tier").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save account state: %w", err)
		}
		return nil
	})
}

// ListAccountStates returns a page of account states ordered by user ID.
func (m *AccountStateModel) ListAccountStates(
	ctx context.Context, afterUserID string, limit int,
) ([]*types.AccountEnforcementState, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.AccountEnforcementState, error) {
		var states []*types.AccountEnforcementState
		err := m.db.NewSelect().
			Model(&states).
			Where("user_id > ?", afterUserID).
			Order("user_id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list account states: %w", err)
		}

		return states, nil
	})
}
