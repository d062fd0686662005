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
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"
)

// RoleModel handles database operations for user roles.
type RoleModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewRole creates a RoleModel instance.
func NewRole(db *bun.DB, logger *zap.Logger) *RoleModel {
	return &RoleModel{
		db:     db,
		logger: logger.Named("db_role"),
	}
}

// GetUserRoles retrieves the role record for a user.
func (m *RoleModel) GetUserRoles(ctx context.Context, userID string) (*types.UserRoles, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.UserRoles, error) {
		var roles types.UserRoles
		err := m.db.NewSelect().
			Model(&roles).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrUserRolesNotFound
			}
			return nil, fmt.Errorf("failed to get user roles: %w", err)
		}

		return &roles, nil
	})
}

// SaveUserRoles creates or replaces the role record for a user.
func (m *RoleModel) SaveUserRoles(ctx context.Context, roles *types.UserRoles) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(roles).
			On("CONFLICT (user_id) DO UPDATE").
			Set("roles = EXCLUDED.roles").
			Set("granted_by = EXCLUDED.granted_by").
			Set("updated_at = EXCLUDED.updated_at").
			Set("suspended_at = EXCLUDED.suspended_at").
			Set("suspension_reason = EXCLUDED.suspension_reason").
			Set("suspension_case_id = EXCLUDED.suspension_case_id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save user roles: %w", err)
		}

		m.logger.Debug("Saved user roles",
			zap.String("userID", roles.UserID),
			zap.Any("roles", roles.Roles))

		return nil
	})
}

// GetModeratorIDs returns users holding any moderator role, ordered by ID.
func (m *RoleModel) GetModeratorIDs(ctx context.Context, afterUserID string, limit int) ([]string, error) {
	moderatorRoles := make([]string, len(enum.ModeratorRoles))
	for i, role := range enum.ModeratorRoles {
		moderatorRoles[i] = string(role)
	}

	return dbretry.Operation(ctx, func(ctx context.Context) ([]string, error) {
		var ids []string
		err := m.db.NewSelect().
			Model((*types.UserRoles)(nil)).
			Column("user_id").
			Where("jsonb_exists_any(roles, ?)", pgdialect.Array(moderatorRoles)).
			Where("user_id > ?", afterUserID).
			Order("user_id ASC").
			Limit(limit).
			Scan(ctx, &ids)
		if err != nil {
			return nil, fmt.Errorf("failed to get moderator IDs: %w", err)
		}

		return ids, nil
	})
}
