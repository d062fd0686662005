package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// SignalModel handles database operations for trust profiles and content reports.
type SignalModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSignal creates a SignalModel instance.
func NewSignal(db *bun.DB, logger *zap.Logger) *SignalModel {
	return &SignalModel{
		db:     db,
		logger: logger.Named("db_signal"),
	}
}

// GetTrustProfile retrieves the trust profile of a user.
func (m *SignalModel) GetTrustProfile(ctx context.Context, userID string) (*types.TrustProfile, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.TrustProfile, error) {
		var profile types.TrustProfile
		err := m.db.NewSelect().
			Model(&profile).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrTrustProfileNotFound
			}
			return nil, fmt.Errorf("failed to get trust profile: %w", err)
		}

		return &profile, nil
	})
}

// ListTrustProfilesUpdatedSince returns a page of user IDs whose profiles changed
// after the given time, ordered by user ID.
func (m *SignalModel) ListTrustProfilesUpdatedSince(
	ctx context.Context, since time.Time, afterUserID string, limit int,
) ([]string, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]string, error) {
		var ids []string
		err := m.db.NewSelect().
			Model((*types.TrustProfile)(nil)).
			Column("user_id").
			Where("updated_at >= ?", since).
			Where("user_id > ?", afterUserID).
			Order("user_id ASC").
			Limit(limit).
			Scan(ctx, &ids)
		if err != nil {
			return nil, fmt.Errorf("failed to list trust profiles: %w", err)
		}

		return ids, nil
	})
}

// CountUniqueReporters counts distinct users who reported the user since the given time.
func (m *SignalModel) CountUniqueReporters(ctx context.Context, userID string, since time.Time) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		var count int
		err := m.db.NewSelect().
			Model((*types.ContentReport)(nil)).
			ColumnExpr("COUNT(DISTINCT reporter_id)").
			Where("reported_user_id = ?", userID).
			Where("created_at >= ?", since).
			Scan(ctx, &count)
		if err != nil {
			return 0, fmt.Errorf("failed to count unique reporters: %w", err)
		}

		return count, nil
	})
}

// CreateReport stores a content report.
func (m *SignalModel) CreateReport(ctx context.Context, report *types.ContentReport) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(report).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create content report: %w", err)
		}
		return nil
	})
}
