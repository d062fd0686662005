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

// DetectionModel handles database operations for rogue moderator detections.
type DetectionModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewDetection creates a DetectionModel instance.
func NewDetection(db *bun.DB, logger *zap.Logger) *DetectionModel {
	return &DetectionModel{
		db:     db,
		logger: logger.Named("db_detection"),
	}
}

// CreateDetection stores a detection record.
func (m *DetectionModel) CreateDetection(ctx context.Context, d *types.RogueModeratorDetection) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(d).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create rogue detection: %w", err)
		}
		return nil
	})
}

// GetLatestDetection retrieves the most recent detection for a moderator.
func (m *DetectionModel) GetLatestDetection(
	ctx context.Context, moderatorID string,
) (*types.RogueModeratorDetection, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.RogueModeratorDetection, error) {
		var d types.RogueModeratorDetection
		err := m.db.NewSelect().
			Model(&d).
			Where("moderator_id = ?", moderatorID).
			Order("detected_at DESC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrDetectionNotFound
			}
			return nil, fmt.Errorf("failed to get latest rogue detection: %w", err)
		}

		return &d, nil
	})
}
