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

// ConfidenceModel handles database operations for enforcement confidence scores.
type ConfidenceModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewConfidence creates a ConfidenceModel instance.
func NewConfidence(db *bun.DB, logger *zap.Logger) *ConfidenceModel {
	return &ConfidenceModel{
		db:     db,
		logger: logger.Named("db_confidence"),
	}
}

// SaveConfidence overwrites the stored score for a user.
func (m *ConfidenceModel) SaveConfidence(ctx context.Context, confidence *types.EnforcementConfidence) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(confidence).
			On("CONFLICT (user_id) DO UPDATE").
			Set("score = EXCLUDED.score").
			Set("sources = EXCLUDED.sources").
			Set("calculated_at = EXCLUDED.calculated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save confidence: %w", err)
		}
		return nil
	})
}

// GetConfidence retrieves the last computed score for a user.
func (m *ConfidenceModel) GetConfidence(ctx context.Context, userID string) (*types.EnforcementConfidence, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.EnforcementConfidence, error) {
		var confidence types.EnforcementConfidence
		err := m.db.NewSelect().
			Model(&confidence).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrConfidenceNotFound
			}
			return nil, fmt.Errorf("failed to get confidence: %w", err)
		}

		return &confidence, nil
	})
}
