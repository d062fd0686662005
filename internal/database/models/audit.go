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

// AuditModel handles database operations for the moderation audit log.
type AuditModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAudit creates an AuditModel instance.
func NewAudit(db *bun.DB, logger *zap.Logger) *AuditModel {
	return &AuditModel{
		db:     db,
		logger: logger.Named("db_audit"),
	}
}

// AppendAudit stores a moderator action.
func (m *AuditModel) AppendAudit(ctx context.Context, entry *types.ModerationAuditLog) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(entry).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to append audit log: %w", err)
		}
		return nil
	})
}

// GetAudit retrieves an audit entry by ID.
func (m *AuditModel) GetAudit(ctx context.Context, id string) (*types.ModerationAuditLog, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ModerationAuditLog, error) {
		var entry types.ModerationAuditLog
		err := m.db.NewSelect().
			Model(&entry).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrAuditLogNotFound
			}
			return nil, fmt.Errorf("failed to get audit log: %w", err)
		}

		return &entry, nil
	})
}

// MarkAuditReversed stamps the reversal fields on an entry that is not yet reversed.
func (m *AuditModel) MarkAuditReversed(
	ctx context.Context, id, reversedBy string, reversedAt time.Time,
) (*types.ModerationAuditLog, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ModerationAuditLog, error) {
		var entry types.ModerationAuditLog
		err := m.db.NewUpdate().
			Model(&entry).
			Set("reversed_at = ?", reversedAt).
			Set("reversed_by = ?", reversedBy).
			Where("id = ?", id).
			Where("reversed_at IS NULL").
			Returning("*").
			Scan(ctx)
		if err == nil {
			return &entry, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to reverse audit log: %w", err)
		}

		exists, err := m.db.NewSelect().
			Model((*types.ModerationAuditLog)(nil)).
			Where("id = ?", id).
			Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to check audit log: %w", err)
		}
		if exists {
			return nil, types.ErrAuditAlreadyReversed
		}
		return nil, types.ErrAuditLogNotFound
	})
}

// ListAuditByActor retrieves a moderator's actions since the given time.
func (m *AuditModel) ListAuditByActor(
	ctx context.Context, actorID string, since time.Time,
) ([]*types.ModerationAuditLog, error) {
	return m.list(ctx, "actor_id = ?", actorID, since)
}

// ListAuditByTarget retrieves the actions taken against a user since the given time.
func (m *AuditModel) ListAuditByTarget(
	ctx context.Context, targetUserID string, since time.Time,
) ([]*types.ModerationAuditLog, error) {
	return m.list(ctx, "target_user_id = ?", targetUserID, since)
}

func (m *AuditModel) list(
	ctx context.Context, cond, id string, since time.Time,
) ([]*types.ModerationAuditLog, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ModerationAuditLog, error) {
		var entries []*types.ModerationAuditLog
		err := m.db.NewSelect().
			Model(&entries).
			Where(cond, id).
			Where("created_at >= ?", since).
			Order("created_at ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list audit logs: %w", err)
		}

		return entries, nil
	})
}

// ListActiveActors returns the distinct moderators who acted since the given time.
func (m *AuditModel) ListActiveActors(ctx context.Context, since time.Time) ([]string, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]string, error) {
		var ids []string
		err := m.db.NewSelect().
			Model((*types.ModerationAuditLog)(nil)).
			ColumnExpr("DISTINCT actor_id").
			Where("created_at >= ?", since).
			Where("actor_level > 0").
			Order("actor_id ASC").
			Scan(ctx, &ids)
		if err != nil {
			return nil, fmt.Errorf("failed to list active actors: %w", err)
		}

		return ids, nil
	})
}

// GetAuditBetween retrieves audit entries created in the given range, oldest first.
func (m *AuditModel) GetAuditBetween(ctx context.Context, start, end time.Time) ([]*types.ModerationAuditLog, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ModerationAuditLog, error) {
		var entries []*types.ModerationAuditLog
		err := m.db.NewSelect().
			Model(&entries).
			Where("created_at >= ?", start).
			Where("created_at < ?", end).
			Order("created_at ASC", "id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get audit logs in range: %w", err)
		}

		return entries, nil
	})
}
