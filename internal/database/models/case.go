package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// CaseModel handles database operations for moderation cases and their history.
type CaseModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewCase creates a CaseModel instance.
func NewCase(db *bun.DB, logger *zap.Logger) *CaseModel {
	return &CaseModel{
		db:     db,
		logger: logger.Named("db_case"),
	}
}

// CreateCase inserts a new case. Returns ErrOpenCaseExists when the partial
// unique index on open cases rejects the row.
func (m *CaseModel) CreateCase(ctx context.Context, c *types.ModerationCase) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(c).Exec(ctx)
		if err != nil {
			if dbretry.IsUniqueViolation(err) {
				return types.ErrOpenCaseExists
			}
			return fmt.Errorf("failed to create case: %w", err)
		}
		return nil
	})
}

// GetCase retrieves a case by ID.
func (m *CaseModel) GetCase(ctx context.Context, caseID string) (*types.ModerationCase, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ModerationCase, error) {
		var c types.ModerationCase
		err := m.db.NewSelect().
			Model(&c).
			Where("id = ?", caseID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrCaseNotFound
			}
			return nil, fmt.Errorf("failed to get case: %w", err)
		}

		return &c, nil
	})
}

// GetOpenCaseBySubject retrieves the open or under-review case for a subject.
func (m *CaseModel) GetOpenCaseBySubject(ctx context.Context, subjectUserID string) (*types.ModerationCase, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ModerationCase, error) {
		var c types.ModerationCase
		err := m.db.NewSelect().
			Model(&c).
			Where("subject_user_id = ?", subjectUserID).
			Where("status IN (?)", bun.In(enum.OpenCaseStatuses)).
			Order("opened_at ASC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrCaseNotFound
			}
			return nil, fmt.Errorf("failed to get open case: %w", err)
		}

		return &c, nil
	})
}

// UpdateCase locks the case row, applies fn and writes the result back.
// Errors returned by fn abort the update and are passed through unchanged.
func (m *CaseModel) UpdateCase(
	ctx context.Context, caseID string, fn func(*types.ModerationCase) error,
) (*types.ModerationCase, error) {
	var c types.ModerationCase

	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(&c).
			Where("id = ?", caseID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrCaseNotFound
			}
			return fmt.Errorf("failed to lock case: %w", err)
		}

		if err := fn(&c); err != nil {
			return err
		}

		if _, err := tx.NewUpdate().Model(&c).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("failed to update case: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// ListCasesBySubject retrieves every case opened against a subject, newest first.
func (m *CaseModel) ListCasesBySubject(ctx context.Context, subjectUserID string) ([]*types.ModerationCase, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ModerationCase, error) {
		var cases []*types.ModerationCase
		err := m.db.NewSelect().
			Model(&cases).
			Where("subject_user_id = ?", subjectUserID).
			Order("opened_at DESC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list cases: %w", err)
		}

		return cases, nil
	})
}

// GetCasesOpenedBetween retrieves cases opened in the given range, oldest first.
func (m *CaseModel) GetCasesOpenedBetween(ctx context.Context, start, end time.Time) ([]*types.ModerationCase, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ModerationCase, error) {
		var cases []*types.ModerationCase
		err := m.db.NewSelect().
			Model(&cases).
			Where("opened_at >= ?", start).
			Where("opened_at < ?", end).
			Order("opened_at ASC", "id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get cases in range: %w", err)
		}

		return cases, nil
	})
}

// AppendCaseHistory stores a new history entry. Existing entries are never touched.
func (m *CaseModel) AppendCaseHistory(ctx context.Context, entry *types.CaseHistoryEntry) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(entry).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to append case history: %w", err)
		}
		return nil
	})
}

// GetCaseHistory retrieves the history of a case in insertion order.
func (m *CaseModel) GetCaseHistory(ctx context.Context, caseID string) ([]*types.CaseHistoryEntry, error) {
	return m.GetHistoryForCases(ctx, []string{caseID})
}

// GetHistoryForCases retrieves the history of several cases in insertion order.
func (m *CaseModel) GetHistoryForCases(ctx context.Context, caseIDs []string) ([]*types.CaseHistoryEntry, error) {
	if len(caseIDs) == 0 {
		return nil, nil
	}

	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.CaseHistoryEntry, error) {
		var entries []*types.CaseHistoryEntry
		err := m.db.NewSelect().
			Model(&entries).
			Where("case_id IN (?)", bun.In(caseIDs)).
			Order("id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get case history: %w", err)
		}

		return entries, nil
	})
}
