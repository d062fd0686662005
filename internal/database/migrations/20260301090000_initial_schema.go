package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.UserRoles)(nil),
			(*types.EnforcementConfidence)(nil),
			(*types.ModerationCase)(nil),
			(*types.CaseHistoryEntry)(nil),
			(*types.ModerationAuditLog)(nil),
			(*types.EnforcementAppeal)(nil),
			(*types.SuspensionApproval)(nil),
			(*types.VisibilityRestriction)(nil),
			(*types.PostingRestriction)(nil),
			(*types.RogueModeratorDetection)(nil),
			(*types.AccountEnforcementState)(nil),
			(*types.TrustProfile)(nil),
			(*types.ContentReport)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.ContentReport)(nil),
			(*types.TrustProfile)(nil),
			(*types.AccountEnforcementState)(nil),
			(*types.RogueModeratorDetection)(nil),
			(*types.PostingRestriction)(nil),
			(*types.VisibilityRestriction)(nil),
			(*types.SuspensionApproval)(nil),
			(*types.EnforcementAppeal)(nil),
			(*types.ModerationAuditLog)(nil),
			(*types.CaseHistoryEntry)(nil),
			(*types.ModerationCase)(nil),
			(*types.EnforcementConfidence)(nil),
			(*types.UserRoles)(nil),
		}

		for _, model := range models {
			_, err := db.NewDropTable().
				Model(model).
				IfExists().
				Cascade().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table for %T: %w", model, err)
			}
		}

		return nil
	})
}
