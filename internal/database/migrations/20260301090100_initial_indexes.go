package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			-- One open case per subject
			CREATE UNIQUE INDEX IF NOT EXISTS idx_moderation_cases_open_subject
			ON moderation_cases (subject_user_id)
			WHERE status IN (?, ?);

			CREATE INDEX IF NOT EXISTS idx_moderation_cases_subject
			ON moderation_cases (subject_user_id, opened_at DESC);

			CREATE INDEX IF NOT EXISTS idx_moderation_cases_opened_at
			ON moderation_cases (opened_at);

			CREATE INDEX IF NOT EXISTS idx_case_history_entries_case
			ON case_history_entries (case_id, id);

			-- Audit log lookups by actor and target
			CREATE INDEX IF NOT EXISTS idx_moderation_audit_logs_actor_time
			ON moderation_audit_logs (actor_id, created_at);

			CREATE INDEX IF NOT EXISTS idx_moderation_audit_logs_target_time
			ON moderation_audit_logs (target_user_id, created_at);

			CREATE INDEX IF NOT EXISTS idx_moderation_audit_logs_time
			ON moderation_audit_logs (created_at);

			-- One undecided appeal per case
			CREATE UNIQUE INDEX IF NOT EXISTS idx_enforcement_appeals_open_case
			ON enforcement_appeals (case_id)
			WHERE status IN (?, ?);

			CREATE INDEX IF NOT EXISTS idx_rogue_moderator_detections_moderator
			ON rogue_moderator_detections (moderator_id, detected_at DESC);

			CREATE INDEX IF NOT EXISTS idx_trust_profiles_updated
			ON trust_profiles (updated_at, user_id);

			CREATE INDEX IF NOT EXISTS idx_content_reports_reported_time
			ON content_reports (reported_user_id, created_at);

			-- Role lookups for moderator sweeps
			CREATE INDEX IF NOT EXISTS idx_user_roles_roles
			ON user_roles USING gin (roles);
		`,
			enum.CaseStatusOpen, enum.CaseStatusUnderReview,
			enum.AppealStatusPending, enum.AppealStatusUnderReview,
		).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			DROP INDEX IF EXISTS idx_moderation_cases_open_subject;
			DROP INDEX IF EXISTS idx_moderation_cases_subject;
			DROP INDEX IF EXISTS idx_moderation_cases_opened_at;
			DROP INDEX IF EXISTS idx_case_history_entries_case;
			DROP INDEX IF EXISTS idx_moderation_audit_logs_actor_time;
			DROP INDEX IF EXISTS idx_moderation_audit_logs_target_time;
			DROP INDEX IF EXISTS idx_moderation_audit_logs_time;
			DROP INDEX IF EXISTS idx_enforcement_appeals_open_case;
			DROP INDEX IF EXISTS idx_rogue_moderator_detections_moderator;
			DROP INDEX IF EXISTS idx_trust_profiles_updated;
			DROP INDEX IF EXISTS idx_content_reports_reported_time;
			DROP INDEX IF EXISTS idx_user_roles_roles;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop indexes: %w", err)
		}

		return nil
	})
}
