package types

import (
	"time"

	"github.com/robalyx/warden/internal/database/types/enum"
)

// ModerationAuditLog is an append-only record of a moderator action.
// Entries are only ever edited to mark a reversal.
type ModerationAuditLog struct {
	ID           string          `bun:",pk"`
	ActorID      string          `bun:",notnull"`
	ActorLevel   int             `bun:",notnull"`
	TargetUserID string          `bun:",notnull"`
	ActionType   enum.ActionType `bun:",notnull"`
	Reversible   bool            `bun:",notnull"`
	Restrictive  bool            `bun:",notnull"` // Whether the action limited the target
	CaseID       string          `bun:",nullzero"`
	Details      map[string]any  `bun:",type:jsonb"`
	CreatedAt    time.Time       `bun:",notnull"`
	ReversedAt   *time.Time      `bun:",nullzero"`
	ReversedBy   string          `bun:",nullzero"`
}

// IsReversed checks if the action has been reversed.
func (l *ModerationAuditLog) IsReversed() bool {
	return l.ReversedAt != nil
}
