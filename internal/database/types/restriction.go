package types

import (
	"time"

	"github.com/robalyx/warden/internal/database/types/enum"
)

// VisibilityRestriction is the current discoverability restriction for a user.
type VisibilityRestriction struct {
	UserID    string              `bun:",pk"`
	Tier      enum.VisibilityTier `bun:",notnull"`
	AppliedBy string              `bun:",notnull"` // "AUTO" or the moderator ID
	Automatic bool                `bun:",notnull"`
	AppliedAt time.Time           `bun:",notnull"`
	ExpiresAt *time.Time          `bun:",nullzero"` // Nil means it must be cleared by a human
}

// IsExpired checks if the restriction deadline has passed.
func (r *VisibilityRestriction) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// PostingRestriction is the current posting freeze for a user.
type PostingRestriction struct {
	UserID     string     `bun:",pk"`
	Restricted bool       `bun:",notnull"`
	AppliedBy  string     `bun:",notnull"`
	Automatic  bool       `bun:",notnull"`
	AppliedAt  time.Time  `bun:",notnull"`
	ExpiresAt  *time.Time `bun:",nullzero"`
}

// IsExpired checks if the restriction deadline has passed.
func (r *PostingRestriction) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}
