package types

import (
	"slices"
	"time"

	"github.com/robalyx/warden/internal/database/types/enum"
)

// UserRoles holds the moderation roles granted to a user.
type UserRoles struct {
	UserID           string      `bun:",pk"`                 // User the roles belong to
	Roles            []enum.Role `bun:",type:jsonb,notnull"` // Granted roles, order irrelevant
	GrantedBy        string      `bun:",notnull"`            // Admin who last changed the roles
	GrantedAt        time.Time   `bun:",notnull"`            // When the roles were first granted
	UpdatedAt        time.Time   `bun:",notnull"`            // When the roles were last changed
	SuspendedAt      *time.Time  `bun:",nullzero"`           // When the moderator was auto-suspended
	SuspensionReason string      `bun:",nullzero"`           // Why the moderator was suspended
	SuspensionCaseID string      `bun:",nullzero"`           // Case opened against the moderator
}

// Level returns the highest moderator level implied by the roles.
func (u *UserRoles) Level() int {
	if u == nil {
		return enum.LevelUser
	}

	level := enum.LevelUser
	for _, role := range u.Roles {
		level = max(level, role.Level())
	}
	return level
}

// HasRole checks if the role set contains the given role.
func (u *UserRoles) HasRole(role enum.Role) bool {
	return u != nil && slices.Contains(u.Roles, role)
}
