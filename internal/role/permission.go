// Package role maps user roles to moderator levels and authorizes moderator actions.
package role

import (
	"errors"
	"fmt"

	"github.com/robalyx/warden/internal/database/types/enum"
)

var (
	// ErrInsufficientLevel is returned when an actor's level is below what an action requires.
	ErrInsufficientLevel = errors.New("insufficient moderator level")
	// ErrUnknownAction is returned when an action type has no permission entry.
	ErrUnknownAction = errors.New("unknown action type")
	// ErrInvalidRole is returned when a role assignment contains an unknown role.
	ErrInvalidRole = errors.New("invalid role")
)

// Permission describes who may perform an action and how the action is treated afterwards.
type Permission struct {
	MinLevel    int  // Lowest level allowed to perform the action
	Reversible  bool // Whether the audit entry can later be reversed
	Restrictive bool // Whether the action limits the target user
}

// Permissions is the static permission matrix.
var Permissions = map[enum.ActionType]Permission{ //nolint:gochecknoglobals // -
	enum.ActionFlagUser:                   {MinLevel: enum.LevelCommunityMod, Reversible: true, Restrictive: true},
	enum.ActionHideContent:                {MinLevel: enum.LevelCommunityMod, Reversible: true, Restrictive: true},
	enum.ActionApplyVisibilityRestriction: {MinLevel: enum.LevelTrustedMod, Reversible: true, Restrictive: true},
	enum.ActionApplyPostingRestriction:    {MinLevel: enum.LevelTrustedMod, Reversible: true, Restrictive: true},
	enum.ActionFullEnforcement:            {MinLevel: enum.LevelAdmin, Reversible: true, Restrictive: true},
	enum.ActionAssignCase:                 {MinLevel: enum.LevelTrustedMod},
	enum.ActionResolveCase:                {MinLevel: enum.LevelAdmin},
	enum.ActionEscalateCase:               {MinLevel: enum.LevelTrustedMod},
	enum.ActionClaimAppeal:                {MinLevel: enum.LevelAdmin},
	enum.ActionReviewAppeal:               {MinLevel: enum.LevelAdmin},
	enum.ActionSubmitAppeal:               {MinLevel: enum.LevelUser},
	enum.ActionAssignRole:                 {MinLevel: enum.LevelAdmin},
	enum.ActionRequestSuspension:          {MinLevel: enum.LevelAdmin, Restrictive: true},
	enum.ActionApproveSuspension:          {MinLevel: enum.LevelAdmin, Restrictive: true},
	enum.ActionReverseAction:              {MinLevel: enum.LevelTrustedMod},
	enum.ActionLiftRestriction:            {MinLevel: enum.LevelTrustedMod},
}

// LevelOf returns the highest level implied by a set of roles.
func LevelOf(roles []enum.Role) int {
	level := enum.LevelUser
	for _, r := range roles {
		level = max(level, r.Level())
	}
	return level
}

// Lookup returns the permission entry for an action type.
func Lookup(action enum.ActionType) (Permission, bool) {
	p, ok := Permissions[action]
	return p, ok
}

// Can checks if the level is allowed to perform the action.
// Unknown actions are never allowed.
func Can(level int, action enum.ActionType) bool {
	p, ok := Permissions[action]
	return ok && level >= p.MinLevel
}

// Require returns an error wrapping ErrInsufficientLevel when the level cannot perform the action.
func Require(level int, action enum.ActionType) error {
	p, ok := Permissions[action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	if level < p.MinLevel {
		return fmt.Errorf("%w: %s requires level %d, have %d", ErrInsufficientLevel, action, p.MinLevel, level)
	}
	return nil
}

// RequireLevel returns an error wrapping ErrInsufficientLevel when level is below minLevel.
func RequireLevel(level, minLevel int) error {
	if level < minLevel {
		return fmt.Errorf("%w: requires level %d, have %d", ErrInsufficientLevel, minLevel, level)
	}
	return nil
}
