package enum

// Role is a moderation role granted to a user.
type Role string

const (
	RoleUser         Role = "user"
	RoleCommunityMod Role = "community_mod"
	RoleTrustedMod   Role = "trusted_mod"
	RoleAdmin        Role = "admin"
)

// Moderator levels implied by each role.
const (
	LevelUser         = 0
	LevelCommunityMod = 1
	LevelTrustedMod   = 2
	LevelAdmin        = 3
)

// Level returns the moderator level implied by the role.
// Unknown roles carry no privileges.
func (r Role) Level() int {
	switch r {
	case RoleCommunityMod:
		return LevelCommunityMod
	case RoleTrustedMod:
		return LevelTrustedMod
	case RoleAdmin:
		return LevelAdmin
	case RoleUser:
		return LevelUser
	default:
		return LevelUser
	}
}

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleCommunityMod, RoleTrustedMod, RoleAdmin:
		return true
	default:
		return false
	}
}

// ModeratorRoles lists every role with a level above plain user.
var ModeratorRoles = []Role{RoleCommunityMod, RoleTrustedMod, RoleAdmin}
