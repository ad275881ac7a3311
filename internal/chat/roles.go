package chat

// Role is a participant's role inside a single chat. Roles are not ordered:
// each action carries an explicit allow-set instead of a numeric level.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// Allow-sets per action. An empty set means any participant may act.
var (
	CanManageMembers = []Role{RoleAdmin, RoleModerator}
	CanEditChat      = []Role{RoleAdmin, RoleModerator}
	CanDeleteChat    = []Role{RoleAdmin}
	CanChangeRoles   = []Role{RoleAdmin}
)

// Allowed reports whether r is contained in the allow-set.
// A nil or empty allow-set permits any participant.
func Allowed(r Role, allowed []Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
