package models

// Role is the closed set of participant role tags the messaging core
// understands. Roles decide canonical slot assignment only; authorization
// lives with the identity service.
type Role string

const (
	RoleUnknown      Role = ""
	RoleFieldOfficer Role = "field_officer"
	RoleAreaOfficer  Role = "area_officer"
	RolePrincipal    Role = "principal"
	RoleBroadcaster  Role = "broadcaster"
)

// ParseRole maps a stored role tag to the enum. Unknown tags map to
// RoleUnknown rather than failing; the resolver treats those pairs with
// the fallback slot order.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleFieldOfficer, RoleAreaOfficer, RolePrincipal, RoleBroadcaster:
		return Role(s)
	default:
		return RoleUnknown
	}
}

func (r Role) String() string { return string(r) }
