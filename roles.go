package identity

// Role is the account's role
type Role = string

const (
	// RoleClient is the default role assigned at registration
	RoleClient Role = "client"
	// RoleAdmin is a privileged role for administrative operations
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r Role) bool {
	switch r {
	case RoleClient, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, IsValidRole(role)
}

// RoleIn is a pure membership check over an allowed role set. It never
// touches transport constructs; callers decide what denial means.
func RoleIn(role Role, allowed ...Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{RoleClient, RoleAdmin}
}
