package gatekeeper

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a Role, defaulting empty input to
// RoleUser the way the registration API does
func ParseRole(roleStr string) (Role, bool) {
	if roleStr == "" {
		return RoleUser, true
	}
	role := Role(roleStr)
	return role, IsValidRole(role)
}

// AllRoles returns the predefined roles
func AllRoles() []Role {
	return []Role{RoleUser, RoleAdmin}
}
