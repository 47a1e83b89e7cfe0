package users

// IsValidRole checks if the role is one of the predefined valid roles.
// RoleAnonymous is valid for policy evaluation but never persisted.
func IsValidRole(r Role) bool {
	switch r {
	case RoleAnonymous, RoleAuthenticated, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAssignableRole checks if the role may be stored on an account record.
func IsAssignableRole(r Role) bool {
	switch r {
	case RoleAuthenticated, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleIsAtLeast checks if the role meets the minimum required level
func RoleIsAtLeast(r, minRole Role) bool {
	roleHierarchy := map[Role]int{
		RoleAnonymous:     0,
		RoleAuthenticated: 1,
		RoleManager:       2,
		RoleAdmin:         3,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{
		RoleAnonymous,
		RoleAuthenticated,
		RoleManager,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, IsValidRole(role)
}
