package users_test

import (
	"testing"

	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
)

func TestIsValidRole(t *testing.T) {
	for _, role := range users.GetAllRoles() {
		assert.True(t, users.IsValidRole(role), "expected %s to be valid", role)
	}

	assert.False(t, users.IsValidRole("SUPERADMIN"))
	assert.False(t, users.IsValidRole(""))
	assert.False(t, users.IsValidRole("admin"))
}

func TestIsAssignableRole(t *testing.T) {
	assert.True(t, users.IsAssignableRole(users.RoleAuthenticated))
	assert.True(t, users.IsAssignableRole(users.RoleManager))
	assert.True(t, users.IsAssignableRole(users.RoleAdmin))

	assert.False(t, users.IsAssignableRole(users.RoleAnonymous))
	assert.False(t, users.IsAssignableRole("OWNER"))
}

func TestRoleIsAtLeast(t *testing.T) {
	assert.True(t, users.RoleIsAtLeast(users.RoleAdmin, users.RoleManager))
	assert.True(t, users.RoleIsAtLeast(users.RoleManager, users.RoleManager))
	assert.True(t, users.RoleIsAtLeast(users.RoleAuthenticated, users.RoleAnonymous))

	assert.False(t, users.RoleIsAtLeast(users.RoleAuthenticated, users.RoleManager))
	assert.False(t, users.RoleIsAtLeast(users.RoleAnonymous, users.RoleAuthenticated))
	assert.False(t, users.RoleIsAtLeast("UNKNOWN", users.RoleAnonymous))
	assert.False(t, users.RoleIsAtLeast(users.RoleAdmin, "UNKNOWN"))
}

func TestParseRole(t *testing.T) {
	role, ok := users.ParseRole("MANAGER")
	assert.True(t, ok)
	assert.Equal(t, users.RoleManager, role)

	_, ok = users.ParseRole("manager")
	assert.False(t, ok)
}
