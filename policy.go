package users

// Operation identifies an account-management action subject to policy.
type Operation string

const (
	OpCreateUser       Operation = "create_user"
	OpReadUser         Operation = "read_user"
	OpReadUserSelf     Operation = "read_user_self"
	OpListUsers        Operation = "list_users"
	OpUpdateUserField  Operation = "update_user_field"
	OpUpdateOwnProfile Operation = "update_own_profile"
	OpDeleteUser       Operation = "delete_user"
	OpPromoteUser      Operation = "promote_user"
	OpUnlockUser       Operation = "unlock_user"
)

// Policy is the pure role-based access decision table. It never looks at
// database state; the caller role is taken from the bearer token claims as
// issued, and ordering guarantees (401 before 403, 403 before 404) are
// enforced by the callers.
type Policy struct {
	rules map[Operation]map[Role]struct{}
	// selfScoped operations additionally require caller == target
	selfScoped map[Operation]struct{}
}

// NewPolicy returns the default decision table.
func NewPolicy() *Policy {
	adminOnly := map[Role]struct{}{RoleAdmin: {}}
	anyAuthenticated := map[Role]struct{}{
		RoleAuthenticated: {},
		RoleManager:       {},
		RoleAdmin:         {},
	}

	return &Policy{
		rules: map[Operation]map[Role]struct{}{
			OpCreateUser:      adminOnly,
			OpReadUser:        adminOnly,
			OpUpdateUserField: adminOnly,
			OpDeleteUser:      adminOnly,
			OpPromoteUser:     adminOnly,
			OpUnlockUser:      adminOnly,
			OpListUsers: {
				RoleManager: {},
				RoleAdmin:   {},
			},
			OpReadUserSelf:     anyAuthenticated,
			OpUpdateOwnProfile: anyAuthenticated,
		},
		selfScoped: map[Operation]struct{}{
			OpReadUserSelf:     {},
			OpUpdateOwnProfile: {},
		},
	}
}

// Can reports whether caller may perform op against target. Anonymous
// callers are denied every listed operation; registration and login have no
// policy entry because they happen before an identity exists.
func (p *Policy) Can(caller Role, callerID, targetID string, op Operation) bool {
	allowed, known := p.rules[op]
	if !known {
		return false
	}

	if _, ok := allowed[caller]; !ok {
		return false
	}

	if _, ok := p.selfScoped[op]; ok {
		return callerID != "" && callerID == targetID
	}

	return true
}

// Authorize converts a denial into the canonical forbidden error carrying
// the operation for the error payload.
func (p *Policy) Authorize(caller Role, callerID, targetID string, op Operation) error {
	if p.Can(caller, callerID, targetID, op) {
		return nil
	}
	return ErrOperationForbidden.WithMetadata(map[string]any{
		"operation": string(op),
		"role":      caller,
	})
}
