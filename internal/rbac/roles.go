package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	// RoleAdmin manages the organisation's standing questions and corrects records.
	RoleAdmin = "admin"
	// RoleAnalyst reads records, reports and chats about calls.
	RoleAnalyst = "analyst"
	// RoleAgent uploads call audio.
	RoleAgent      = "agent"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// IsKnown reports whether role is one of the defined roles.
func IsKnown(role string) bool {
	switch role {
	case RoleAdmin, RoleAnalyst, RoleAgent, RoleSuperAdmin:
		return true
	}
	return false
}
