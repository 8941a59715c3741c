package auth

// Role represents a user role.
type Role string

const (
	// RoleViewer may read.
	RoleViewer Role = "viewer"
	// RoleMember acts as a landlord or tenant under its own subject.
	RoleMember Role = "member"
	// RoleOperator runs the platform.
	RoleOperator Role = "operator"
)

// NormalizeRole validates and normalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleViewer, RoleMember, RoleOperator:
		return Role(value), true
	default:
		return "", false
	}
}

// RoleAtLeast returns true when role satisfies required role.
func RoleAtLeast(role Role, required Role) bool {
	return roleRank(role) >= roleRank(required)
}

func roleRank(role Role) int {
	switch role {
	case RoleViewer:
		return 1
	case RoleMember:
		return 2
	case RoleOperator:
		return 3
	default:
		return 0
	}
}
