package domain

import "fmt"

// Role is the closed set of product identity roles. Anything outside the set
// is rejected at the boundary rather than stored.
type Role string

const (
	RoleParent Role = "parent"
	RoleAdmin  Role = "admin"
	RoleChild  Role = "child"
)

// ParseRole validates a raw role string against the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleParent, RoleAdmin, RoleChild:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }

// StaffRole is the closed set of staff identity roles. Staff roles are a
// separate enumeration from product roles so neither set can leak into the
// other's token claims.
type StaffRole string

const (
	StaffRoleAdmin     StaffRole = "admin"
	StaffRoleSupport   StaffRole = "support"
	StaffRoleModerator StaffRole = "moderator"
)

// ParseStaffRole validates a raw staff role string against the closed set.
func ParseStaffRole(s string) (StaffRole, error) {
	switch StaffRole(s) {
	case StaffRoleAdmin, StaffRoleSupport, StaffRoleModerator:
		return StaffRole(s), nil
	default:
		return "", fmt.Errorf("unknown staff role %q", s)
	}
}

func (r StaffRole) String() string { return string(r) }
