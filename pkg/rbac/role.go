// Package rbac holds the closed role set for organization memberships and
// the fixed permission table evaluated against it.
package rbac

import "strings"

// Role is a membership role. The zero value is not a valid role.
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleSeller  Role = "SELLER"
)

// Roles lists every valid role from highest to lowest privilege.
var Roles = []Role{RoleOwner, RoleAdmin, RoleManager, RoleSeller}

// ParseRole maps a stored or client supplied value onto the closed set.
// Matching is case-insensitive; anything else reports false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if r.Valid() {
		return r, true
	}
	return "", false
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleSeller:
		return true
	}
	return false
}

// Rank orders roles by privilege, OWNER highest. Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleSeller:
		return 1
	}
	return 0
}

func (r Role) String() string { return string(r) }
