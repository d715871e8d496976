package types

import (
	"fmt"
	"strings"
)

// Role is one of the fixed authorization categories of the platform.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleCashier    Role = "cashier"
	RoleSecretary  Role = "secretary"
	RoleTeacher    Role = "teacher"
	RoleAuditor    Role = "auditor"
)

var knownRoles = map[Role]struct{}{
	RoleSuperAdmin: {},
	RoleAdmin:      {},
	RoleAccountant: {},
	RoleCashier:    {},
	RoleSecretary:  {},
	RoleTeacher:    {},
	RoleAuditor:    {},
}

// AllRoles returns every known role in declaration order.
func AllRoles() []Role {
	return []Role{
		RoleSuperAdmin,
		RoleAdmin,
		RoleAccountant,
		RoleCashier,
		RoleSecretary,
		RoleTeacher,
		RoleAuditor,
	}
}

// ParseRole normalizes a role identifier and rejects unknown values.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	role = Role(strings.ReplaceAll(string(role), "-", "_"))
	if _, ok := knownRoles[role]; !ok {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}
