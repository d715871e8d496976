package rbac

import (
	"slices"

	"github.com/schooldesk/console/types"
)

// Route keys of the permission table. They double as the first path
// segment of the matching console pages.
const (
	KeyDashboard = "dashboard"
	KeyParents   = "parents"
	KeySuppliers = "suppliers"
	KeyReceipts  = "receipts"
	KeySites     = "sites"
	KeyProfile   = "profile"
)

// table maps a route key to the roles allowed to open it.
// A missing or empty entry means every authenticated role.
var table = map[string][]types.Role{
	KeyDashboard: nil,
	KeyProfile:   nil,
	KeyParents:   {types.RoleSuperAdmin, types.RoleAdmin, types.RoleSecretary, types.RoleCashier},
	KeySuppliers: {types.RoleSuperAdmin, types.RoleAdmin, types.RoleAccountant, types.RoleAuditor},
	KeyReceipts:  {types.RoleSuperAdmin, types.RoleAdmin, types.RoleAccountant, types.RoleAuditor},
	KeySites:     {types.RoleSuperAdmin},
}

// HasRole reports whether role may access something restricted to allowed.
// An empty allowed set means no restriction. A nil role never passes a
// restriction.
func HasRole(role *types.Role, allowed []types.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	if role == nil {
		return false
	}
	return slices.Contains(allowed, *role)
}

// RolesFor returns a copy of the roles allowed for a route key.
func RolesFor(key string) []types.Role {
	return slices.Clone(table[key])
}

// Allowed reports whether role may open the route identified by key.
func Allowed(key string, role *types.Role) bool {
	return HasRole(role, table[key])
}

// FilterMenu returns the subset of nodes visible to role. The result is a
// new tree: sibling order is preserved and the input is not modified.
// Groups whose children are all filtered out are kept with no children.
func FilterMenu(nodes []types.MenuNode, role *types.Role) []types.MenuNode {
	out := make([]types.MenuNode, 0, len(nodes))
	for _, node := range nodes {
		if !HasRole(role, node.Roles) {
			continue
		}
		kept := node
		kept.Roles = slices.Clone(node.Roles)
		if node.Children != nil {
			kept.Children = FilterMenu(node.Children, role)
		}
		out = append(out, kept)
	}
	return out
}
