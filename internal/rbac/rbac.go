// Package rbac maps roles to the capabilities they grant.
package rbac

import "secdash/internal/model"

// Capability names a protected area of the dashboard.
type Capability string

const (
	ViewSystemMetrics Capability = "sysinfo:view"
	UseCrypto         Capability = "crypto:use"
	ManageUsers       Capability = "users:manage"
	ViewAuditLog      Capability = "audit:view"
)

// All lists every capability in display order.
var All = []Capability{ViewSystemMetrics, UseCrypto, ManageUsers, ViewAuditLog}

var grants = map[model.Role][]Capability{
	model.RoleAdmin:  {ViewSystemMetrics, UseCrypto, ManageUsers, ViewAuditLog},
	model.RoleUser:   {ViewSystemMetrics, UseCrypto},
	model.RoleViewer: {},
}

// Allows reports whether role grants capability. Unknown roles grant nothing.
func Allows(role model.Role, capability Capability) bool {
	for _, c := range grants[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// Capabilities returns a fresh map with an entry for every capability.
func Capabilities(role model.Role) map[Capability]bool {
	caps := make(map[Capability]bool, len(All))
	for _, c := range All {
		caps[c] = Allows(role, c)
	}
	return caps
}

func (c Capability) String() string {
	return string(c)
}
