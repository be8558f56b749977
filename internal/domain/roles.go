package domain

// Role is the resolved identity class of an authenticated caller.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Capability names an operation class gated at the dispatch boundary.
// Gating is a predicate on (role, capability) rather than per-menu role
// branches, so adding a role later does not touch the handlers.
type Capability string

const (
	CapManageCatalog     Capability = "manage_catalog"
	CapManageMemberships Capability = "manage_memberships"
	CapManageUsers       Capability = "manage_users"
	CapCirculate         Capability = "circulate"
	CapViewReports       Capability = "view_reports"
)

// Allows reports whether the role may perform operations of the given
// capability. Admins hold every capability; users hold circulation and
// reporting only.
func (r Role) Allows(c Capability) bool {
	if r == RoleAdmin {
		return true
	}
	if r != RoleUser {
		return false
	}
	switch c {
	case CapCirculate, CapViewReports:
		return true
	default:
		return false
	}
}
