// internal/access/capability.go
package access

// Role is one of the four fixed organizational roles.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// ParseRole returns the role for s, or false for anything outside the fixed
// enumeration.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return Role(s), true
	}
	return "", false
}

// Capability is a single named permission checked independently of role names.
type Capability string

const (
	CapViewEntries        Capability = "view_entries"
	CapCreateEntry        Capability = "create_entry"
	CapUpdateEntry        Capability = "update_entry"
	CapDeleteEntry        Capability = "delete_entry"
	CapManageMembers      Capability = "manage_members"
	CapManageInvitations  Capability = "manage_invitations"
	CapManageOrganization Capability = "manage_organization"
	CapDeleteTemplate     Capability = "delete_template"
	CapManageBilling      Capability = "manage_billing"
	CapDeleteOrganization Capability = "delete_organization"
)

// CapabilitySet is an immutable set of capabilities.
type CapabilitySet map[Capability]struct{}

func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// ContainsAll reports whether s is a superset of other.
func (s CapabilitySet) ContainsAll(other CapabilitySet) bool {
	for c := range other {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

func newSet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

func (s CapabilitySet) with(caps ...Capability) CapabilitySet {
	out := make(CapabilitySet, len(s)+len(caps))
	for c := range s {
		out[c] = struct{}{}
	}
	for _, c := range caps {
		out[c] = struct{}{}
	}
	return out
}

// The matrix is a constant lookup table with strictly nested read/create/update
// capabilities: viewer < member < admin < owner. Billing and organization
// deletion are owner-only; template deletion is owner+admin.
var (
	viewerCaps = newSet(CapViewEntries)
	memberCaps = viewerCaps.with(CapCreateEntry, CapUpdateEntry)
	adminCaps  = memberCaps.with(
		CapDeleteEntry,
		CapManageMembers,
		CapManageInvitations,
		CapManageOrganization,
		CapDeleteTemplate,
	)
	ownerCaps = adminCaps.with(CapManageBilling, CapDeleteOrganization)

	matrix = map[Role]CapabilitySet{
		RoleViewer: viewerCaps,
		RoleMember: memberCaps,
		RoleAdmin:  adminCaps,
		RoleOwner:  ownerCaps,
	}
)

// CapabilitiesFor returns the fixed capability set for role. An unknown role
// yields the empty set: fail-closed.
func CapabilitiesFor(role Role) CapabilitySet {
	if s, ok := matrix[role]; ok {
		return s
	}
	return CapabilitySet{}
}
