package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/liminalhq/liminal/internal/access"
)

func TestRoleCapabilityNesting(t *testing.T) {
	viewer := access.CapabilitiesFor(access.RoleViewer)
	member := access.CapabilitiesFor(access.RoleMember)
	admin := access.CapabilitiesFor(access.RoleAdmin)
	owner := access.CapabilitiesFor(access.RoleOwner)

	// Each role holds everything the role below it holds.
	assert.True(t, member.ContainsAll(viewer))
	assert.True(t, admin.ContainsAll(member))
	assert.True(t, owner.ContainsAll(admin))

	// And strictly more.
	assert.Greater(t, len(member), len(viewer))
	assert.Greater(t, len(admin), len(member))
	assert.Greater(t, len(owner), len(admin))
}

func TestRoleCapabilityBoundaries(t *testing.T) {
	tests := []struct {
		role       access.Role
		capability access.Capability
		want       bool
	}{
		{access.RoleViewer, access.CapViewEntries, true},
		{access.RoleViewer, access.CapCreateEntry, false},
		{access.RoleMember, access.CapCreateEntry, true},
		{access.RoleMember, access.CapUpdateEntry, true},
		{access.RoleMember, access.CapDeleteEntry, false},
		{access.RoleMember, access.CapManageBilling, false},
		{access.RoleAdmin, access.CapDeleteEntry, true},
		{access.RoleAdmin, access.CapManageMembers, true},
		{access.RoleAdmin, access.CapDeleteTemplate, true},
		{access.RoleAdmin, access.CapManageBilling, false},
		{access.RoleAdmin, access.CapDeleteOrganization, false},
		{access.RoleOwner, access.CapManageBilling, true},
		{access.RoleOwner, access.CapDeleteOrganization, true},
	}

	for _, tt := range tests {
		got := access.CapabilitiesFor(tt.role).Has(tt.capability)
		assert.Equal(t, tt.want, got, "%s / %s", tt.role, tt.capability)
	}
}

func TestUnknownRoleHasNoCapabilities(t *testing.T) {
	caps := access.CapabilitiesFor(access.Role("superuser"))
	assert.Empty(t, caps)
	assert.False(t, caps.Has(access.CapViewEntries))
}

func TestParseRole(t *testing.T) {
	role, ok := access.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, access.RoleAdmin, role)

	_, ok = access.ParseRole("Admin")
	assert.False(t, ok)

	_, ok = access.ParseRole("")
	assert.False(t, ok)
}
