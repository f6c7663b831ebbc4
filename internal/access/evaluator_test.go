package access_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/liminalhq/liminal/internal/access"
)

// fakeSource is a hand-rolled ContextSource for evaluator tests.
type fakeSource struct {
	loaded bool
	orgID  *uuid.UUID
	roles  map[uuid.UUID]access.Role
}

func (f *fakeSource) Loaded() bool { return f.loaded }

func (f *fakeSource) CurrentOrganization() (uuid.UUID, bool) {
	if f.orgID == nil {
		return uuid.Nil, false
	}
	return *f.orgID, true
}

func (f *fakeSource) RoleFor(orgID uuid.UUID) (access.Role, bool) {
	role, ok := f.roles[orgID]
	return role, ok
}

func TestEvaluatorLoading(t *testing.T) {
	e := access.NewEvaluator(&fakeSource{loaded: false})

	assert.Equal(t, access.Loading, e.Check(access.CapViewEntries))
	assert.Equal(t, access.Loading, e.Check(access.CapManageBilling))
}

func TestEvaluatorPersonalModeGrantsEverything(t *testing.T) {
	e := access.NewEvaluator(&fakeSource{loaded: true})

	for _, c := range []access.Capability{
		access.CapViewEntries,
		access.CapCreateEntry,
		access.CapDeleteEntry,
		access.CapManageMembers,
		access.CapManageBilling,
		access.CapDeleteOrganization,
	} {
		assert.Equal(t, access.Granted, e.Check(c), "%s", c)
	}
}

func TestEvaluatorOrganizationModeUsesMatrix(t *testing.T) {
	orgID := uuid.New()
	src := &fakeSource{
		loaded: true,
		orgID:  &orgID,
		roles:  map[uuid.UUID]access.Role{orgID: access.RoleMember},
	}
	e := access.NewEvaluator(src)

	assert.Equal(t, access.Granted, e.Check(access.CapViewEntries))
	assert.Equal(t, access.Granted, e.Check(access.CapCreateEntry))
	assert.Equal(t, access.Denied, e.Check(access.CapDeleteEntry))

	// A member lacks billing in the organization context even though the
	// same user holds every capability over their personal data.
	assert.Equal(t, access.Denied, e.Check(access.CapManageBilling))

	src.orgID = nil
	assert.Equal(t, access.Granted, e.Check(access.CapManageBilling))
}

func TestEvaluatorMissingMembershipDenies(t *testing.T) {
	orgID := uuid.New()
	src := &fakeSource{loaded: true, orgID: &orgID, roles: map[uuid.UUID]access.Role{}}
	e := access.NewEvaluator(src)

	assert.Equal(t, access.Denied, e.Check(access.CapViewEntries))
}

func TestEvaluatorCombinators(t *testing.T) {
	orgID := uuid.New()
	src := &fakeSource{
		loaded: true,
		orgID:  &orgID,
		roles:  map[uuid.UUID]access.Role{orgID: access.RoleViewer},
	}
	e := access.NewEvaluator(src)

	assert.Equal(t, access.Granted, e.HasAny(access.CapManageBilling, access.CapViewEntries))
	assert.Equal(t, access.Denied, e.HasAny(access.CapManageBilling, access.CapDeleteEntry))
	assert.Equal(t, access.Denied, e.HasAll(access.CapViewEntries, access.CapCreateEntry))
	assert.Equal(t, access.Granted, e.HasAll(access.CapViewEntries))

	// Loading wins over Denied so callers keep waiting.
	src.loaded = false
	assert.Equal(t, access.Loading, e.HasAny(access.CapViewEntries, access.CapManageBilling))
	assert.Equal(t, access.Loading, e.HasAll(access.CapViewEntries))
}
