// internal/scope/scope.go

// Package scope builds the visibility filter applied to every entry read and
// write. The filter logic is invariant across entry kinds: personal mode sees
// only the user's unshared rows; organization mode sees the organization's
// shared rows plus the user's own personal rows. An invalid context (revoked
// membership) produces a filter matching nothing, never an unscoped one.
package scope

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/liminalhq/liminal/internal/model"
	"github.com/liminalhq/liminal/internal/tenancy"
)

// Filter is the predicate restricting which rows a query may return or write.
// It is plain data so the scoping rules can be tested without a database.
type Filter struct {
	OwnerID        uuid.UUID
	OrganizationID *uuid.UUID // non-nil in organization mode
	None           bool       // fail-closed: matches nothing
}

// Personal scopes to the user's own rows with no organization.
func Personal(ownerID uuid.UUID) Filter {
	return Filter{OwnerID: ownerID}
}

// Organization scopes to the organization's shared rows, plus the user's own
// personal rows.
func Organization(ownerID, orgID uuid.UUID) Filter {
	return Filter{OwnerID: ownerID, OrganizationID: &orgID}
}

// Empty matches nothing. Used when the context references an organization the
// user is no longer a member of.
func Empty(ownerID uuid.UUID) Filter {
	return Filter{OwnerID: ownerID, None: true}
}

// ForContext derives the filter for the given tenancy context. member reports
// whether the user still holds a live membership in the context's
// organization; without it the filter fails closed.
func ForContext(ownerID uuid.UUID, tctx tenancy.Context, member bool) Filter {
	orgID, ok := tctx.OrganizationID()
	if !ok {
		return Personal(ownerID)
	}
	if !member {
		return Empty(ownerID)
	}
	return Organization(ownerID, orgID)
}

// Apply attaches the filter's WHERE clause to a query.
func (f Filter) Apply(db *gorm.DB) *gorm.DB {
	if f.None {
		// WHERE FALSE, not WHERE TRUE: fail-closed.
		return db.Where("1 = 0")
	}
	if f.OrganizationID != nil {
		return db.Where(
			"organization_id = ? OR (user_id = ? AND organization_id IS NULL)",
			*f.OrganizationID, f.OwnerID,
		)
	}
	return db.Where("user_id = ? AND organization_id IS NULL", f.OwnerID)
}

// Stamp sets the tenancy columns on a new entry: writes in personal mode
// always record a nil organization, writes in organization mode always record
// the scoped organization.
func (f Filter) Stamp(e model.Entry) {
	e.SetTenant(f.OwnerID, f.OrganizationID)
}

// Writable reports whether the filter permits writes at all.
func (f Filter) Writable() bool {
	return !f.None
}

// Matches reports whether an entry row falls inside the filter. Mirrors Apply
// for in-memory checks (realtime events, tests).
func (f Filter) Matches(e model.Entry) bool {
	if f.None {
		return false
	}
	org := e.OrgID()
	if f.OrganizationID != nil && org != nil {
		return *org == *f.OrganizationID
	}
	return org == nil && e.OwnerID() == f.OwnerID
}
