// internal/tenancy/context.go
package tenancy

import "github.com/google/uuid"

// Context is the active visibility scope a session operates under: personal
// mode, or a specific organization.
type Context struct {
	organizationID *uuid.UUID
}

// Personal returns the personal-mode context.
func Personal() Context {
	return Context{}
}

// Organization returns a context scoped to the given organization.
func Organization(id uuid.UUID) Context {
	return Context{organizationID: &id}
}

func (c Context) IsPersonal() bool {
	return c.organizationID == nil
}

// OrganizationID returns the scoped organization, or false in personal mode.
func (c Context) OrganizationID() (uuid.UUID, bool) {
	if c.organizationID == nil {
		return uuid.Nil, false
	}
	return *c.organizationID, true
}

func (c Context) Equal(o Context) bool {
	if c.organizationID == nil || o.organizationID == nil {
		return c.organizationID == nil && o.organizationID == nil
	}
	return *c.organizationID == *o.organizationID
}

func (c Context) String() string {
	if c.organizationID == nil {
		return "personal"
	}
	return c.organizationID.String()
}
