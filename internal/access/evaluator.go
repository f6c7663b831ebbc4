// internal/access/evaluator.go
package access

import "github.com/google/uuid"

// Decision is the three-valued result of a capability check. Loading is
// distinct from Denied: callers must never treat an unloaded membership list
// as granted, nor as a hard denial.
type Decision int

const (
	Loading Decision = iota
	Denied
	Granted
)

func (d Decision) String() string {
	switch d {
	case Loading:
		return "loading"
	case Denied:
		return "denied"
	case Granted:
		return "granted"
	}
	return "unknown"
}

// ContextSource is the view of session tenancy state the evaluator needs.
// Implemented by tenancy.Resolver.
type ContextSource interface {
	// Loaded reports whether membership data is available yet.
	Loaded() bool
	// CurrentOrganization returns the scoped organization, or false in
	// personal mode.
	CurrentOrganization() (uuid.UUID, bool)
	// RoleFor returns the session user's role in the given organization.
	RoleFor(orgID uuid.UUID) (Role, bool)
}

// Evaluator answers capability checks for one session by combining the
// tenancy context with the role matrix. Checks are pure and re-evaluate on
// every call; the only state consulted is the source's current membership
// view.
type Evaluator struct {
	source ContextSource
}

func NewEvaluator(source ContextSource) *Evaluator {
	return &Evaluator{source: source}
}

// Check evaluates a single capability under the current tenancy context.
// Personal mode grants everything: the user is the sole owner of their own
// data. Organization mode resolves the membership role and consults the
// matrix; a missing membership denies.
func (e *Evaluator) Check(capability Capability) Decision {
	if !e.source.Loaded() {
		return Loading
	}

	orgID, ok := e.source.CurrentOrganization()
	if !ok {
		return Granted
	}

	role, ok := e.source.RoleFor(orgID)
	if !ok {
		// Covers the race where the membership was just revoked.
		return Denied
	}

	if CapabilitiesFor(role).Has(capability) {
		return Granted
	}
	return Denied
}

// HasAny grants if any of the capabilities is granted. Loading wins over
// Denied so callers keep waiting instead of mis-rendering a denial.
func (e *Evaluator) HasAny(capabilities ...Capability) Decision {
	result := Denied
	for _, c := range capabilities {
		switch e.Check(c) {
		case Granted:
			return Granted
		case Loading:
			result = Loading
		}
	}
	return result
}

// HasAll grants only if every capability is granted.
func (e *Evaluator) HasAll(capabilities ...Capability) Decision {
	for _, c := range capabilities {
		switch e.Check(c) {
		case Denied:
			return Denied
		case Loading:
			return Loading
		}
	}
	return Granted
}
