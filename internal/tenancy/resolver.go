// internal/tenancy/resolver.go
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/liminalhq/liminal/internal/access"
	"github.com/liminalhq/liminal/internal/domain"
	"github.com/liminalhq/liminal/internal/model"
)

// MembershipSource provides the membership data a resolver validates against.
type MembershipSource interface {
	MembershipsByUser(ctx context.Context, userID uuid.UUID) ([]model.Membership, error)
	OrganizationsByUser(ctx context.Context, userID uuid.UUID) ([]model.Organization, error)
}

// SelectionStore persists the current organization selection per user so it
// survives reload. Persistence is best-effort: a failed save never fails a
// switch.
type SelectionStore interface {
	Load(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
	Save(ctx context.Context, userID uuid.UUID, organizationID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Resolver owns the mutable tenancy state for one signed-in user: the current
// context and the membership list it was validated against. All mutation goes
// through its methods; callers never touch the state directly.
//
// Every successful switch bumps the epoch. Async results captured under an
// older epoch must be discarded by their callers (see StillCurrent).
type Resolver struct {
	userID uuid.UUID
	source MembershipSource
	store  SelectionStore
	logger *slog.Logger

	mu          sync.Mutex
	loaded      bool
	current     Context
	epoch       uint64
	memberships map[uuid.UUID]model.Membership
}

func NewResolver(userID uuid.UUID, source MembershipSource, store SelectionStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		userID:      userID,
		source:      source,
		store:       store,
		logger:      logger,
		memberships: map[uuid.UUID]model.Membership{},
	}
}

// Load fetches the user's memberships and restores the persisted organization
// selection if it still maps to a live membership. A persisted selection that
// no longer validates falls back to personal mode silently; the stored key is
// cleared so the stale value is not retried forever.
func (r *Resolver) Load(ctx context.Context) error {
	memberships, err := r.source.MembershipsByUser(ctx, r.userID)
	if err != nil {
		return fmt.Errorf("loading memberships: %w", err)
	}

	selected, err := r.store.Load(ctx, r.userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		// Persistence is best-effort on the read side too: treat an
		// unreadable selection the same as no selection.
		r.logger.Warn("reading persisted tenancy selection", "user_id", r.userID, "error", err)
		selected = nil
	}

	r.mu.Lock()
	r.memberships = indexMemberships(memberships)
	r.loaded = true

	next := Personal()
	stale := false
	if selected != nil {
		if _, ok := r.memberships[*selected]; ok {
			next = Organization(*selected)
		} else {
			stale = true
		}
	}

	if !r.current.Equal(next) {
		r.current = next
		r.epoch++
	}
	r.mu.Unlock()

	// StaleContext: recovered by dropping to personal mode. The stored key is
	// cleared after releasing the lock so the write cannot stall readers.
	if stale {
		r.logger.Info("persisted tenancy selection no longer valid, falling back to personal",
			"user_id", r.userID, "organization_id", *selected)
		if err := r.store.Clear(ctx, r.userID); err != nil {
			r.logger.Warn("clearing stale tenancy selection", "user_id", r.userID, "error", err)
		}
	}
	return nil
}

// Refresh re-fetches memberships and re-validates the current context against
// the latest list. If the current organization membership was revoked the
// context drops to personal and the epoch advances.
func (r *Resolver) Refresh(ctx context.Context) error {
	memberships, err := r.source.MembershipsByUser(ctx, r.userID)
	if err != nil {
		return fmt.Errorf("refreshing memberships: %w", err)
	}

	r.mu.Lock()
	r.memberships = indexMemberships(memberships)
	r.loaded = true

	revoked := uuid.Nil
	if orgID, ok := r.current.OrganizationID(); ok {
		if _, member := r.memberships[orgID]; !member {
			r.current = Personal()
			r.epoch++
			revoked = orgID
		}
	}
	r.mu.Unlock()

	if revoked != uuid.Nil {
		r.logger.Info("membership revoked mid-session, dropping to personal",
			"user_id", r.userID, "organization_id", revoked)
		if err := r.store.Clear(ctx, r.userID); err != nil {
			r.logger.Warn("clearing revoked tenancy selection", "user_id", r.userID, "error", err)
		}
	}
	return nil
}

// Loaded reports whether membership data has been loaded at least once.
// Callers must treat an unloaded resolver as "loading", never as granted or
// denied.
func (r *Resolver) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Current returns the active context together with the epoch it belongs to.
func (r *Resolver) Current() (Context, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.epoch
}

// StillCurrent reports whether epoch is still the live epoch. Results of
// operations started under an older epoch must not be applied.
func (r *Resolver) StillCurrent(epoch uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch == epoch
}

// MembershipFor returns the user's membership in the given organization from
// the last loaded list.
func (r *Resolver) MembershipFor(orgID uuid.UUID) (model.Membership, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[orgID]
	return m, ok
}

// CurrentOrganization returns the scoped organization, or false in personal
// mode. Satisfies access.ContextSource.
func (r *Resolver) CurrentOrganization() (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.OrganizationID()
}

// RoleFor returns the user's role in the given organization from the last
// loaded membership list. Satisfies access.ContextSource.
func (r *Resolver) RoleFor(orgID uuid.UUID) (access.Role, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[orgID]
	if !ok {
		return "", false
	}
	return m.Role, true
}

// Switch changes the active context. A nil target selects personal mode and
// always succeeds. A non-nil target succeeds only if a membership exists for
// it; otherwise ErrNotAMember is returned and the context is unchanged.
//
// The selection is persisted after the lock is released: a slow store write
// must not block concurrent capability checks, and persistence is best-effort
// anyway.
func (r *Resolver) Switch(ctx context.Context, target *uuid.UUID) (Context, error) {
	r.mu.Lock()

	if !r.loaded {
		current := r.current
		r.mu.Unlock()
		return current, domain.ErrTenancyNotReady
	}

	next := Personal()
	if target != nil {
		if _, ok := r.memberships[*target]; !ok {
			current := r.current
			r.mu.Unlock()
			return current, domain.ErrNotAMember
		}
		next = Organization(*target)
	}

	if !r.current.Equal(next) {
		r.current = next
		r.epoch++
	}
	current := r.current
	r.mu.Unlock()

	if target == nil {
		if err := r.store.Clear(ctx, r.userID); err != nil {
			r.logger.Warn("clearing tenancy selection", "user_id", r.userID, "error", err)
		}
	} else if err := r.store.Save(ctx, r.userID, *target); err != nil {
		r.logger.Warn("persisting tenancy selection", "user_id", r.userID, "error", err)
	}
	return current, nil
}

// Organizations lists the organizations the user can switch into.
func (r *Resolver) Organizations(ctx context.Context) ([]model.Organization, error) {
	orgs, err := r.source.OrganizationsByUser(ctx, r.userID)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	return orgs, nil
}

func indexMemberships(list []model.Membership) map[uuid.UUID]model.Membership {
	out := make(map[uuid.UUID]model.Membership, len(list))
	for _, m := range list {
		out[m.OrganizationID] = m
	}
	return out
}
