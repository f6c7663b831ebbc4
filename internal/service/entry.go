// internal/service/entry.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/liminalhq/liminal/internal/access"
	"github.com/liminalhq/liminal/internal/cache"
	"github.com/liminalhq/liminal/internal/domain"
	"github.com/liminalhq/liminal/internal/model"
	"github.com/liminalhq/liminal/internal/repository"
	"github.com/liminalhq/liminal/internal/scope"
	"github.com/liminalhq/liminal/internal/tenancy"
)

// EntryService runs every journal read and write through the same pipeline:
// capability check, scope filter, store, cache. The pipeline is identical for
// all six kinds.
type EntryService struct {
	stores  map[model.Kind]repository.EntryStore
	orgRepo repository.OrganizationRepositoryIface
	tenants *tenancy.Manager
	cache   *cache.InMemoryCache
}

func NewEntryService(
	stores map[model.Kind]repository.EntryStore,
	orgRepo repository.OrganizationRepositoryIface,
	tenants *tenancy.Manager,
	entryCache *cache.InMemoryCache,
) *EntryService {
	return &EntryService{
		stores:  stores,
		orgRepo: orgRepo,
		tenants: tenants,
		cache:   entryCache,
	}
}

func (s *EntryService) store(kind model.Kind) (repository.EntryStore, error) {
	st, ok := s.stores[kind]
	if !ok {
		return nil, domain.ErrUnknownEntryKind
	}
	return st, nil
}

// scopeFor derives the filter for the resolver's current context, together
// with the epoch it was built under. The membership backing an organization
// context is re-read from the database on every call: a membership revoked
// mid-session must collapse the filter to the empty set, not widen it.
func (s *EntryService) scopeFor(ctx context.Context, r *tenancy.Resolver, userID uuid.UUID) (scope.Filter, uint64, error) {
	current, epoch := r.Current()
	orgID, ok := current.OrganizationID()
	if !ok {
		return scope.Personal(userID), epoch, nil
	}

	_, err := s.orgRepo.FindMembership(ctx, orgID, userID)
	switch {
	case err == nil:
		return scope.Organization(userID, orgID), epoch, nil
	case errors.Is(err, domain.ErrMembershipNotFound):
		// Fail closed now; let the resolver catch up in the background.
		s.tenants.Invalidate(ctx, userID)
		return scope.Empty(userID), epoch, nil
	default:
		return scope.Filter{}, 0, err
	}
}

func (s *EntryService) check(r *tenancy.Resolver, capability access.Capability) error {
	switch access.NewEvaluator(r).Check(capability) {
	case access.Loading:
		return domain.ErrTenancyNotReady
	case access.Denied:
		return domain.ErrUnauthorized
	}
	return nil
}

func listCacheKey(kind model.Kind, userID uuid.UUID, epoch uint64) string {
	return fmt.Sprintf("entries:%s:%s:%d", kind, userID, epoch)
}

// List returns the entries visible under the caller's current tenancy
// context. Results carry the epoch they were queried under; if the context
// switched while the query was in flight the stale result is discarded and
// the query re-run against the new context.
func (s *EntryService) List(ctx context.Context, userID uuid.UUID, kind model.Kind) ([]model.Entry, error) {
	st, err := s.store(kind)
	if err != nil {
		return nil, err
	}
	r, err := s.tenants.Resolver(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.check(r, access.CapViewEntries); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, epoch, err := s.scopeFor(ctx, r, userID)
		if err != nil {
			return nil, err
		}

		key := listCacheKey(kind, userID, epoch)
		if cached, ok := s.cache.Get(ctx, key); ok {
			if rows, ok := cached.([]model.Entry); ok {
				return rows, nil
			}
		}

		rows, err := st.List(ctx, f)
		if err != nil {
			return nil, err
		}
		if !r.StillCurrent(epoch) {
			// Context switched under us: this result belongs to the
			// old scope and must not be cached or returned as the
			// new scope's data.
			continue
		}
		s.cache.Set(ctx, key, rows)
		return rows, nil
	}
	return nil, domain.ErrStaleContext
}

// Get returns one visible entry.
func (s *EntryService) Get(ctx context.Context, userID uuid.UUID, kind model.Kind, id uuid.UUID) (model.Entry, error) {
	st, err := s.store(kind)
	if err != nil {
		return nil, err
	}
	r, err := s.tenants.Resolver(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.check(r, access.CapViewEntries); err != nil {
		return nil, err
	}

	f, _, err := s.scopeFor(ctx, r, userID)
	if err != nil {
		return nil, err
	}
	return st.Find(ctx, f, id)
}

// Create inserts a new entry stamped for the caller's current context:
// personal mode writes a nil organization, organization mode writes the
// scoped organization. Client-supplied tenancy columns are ignored.
func (s *EntryService) Create(ctx context.Context, userID uuid.UUID, kind model.Kind, body []byte) (model.Entry, error) {
	st, err := s.store(kind)
	if err != nil {
		return nil, err
	}
	r, err := s.tenants.Resolver(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.check(r, access.CapCreateEntry); err != nil {
		return nil, err
	}

	e, err := model.NewEntry(kind)
	if err != nil {
		return nil, err
	}
	if err := applyPatch(e, body); err != nil {
		return nil, err
	}
	if err := model.ValidateMetadata(kind, e.Meta()); err != nil {
		return nil, err
	}

	f, epoch, err := s.scopeFor(ctx, r, userID)
	if err != nil {
		return nil, err
	}
	if !r.StillCurrent(epoch) {
		return nil, domain.ErrStaleContext
	}
	if err := st.Create(ctx, f, e); err != nil {
		return nil, err
	}

	s.invalidate(ctx, kind)
	return e, nil
}

// Update patches a visible entry. The identity and tenancy columns cannot be
// changed through a patch; an entry keeps the scope it was created in.
func (s *EntryService) Update(ctx context.Context, userID uuid.UUID, kind model.Kind, id uuid.UUID, body []byte) (model.Entry, error) {
	st, err := s.store(kind)
	if err != nil {
		return nil, err
	}
	r, err := s.tenants.Resolver(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.check(r, access.CapUpdateEntry); err != nil {
		return nil, err
	}

	f, _, err := s.scopeFor(ctx, r, userID)
	if err != nil {
		return nil, err
	}
	e, err := st.Find(ctx, f, id)
	if err != nil {
		return nil, err
	}

	if err := applyPatch(e, body); err != nil {
		return nil, err
	}
	if err := model.ValidateMetadata(kind, e.Meta()); err != nil {
		return nil, err
	}
	if err := st.Save(ctx, e); err != nil {
		return nil, err
	}

	s.invalidate(ctx, kind)
	return e, nil
}

// Delete removes a visible entry.
func (s *EntryService) Delete(ctx context.Context, userID uuid.UUID, kind model.Kind, id uuid.UUID) error {
	st, err := s.store(kind)
	if err != nil {
		return err
	}
	r, err := s.tenants.Resolver(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.check(r, access.CapDeleteEntry); err != nil {
		return err
	}

	f, _, err := s.scopeFor(ctx, r, userID)
	if err != nil {
		return err
	}
	if err := st.Delete(ctx, f, id); err != nil {
		return err
	}

	s.invalidate(ctx, kind)
	return nil
}

// invalidate drops every cached list for the kind. Coarse, and idempotent:
// replayed realtime events hit already-empty keys.
func (s *EntryService) invalidate(ctx context.Context, kind model.Kind) {
	s.cache.DeletePrefix(ctx, "entries:"+string(kind)+":")
}

// InvalidateTable is the realtime hook: a change event on a table drops its
// cached lists.
func (s *EntryService) InvalidateTable(ctx context.Context, table string) {
	if kind, ok := model.ParseKind(table); ok {
		s.invalidate(ctx, kind)
	}
}

// applyPatch decodes a JSON body onto an entry, discarding the columns a
// client must never set directly.
func applyPatch(e model.Entry, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(raw, &patch); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	delete(patch, "id")
	delete(patch, "user_id")
	delete(patch, "organization_id")
	delete(patch, "created_at")
	delete(patch, "updated_at")

	cleaned, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := json.Unmarshal(cleaned, e); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}
