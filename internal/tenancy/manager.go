// internal/tenancy/manager.go
package tenancy

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Manager hands out one resolver per signed-in user and keeps it for the
// lifetime of the process. Membership changes made through the API call
// Invalidate so the affected user's resolver re-validates on next use.
type Manager struct {
	source MembershipSource
	store  SelectionStore
	logger *slog.Logger

	mu        sync.Mutex
	resolvers map[uuid.UUID]*Resolver
}

func NewManager(source MembershipSource, store SelectionStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		source:    source,
		store:     store,
		logger:    logger,
		resolvers: map[uuid.UUID]*Resolver{},
	}
}

// Resolver returns the resolver for userID, loading membership state on first
// use.
func (m *Manager) Resolver(ctx context.Context, userID uuid.UUID) (*Resolver, error) {
	m.mu.Lock()
	r, ok := m.resolvers[userID]
	if !ok {
		r = NewResolver(userID, m.source, m.store, m.logger)
		m.resolvers[userID] = r
	}
	m.mu.Unlock()

	if !r.Loaded() {
		if err := r.Load(ctx); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Invalidate forces a refresh of the user's resolver the next time membership
// state matters. Called after invites are accepted, roles change, or members
// are removed.
func (m *Manager) Invalidate(ctx context.Context, userID uuid.UUID) {
	m.mu.Lock()
	r, ok := m.resolvers[userID]
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := r.Refresh(ctx); err != nil {
		m.logger.Warn("refreshing tenancy resolver", "user_id", userID, "error", err)
	}
}

// Drop removes the user's resolver entirely, e.g. on sign-out.
func (m *Manager) Drop(userID uuid.UUID) {
	m.mu.Lock()
	delete(m.resolvers, userID)
	m.mu.Unlock()
}
