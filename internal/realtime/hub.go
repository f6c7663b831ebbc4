// internal/realtime/hub.go
package realtime

import (
	"log/slog"
	"sync"
)

// seenLimit bounds the per-subscription dedupe window. At-least-once
// redelivery happens close to the original delivery, so a small window is
// enough.
const seenLimit = 256

// Subscription receives events for one table on behalf of one session scope.
// It drops duplicates and anything its filter or liveness check rejects.
type Subscription struct {
	id      uint64
	table   string
	filter  func(Event) bool
	live    func() bool
	handler Handler

	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

func (s *Subscription) deliver(ev Event) {
	if s.live != nil && !s.live() {
		// Scope changed since subscribing; stale events must not touch
		// state for the new scope.
		return
	}
	if s.filter != nil && !s.filter(ev) {
		return
	}
	if s.duplicate(ev.ID) {
		return
	}
	s.handler(ev)
}

func (s *Subscription) duplicate(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return true
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) > seenLimit {
		delete(s.seen, s.order[0])
		s.order = s.order[1:]
	}
	return false
}

// Hub routes events to table subscriptions.
type Hub struct {
	logger *slog.Logger

	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]*Subscription
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger,
		subs:   map[string]map[uint64]*Subscription{},
	}
}

// Subscribe registers a handler for one table. filter narrows events (e.g. to
// the owning user); live reports whether the subscribing scope is still
// current, so events arriving after a tenancy switch are discarded. Either
// may be nil.
func (h *Hub) Subscribe(table string, filter func(Event) bool, live func() bool, handler Handler) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:      h.nextID,
		table:   table,
		filter:  filter,
		live:    live,
		handler: handler,
		seen:    map[string]struct{}{},
	}
	if h.subs[table] == nil {
		h.subs[table] = map[uint64]*Subscription{}
	}
	h.subs[table][sub.id] = sub
	return sub
}

// Unsubscribe removes a subscription. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[sub.table]; ok {
		delete(m, sub.id)
	}
}

// Dispatch delivers an event to every subscription on its table.
func (h *Hub) Dispatch(ev Event) {
	h.mu.Lock()
	targets := make([]*Subscription, 0, len(h.subs[ev.Table]))
	for _, sub := range h.subs[ev.Table] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(ev)
	}
}
