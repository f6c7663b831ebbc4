// internal/realtime/event.go

// Package realtime delivers row-change events from Postgres to in-process
// subscribers. Triggers installed by the migrations NOTIFY a single channel
// with a JSON payload per insert/update/delete; the listener fans events out
// through the hub. Delivery is at-least-once, so subscriptions deduplicate by
// event id and handlers must be idempotent.
package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is one row change as emitted by the database triggers.
type Event struct {
	ID             string          `json:"id"`
	Type           EventType       `json:"type"`
	Table          string          `json:"table"`
	RowID          uuid.UUID       `json:"row_id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	OrganizationID *uuid.UUID      `json:"organization_id"`
	Row            json.RawMessage `json:"row,omitempty"`
}

// Handler consumes one event. Handlers may be invoked more than once for the
// same event id by upstream redelivery; the hub's per-subscription dedupe
// absorbs that, but handlers should still tolerate replays.
type Handler func(Event)
