package realtime_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/liminalhq/liminal/internal/realtime"
)

func event(id string) realtime.Event {
	return realtime.Event{
		ID:      id,
		Type:    realtime.EventInsert,
		Table:   "thresholds",
		RowID:   uuid.New(),
		OwnerID: uuid.New(),
	}
}

func TestHubDeliversToTableSubscribers(t *testing.T) {
	hub := realtime.NewHub(nil)

	var got []realtime.Event
	hub.Subscribe("thresholds", nil, nil, func(ev realtime.Event) {
		got = append(got, ev)
	})

	hub.Dispatch(event("a"))
	other := event("b")
	other.Table = "signals"
	hub.Dispatch(other)

	assert.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestHubDropsDuplicateEvents(t *testing.T) {
	hub := realtime.NewHub(nil)

	var delivered int
	hub.Subscribe("thresholds", nil, nil, func(realtime.Event) {
		delivered++
	})

	// At-least-once delivery redelivers the same event id; applying it
	// twice must be a no-op.
	ev := event("dup-1")
	hub.Dispatch(ev)
	hub.Dispatch(ev)
	hub.Dispatch(event("dup-2"))

	assert.Equal(t, 2, delivered)
}

func TestHubDropsEventsForDeadScope(t *testing.T) {
	hub := realtime.NewHub(nil)

	live := true
	var delivered int
	hub.Subscribe("thresholds", nil, func() bool { return live }, func(realtime.Event) {
		delivered++
	})

	hub.Dispatch(event("a"))

	// The subscribing scope switched away; late events must not touch it.
	live = false
	hub.Dispatch(event("b"))

	assert.Equal(t, 1, delivered)
}

func TestHubAppliesFilter(t *testing.T) {
	hub := realtime.NewHub(nil)

	ownerID := uuid.New()
	var delivered int
	hub.Subscribe("thresholds",
		func(ev realtime.Event) bool { return ev.OwnerID == ownerID },
		nil,
		func(realtime.Event) { delivered++ })

	mine := event("a")
	mine.OwnerID = ownerID
	hub.Dispatch(mine)
	hub.Dispatch(event("b"))

	assert.Equal(t, 1, delivered)
}

func TestHubUnsubscribe(t *testing.T) {
	hub := realtime.NewHub(nil)

	var delivered int
	sub := hub.Subscribe("thresholds", nil, nil, func(realtime.Event) {
		delivered++
	})

	hub.Dispatch(event("a"))
	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	hub.Dispatch(event("b"))

	assert.Equal(t, 1, delivered)
}
