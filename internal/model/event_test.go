package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upcomingEvent(capacity uint32) *Event {
	return &Event{
		ID:               1,
		Title:            "Go Conf",
		EventDate:        time.Now().UTC().Add(48 * time.Hour),
		VenueName:        "Main Hall",
		TotalCapacity:    capacity,
		AvailableTickets: capacity,
		TicketPriceCents: 2500,
		IsActive:         true,
	}
}

func TestEventReserveRelease(t *testing.T) {
	now := time.Now().UTC()
	ev := upcomingEvent(100)

	require.True(t, ev.Reserve(3, now))
	assert.Equal(t, uint32(97), ev.AvailableTickets)
	assert.Equal(t, uint32(3), ev.TicketsSold())

	ev.Release(3)
	assert.Equal(t, uint32(100), ev.AvailableTickets)
	assert.Equal(t, uint32(0), ev.TicketsSold())
}

func TestEventReserveRejectsOversell(t *testing.T) {
	now := time.Now().UTC()
	ev := upcomingEvent(2)

	assert.False(t, ev.Reserve(3, now))
	assert.Equal(t, uint32(2), ev.AvailableTickets, "failed reserve must not mutate inventory")

	require.True(t, ev.Reserve(2, now))
	assert.True(t, ev.IsSoldOut())
	assert.False(t, ev.Reserve(1, now))
}

func TestEventCanReserve(t *testing.T) {
	now := time.Now().UTC()

	ev := upcomingEvent(10)
	assert.False(t, ev.CanReserve(0, now), "zero quantity")

	inactive := upcomingEvent(10)
	inactive.IsActive = false
	assert.False(t, inactive.CanReserve(1, now), "inactive event")

	past := upcomingEvent(10)
	past.EventDate = now.Add(-time.Hour)
	assert.False(t, past.CanReserve(1, now), "event already started")

	assert.True(t, ev.CanReserve(10, now), "exactly the remaining inventory")
	assert.False(t, ev.CanReserve(11, now))
}

func TestEventReleaseClampsAtCapacity(t *testing.T) {
	ev := upcomingEvent(50)
	ev.AvailableTickets = 48

	// A duplicate release can never push availability past capacity.
	ev.Release(5)
	assert.Equal(t, uint32(50), ev.AvailableTickets)

	// Overflow of the uint32 addition also clamps.
	ev.AvailableTickets = 48
	ev.Release(^uint32(0))
	assert.Equal(t, uint32(50), ev.AvailableTickets)
}

func TestEventDerivedFields(t *testing.T) {
	now := time.Now().UTC()
	ev := upcomingEvent(200)
	ev.AvailableTickets = 50

	assert.Equal(t, uint32(150), ev.TicketsSold())
	assert.InDelta(t, 75.0, ev.OccupancyRate(), 0.001)
	assert.True(t, ev.IsUpcoming(now))
	assert.False(t, ev.IsSoldOut())

	var empty Event
	assert.Equal(t, 0.0, empty.OccupancyRate(), "zero capacity must not divide by zero")
}
