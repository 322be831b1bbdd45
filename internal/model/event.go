package model

import "time"

// Event represents a ticketed occurrence with a fixed venue capacity.
// AvailableTickets is the remaining inventory not held by any active
// (PENDING or CONFIRMED) reservation; the invariant
//
//	available_tickets + sum(quantity over active reservations) = total_capacity
//
// must hold at all times.  The inventory methods below mutate the struct
// in memory only; callers are responsible for loading the row under a
// per-event lock (SELECT ... FOR UPDATE) and persisting the result within
// the same transaction so that no intermediate state is ever observable.
//
// Fields:
//  ID               – primary key identifier.
//  Title            – event title.
//  Description      – optional free-form description.
//  EventDate        – when the event takes place (UTC).
//  VenueName        – name of the venue.
//  VenueAddress     – street address of the venue.
//  TotalCapacity    – maximum number of tickets that can ever be sold.
//  AvailableTickets – tickets not currently held by active reservations.
//  TicketPriceCents – price per ticket in cents, fixed at creation.
//  IsActive         – soft-delete flag; inactive events reject new
//                     reservations but existing ones remain valid.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Event struct {
	ID               uint64    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	EventDate        time.Time `json:"event_date"`
	VenueName        string    `json:"venue_name"`
	VenueAddress     string    `json:"venue_address"`
	TotalCapacity    uint32    `json:"total_capacity"`
	AvailableTickets uint32    `json:"available_tickets"`
	TicketPriceCents uint32    `json:"ticket_price_cents"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsUpcoming reports whether the event is scheduled after the given instant.
func (e *Event) IsUpcoming(now time.Time) bool {
	return e.EventDate.After(now)
}

// IsSoldOut reports whether no tickets remain.
func (e *Event) IsSoldOut() bool {
	return e.AvailableTickets == 0
}

// TicketsSold returns the number of tickets held by active reservations.
func (e *Event) TicketsSold() uint32 {
	return e.TotalCapacity - e.AvailableTickets
}

// OccupancyRate returns venue occupancy as a percentage in [0,100].
func (e *Event) OccupancyRate() float64 {
	if e.TotalCapacity == 0 {
		return 0
	}
	return float64(e.TicketsSold()) / float64(e.TotalCapacity) * 100
}

// CanReserve reports whether quantity tickets can currently be reserved.
// A reservation is only possible for an active, upcoming event with
// sufficient remaining inventory and a positive quantity.
func (e *Event) CanReserve(quantity uint32, now time.Time) bool {
	return e.IsActive &&
		e.IsUpcoming(now) &&
		quantity > 0 &&
		quantity <= e.AvailableTickets
}

// Reserve decrements AvailableTickets by quantity and returns true.  When
// CanReserve is false it returns false and leaves the event untouched.
// Must run under the event's row lock.
func (e *Event) Reserve(quantity uint32, now time.Time) bool {
	if !e.CanReserve(quantity, now) {
		return false
	}
	e.AvailableTickets -= quantity
	return true
}

// Release returns quantity tickets to the available pool.  The result is
// clamped at TotalCapacity so a double release can never corrupt the
// counter upward.  Must run under the event's row lock.
func (e *Event) Release(quantity uint32) {
	released := e.AvailableTickets + quantity
	if released > e.TotalCapacity || released < e.AvailableTickets {
		released = e.TotalCapacity
	}
	e.AvailableTickets = released
}
