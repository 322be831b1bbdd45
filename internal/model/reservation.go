package model

import "time"

// Reservation status values.  PENDING and CONFIRMED reservations are
// "active": their ticket quantity counts against the event's capacity.
// CANCELLED is terminal; once a reservation is cancelled it never changes
// again and its tickets have been returned to the event.
const (
	ReservationPending   = "PENDING"
	ReservationConfirmed = "CONFIRMED"
	ReservationCancelled = "CANCELLED"
)

// Payment sub-state values.
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
	PaymentRefunded  = "REFUNDED"
)

// MaxTicketsPerReservation is the business cap on tickets in one
// reservation.
const MaxTicketsPerReservation = 10

// PendingTimeout is how long a PENDING reservation holds its tickets
// before it is considered abandoned and eligible for expiry.
const PendingTimeout = 15 * time.Minute

// Reservation is a user's claim on some quantity of an event's tickets.
// UnitPriceCents snapshots the event price at creation so later price
// edits never change what a customer owes.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – owning user; only the owner (or an admin) may act on it.
//  EventID          – target event.
//  TicketQuantity   – number of tickets held, 1..10.
//  UnitPriceCents   – event ticket price at creation, in cents.
//  TotalAmountCents – TicketQuantity * UnitPriceCents.
//  Status           – PENDING, CONFIRMED or CANCELLED.
//  PaymentStatus    – PENDING, COMPLETED, FAILED or REFUNDED.
//  PaymentRef       – unique external payment reference, set on payment.
//  CreatedAt        – creation timestamp; also drives expiry.
//  UpdatedAt        – last update timestamp.
type Reservation struct {
	ID               uint64    `json:"id"`
	UserID           uint64    `json:"user_id"`
	EventID          uint64    `json:"event_id"`
	TicketQuantity   uint32    `json:"ticket_quantity"`
	UnitPriceCents   uint32    `json:"unit_price_cents"`
	TotalAmountCents uint32    `json:"total_amount_cents"`
	Status           string    `json:"reservation_status"`
	PaymentStatus    string    `json:"payment_status"`
	PaymentRef       *string   `json:"payment_reference,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewReservation builds a PENDING/PENDING reservation for the given event
// with the unit price snapshotted from the event.  The caller must have
// already decremented the event's inventory in the same transaction.
func NewReservation(userID uint64, event *Event, quantity uint32, now time.Time) *Reservation {
	return &Reservation{
		UserID:           userID,
		EventID:          event.ID,
		TicketQuantity:   quantity,
		UnitPriceCents:   event.TicketPriceCents,
		TotalAmountCents: quantity * event.TicketPriceCents,
		Status:           ReservationPending,
		PaymentStatus:    PaymentPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// IsActive reports whether the reservation currently counts against its
// event's capacity.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationPending || r.Status == ReservationConfirmed
}

// IsPayable reports whether a payment attempt is legal: only PENDING
// reservations that have not outlived the pending timeout can be paid.
// An expired-but-not-yet-swept reservation is treated as if already
// cancelled, which avoids a race between a late payment and the sweeper.
func (r *Reservation) IsPayable(now time.Time) bool {
	return r.Status == ReservationPending && !r.IsExpired(now)
}

// IsExpired reports whether a PENDING reservation has outlived the pending
// timeout.  Non-pending reservations never expire.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == ReservationPending && now.Sub(r.CreatedAt) > PendingTimeout
}

// CanCancel reports whether the reservation may transition to CANCELLED:
// it must not already be cancelled and the event must not have started.
// Tickets for an event already underway are considered consumed, even for
// no-shows.
func (r *Reservation) CanCancel(eventDate, now time.Time) bool {
	return r.Status != ReservationCancelled && eventDate.After(now)
}

// ConfirmPayment moves a PENDING reservation to CONFIRMED/COMPLETED and
// records the payment reference.  Tickets were already held at creation,
// so inventory is untouched.  Callers must check IsPayable first.
func (r *Reservation) ConfirmPayment(ref string, now time.Time) {
	r.Status = ReservationConfirmed
	r.PaymentStatus = PaymentCompleted
	r.PaymentRef = &ref
	r.UpdatedAt = now
}

// Cancel moves the reservation to CANCELLED and flips a completed payment
// to REFUNDED; any other payment state is left as-is (now moot).  The
// caller must release the ticket quantity back to the event in the same
// transaction.  Callers must check CanCancel first.
func (r *Reservation) Cancel(now time.Time) {
	r.Status = ReservationCancelled
	if r.PaymentStatus == PaymentCompleted {
		r.PaymentStatus = PaymentRefunded
	}
	r.UpdatedAt = now
}
