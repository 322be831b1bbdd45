// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names used for reservation lifecycle events.
const (
	ConfirmedQueueName = "reservation.confirmed"
	CancelledQueueName = "reservation.cancelled"
)

// ReservationConfirmedEvent is published when payment on a reservation
// succeeds.  It carries enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationID    uint64 `json:"reservation_id"`
	UserID           uint64 `json:"user_id"`
	EventID          uint64 `json:"event_id"`
	EventTitle       string `json:"event_title"`
	VenueName        string `json:"venue_name"`
	TicketQuantity   uint32 `json:"ticket_quantity"`
	TotalAmountCents uint32 `json:"total_amount_cents"`
	PaymentReference string `json:"payment_reference"`
	ConfirmedAt      string `json:"confirmed_at"`
}

// ReservationCancelledEvent is published when a reservation is cancelled,
// whether by the user, an admin, or the expiry sweeper.
type ReservationCancelledEvent struct {
	ReservationID  uint64 `json:"reservation_id"`
	UserID         uint64 `json:"user_id"`
	EventID        uint64 `json:"event_id"`
	TicketQuantity uint32 `json:"ticket_quantity"`
	Refunded       bool   `json:"refunded"`
	CancelledAt    string `json:"cancelled_at"`
}
