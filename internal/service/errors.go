// Package service implements the reservation orchestration layer: the
// atomic create / pay / cancel operations and the expiry reclamation they
// share.  All business-rule violations surface as the sentinel errors in
// this file so handlers can map them to HTTP statuses with errors.Is and
// never see raw storage errors.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrEventNotFound is returned when the target event does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrEventInactive is returned when the event has been soft-deleted.
	ErrEventInactive = errors.New("event is inactive")

	// ErrEventNotUpcoming is returned when the event has already started.
	ErrEventNotUpcoming = errors.New("event has already started")

	// ErrInvalidQuantity is returned when the requested ticket quantity is
	// outside 1..10.
	ErrInvalidQuantity = errors.New("ticket quantity must be between 1 and 10")

	// ErrDuplicatePendingReservation is returned when the user already
	// holds a PENDING reservation for the same event.
	ErrDuplicatePendingReservation = errors.New("pending reservation already exists for this event")

	// ErrReservationNotFound covers both an unknown reservation id and a
	// reservation owned by someone else; the two are deliberately
	// indistinguishable so callers cannot probe for other users' rows.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrNotPayable is returned when payment is attempted on a reservation
	// that is not PENDING, or whose pending hold has already expired.
	ErrNotPayable = errors.New("reservation cannot be paid")

	// ErrDuplicatePaymentReference is returned when the supplied payment
	// reference is already recorded on another reservation.
	ErrDuplicatePaymentReference = errors.New("payment reference already used")

	// ErrNotCancellable is returned when the reservation is already
	// cancelled or its event has already started.
	ErrNotCancellable = errors.New("reservation cannot be cancelled")

	// ErrTransient signals that a storage-level conflict (lock wait
	// timeout, deadlock) persisted through the bounded retry policy.  The
	// whole operation was rolled back and may safely be retried by the
	// caller.  Store implementations wrap retryable conflicts with this
	// sentinel.
	ErrTransient = errors.New("transient storage conflict")
)

// InsufficientInventoryError is returned when the requested quantity
// exceeds the event's remaining tickets.  It carries the actual
// availability for client display.
type InsufficientInventoryError struct {
	Available uint32
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient tickets available: %d left", e.Available)
}
