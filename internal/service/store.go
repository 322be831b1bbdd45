package service

import (
	"context"
	"time"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// Store is the persistence contract the reservation service runs on.  The
// production implementation lives in the repository package on top of
// MySQL; tests use an in-memory map guarded by a mutex.  InTx must provide
// all-or-nothing semantics: when fn returns an error every mutation made
// through the StoreTx is discarded.  Implementations wrap retryable
// storage conflicts (lock wait timeout, deadlock) with ErrTransient.
type Store interface {
	InTx(ctx context.Context, fn func(tx StoreTx) error) error

	// ExpiredPending returns ids of PENDING reservations created before
	// cutoff, oldest first, at most limit.  Runs outside any transaction;
	// each returned id is re-checked under its own lock before acting.
	ExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]uint64, error)
}

// StoreTx is the unit-of-work surface available inside InTx.  The ForUpdate
// loaders acquire the row lock that serializes all inventory mutation for
// one event; not-found is reported as model-free nil, nil so the service
// owns error taxonomy.
type StoreTx interface {
	// EventForUpdate loads an event row under an exclusive lock, or
	// (nil, nil) when the id is unknown.
	EventForUpdate(ctx context.Context, id uint64) (*model.Event, error)

	// SaveEvent persists the event's mutable inventory fields.
	SaveEvent(ctx context.Context, ev *model.Event) error

	// ReservationForUpdate loads a reservation row under an exclusive
	// lock, or (nil, nil) when the id is unknown.
	ReservationForUpdate(ctx context.Context, id uint64) (*model.Reservation, error)

	// CreateReservation inserts the reservation and populates its ID.
	CreateReservation(ctx context.Context, r *model.Reservation) error

	// SaveReservation persists the reservation's mutable fields.
	SaveReservation(ctx context.Context, r *model.Reservation) error

	// HasPendingReservation reports whether the user already holds a
	// PENDING reservation for the event.  Callers invoke it only after
	// EventForUpdate so the check-then-insert sequence is serialized per
	// event.
	HasPendingReservation(ctx context.Context, userID, eventID uint64) (bool, error)

	// PaymentReferenceExists reports whether any reservation already
	// carries the given payment reference.
	PaymentReferenceExists(ctx context.Context, ref string) (bool, error)
}
