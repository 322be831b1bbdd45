package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/permission"
)

const (
	// txAttempts bounds how often a transaction is retried after a
	// storage-level conflict before ErrTransient is surfaced.
	txAttempts = 3

	// retryBackoff is the base delay between attempts; attempt n waits
	// n * retryBackoff.
	retryBackoff = 50 * time.Millisecond

	// expiryBatchSize caps how many expired reservations one sweep pass
	// loads at a time.
	expiryBatchSize = 100
)

// Actor identifies who is performing an operation.  The role feeds the
// permission table; ownership checks compare UserID against the
// reservation's owner.
type Actor struct {
	UserID uint64
	Role   string
}

// ReservationService composes the event inventory and the reservation
// lifecycle inside one atomic unit of work per request.  Every operation
// holds the event's row lock for the full read-modify-write so the
// capacity invariant is never observable in a violated state.
type ReservationService struct {
	store Store
	now   func() time.Time

	// notifyCancelled runs after an expired hold has been cancelled and
	// committed.  The default publishes a reservation.cancelled event, the
	// same one a user-initiated cancel emits.
	notifyCancelled func(r *model.Reservation)
}

// NewReservationService returns a service bound to the given store.  The
// clock defaults to time.Now in UTC.
func NewReservationService(store Store) *ReservationService {
	s := &ReservationService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	s.notifyCancelled = s.publishExpiredCancellation
	return s
}

// WithClock overrides the service clock.  Tests use this to step time past
// the pending timeout.
func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

// inTx runs fn with the store's transactional semantics, retrying a
// bounded number of times when the conflict is transient.  Business-rule
// errors abort immediately.
func (s *ReservationService) inTx(ctx context.Context, fn func(tx StoreTx) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = s.store.InTx(ctx, fn)
		if err == nil || !errors.Is(err, ErrTransient) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return err
}

// Create reserves quantity tickets on the event and returns the new
// PENDING/PENDING reservation.  The inventory decrement, the
// duplicate-pending check and the reservation insert all happen under the
// event's row lock in one transaction; any failure rolls the decrement
// back.
func (s *ReservationService) Create(ctx context.Context, actor Actor, eventID uint64, quantity uint32) (*model.Reservation, error) {
	if quantity == 0 || quantity > model.MaxTicketsPerReservation {
		return nil, ErrInvalidQuantity
	}
	var res *model.Reservation
	err := s.inTx(ctx, func(tx StoreTx) error {
		now := s.now()
		ev, err := tx.EventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if ev == nil {
			return ErrEventNotFound
		}
		if !ev.IsActive {
			return ErrEventInactive
		}
		if !ev.IsUpcoming(now) {
			return ErrEventNotUpcoming
		}
		// The event row lock is held here, so the duplicate check and the
		// insert below cannot interleave with a concurrent create for the
		// same event.
		dup, err := tx.HasPendingReservation(ctx, actor.UserID, eventID)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicatePendingReservation
		}
		if !ev.Reserve(quantity, now) {
			return &InsufficientInventoryError{Available: ev.AvailableTickets}
		}
		if err := tx.SaveEvent(ctx, ev); err != nil {
			return err
		}
		res = model.NewReservation(actor.UserID, ev, quantity, now)
		return tx.CreateReservation(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ProcessPayment confirms payment on a PENDING reservation owned by the
// actor.  Payment itself is simulated and always succeeds once the
// preconditions hold; the reference must be unique across all
// reservations.  A reservation whose pending hold has expired is treated
// as if already cancelled even when the sweeper has not reached it yet.
func (s *ReservationService) ProcessPayment(ctx context.Context, actor Actor, reservationID uint64, paymentRef string) (*model.Reservation, error) {
	var res *model.Reservation
	err := s.inTx(ctx, func(tx StoreTx) error {
		now := s.now()
		r, err := tx.ReservationForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if r == nil || r.UserID != actor.UserID {
			return ErrReservationNotFound
		}
		if !r.IsPayable(now) {
			return ErrNotPayable
		}
		taken, err := tx.PaymentReferenceExists(ctx, paymentRef)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicatePaymentReference
		}
		r.ConfirmPayment(paymentRef, now)
		if err := tx.SaveReservation(ctx, r); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Cancel moves the reservation to CANCELLED, releases its tickets back to
// the event and flips a completed payment to REFUNDED.  The owning user
// may cancel; so may an actor with admin access.  Cancelling after the
// event has started is rejected.
func (s *ReservationService) Cancel(ctx context.Context, actor Actor, reservationID uint64) (*model.Reservation, error) {
	var res *model.Reservation
	err := s.inTx(ctx, func(tx StoreTx) error {
		now := s.now()
		r, err := tx.ReservationForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrReservationNotFound
		}
		if r.UserID != actor.UserID && !permission.Has(actor.Role, permission.AdminAccess) {
			return ErrReservationNotFound
		}
		if err := s.cancelLocked(ctx, tx, r, now); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// cancelLocked applies the cancel transition to an already-locked
// reservation.  Lock order is always reservation first, then event, so
// concurrent cancels cannot deadlock.
func (s *ReservationService) cancelLocked(ctx context.Context, tx StoreTx, r *model.Reservation, now time.Time) error {
	ev, err := tx.EventForUpdate(ctx, r.EventID)
	if err != nil {
		return err
	}
	if ev == nil {
		return ErrEventNotFound
	}
	if !r.CanCancel(ev.EventDate, now) {
		return ErrNotCancellable
	}
	r.Cancel(now)
	ev.Release(r.TicketQuantity)
	if err := tx.SaveEvent(ctx, ev); err != nil {
		return err
	}
	return tx.SaveReservation(ctx, r)
}

// ReleaseExpired reclaims capacity held by abandoned PENDING reservations:
// every reservation older than the pending timeout is forced through the
// same cancel transition a user would trigger.  Each reservation runs in
// its own transaction; one failure is logged and left for the next sweep
// rather than aborting the rest.  The pass is idempotent because
// already-cancelled reservations fall out of the expiry query.
func (s *ReservationService) ReleaseExpired(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-model.PendingTimeout)
	ids, err := s.store.ExpiredPending(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, id := range ids {
		r, err := s.expireOne(ctx, id)
		if err != nil {
			log.Printf("sweeper: reservation %d not released: %v", id, err)
			continue
		}
		if r == nil {
			continue
		}
		released++
		go s.notifyCancelled(r)
	}
	return released, nil
}

// expireOne cancels a single expired reservation and returns it, or nil
// when there was nothing to do.  The status is re-checked under the row
// lock: a reservation paid or cancelled between the scan and the lock is
// skipped without error.  Unlike a user cancel, expiry ignores the event
// date so stale holds on started events are still reclaimed.
func (s *ReservationService) expireOne(ctx context.Context, id uint64) (*model.Reservation, error) {
	var expired *model.Reservation
	err := s.inTx(ctx, func(tx StoreTx) error {
		now := s.now()
		r, err := tx.ReservationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r == nil || !r.IsExpired(now) {
			return nil
		}
		ev, err := tx.EventForUpdate(ctx, r.EventID)
		if err != nil {
			return err
		}
		r.Cancel(now)
		if ev != nil {
			ev.Release(r.TicketQuantity)
			if err := tx.SaveEvent(ctx, ev); err != nil {
				return err
			}
		}
		if err := tx.SaveReservation(ctx, r); err != nil {
			return err
		}
		expired = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}
