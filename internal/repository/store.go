package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

// Store is the MySQL implementation of the reservation service's
// unit-of-work contract.  Every call to InTx runs the callback inside a
// single transaction; row locks taken with FOR UPDATE are held until the
// transaction finishes, which is what serializes concurrent inventory
// changes per event.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store backed by the given database handle.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// InTx opens a transaction, runs fn, then commits.  Any error from fn
// rolls the transaction back.  Lock waits and deadlocks are translated
// to the service's transient error so the caller can retry under a
// fresh transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx service.StoreTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&storeTx{tx: tx}); err != nil {
		return wrapConflict(err)
	}
	if err := tx.Commit(); err != nil {
		return wrapConflict(err)
	}
	committed = true
	return nil
}

// ExpiredPending returns IDs of PENDING reservations created before the
// cutoff, oldest first, capped at limit.  Runs without locks: the
// sweeper re-checks each row under FOR UPDATE before cancelling it.
func (s *Store) ExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]uint64, error) {
	const q = `SELECT id FROM reservations
		WHERE status = ? AND created_at < ?
		ORDER BY created_at ASC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, model.ReservationPending, cutoff.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// wrapConflict maps MySQL lock-wait timeouts (1205) and deadlocks (1213)
// to the service's transient error.  Everything else passes through.
func wrapConflict(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "1205") || strings.Contains(msg, "1213") || strings.Contains(msg, "40001") {
		return service.ErrTransient
	}
	return err
}

// storeTx implements service.StoreTx on top of one open transaction.
type storeTx struct {
	tx *sql.Tx
}

const reservationColumns = `id, user_id, event_id, quantity, unit_price_cents,
		total_amount_cents, status, payment_status, payment_reference, created_at, updated_at`

func (t *storeTx) EventForUpdate(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ? FOR UPDATE`
	ev, err := scanEvent(t.tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ev, err
}

func (t *storeTx) SaveEvent(ctx context.Context, ev *model.Event) error {
	const q = `UPDATE events SET available_tickets = ? WHERE id = ?`
	_, err := t.tx.ExecContext(ctx, q, ev.AvailableTickets, ev.ID)
	return err
}

func (t *storeTx) ReservationForUpdate(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? FOR UPDATE`
	var r model.Reservation
	var ref sql.NullString
	err := t.tx.QueryRowContext(ctx, q, id).Scan(
		&r.ID, &r.UserID, &r.EventID, &r.TicketQuantity, &r.UnitPriceCents,
		&r.TotalAmountCents, &r.Status, &r.PaymentStatus, &ref,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ref.Valid {
		r.PaymentRef = &ref.String
	}
	return &r, nil
}

func (t *storeTx) CreateReservation(ctx context.Context, r *model.Reservation) error {
	const q = `INSERT INTO reservations
		(user_id, event_id, quantity, unit_price_cents, total_amount_cents,
		 status, payment_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := t.tx.ExecContext(ctx, q,
		r.UserID, r.EventID, r.TicketQuantity, r.UnitPriceCents, r.TotalAmountCents,
		r.Status, r.PaymentStatus, r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	return nil
}

func (t *storeTx) SaveReservation(ctx context.Context, r *model.Reservation) error {
	const q = `UPDATE reservations
		SET status = ?, payment_status = ?, payment_reference = ?, updated_at = ?
		WHERE id = ?`
	var ref any
	if r.PaymentRef != nil {
		ref = *r.PaymentRef
	}
	_, err := t.tx.ExecContext(ctx, q, r.Status, r.PaymentStatus, ref, r.UpdatedAt.UTC(), r.ID)
	if err != nil && strings.Contains(err.Error(), "1062") {
		// unique index on payment_reference
		return service.ErrDuplicatePaymentReference
	}
	return err
}

func (t *storeTx) HasPendingReservation(ctx context.Context, userID, eventID uint64) (bool, error) {
	const q = `SELECT EXISTS(
		SELECT 1 FROM reservations WHERE user_id = ? AND event_id = ? AND status = ?)`
	var exists bool
	err := t.tx.QueryRowContext(ctx, q, userID, eventID, model.ReservationPending).Scan(&exists)
	return exists, err
}

func (t *storeTx) PaymentReferenceExists(ctx context.Context, ref string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM reservations WHERE payment_reference = ?)`
	var exists bool
	err := t.tx.QueryRowContext(ctx, q, ref).Scan(&exists)
	return exists, err
}
