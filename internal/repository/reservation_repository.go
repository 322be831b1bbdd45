package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// ReservationRepo provides read access to reservations for the HTTP
// layer.  All state transitions happen through the transactional store,
// so this repo only carries the listing queries that join event details
// into the response.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ReservationView is a reservation plus the event fields a listing shows.
type ReservationView struct {
	model.Reservation
	EventTitle string    `json:"event_title"`
	VenueName  string    `json:"venue_name"`
	EventDate  time.Time `json:"event_date"`
}

const reservationViewQuery = `SELECT r.id, r.user_id, r.event_id, r.quantity,
		r.unit_price_cents, r.total_amount_cents, r.status, r.payment_status,
		r.payment_reference, r.created_at, r.updated_at,
		e.title, e.venue_name, e.event_date
		FROM reservations r
		JOIN events e ON e.id = r.event_id`

func scanReservationView(scan func(dest ...any) error) (*ReservationView, error) {
	var v ReservationView
	var ref sql.NullString
	err := scan(
		&v.ID, &v.UserID, &v.EventID, &v.TicketQuantity,
		&v.UnitPriceCents, &v.TotalAmountCents, &v.Status, &v.PaymentStatus,
		&ref, &v.CreatedAt, &v.UpdatedAt,
		&v.EventTitle, &v.VenueName, &v.EventDate,
	)
	if err != nil {
		return nil, err
	}
	if ref.Valid {
		v.PaymentRef = &ref.String
	}
	return &v, nil
}

// ListByUser returns all reservations belonging to a user, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]ReservationView, error) {
	rows, err := r.db.QueryContext(ctx,
		reservationViewQuery+` WHERE r.user_id = ? ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ReservationView{}
	for rows.Next() {
		v, err := scanReservationView(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// GetByIDForUser returns a single reservation owned by the given user.
// Missing and not-owned rows are indistinguishable: both return
// sql.ErrNoRows so the handler reports 404 either way.
func (r *ReservationRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (*ReservationView, error) {
	row := r.db.QueryRowContext(ctx,
		reservationViewQuery+` WHERE r.id = ? AND r.user_id = ?`, id, userID)
	return scanReservationView(row.Scan)
}
