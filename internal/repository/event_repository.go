package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// EventRepo provides CRUD operations for events.  Events carry the
// inventory counters (total_capacity / available_tickets) that every
// reservation mutates, so any write that touches those counters goes
// through GetForUpdateTx first: the SELECT ... FOR UPDATE serializes all
// inventory changes for one event row.  All timestamp fields are assumed
// to be stored in UTC.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `id, title, description, event_date, venue_name, venue_address,
		total_capacity, available_tickets, ticket_price_cents, is_active, created_at, updated_at`

func scanEvent(row *sql.Row) (*model.Event, error) {
	var ev model.Event
	var desc sql.NullString
	err := row.Scan(
		&ev.ID, &ev.Title, &desc, &ev.EventDate, &ev.VenueName, &ev.VenueAddress,
		&ev.TotalCapacity, &ev.AvailableTickets, &ev.TicketPriceCents, &ev.IsActive,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		ev.Description = desc.String
	}
	return &ev, nil
}

// Create inserts a new event.  Available tickets start equal to the total
// capacity.  The generated ID and DB-side timestamps are populated on the
// provided model.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	const q = `INSERT INTO events
		(title, description, event_date, venue_name, venue_address,
		 total_capacity, available_tickets, ticket_price_cents, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		ev.Title, nullIfEmpty(ev.Description), ev.EventDate.UTC(), ev.VenueName, ev.VenueAddress,
		ev.TotalCapacity, ev.TotalCapacity, ev.TicketPriceCents, true)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults
	const sel = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	loaded, err := scanEvent(r.db.QueryRowContext(ctx, sel, ev.ID))
	if err != nil {
		return err
	}
	*ev = *loaded
	return nil
}

// GetByID returns a single event.  When no event with the given ID
// exists, ErrEventNotFound is returned.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	ev, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	return ev, err
}

// GetForUpdateTx loads an event row under an exclusive lock within the
// provided transaction.  Callers hold the lock until commit or rollback,
// which is what serializes inventory changes for the event.
func (r *EventRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ? FOR UPDATE`
	ev, err := scanEvent(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	return ev, err
}

// UpdateTx persists administrative edits within the provided transaction.
// The caller must have loaded the row with GetForUpdateTx and already
// applied the capacity rule (new capacity >= tickets sold, available
// adjusted by the same delta).
func (r *EventRepo) UpdateTx(ctx context.Context, tx *sql.Tx, ev *model.Event) error {
	const q = `UPDATE events
		SET title = ?, description = ?, event_date = ?, venue_name = ?, venue_address = ?,
			total_capacity = ?, available_tickets = ?, ticket_price_cents = ?, is_active = ?
		WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		ev.Title, nullIfEmpty(ev.Description), ev.EventDate.UTC(), ev.VenueName, ev.VenueAddress,
		ev.TotalCapacity, ev.AvailableTickets, ev.TicketPriceCents, ev.IsActive, ev.ID)
	return err
}

// Deactivate soft-deletes an event.  Existing reservations stay valid;
// new reservations are rejected by the inventory rules.
func (r *EventRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE events SET is_active = FALSE WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// HasReservations reports whether any reservation row references the
// event, active or not.  Used by admin edits to decide whether price and
// capacity are still freely editable.
func (r *EventRepo) HasReservations(ctx context.Context, id uint64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reservations WHERE event_id = ?)`, id).Scan(&exists)
	return exists, err
}

// EventSearchQuery defines filters & pagination for browsing events.
type EventSearchQuery struct {
	Search        string
	UpcomingOnly  bool
	AvailableOnly bool
	Page          int
	PerPage       int
}

// Search returns active events matching the query ordered by event date
// ascending, along with the total row count for pagination.  The search
// term matches title, description and venue name case-insensitively.
func (r *EventRepo) Search(ctx context.Context, q EventSearchQuery) ([]model.Event, int64, error) {
	where := []string{"is_active = TRUE"}
	args := []any{}

	if q.Search != "" {
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(venue_name) LIKE ?)")
		term := "%" + strings.ToLower(q.Search) + "%"
		args = append(args, term, term, term)
	}
	if q.UpcomingOnly {
		where = append(where, "event_date > UTC_TIMESTAMP()")
	}
	if q.AvailableOnly {
		where = append(where, "available_tickets > 0")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PerPage
	offset := (q.Page - 1) * q.PerPage
	dataSQL := `SELECT ` + eventColumns + ` FROM events WHERE ` + cond + `
		ORDER BY event_date ASC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Event, 0, limit)
	for rows.Next() {
		var ev model.Event
		var desc sql.NullString
		if err := rows.Scan(
			&ev.ID, &ev.Title, &desc, &ev.EventDate, &ev.VenueName, &ev.VenueAddress,
			&ev.TotalCapacity, &ev.AvailableTickets, &ev.TicketPriceCents, &ev.IsActive,
			&ev.CreatedAt, &ev.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		if desc.Valid {
			ev.Description = desc.String
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
