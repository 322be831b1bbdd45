package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/queue"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

// ReservationHandler exposes the reservation lifecycle over HTTP.  All
// state transitions go through the reservation service; this layer only
// binds requests, maps errors to status codes, and publishes lifecycle
// events after successful transitions.
type ReservationHandler struct {
	Svc          *service.ReservationService
	Reservations *repository.ReservationRepo
	Events       *repository.EventRepo
}

func NewReservationHandler(svc *service.ReservationService, r *repository.ReservationRepo, e *repository.EventRepo) *ReservationHandler {
	return &ReservationHandler{Svc: svc, Reservations: r, Events: e}
}

type createReservationReq struct {
	EventID  uint64 `json:"event_id"`
	Quantity uint32 `json:"quantity"`
}

type paymentReq struct {
	PaymentMethod    string `json:"payment_method"`
	PaymentReference string `json:"payment_reference"`
}

// List returns the caller's reservations, newest first.
func (h *ReservationHandler) List(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	views, err := h.Reservations.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": views})
}

// Get returns one reservation owned by the caller.  Missing and
// not-owned are both 404 so reservation IDs cannot be probed.
func (h *ReservationHandler) Get(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Reservations.GetByIDForUser(ctx, id, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, v)
}

// Create reserves tickets on an event, holding them as PENDING until
// payment completes or the hold expires.
func (h *ReservationHandler) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	r, err := h.Svc.Create(ctx, actor, req.EventID, req.Quantity)
	if err != nil {
		return h.mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// Pay completes payment on a pending reservation.  The payment method
// is validated here; the reference uniqueness and lifecycle rules are
// enforced by the service.
func (h *ReservationHandler) Pay(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.PaymentMethod != "credit_card" && req.PaymentMethod != "debit_card" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_method must be credit_card or debit_card"})
	}
	if req.PaymentReference == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_reference required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	r, err := h.Svc.ProcessPayment(ctx, actor, id, req.PaymentReference)
	if err != nil {
		return h.mapServiceError(c, err)
	}

	go h.publishConfirmed(r)
	return c.JSON(http.StatusOK, r)
}

// Cancel cancels a reservation and returns its tickets to the pool.
// Completed payments are marked REFUNDED.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	r, err := h.Svc.Cancel(ctx, actor, id)
	if err != nil {
		return h.mapServiceError(c, err)
	}

	go h.publishCancelled(r)
	return c.JSON(http.StatusOK, r)
}

// mapServiceError translates lifecycle errors into HTTP responses.
func (h *ReservationHandler) mapServiceError(c echo.Context, err error) error {
	var inv *service.InsufficientInventoryError
	switch {
	case errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidQuantity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &inv):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     err.Error(),
			"available": inv.Available,
		})
	case errors.Is(err, service.ErrEventInactive),
		errors.Is(err, service.ErrEventNotUpcoming),
		errors.Is(err, service.ErrDuplicatePendingReservation),
		errors.Is(err, service.ErrNotPayable),
		errors.Is(err, service.ErrDuplicatePaymentReference),
		errors.Is(err, service.ErrNotCancellable):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrTransient):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporary conflict, retry"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// publishConfirmed emits a confirmation event after the transaction has
// committed.  Failures only log: the reservation is already confirmed.
func (h *ReservationHandler) publishConfirmed(r *model.Reservation) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, r.EventID)
	title, venue := "", ""
	if err == nil {
		title, venue = ev.Title, ev.VenueName
	}
	ref := ""
	if r.PaymentRef != nil {
		ref = *r.PaymentRef
	}
	if err := service.PublishReservationConfirmed(ctx, queue.ReservationConfirmedEvent{
		ReservationID:    r.ID,
		UserID:           r.UserID,
		EventID:          r.EventID,
		EventTitle:       title,
		VenueName:        venue,
		TicketQuantity:   r.TicketQuantity,
		TotalAmountCents: r.TotalAmountCents,
		PaymentReference: ref,
		ConfirmedAt:      r.UpdatedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("publish reservation.confirmed %d: %v", r.ID, err)
	}
}

func (h *ReservationHandler) publishCancelled(r *model.Reservation) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := service.PublishReservationCancelled(ctx, queue.ReservationCancelledEvent{
		ReservationID:  r.ID,
		UserID:         r.UserID,
		EventID:        r.EventID,
		TicketQuantity: r.TicketQuantity,
		Refunded:       r.PaymentStatus == model.PaymentRefunded,
		CancelledAt:    r.UpdatedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("publish reservation.cancelled %d: %v", r.ID, err)
	}
}
