package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-ticket-reservation/internal/config"
	"github.com/iliyamo/event-ticket-reservation/internal/middleware"
	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// EventHandler serves public event browsing and admin event management.
type EventHandler struct {
	Events   *repository.EventRepo
	CacheCfg config.CacheConfig
	Redis    *redis.Client
}

func NewEventHandler(events *repository.EventRepo, cacheCfg config.CacheConfig, rdb *redis.Client) *EventHandler {
	return &EventHandler{Events: events, CacheCfg: cacheCfg, Redis: rdb}
}

// eventResp is an event plus the derived fields clients render.
type eventResp struct {
	model.Event
	TicketsSold   uint32  `json:"tickets_sold"`
	IsSoldOut     bool    `json:"is_sold_out"`
	IsUpcoming    bool    `json:"is_upcoming"`
	OccupancyRate float64 `json:"occupancy_rate"`
}

func toEventResp(ev model.Event, now time.Time) eventResp {
	return eventResp{
		Event:         ev,
		TicketsSold:   ev.TicketsSold(),
		IsSoldOut:     ev.IsSoldOut(),
		IsUpcoming:    ev.IsUpcoming(now),
		OccupancyRate: ev.OccupancyRate(),
	}
}

// List returns active events with optional search and pagination.
// Query params: search, upcoming_only, available_only, page, per_page.
func (h *EventHandler) List(c echo.Context) error {
	q := repository.EventSearchQuery{
		Search:        c.QueryParam("search"),
		UpcomingOnly:  c.QueryParam("upcoming_only") == "true",
		AvailableOnly: c.QueryParam("available_only") == "true",
		Page:          queryInt(c, "page", 1),
		PerPage:       queryInt(c, "per_page", 20),
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}
	if q.PerPage > 100 {
		q.PerPage = 100
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, total, err := h.Events.Search(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	now := time.Now().UTC()
	out := make([]eventResp, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResp(ev, now))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"events":   out,
		"total":    total,
		"page":     q.Page,
		"per_page": q.PerPage,
	})
}

// Get returns one active event by ID.  Soft-deleted events are hidden
// from the public surface, same as the listing.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !ev.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	return c.JSON(http.StatusOK, toEventResp(*ev, time.Now().UTC()))
}

// ----- admin endpoints -----

type eventWriteReq struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	EventDate        time.Time `json:"event_date"`
	VenueName        string    `json:"venue_name"`
	VenueAddress     string    `json:"venue_address"`
	TotalCapacity    uint32    `json:"total_capacity"`
	TicketPriceCents uint32    `json:"ticket_price_cents"`
	IsActive         *bool     `json:"is_active"`
}

// Create adds a new event with available tickets equal to capacity.
func (h *EventHandler) Create(c echo.Context) error {
	var req eventWriteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" || req.VenueName == "" || req.EventDate.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title, venue_name and event_date required"})
	}
	if req.TotalCapacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_capacity must be positive"})
	}
	if !req.EventDate.After(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_date must be in the future"})
	}

	ev := &model.Event{
		Title:            req.Title,
		Description:      req.Description,
		EventDate:        req.EventDate.UTC(),
		VenueName:        req.VenueName,
		VenueAddress:     req.VenueAddress,
		TotalCapacity:    req.TotalCapacity,
		TicketPriceCents: req.TicketPriceCents,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.Create(ctx, ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	h.invalidateListings(ctx)
	return c.JSON(http.StatusCreated, toEventResp(*ev, time.Now().UTC()))
}

// Update edits an event.  Capacity may only grow or shrink down to the
// number of tickets already sold; available tickets move by the same
// delta so sold tickets are never reclaimed.
func (h *EventHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req eventWriteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Events.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ev, err := h.Events.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	if req.Title != "" {
		ev.Title = req.Title
	}
	if req.Description != "" {
		ev.Description = req.Description
	}
	if req.VenueName != "" {
		ev.VenueName = req.VenueName
	}
	if req.VenueAddress != "" {
		ev.VenueAddress = req.VenueAddress
	}
	if !req.EventDate.IsZero() {
		ev.EventDate = req.EventDate.UTC()
	}
	if req.TicketPriceCents != 0 && req.TicketPriceCents != ev.TicketPriceCents {
		// Price is frozen once any reservation exists; reservations
		// snapshot the unit price at creation.
		reserved, err := h.Events.HasReservations(ctx, ev.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		if reserved {
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket price cannot change after reservations exist"})
		}
		ev.TicketPriceCents = req.TicketPriceCents
	}
	if req.IsActive != nil {
		ev.IsActive = *req.IsActive
	}
	if req.TotalCapacity != 0 && req.TotalCapacity != ev.TotalCapacity {
		sold := ev.TicketsSold()
		if req.TotalCapacity < sold {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "total_capacity below tickets already sold",
				"sold":  sold,
			})
		}
		ev.AvailableTickets = req.TotalCapacity - sold
		ev.TotalCapacity = req.TotalCapacity
	}

	if err := h.Events.UpdateTx(ctx, tx, ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	committed = true

	h.invalidateListings(ctx)
	return c.JSON(http.StatusOK, toEventResp(*ev, time.Now().UTC()))
}

// Delete soft-deletes an event.  Existing reservations are untouched.
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.Deactivate(ctx, id); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	h.invalidateListings(ctx)
	return c.NoContent(http.StatusNoContent)
}

// invalidateListings drops cached event responses after a write.
func (h *EventHandler) invalidateListings(ctx context.Context) {
	if err := middleware.InvalidateCache(ctx, h.CacheCfg, h.Redis); err != nil {
		log.Printf("event cache invalidation failed: %v", err)
	}
}

func queryInt(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
