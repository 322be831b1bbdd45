package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/event-ticket-reservation/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/event-ticket-reservation/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/iliyamo/event-ticket-reservation/internal/model"      // role constants shared with the JWT claims
	"github.com/iliyamo/event-ticket-reservation/internal/permission" // permission gates for route groups
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// The /healthz endpoint is used by load balancers and monitoring
	// systems to verify that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	// Credential-handling endpoints get the token-bucket rate limiter so
	// password guessing is throttled per client.
	g := e.Group("/v1/auth", rateLimit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token: the old one is revoked and a new
	// pair is returned.
	g.POST("/refresh", a.Refresh)
	// Logout accepts a refresh token in the body and revokes that single
	// session.  No JWT is required for this form.
	g.POST("/logout", a.Logout)

	// Protected profile endpoints.  The JWTAuth middleware extracts the
	// user ID and role; RequireRole rejects unknown roles outright.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleRegistered, model.RoleAdmin))
	auth.GET("/me", a.Me)
	// With a valid access token and no body, logout revokes all sessions.
	auth.POST("/logout", a.Logout)
}

// RegisterEvents wires public event browsing and the admin-only event
// management endpoints.  Read endpoints sit behind the Redis response
// cache; writes invalidate it.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	// Anyone, including guests, can browse events.
	e.GET("/v1/events", h.List, cache)
	e.GET("/v1/events/:id", h.Get, cache)

	// Event management is permission-gated; only admins hold manage_events.
	admin := e.Group("/v1/admin/events")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequirePermission(permission.ManageEvents))
	admin.POST("", h.Create)
	admin.PUT("/:id", h.Update)
	admin.DELETE("/:id", h.Delete)
}

// RegisterReservations wires the reservation lifecycle endpoints.  All
// of them require an authenticated user; admins may additionally cancel
// reservations they do not own.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1/reservations")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequirePermission(permission.ManageReservations))
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.POST("/:id/payment", h.Pay)
	g.POST("/:id/cancel", h.Cancel)
}
