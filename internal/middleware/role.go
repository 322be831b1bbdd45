package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/iliyamo/event-ticket-reservation/internal/model"      // fallback role for unauthenticated requests
	"github.com/iliyamo/event-ticket-reservation/internal/permission" // role to permission table
)

// RequireRole returns a middleware that rejects requests whose JWT role
// claim is not in the allowed set.  It assumes JWTAuth has already stored
// the role in the context under "role"; a missing or unknown role yields
// 403 Forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequirePermission gates a route on a single permission from the
// permission table instead of an explicit role list.  Requests that never
// passed JWTAuth are evaluated with the ANONYMOUS role.
func RequirePermission(p permission.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || role == "" {
				role = model.RoleAnonymous
			}
			if !permission.Has(role, p) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
