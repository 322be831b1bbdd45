package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

var errNoIdentity = errors.New("no authenticated user in context")

// currentUserID reads the user ID stored in the context by the JWT
// middleware.  Numeric claims decode as float64; some clients re-issue
// tokens with string subjects, so both forms are accepted.
func currentUserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), nil
	case uint64:
		return v, nil
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errNoIdentity
}

// currentRole returns the role claim, defaulting to ANONYMOUS when the
// request never passed the JWT middleware.
func currentRole(c echo.Context) string {
	if r, ok := c.Get("role").(string); ok && r != "" {
		return r
	}
	return model.RoleAnonymous
}

// currentActor builds the service-layer identity for the request.
func currentActor(c echo.Context) (service.Actor, error) {
	uid, err := currentUserID(c)
	if err != nil {
		return service.Actor{}, err
	}
	return service.Actor{UserID: uid, Role: currentRole(c)}, nil
}
