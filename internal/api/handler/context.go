package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/docshare/identity-api/internal/api/middleware"
	"github.com/docshare/identity-api/internal/core/domain"
)

// ctxIdentity extracts the caller injected by the Auth middleware. A zero
// id means the middleware did not run; that is a 401, not a 500.
func ctxIdentity(c echo.Context) (id int64, role int, err error) {
	id, _ = c.Get(middleware.CtxUserID).(int64)
	if id == 0 {
		return 0, 0, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	role, _ = c.Get(middleware.CtxRole).(int)
	return id, role, nil
}

// requireSelfOrAdmin rejects callers mutating a user other than themselves
// unless they hold the admin role.
func requireSelfOrAdmin(c echo.Context, target int64) error {
	id, role, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	if id != target && role != domain.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to modify another user")
	}
	return nil
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, domain.Wrap(domain.CauseMalformedIdentifier, err)
	}
	return id, nil
}
