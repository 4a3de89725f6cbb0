// Package handler implements the HTTP endpoints. Handlers receive their
// dependencies (stores, codec inputs, clock) explicitly through constructor
// injection so they can be unit-tested without a live database; the small
// store interfaces they consume are defined next to the handler that needs
// them and are satisfied by the repository types.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// dbTimeout bounds every database call issued from a handler.
const dbTimeout = 5 * time.Second

// fail writes the standard failure envelope.
func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// Health is a liveness endpoint for load balancers and monitoring.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
