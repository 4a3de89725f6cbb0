package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns a middleware that enforces that the authenticated user
// has one of the specified roles. It depends on the identity attached by
// Authenticate and must therefore be mounted strictly after it; a request
// that reaches it without an identity is rejected as unauthenticated rather
// than forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return unauthorized(c, "Authentication required")
			}
			if !allowed[id.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false,
					"message": "You do not have permission to perform this action",
				})
			}
			return next(c)
		}
	}
}
