// Package middleware provides shared request processing: bearer-token
// authentication, role-based authorization, request ids and rate limiting.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/oporhq/opor-admin-api/internal/model"
	"github.com/oporhq/opor-admin-api/internal/utils"
)

// identityKey is the context key under which Authenticate stores the resolved
// identity.
const identityKey = "identity"

// Identity is the per-request identity context attached after successful
// authentication. It is the sole channel through which tenant scoping
// propagates: every data-access call downstream filters by TenantID.
type Identity struct {
	ID       uint64
	Username string
	Role     string
	TenantID uint64
}

// UserStore is the subset of the user repository the auth middleware needs to
// re-resolve the subject on every request.
type UserStore interface {
	FindByID(ctx context.Context, id uint64) (model.User, error)
}

// TenantStore is the subset of the tenant repository the auth middleware
// needs to re-check tenant liveness.
type TenantStore interface {
	FindByID(ctx context.Context, id uint64) (model.Tenant, error)
}

// Authenticate returns an Echo middleware that validates a Bearer access
// token and attaches the identity context. Beyond the cryptographic check it
// re-loads the user and tenant records so that deactivating either takes
// effect on the next request, not at token expiry. Verification performs no
// writes, so an aborted request leaves no partial state behind.
func Authenticate(secret string, users UserStore, tenants TenantStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c, "Not authorized to access this route")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return unauthorized(c, "Not authorized to access this route")
			}

			ctx := c.Request().Context()

			// Liveness check: the token may still be cryptographically valid
			// while the account has been deactivated or deleted.
			u, err := users.FindByID(ctx, claims.UserID)
			if err != nil {
				return unauthorized(c, "User no longer exists")
			}
			if !u.Active() {
				return unauthorized(c, "User account is not active")
			}

			t, err := tenants.FindByID(ctx, u.TenantID)
			if err != nil || !t.Active() {
				return unauthorized(c, "Tenant is inactive or no longer exists")
			}

			c.Set(identityKey, Identity{
				ID:       u.ID,
				Username: u.Username,
				Role:     u.Role,
				TenantID: u.TenantID,
			})
			return next(c)
		}
	}
}

// IdentityFrom returns the identity attached by Authenticate, if any.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": msg})
}
