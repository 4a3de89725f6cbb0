package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/oporhq/opor-admin-api/internal/config"
	"github.com/oporhq/opor-admin-api/internal/logger"
	"github.com/oporhq/opor-admin-api/internal/middleware"
	"github.com/oporhq/opor-admin-api/internal/model"
	"github.com/oporhq/opor-admin-api/internal/repository"
	"github.com/oporhq/opor-admin-api/internal/utils"
)

// refreshCookie is the name of the HTTP-only cookie that optionally carries
// the refresh token.
const refreshCookie = "refreshToken"

// AuthUserStore is the user persistence surface the auth endpoints need.
type AuthUserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	FindByIdentifier(ctx context.Context, tenantID uint64, identifier string) (model.User, error)
	FindByID(ctx context.Context, id uint64) (model.User, error)
	RecordLogin(ctx context.Context, id uint64) (int64, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
}

// AuthTenantStore is the tenant persistence surface the auth endpoints need.
type AuthTenantStore interface {
	FindByCode(ctx context.Context, code string) (model.Tenant, error)
	FindByID(ctx context.Context, id uint64) (model.Tenant, error)
}

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Users   AuthUserStore
	Tenants AuthTenantStore
}

func NewAuthHandler(cfg config.Config, users AuthUserStore, tenants AuthTenantStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Tenants: tenants}
}

// ----- DTOs -----

type registerReq struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Role       string `json:"role"`
	TenantCode string `json:"tenantCode"`
}

type loginReq struct {
	Identifier string `json:"identifier"` // username or email
	Email      string `json:"email"`      // accepted as an alias for identifier
	Password   string `json:"password"`
	TenantCode string `json:"tenantCode"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type userPart struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TenantID  uint64 `json:"tenantId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func userSummary(u model.User) userPart {
	return userPart{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		TenantID:  u.TenantID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// Register creates a user under an active tenant and returns an access token
// immediately. The password hash is computed here, before the record is
// constructed; nothing downstream ever sees the clear password.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.TenantCode == "" {
		return fail(c, http.StatusBadRequest, "username, email and tenantCode are required")
	}
	if len(req.Password) < 6 {
		return fail(c, http.StatusBadRequest, "Password must be at least 6 characters")
	}
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) {
		return fail(c, http.StatusBadRequest, "Invalid role")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	tenant, err := h.Tenants.FindByCode(ctx, req.TenantCode)
	if err != nil || !tenant.Active() {
		return fail(c, http.StatusNotFound, "Invalid or inactive tenant")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error in registration process")
	}
	uid, err := h.Users.Create(ctx, model.User{
		TenantID:     tenant.ID,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		Status:       model.UserActive,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fail(c, http.StatusBadRequest, "User already exists")
		}
		logger.FromContext(c).Error("register: create user failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Error in registration process")
	}

	access, err := utils.NewAccessToken(h.Cfg.AccessSecret, uid, req.Username, role, tenant.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error in registration process")
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"token":   access.Token,
		"user": userPart{
			ID: uid, Username: req.Username, Email: req.Email, Role: role,
			TenantID: tenant.ID, FirstName: req.FirstName, LastName: req.LastName,
		},
	})
}

// Login resolves the tenant by code, the user by username-or-email within
// that tenant, and verifies the password. Unknown users and wrong passwords
// produce byte-identical responses so callers cannot enumerate accounts. A
// successful login bumps the user's token version, invalidating every refresh
// token issued before it, and mints a fresh pair under the new version.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" || req.Password == "" || strings.TrimSpace(req.TenantCode) == "" {
		return fail(c, http.StatusBadRequest, "identifier, password and tenantCode are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	tenant, err := h.Tenants.FindByCode(ctx, req.TenantCode)
	if err != nil || !tenant.Active() {
		return fail(c, http.StatusNotFound, "Invalid or inactive tenant")
	}

	u, err := h.Users.FindByIdentifier(ctx, tenant.ID, identifier)
	if err != nil || !u.Active() {
		// Same message as a password mismatch: never reveal which factor failed.
		return fail(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "Invalid credentials")
	}

	version, err := h.Users.RecordLogin(ctx, u.ID)
	if err != nil {
		logger.FromContext(c).Error("login: record login failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Error in login process")
	}

	access, err := utils.NewAccessToken(h.Cfg.AccessSecret, u.ID, u.Username, u.Role, u.TenantID, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error in login process")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshSecret, u.ID, version, h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error in login process")
	}
	h.setRefreshCookie(c, refresh)

	logger.FromContext(c).Info("login successful",
		zap.Uint64("user_id", u.ID), zap.Uint64("tenant_id", u.TenantID))

	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"token":        access.Token,
		"refreshToken": refresh.Token,
		"user":         userSummary(u),
	})
}

// Refresh exchanges a valid refresh token (body or cookie) for a new token
// pair. The embedded token version must equal the stored one; a login that
// happened after this token was minted makes it fail here. The old refresh
// token is not denylisted, it simply dies with the next version bump.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		if ck, err := c.Cookie(refreshCookie); err == nil {
			raw = ck.Value
		}
	}
	if raw == "" {
		return fail(c, http.StatusUnauthorized, "No refresh token")
	}

	claims, err := utils.ParseRefreshToken(h.Cfg.RefreshSecret, raw)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid refresh token")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.FindByID(ctx, claims.UserID)
	if err != nil || !u.Active() {
		return fail(c, http.StatusUnauthorized, "Invalid refresh token")
	}
	if claims.TokenVersion != u.TokenVersion {
		return fail(c, http.StatusUnauthorized, "Invalid refresh token")
	}

	access, err := utils.NewAccessToken(h.Cfg.AccessSecret, u.ID, u.Username, u.Role, u.TenantID, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error refreshing session")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshSecret, u.ID, u.TokenVersion, h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error refreshing session")
	}
	h.setRefreshCookie(c, refresh)

	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"token":        access.Token,
		"refreshToken": refresh.Token,
		"user":         userSummary(u),
	})
}

// Logout clears the refresh cookie. Sessions are otherwise stateless; a
// client-side logout simply drops the tokens, and "log out everywhere" is
// achieved by the version bump on the next login or password change.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Logged out successfully"})
}

// Me returns the freshly resolved record of the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Authentication required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.FindByID(ctx, id.ID)
	if err != nil {
		return fail(c, http.StatusNotFound, "User not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": userSummary(u)})
}

// ChangePassword verifies the current password, stores the new hash and bumps
// the token version so outstanding refresh tokens die with the old password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Authentication required")
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if len(req.NewPassword) < 6 {
		return fail(c, http.StatusBadRequest, "Password must be at least 6 characters")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.FindByID(ctx, id.ID)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return fail(c, http.StatusUnauthorized, "Invalid credentials")
	}

	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error changing password")
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		logger.FromContext(c).Error("change password failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Error changing password")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Password changed"})
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, t utils.RefreshToken) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    t.Token,
		Path:     "/",
		Expires:  t.Exp,
		MaxAge:   int(time.Until(t.Exp) / time.Second),
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
