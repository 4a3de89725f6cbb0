package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/oporhq/opor-admin-api/internal/config"
	"github.com/oporhq/opor-admin-api/internal/middleware"
	"github.com/oporhq/opor-admin-api/internal/model"
	"github.com/oporhq/opor-admin-api/internal/repository"
	"github.com/oporhq/opor-admin-api/internal/utils"
)

// UserAdminStore is the user persistence surface of the user-management
// endpoints. Everything is scoped by the caller's tenant id.
type UserAdminStore interface {
	List(ctx context.Context, tenantID uint64, search string, page, limit int) ([]model.User, int, error)
	FindInTenant(ctx context.Context, tenantID, id uint64) (model.User, error)
	Create(ctx context.Context, u model.User) (uint64, error)
	Update(ctx context.Context, u model.User) error
	Delete(ctx context.Context, tenantID, id uint64) error
}

// UserHandler bundles dependencies for tenant-scoped user management.
type UserHandler struct {
	Cfg   config.Config
	Users UserAdminStore
}

func NewUserHandler(cfg config.Config, users UserAdminStore) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users}
}

type createUserReq struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type updateUserReq struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Role      *string `json:"role"`
	Status    *string `json:"status"`
}

// ListUsers returns a page of the tenant's users with optional search.
func (h *UserHandler) ListUsers(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	users, total, err := h.Users.List(ctx, id.TenantID, c.QueryParam("search"), page, limit)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error fetching users")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, userSummary(u))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    out,
		"pagination": echo.Map{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + limit - 1) / limit,
		},
	})
}

// GetUser fetches one of the tenant's users.
func (h *UserHandler) GetUser(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	uid, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid user ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.FindInTenant(ctx, id.TenantID, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return fail(c, http.StatusInternalServerError, "Error fetching user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": userSummary(u)})
}

// CreateUser creates a user inside the caller's tenant.
func (h *UserHandler) CreateUser(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" {
		return fail(c, http.StatusBadRequest, "username and email are required")
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

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error creating user")
	}
	uid, err := h.Users.Create(ctx, model.User{
		TenantID:     id.TenantID,
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
		return fail(c, http.StatusInternalServerError, "Error creating user")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data": userPart{
			ID: uid, Username: req.Username, Email: req.Email, Role: role,
			TenantID: id.TenantID, FirstName: req.FirstName, LastName: req.LastName,
		},
	})
}

// UpdateUser modifies profile fields, role or status of a tenant's user.
// Flipping the status away from active locks the account out on its next
// request even though its access token remains cryptographically valid.
func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	uid, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid user ID")
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.FindInTenant(ctx, id.TenantID, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return fail(c, http.StatusInternalServerError, "Error fetching user")
	}

	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Role != nil {
		if !model.ValidRole(*req.Role) {
			return fail(c, http.StatusBadRequest, "Invalid role")
		}
		u.Role = *req.Role
	}
	if req.Status != nil {
		switch *req.Status {
		case model.UserActive, model.UserInactive, model.UserSuspended:
			u.Status = *req.Status
		default:
			return fail(c, http.StatusBadRequest, "Invalid status")
		}
	}

	if err := h.Users.Update(ctx, u); err != nil {
		return fail(c, http.StatusInternalServerError, "Error updating user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": userSummary(u)})
}

// DeleteUser removes a tenant's user. Self-deletion is refused so an admin
// cannot lock themselves out mid-session.
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	uid, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid user ID")
	}
	if uid == id.ID {
		return fail(c, http.StatusBadRequest, "Cannot delete your own account")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.Delete(ctx, id.TenantID, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return fail(c, http.StatusInternalServerError, "Error deleting user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "User deleted"})
}
