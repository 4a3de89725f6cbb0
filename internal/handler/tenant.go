package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/oporhq/opor-admin-api/internal/config"
	"github.com/oporhq/opor-admin-api/internal/logger"
	"github.com/oporhq/opor-admin-api/internal/model"
	"github.com/oporhq/opor-admin-api/internal/repository"
	"github.com/oporhq/opor-admin-api/internal/utils"
)

// TenantAdminStore is the tenant persistence surface of the tenant endpoints.
type TenantAdminStore interface {
	Create(ctx context.Context, name, code string, domain *string) (uint64, error)
	FindByCode(ctx context.Context, code string) (model.Tenant, error)
	List(ctx context.Context) ([]model.Tenant, error)
	Any(ctx context.Context) (bool, error)
	UpdateStatus(ctx context.Context, id uint64, status string) error
}

// InitUserStore is the slice of the user store needed to seed the first admin.
type InitUserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
}

// TenantHandler bundles dependencies for tenant administration and the
// one-shot system bootstrap.
type TenantHandler struct {
	Cfg     config.Config
	Tenants TenantAdminStore
	Users   InitUserStore
}

func NewTenantHandler(cfg config.Config, tenants TenantAdminStore, users InitUserStore) *TenantHandler {
	return &TenantHandler{Cfg: cfg, Tenants: tenants, Users: users}
}

type initReq struct {
	TenantName    string `json:"tenantName"`
	TenantCode    string `json:"tenantCode"`
	AdminUsername string `json:"adminUsername"`
	AdminEmail    string `json:"adminEmail"`
	AdminPassword string `json:"adminPassword"`
}

type createTenantReq struct {
	Name   string  `json:"name"`
	Code   string  `json:"code"`
	Domain *string `json:"domain"`
}

type tenantPart struct {
	ID     uint64  `json:"id"`
	Name   string  `json:"name"`
	Code   string  `json:"code"`
	Domain *string `json:"domain,omitempty"`
	Status string  `json:"status"`
}

func tenantSummary(t model.Tenant) tenantPart {
	return tenantPart{ID: t.ID, Name: t.Name, Code: t.Code, Domain: t.Domain, Status: t.Status}
}

// InitializeSystem creates the default tenant and its admin user. It refuses
// to run once any tenant exists, so it is safe to leave unauthenticated for
// first boot. The admin password must be supplied by the caller; there is no
// built-in default.
func (h *TenantHandler) InitializeSystem(c echo.Context) error {
	var req initReq
	_ = c.Bind(&req)
	if req.TenantName == "" {
		req.TenantName = "Default Tenant"
	}
	if req.TenantCode == "" {
		req.TenantCode = "demo001"
	}
	if req.AdminUsername == "" {
		req.AdminUsername = "admin"
	}
	if req.AdminEmail == "" || len(req.AdminPassword) < 6 {
		return fail(c, http.StatusBadRequest, "adminEmail and adminPassword (min 6 chars) are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	exists, err := h.Tenants.Any(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error initializing system")
	}
	if exists {
		return fail(c, http.StatusBadRequest, "System already initialized")
	}

	tid, err := h.Tenants.Create(ctx, req.TenantName, req.TenantCode, nil)
	if err != nil {
		logger.FromContext(c).Error("init: create tenant failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Error initializing system")
	}

	hash, err := utils.HashPassword(req.AdminPassword, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error initializing system")
	}
	uid, err := h.Users.Create(ctx, model.User{
		TenantID:     tid,
		Username:     req.AdminUsername,
		Email:        strings.ToLower(req.AdminEmail),
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Admin",
		Role:         model.RoleAdmin,
		Status:       model.UserActive,
	})
	if err != nil {
		logger.FromContext(c).Error("init: create admin failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Error initializing system")
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "System initialized successfully",
		"data": echo.Map{
			"tenant": echo.Map{"id": tid, "code": strings.ToLower(req.TenantCode)},
			"admin":  echo.Map{"id": uid, "email": strings.ToLower(req.AdminEmail), "role": model.RoleAdmin},
		},
	})
}

// CreateTenant registers a new tenant namespace.
func (h *TenantHandler) CreateTenant(c echo.Context) error {
	var req createTenantReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Code) == "" {
		return fail(c, http.StatusBadRequest, "name and code are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Tenants.Create(ctx, req.Name, req.Code, req.Domain)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fail(c, http.StatusBadRequest, "Tenant code already exists")
		}
		return fail(c, http.StatusInternalServerError, "Error creating tenant")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data":    echo.Map{"id": id, "code": strings.ToLower(req.Code)},
	})
}

// ListTenants returns all tenants.
func (h *TenantHandler) ListTenants(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	tenants, err := h.Tenants.List(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error fetching tenants")
	}
	out := make([]tenantPart, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, tenantSummary(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(out), "data": out})
}

// GetTenantByCode fetches a single tenant by its login code.
func (h *TenantHandler) GetTenantByCode(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	t, err := h.Tenants.FindByCode(ctx, c.Param("code"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Tenant not found")
		}
		return fail(c, http.StatusInternalServerError, "Error fetching tenant")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": tenantSummary(t)})
}

// UpdateTenantStatus transitions a tenant's status. Deactivating a tenant
// locks out all of its users on their next request.
func (h *TenantHandler) UpdateTenantStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid tenant ID")
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	switch req.Status {
	case model.TenantActive, model.TenantInactive, model.TenantSuspended:
	default:
		return fail(c, http.StatusBadRequest, "Invalid status")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Tenants.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Tenant not found")
		}
		return fail(c, http.StatusInternalServerError, "Error updating tenant")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Tenant updated"})
}
