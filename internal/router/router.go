// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/oporhq/opor-admin-api/internal/config"
	"github.com/oporhq/opor-admin-api/internal/handler"
	"github.com/oporhq/opor-admin-api/internal/logger"
	"github.com/oporhq/opor-admin-api/internal/middleware"
	"github.com/oporhq/opor-admin-api/internal/model"
)

// Handlers aggregates the handler set mounted by Register.
type Handlers struct {
	Auth    *handler.AuthHandler
	Tenant  *handler.TenantHandler
	User    *handler.UserHandler
	Event   *handler.EventHandler
	Checkin *handler.CheckinHandler
	QR      *handler.QRHandler
}

// Register mounts every route with its middleware chain. The ordering inside
// the protected group is a hard precondition: Authenticate attaches the
// identity context that RequireRole and every handler consume, so it always
// runs first.
func Register(e *echo.Echo, cfg config.Config, h Handlers,
	users middleware.UserStore, tenants middleware.TenantStore, rdb *redis.Client) {

	e.Use(middleware.RequestID())
	e.Use(logger.Middleware())

	e.GET("/healthz", handler.Health)

	// One-shot bootstrap; refuses to run once a tenant exists.
	e.POST("/v1/system/init", h.Tenant.InitializeSystem)

	// Unauthenticated session endpoints. Login carries the Redis token
	// bucket to blunt credential stuffing.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// Everything below requires a valid access token plus a live user and
	// tenant.
	v1 := e.Group("/v1")
	v1.Use(middleware.Authenticate(cfg.AccessSecret, users, tenants))

	v1.GET("/auth/me", h.Auth.Me)
	v1.POST("/auth/change-password", h.Auth.ChangePassword)

	// Tenant administration is admin-only.
	admin := middleware.RequireRole(model.RoleAdmin)
	v1.POST("/tenants", h.Tenant.CreateTenant, admin)
	v1.GET("/tenants", h.Tenant.ListTenants, admin)
	v1.GET("/tenants/:code", h.Tenant.GetTenantByCode, admin)
	v1.PATCH("/tenants/:id/status", h.Tenant.UpdateTenantStatus, admin)

	// User management: admins write, staff may read.
	staffRead := middleware.RequireRole(model.RoleAdmin, model.RoleStaff)
	v1.GET("/users", h.User.ListUsers, staffRead)
	v1.GET("/users/:id", h.User.GetUser, staffRead)
	v1.POST("/users", h.User.CreateUser, admin)
	v1.PUT("/users/:id", h.User.UpdateUser, admin)
	v1.DELETE("/users/:id", h.User.DeleteUser, admin)

	// Calendar: everyone authenticated can browse; staff and admins manage.
	v1.GET("/events", h.Event.ListEvents)
	v1.GET("/events/:id", h.Event.GetEvent)
	v1.POST("/events", h.Event.CreateEvent, staffRead)
	v1.PUT("/events/:id", h.Event.UpdateEvent, staffRead)
	v1.DELETE("/events/:id", h.Event.CancelEvent, staffRead)

	// Attendance.
	v1.POST("/events/:id/checkin", h.Checkin.CheckIn)
	v1.POST("/events/:id/checkout", h.Checkin.CheckOut)
	v1.GET("/events/:id/attendance", h.Checkin.Attendance, staffRead)

	// QR check-in and reporting.
	v1.POST("/events/:id/qr", h.QR.GenerateQR, staffRead)
	v1.POST("/events/:id/qr/checkin", h.QR.CheckInWithQR)
	v1.GET("/events/:id/attendance/report", h.QR.DownloadReport, staffRead)
}
