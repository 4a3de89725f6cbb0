package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/oporhq/opor-admin-api/internal/config"
	"github.com/oporhq/opor-admin-api/internal/logger"
	"github.com/oporhq/opor-admin-api/internal/middleware"
	"github.com/oporhq/opor-admin-api/internal/model"
	"github.com/oporhq/opor-admin-api/internal/repository"
	"github.com/oporhq/opor-admin-api/internal/service"
)

// UserDirectory resolves participant profiles for the attendance report.
type UserDirectory interface {
	FindInTenant(ctx context.Context, tenantID, id uint64) (model.User, error)
}

// QRHandler bundles dependencies for QR check-in token issuance and the
// Excel attendance report.
type QRHandler struct {
	Cfg      config.Config
	QR       *service.QRService
	Events   EventStore
	Checkins *CheckinHandler
	Users    UserDirectory
}

func NewQRHandler(cfg config.Config, qr *service.QRService, events EventStore, checkins *CheckinHandler, users UserDirectory) *QRHandler {
	return &QRHandler{Cfg: cfg, QR: qr, Events: events, Checkins: checkins, Users: users}
}

// GenerateQR mints a check-in token for an event and returns it rendered as
// a QR data URL. Re-issuing overwrites the previous token, so at most one QR
// is redeemable per event at any time. The TTL comes from ?expiresIn=
// (minutes), bounded to [1, 120], defaulting to the configured value.
func (h *QRHandler) GenerateQR(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	eid, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid event ID")
	}

	ttl := h.Cfg.CheckinTTLMin
	if v := c.QueryParam("expiresIn"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 120 {
			return fail(c, http.StatusBadRequest, "expiresIn must be between 1 and 120 minutes")
		}
		ttl = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	payload, err := h.QR.IssueCheckinToken(ctx, id.TenantID, eid, ttl)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Event not found")
		}
		logger.FromContext(c).Error("generate qr failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Error generating QR code")
	}
	qrCode, err := h.QR.RenderQR(payload)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error generating QR code")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"qrCode":    qrCode,
			"expiresAt": payload.ExpiresAt,
		},
	})
}

// CheckInWithQR verifies a scanned token and, when valid, records the
// authenticated participant's attendance through the same path as a plain
// check-in. The verdict is boolean: callers never learn whether the token
// was wrong, missing or expired.
func (h *QRHandler) CheckInWithQR(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	eid, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid event ID")
	}
	var req struct {
		Token string  `json:"token"`
		Note  *string `json:"note"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return fail(c, http.StatusBadRequest, "token is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	ok, err := h.QR.VerifyCheckinToken(ctx, id.TenantID, eid, req.Token)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error checking in")
	}
	if !ok {
		return fail(c, http.StatusBadRequest, "QR code is invalid or expired")
	}

	ci, status, msg := h.Checkins.recordCheckin(ctx, id, eid, req.Note)
	if msg != "" {
		return fail(c, status, msg)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": checkinSummary(ci)})
}

// DownloadReport streams the Excel attendance report for an event.
func (h *QRHandler) DownloadReport(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	eid, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid event ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e, err := h.Events.FindByID(ctx, id.TenantID, eid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Event not found")
		}
		return fail(c, http.StatusInternalServerError, "Error generating report")
	}

	ids, err := h.Events.Participants(ctx, eid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error generating report")
	}
	participants := make([]model.User, 0, len(ids))
	for _, uid := range ids {
		u, err := h.Users.FindInTenant(ctx, id.TenantID, uid)
		if err != nil {
			continue // participant removed since invitation; skip
		}
		participants = append(participants, u)
	}

	rows, err := h.Checkins.Checkins.ListByEvent(ctx, eid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error generating report")
	}

	report, err := service.GenerateAttendanceReport(e, participants, rows)
	if err != nil {
		logger.FromContext(c).Error("generate report failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Error generating report")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="attendance-report.xlsx"`)
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", report)
}
