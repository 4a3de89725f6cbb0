package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/oporhq/opor-admin-api/internal/middleware"
	"github.com/oporhq/opor-admin-api/internal/model"
	"github.com/oporhq/opor-admin-api/internal/repository"
)

// CheckinStore is the attendance persistence surface of the check-in
// endpoints.
type CheckinStore interface {
	Create(ctx context.Context, c model.Checkin) (uint64, error)
	FindByEventAndUser(ctx context.Context, eventID, userID uint64) (model.Checkin, error)
	SetCheckout(ctx context.Context, id uint64, at time.Time, note *string) error
	ListByEvent(ctx context.Context, eventID uint64) ([]repository.AttendanceRow, error)
}

// CheckinHandler bundles dependencies for attendance tracking.
type CheckinHandler struct {
	Events   EventStore
	Checkins CheckinStore
	Now      func() time.Time // injectable clock for tests
}

func NewCheckinHandler(events EventStore, checkins CheckinStore) *CheckinHandler {
	return &CheckinHandler{
		Events:   events,
		Checkins: checkins,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

type checkinReq struct {
	Note *string `json:"note"`
}

type checkinPart struct {
	ID           uint64     `json:"id"`
	EventID      uint64     `json:"eventId"`
	UserID       uint64     `json:"userId"`
	CheckInTime  time.Time  `json:"checkInTime"`
	CheckOutTime *time.Time `json:"checkOutTime,omitempty"`
	Status       string     `json:"status"`
	Note         *string    `json:"note,omitempty"`
}

func checkinSummary(ci model.Checkin) checkinPart {
	return checkinPart{
		ID: ci.ID, EventID: ci.EventID, UserID: ci.UserID,
		CheckInTime: ci.CheckInTime, CheckOutTime: ci.CheckOutTime,
		Status: ci.Status, Note: ci.Note,
	}
}

// recordCheckin performs the full check-in decision for one participant:
// active event, participant membership, no prior check-in, present-vs-late
// classification. On failure it returns the HTTP status and message to send;
// on success msg is empty. Shared by the plain and the QR check-in paths.
func (h *CheckinHandler) recordCheckin(ctx context.Context, id middleware.Identity, eventID uint64, note *string) (model.Checkin, int, string) {
	e, err := h.Events.FindByID(ctx, id.TenantID, eventID)
	if err != nil || e.Status != model.EventActive {
		return model.Checkin{}, http.StatusNotFound, "Event not found"
	}

	isParticipant, err := h.Events.IsParticipant(ctx, eventID, id.ID)
	if err != nil {
		return model.Checkin{}, http.StatusInternalServerError, "Error checking in"
	}
	if !isParticipant {
		return model.Checkin{}, http.StatusForbidden, "You are not a participant of this event"
	}

	now := h.Now()
	status := model.CheckinPresent
	if now.After(e.StartAt.Add(model.LateAfter)) {
		status = model.CheckinLate
	}

	ci := model.Checkin{
		EventID:     eventID,
		UserID:      id.ID,
		TenantID:    id.TenantID,
		CheckInTime: now,
		Status:      status,
		Note:        note,
	}
	cid, err := h.Checkins.Create(ctx, ci)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Checkin{}, http.StatusBadRequest, "You have already checked in to this event"
		}
		return model.Checkin{}, http.StatusInternalServerError, "Error checking in"
	}
	ci.ID = cid
	return ci, 0, ""
}

// CheckIn records the authenticated participant's attendance at an event.
func (h *CheckinHandler) CheckIn(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	eid, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid event ID")
	}
	var req checkinReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	ci, status, msg := h.recordCheckin(ctx, id, eid, req.Note)
	if msg != "" {
		return fail(c, status, msg)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": checkinSummary(ci)})
}

// CheckOut stamps the check-out time on an existing check-in.
func (h *CheckinHandler) CheckOut(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	eid, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid event ID")
	}
	var req checkinReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	ci, err := h.Checkins.FindByEventAndUser(ctx, eid, id.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "No check-in record found")
		}
		return fail(c, http.StatusInternalServerError, "Error checking out")
	}
	if err := h.Checkins.SetCheckout(ctx, ci.ID, h.Now(), req.Note); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fail(c, http.StatusBadRequest, "You have already checked out")
		}
		return fail(c, http.StatusInternalServerError, "Error checking out")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Checked out"})
}

// Attendance returns all check-ins for an event plus a present/late/absent
// summary against the participant list.
func (h *CheckinHandler) Attendance(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	eid, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid event ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Events.FindByID(ctx, id.TenantID, eid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Event not found")
		}
		return fail(c, http.StatusInternalServerError, "Error fetching attendance")
	}

	rows, err := h.Checkins.ListByEvent(ctx, eid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error fetching attendance")
	}
	participants, err := h.Events.Participants(ctx, eid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error fetching attendance")
	}

	present, late := 0, 0
	out := make([]echo.Map, 0, len(rows))
	for _, r := range rows {
		switch r.Status {
		case model.CheckinPresent:
			present++
		case model.CheckinLate:
			late++
		}
		out = append(out, echo.Map{
			"checkin":   checkinSummary(r.Checkin),
			"username":  r.Username,
			"firstName": r.FirstName,
			"lastName":  r.LastName,
			"email":     r.Email,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"checkins": out,
			"summary": echo.Map{
				"total":   len(participants),
				"present": present,
				"late":    late,
				"absent":  len(participants) - len(rows),
			},
		},
	})
}
