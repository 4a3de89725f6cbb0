package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/oporhq/opor-admin-api/internal/middleware"
	"github.com/oporhq/opor-admin-api/internal/model"
	"github.com/oporhq/opor-admin-api/internal/queue"
	"github.com/oporhq/opor-admin-api/internal/repository"
	"github.com/oporhq/opor-admin-api/internal/service"
)

// EventStore is the event persistence surface shared by the calendar,
// check-in and QR endpoints.
type EventStore interface {
	Create(ctx context.Context, e model.Event, participants []uint64) (uint64, error)
	FindByID(ctx context.Context, tenantID, id uint64) (model.Event, error)
	List(ctx context.Context, tenantID uint64, from, to time.Time) ([]model.Event, error)
	Update(ctx context.Context, e model.Event, participants []uint64) error
	UpdateStatus(ctx context.Context, tenantID, id uint64, status string) error
	Participants(ctx context.Context, eventID uint64) ([]uint64, error)
	IsParticipant(ctx context.Context, eventID, userID uint64) (bool, error)
}

// EventHandler bundles dependencies for the calendar endpoints. AMQPURL is
// empty when the broker is not configured; notifications are then skipped.
type EventHandler struct {
	Events  EventStore
	AMQPURL string
}

func NewEventHandler(events EventStore, amqpURL string) *EventHandler {
	return &EventHandler{Events: events, AMQPURL: amqpURL}
}

type eventReq struct {
	Title        string   `json:"title"`
	Description  *string  `json:"description"`
	StartAt      string   `json:"startAt"`
	EndAt        string   `json:"endAt"`
	Location     *string  `json:"location"`
	Type         string   `json:"type"`
	Participants []uint64 `json:"participants"`
}

type eventPart struct {
	ID           uint64    `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	StartAt      time.Time `json:"startAt"`
	EndAt        time.Time `json:"endAt"`
	Location     *string   `json:"location,omitempty"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	CreatedBy    uint64    `json:"createdBy"`
	Participants []uint64  `json:"participants,omitempty"`
}

func eventSummary(e model.Event, participants []uint64) eventPart {
	return eventPart{
		ID: e.ID, Title: e.Title, Description: e.Description,
		StartAt: e.StartAt, EndAt: e.EndAt, Location: e.Location,
		Type: e.Type, Status: e.Status, CreatedBy: e.CreatedBy,
		Participants: participants,
	}
}

func (r eventReq) parse() (start, end time.Time, err error) {
	start, err = time.Parse(time.RFC3339, r.StartAt)
	if err != nil {
		return
	}
	end, err = time.Parse(time.RFC3339, r.EndAt)
	return
}

// CreateEvent creates a calendar event in the caller's tenant with an
// optional participant list and publishes a "created" notification.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return fail(c, http.StatusBadRequest, "title is required")
	}
	start, end, err := req.parse()
	if err != nil {
		return fail(c, http.StatusBadRequest, "startAt and endAt must be RFC3339 timestamps")
	}
	if !end.After(start) {
		return fail(c, http.StatusBadRequest, "endAt must be after startAt")
	}
	typ := req.Type
	if typ == "" {
		typ = model.EventTypeNormal
	}
	switch typ {
	case model.EventTypeNormal, model.EventTypeHoliday, model.EventTypeMeeting:
	default:
		return fail(c, http.StatusBadRequest, "Invalid event type")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e := model.Event{
		TenantID:    id.TenantID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		StartAt:     start.UTC(),
		EndAt:       end.UTC(),
		Location:    req.Location,
		Type:        typ,
		Status:      model.EventActive,
		CreatedBy:   id.ID,
		UpdatedBy:   id.ID,
	}
	eid, err := h.Events.Create(ctx, e, req.Participants)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error creating event")
	}
	e.ID = eid

	h.notify(c, e, req.Participants, queue.ActionCreated)

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data":    eventSummary(e, req.Participants),
	})
}

// ListEvents returns the tenant's events, optionally restricted to a time
// window via ?from= and ?to= (RFC3339).
func (h *EventHandler) ListEvents(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	var from, to time.Time
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "from must be an RFC3339 timestamp")
		}
		from = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "to must be an RFC3339 timestamp")
		}
		to = t
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	events, err := h.Events.List(ctx, id.TenantID, from, to)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error fetching events")
	}
	out := make([]eventPart, 0, len(events))
	for _, e := range events {
		out = append(out, eventSummary(e, nil))
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(out), "data": out})
}

// GetEvent fetches one event with its participant list.
func (h *EventHandler) GetEvent(c echo.Context) error {
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
		return fail(c, http.StatusInternalServerError, "Error fetching event")
	}
	participants, err := h.Events.Participants(ctx, e.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Error fetching event")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": eventSummary(e, participants)})
}

// UpdateEvent rewrites an event's fields and, when a participants array is
// present, its participant list. Publishes an "updated" notification.
func (h *EventHandler) UpdateEvent(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	eid, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid event ID")
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return fail(c, http.StatusBadRequest, "title is required")
	}
	start, end, err := req.parse()
	if err != nil {
		return fail(c, http.StatusBadRequest, "startAt and endAt must be RFC3339 timestamps")
	}
	if !end.After(start) {
		return fail(c, http.StatusBadRequest, "endAt must be after startAt")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e, err := h.Events.FindByID(ctx, id.TenantID, eid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Event not found")
		}
		return fail(c, http.StatusInternalServerError, "Error fetching event")
	}

	e.Title = strings.TrimSpace(req.Title)
	e.Description = req.Description
	e.StartAt = start.UTC()
	e.EndAt = end.UTC()
	e.Location = req.Location
	if req.Type != "" {
		switch req.Type {
		case model.EventTypeNormal, model.EventTypeHoliday, model.EventTypeMeeting:
			e.Type = req.Type
		default:
			return fail(c, http.StatusBadRequest, "Invalid event type")
		}
	}
	e.UpdatedBy = id.ID

	if err := h.Events.Update(ctx, e, req.Participants); err != nil {
		return fail(c, http.StatusInternalServerError, "Error updating event")
	}

	h.notify(c, e, req.Participants, queue.ActionUpdated)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": eventSummary(e, req.Participants)})
}

// CancelEvent marks an event cancelled (events are never hard-deleted so
// attendance history survives) and publishes a "cancelled" notification.
func (h *EventHandler) CancelEvent(c echo.Context) error {
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
		return fail(c, http.StatusInternalServerError, "Error fetching event")
	}
	if err := h.Events.UpdateStatus(ctx, id.TenantID, eid, model.EventCancelled); err != nil {
		return fail(c, http.StatusInternalServerError, "Error cancelling event")
	}

	participants, _ := h.Events.Participants(ctx, eid)
	h.notify(c, e, participants, queue.ActionCancelled)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Event cancelled"})
}

// notify publishes an event notification on a best-effort basis. Delivery
// failures never fail the request.
func (h *EventHandler) notify(c echo.Context, e model.Event, participants []uint64, action string) {
	if h.AMQPURL == "" {
		return
	}
	location := ""
	if e.Location != nil {
		location = *e.Location
	}
	_ = service.PublishEventNotification(c.Request().Context(), h.AMQPURL, queue.EventNotification{
		EventID:      e.ID,
		TenantID:     e.TenantID,
		Action:       action,
		Title:        e.Title,
		StartAt:      e.StartAt.Format(time.RFC3339),
		EndAt:        e.EndAt.Format(time.RFC3339),
		Location:     location,
		Participants: participants,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	})
}
