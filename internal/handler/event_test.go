package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oporhq/opor-admin-api/internal/model"
)

func eventEnv(t *testing.T) (*EventHandler, *memEvents) {
	t.Helper()
	events := newMemEvents()
	return NewEventHandler(events, ""), events
}

func eventRequest(t *testing.T, h echo.HandlerFunc, method, target, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	c.Set("identity", identityFor(7, "boss", model.RoleStaff, 5))
	require.NoError(t, h(c))
	return rec
}

func TestCreateEvent(t *testing.T) {
	h, events := eventEnv(t)

	rec := eventRequest(t, h.CreateEvent, http.MethodPost, "/v1/events",
		`{"title":"All Hands","startAt":"2026-03-01T09:00:00Z","endAt":"2026-03-01T10:00:00Z","type":"meeting","participants":[1,2,3]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	e := events.events[1]
	assert.Equal(t, "All Hands", e.Title)
	assert.Equal(t, uint64(5), e.TenantID)
	assert.Equal(t, uint64(7), e.CreatedBy)
	assert.Equal(t, model.EventActive, e.Status)
	assert.Equal(t, []uint64{1, 2, 3}, events.participants[1])
}

func TestCreateEventValidation(t *testing.T) {
	h, _ := eventEnv(t)

	cases := []string{
		`{"title":"","startAt":"2026-03-01T09:00:00Z","endAt":"2026-03-01T10:00:00Z"}`,
		`{"title":"X","startAt":"yesterday","endAt":"2026-03-01T10:00:00Z"}`,
		`{"title":"X","startAt":"2026-03-01T10:00:00Z","endAt":"2026-03-01T09:00:00Z"}`,
		`{"title":"X","startAt":"2026-03-01T09:00:00Z","endAt":"2026-03-01T10:00:00Z","type":"party"}`,
	}
	for _, body := range cases {
		rec := eventRequest(t, h.CreateEvent, http.MethodPost, "/v1/events", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestListEventsWindow(t *testing.T) {
	h, _ := eventEnv(t)

	rec := eventRequest(t, h.CreateEvent, http.MethodPost, "/v1/events",
		`{"title":"March","startAt":"2026-03-01T09:00:00Z","endAt":"2026-03-01T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = eventRequest(t, h.CreateEvent, http.MethodPost, "/v1/events",
		`{"title":"April","startAt":"2026-04-01T09:00:00Z","endAt":"2026-04-01T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = eventRequest(t, h.ListEvents, http.MethodGet,
		"/v1/events?from=2026-03-01T00:00:00Z&to=2026-03-31T23:59:59Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "March")
	assert.NotContains(t, rec.Body.String(), "April")

	rec = eventRequest(t, h.ListEvents, http.MethodGet, "/v1/events?from=not-a-time", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEventIsTenantScoped(t *testing.T) {
	h, events := eventEnv(t)
	_, err := events.Create(context.Background(), model.Event{
		TenantID: 99, Title: "Other Tenant", Status: model.EventActive,
	}, nil)
	require.NoError(t, err)

	// Identity belongs to tenant 5; the event lives in tenant 99.
	rec := eventRequest(t, h.GetEvent, http.MethodGet, "/v1/events/1", "", "id", "1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateEvent(t *testing.T) {
	h, events := eventEnv(t)

	rec := eventRequest(t, h.CreateEvent, http.MethodPost, "/v1/events",
		`{"title":"Draft","startAt":"2026-03-01T09:00:00Z","endAt":"2026-03-01T10:00:00Z","participants":[1]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = eventRequest(t, h.UpdateEvent, http.MethodPut, "/v1/events/1",
		`{"title":"Final","startAt":"2026-03-01T09:30:00Z","endAt":"2026-03-01T10:30:00Z","participants":[1,2]}`,
		"id", "1")
	require.Equal(t, http.StatusOK, rec.Code)

	e := events.events[1]
	assert.Equal(t, "Final", e.Title)
	assert.Equal(t, []uint64{1, 2}, events.participants[1])
}

func TestCancelEventKeepsRecord(t *testing.T) {
	h, events := eventEnv(t)

	rec := eventRequest(t, h.CreateEvent, http.MethodPost, "/v1/events",
		`{"title":"Doomed","startAt":"2026-03-01T09:00:00Z","endAt":"2026-03-01T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = eventRequest(t, h.CancelEvent, http.MethodDelete, "/v1/events/1", "", "id", "1")
	require.Equal(t, http.StatusOK, rec.Code)

	// The row survives with cancelled status instead of being deleted.
	e, ok := events.events[1]
	require.True(t, ok)
	assert.Equal(t, model.EventCancelled, e.Status)
}
