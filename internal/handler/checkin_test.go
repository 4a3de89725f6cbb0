package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oporhq/opor-admin-api/internal/model"
	"github.com/oporhq/opor-admin-api/internal/repository"
)

// memEvents holds a single tenant's events with participant sets.
type memEvents struct {
	seq          uint64
	events       map[uint64]model.Event
	participants map[uint64][]uint64
}

func newMemEvents() *memEvents {
	return &memEvents{events: map[uint64]model.Event{}, participants: map[uint64][]uint64{}}
}

func (m *memEvents) Create(_ context.Context, e model.Event, participants []uint64) (uint64, error) {
	m.seq++
	e.ID = m.seq
	m.events[e.ID] = e
	m.participants[e.ID] = participants
	return e.ID, nil
}

func (m *memEvents) FindByID(_ context.Context, tenantID, id uint64) (model.Event, error) {
	e, ok := m.events[id]
	if !ok || e.TenantID != tenantID {
		return model.Event{}, repository.ErrNotFound
	}
	return e, nil
}

func (m *memEvents) List(_ context.Context, tenantID uint64, from, to time.Time) ([]model.Event, error) {
	var out []model.Event
	for _, e := range m.events {
		if e.TenantID == tenantID && e.StartAt.Before(to) && e.EndAt.After(from) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEvents) Update(_ context.Context, e model.Event, participants []uint64) error {
	if _, ok := m.events[e.ID]; !ok {
		return repository.ErrNotFound
	}
	m.events[e.ID] = e
	if participants != nil {
		m.participants[e.ID] = participants
	}
	return nil
}

func (m *memEvents) UpdateStatus(_ context.Context, tenantID, id uint64, status string) error {
	e, ok := m.events[id]
	if !ok || e.TenantID != tenantID {
		return repository.ErrNotFound
	}
	e.Status = status
	m.events[id] = e
	return nil
}

func (m *memEvents) SetCheckinToken(_ context.Context, tenantID, id uint64, token string, expiresAt time.Time) error {
	e, ok := m.events[id]
	if !ok || e.TenantID != tenantID {
		return repository.ErrNotFound
	}
	e.QRToken = &token
	e.QRExpiresAt = &expiresAt
	m.events[id] = e
	return nil
}

func (m *memEvents) Participants(_ context.Context, eventID uint64) ([]uint64, error) {
	return m.participants[eventID], nil
}

func (m *memEvents) IsParticipant(_ context.Context, eventID, userID uint64) (bool, error) {
	for _, p := range m.participants[eventID] {
		if p == userID {
			return true, nil
		}
	}
	return false, nil
}

// memCheckins enforces the one-check-in-per-user rule in memory.
type memCheckins struct {
	seq  uint64
	rows map[uint64]model.Checkin
}

func newMemCheckins() *memCheckins { return &memCheckins{rows: map[uint64]model.Checkin{}} }

func (m *memCheckins) Create(_ context.Context, c model.Checkin) (uint64, error) {
	for _, r := range m.rows {
		if r.EventID == c.EventID && r.UserID == c.UserID {
			return 0, repository.ErrDuplicate
		}
	}
	m.seq++
	c.ID = m.seq
	m.rows[c.ID] = c
	return c.ID, nil
}

func (m *memCheckins) FindByEventAndUser(_ context.Context, eventID, userID uint64) (model.Checkin, error) {
	for _, r := range m.rows {
		if r.EventID == eventID && r.UserID == userID {
			return r, nil
		}
	}
	return model.Checkin{}, repository.ErrNotFound
}

func (m *memCheckins) SetCheckout(_ context.Context, id uint64, at time.Time, note *string) error {
	r, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if r.CheckOutTime != nil {
		return repository.ErrDuplicate
	}
	r.CheckOutTime = &at
	if note != nil {
		r.Note = note
	}
	m.rows[id] = r
	return nil
}

func (m *memCheckins) ListByEvent(_ context.Context, eventID uint64) ([]repository.AttendanceRow, error) {
	var out []repository.AttendanceRow
	for _, r := range m.rows {
		if r.EventID == eventID {
			out = append(out, repository.AttendanceRow{Checkin: r})
		}
	}
	return out, nil
}

// checkinEnv seeds one active event starting at 09:00 UTC with user 1 as a
// participant, and freezes the clock at 09:05.
func checkinEnv(t *testing.T) (*CheckinHandler, *memEvents, *memCheckins, *time.Time) {
	t.Helper()
	events := newMemEvents()
	checkins := newMemCheckins()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err := events.Create(context.Background(), model.Event{
		TenantID: 5, Title: "Standup", StartAt: start, EndAt: start.Add(time.Hour),
		Type: model.EventTypeMeeting, Status: model.EventActive,
	}, []uint64{1, 2})
	require.NoError(t, err)

	h := NewCheckinHandler(events, checkins)
	now := start.Add(5 * time.Minute)
	h.Now = func() time.Time { return now }
	return h, events, checkins, &now
}

func checkinRequest(t *testing.T, h echo.HandlerFunc, userID uint64, eventID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(eventID)
	c.Set("identity", identityFor(userID, "alice", model.RoleUser, 5))
	require.NoError(t, h(c))
	return rec
}

func TestCheckInWithinGraceIsPresent(t *testing.T) {
	h, _, checkins, _ := checkinEnv(t)

	rec := checkinRequest(t, h.CheckIn, 1, "1", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	ci, err := checkins.FindByEventAndUser(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.CheckinPresent, ci.Status)
}

func TestCheckInAfterGraceIsLate(t *testing.T) {
	h, _, checkins, now := checkinEnv(t)
	*now = now.Add(15 * time.Minute) // 09:20, past the 15-minute grace

	rec := checkinRequest(t, h.CheckIn, 1, "1", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	ci, err := checkins.FindByEventAndUser(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.CheckinLate, ci.Status)
}

func TestCheckInTwiceRejected(t *testing.T) {
	h, _, _, _ := checkinEnv(t)

	rec := checkinRequest(t, h.CheckIn, 1, "1", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = checkinRequest(t, h.CheckIn, 1, "1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already checked in")
}

func TestCheckInNonParticipantForbidden(t *testing.T) {
	h, _, _, _ := checkinEnv(t)

	rec := checkinRequest(t, h.CheckIn, 99, "1", `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckInCancelledEventNotFound(t *testing.T) {
	h, events, _, _ := checkinEnv(t)
	require.NoError(t, events.UpdateStatus(context.Background(), 5, 1, model.EventCancelled))

	rec := checkinRequest(t, h.CheckIn, 1, "1", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckOutStampsTime(t *testing.T) {
	h, _, checkins, now := checkinEnv(t)

	rec := checkinRequest(t, h.CheckIn, 1, "1", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	*now = now.Add(50 * time.Minute)
	rec = checkinRequest(t, h.CheckOut, 1, "1", `{"note":"leaving early"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	ci, err := checkins.FindByEventAndUser(context.Background(), 1, 1)
	require.NoError(t, err)
	require.NotNil(t, ci.CheckOutTime)
	assert.Equal(t, *now, *ci.CheckOutTime)
	require.NotNil(t, ci.Note)
	assert.Equal(t, "leaving early", *ci.Note)

	// Second checkout is refused.
	rec = checkinRequest(t, h.CheckOut, 1, "1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckOutWithoutCheckin(t *testing.T) {
	h, _, _, _ := checkinEnv(t)

	rec := checkinRequest(t, h.CheckOut, 1, "1", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceSummaryCountsAbsent(t *testing.T) {
	h, _, _, now := checkinEnv(t)

	// User 1 present; user 2 of the two participants never checks in.
	rec := checkinRequest(t, h.CheckIn, 1, "1", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	_ = now

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	c := e.NewContext(req, res)
	c.SetParamNames("id")
	c.SetParamValues("1")
	c.Set("identity", identityFor(7, "boss", model.RoleAdmin, 5))
	require.NoError(t, h.Attendance(c))
	require.Equal(t, http.StatusOK, res.Code)

	body := res.Body.String()
	assert.Contains(t, body, `"total":2`)
	assert.Contains(t, body, `"present":1`)
	assert.Contains(t, body, `"late":0`)
	assert.Contains(t, body, `"absent":1`)
}
