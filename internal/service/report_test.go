package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/oporhq/opor-admin-api/internal/model"
	"github.com/oporhq/opor-admin-api/internal/repository"
)

func TestGenerateAttendanceReport(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	loc := "Room 4"
	event := model.Event{
		ID:       10,
		TenantID: 1,
		Title:    "All Hands",
		StartAt:  start,
		EndAt:    start.Add(time.Hour),
		Location: &loc,
	}
	participants := []model.User{
		{ID: 1, FirstName: "Alice", LastName: "A", Email: "alice@example.com"},
		{ID: 2, FirstName: "Bob", LastName: "B", Email: "bob@example.com"},
		{ID: 3, FirstName: "Carol", LastName: "C", Email: "carol@example.com"},
	}
	checkIn := start.Add(5 * time.Minute)
	lateIn := start.Add(25 * time.Minute)
	checkins := []repository.AttendanceRow{
		{Checkin: model.Checkin{UserID: 1, CheckInTime: checkIn, Status: model.CheckinPresent}},
		{Checkin: model.Checkin{UserID: 2, CheckInTime: lateIn, Status: model.CheckinLate}},
	}

	data, err := GenerateAttendanceReport(event, participants, checkins)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Attendance", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Event Attendance Report", title)

	// Row 7 is the first participant row.
	name, _ := f.GetCellValue("Attendance", "B7")
	status, _ := f.GetCellValue("Attendance", "D7")
	assert.Equal(t, "Alice A", name)
	assert.Equal(t, model.CheckinPresent, status)

	status, _ = f.GetCellValue("Attendance", "D8")
	assert.Equal(t, model.CheckinLate, status)

	// Carol never checked in and must be reported absent.
	status, _ = f.GetCellValue("Attendance", "D9")
	assert.Equal(t, model.CheckinAbsent, status)
}

func TestGenerateAttendanceReportEmptyEvent(t *testing.T) {
	event := model.Event{Title: "Ghost Town", StartAt: time.Now(), EndAt: time.Now().Add(time.Hour)}

	data, err := GenerateAttendanceReport(event, nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	summary, err := f.GetCellValue("Attendance", "A8")
	require.NoError(t, err)
	assert.Equal(t, "Summary", summary)
}
