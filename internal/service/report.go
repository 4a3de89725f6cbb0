package service

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/oporhq/opor-admin-api/internal/model"
	"github.com/oporhq/opor-admin-api/internal/repository"
)

const reportSheet = "Attendance"

// GenerateAttendanceReport builds the downloadable Excel attendance report
// for an event: an event header block, one row per invited participant with
// their check-in/out times, and a summary. Participants without a check-in
// row are reported as absent.
func GenerateAttendanceReport(event model.Event, participants []model.User, checkins []repository.AttendanceRow) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	f.SetSheetName("Sheet1", reportSheet)

	widths := []float64{8, 30, 30, 12, 20, 20, 30}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(reportSheet, col, col, w)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	set := func(cell string, v any) { _ = f.SetCellValue(reportSheet, cell, v) }

	set("A1", "Event Attendance Report")
	_ = f.SetCellStyle(reportSheet, "A1", "A1", bold)
	set("A2", "Event: "+event.Title)
	set("A3", fmt.Sprintf("Period: %s - %s",
		event.StartAt.Format("2 Jan 2006 15:04"),
		event.EndAt.Format("2 Jan 2006 15:04")))
	if event.Location != nil {
		set("A4", "Location: "+*event.Location)
	}

	headers := []string{"No", "Name", "Email", "Status", "Check-in", "Check-out", "Note"}
	headerRow := 6
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		set(cell, h)
		_ = f.SetCellStyle(reportSheet, cell, cell, bold)
	}

	byUser := make(map[uint64]repository.AttendanceRow, len(checkins))
	for _, c := range checkins {
		byUser[c.UserID] = c
	}

	formatTime := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("2 Jan 2006 15:04")
	}

	present, late := 0, 0
	row := headerRow
	for i, p := range participants {
		row++
		status := model.CheckinAbsent
		checkIn, checkOut, note := "-", "-", "-"
		if c, ok := byUser[p.ID]; ok {
			status = c.Status
			checkIn = c.CheckInTime.Format("2 Jan 2006 15:04")
			checkOut = formatTime(c.CheckOutTime)
			if c.Note != nil {
				note = *c.Note
			}
			switch c.Status {
			case model.CheckinPresent:
				present++
			case model.CheckinLate:
				late++
			}
		}
		values := []any{i + 1, p.FirstName + " " + p.LastName, p.Email, status, checkIn, checkOut, note}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			set(cell, v)
		}
	}

	row += 2
	summary := []string{
		"Summary",
		fmt.Sprintf("Participants: %d", len(participants)),
		fmt.Sprintf("Present: %d", present),
		fmt.Sprintf("Late: %d", late),
		fmt.Sprintf("Absent: %d", len(participants)-present-late),
	}
	for _, line := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		set(cell, line)
		if line == "Summary" {
			_ = f.SetCellStyle(reportSheet, cell, cell, bold)
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
