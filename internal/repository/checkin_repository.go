package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/oporhq/opor-admin-api/internal/model"
)

// CheckinRepo persists event attendance records.
type CheckinRepo struct{ DB *sql.DB }

func NewCheckinRepo(db *sql.DB) *CheckinRepo { return &CheckinRepo{DB: db} }

// AttendanceRow is a check-in joined with the attendee's profile, as needed
// by the attendance listing and the Excel report.
type AttendanceRow struct {
	model.Checkin
	Username  string
	FirstName string
	LastName  string
	Email     string
}

// Create inserts a check-in row. The unique (event_id, user_id) index makes a
// second check-in for the same event surface as ErrDuplicate.
func (r *CheckinRepo) Create(ctx context.Context, c model.Checkin) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO event_checkins (event_id, user_id, tenant_id, check_in_time, status, note)
		 VALUES (?,?,?,?,?,?)`,
		c.EventID, c.UserID, c.TenantID, c.CheckInTime, c.Status, c.Note)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindByEventAndUser fetches one participant's check-in for an event.
func (r *CheckinRepo) FindByEventAndUser(ctx context.Context, eventID, userID uint64) (model.Checkin, error) {
	var c model.Checkin
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, event_id, user_id, tenant_id, check_in_time, check_out_time, status, note, created_at
		 FROM event_checkins WHERE event_id=? AND user_id=? LIMIT 1`,
		eventID, userID).
		Scan(&c.ID, &c.EventID, &c.UserID, &c.TenantID, &c.CheckInTime,
			&c.CheckOutTime, &c.Status, &c.Note, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Checkin{}, ErrNotFound
	}
	return c, err
}

// SetCheckout stamps the check-out time on an existing check-in. A check-in
// that already carries a check-out time is left untouched and reported as
// ErrDuplicate so handlers can reject double check-outs.
func (r *CheckinRepo) SetCheckout(ctx context.Context, id uint64, at time.Time, note *string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE event_checkins SET check_out_time=?, note=COALESCE(?, note) WHERE id=? AND check_out_time IS NULL",
		at, note, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicate
	}
	return nil
}

// ListByEvent returns all check-ins for an event joined with attendee
// profiles, ordered by check-in time.
func (r *CheckinRepo) ListByEvent(ctx context.Context, eventID uint64) ([]AttendanceRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT c.id, c.event_id, c.user_id, c.tenant_id, c.check_in_time, c.check_out_time, c.status, c.note, c.created_at,
		        u.username, u.first_name, u.last_name, u.email
		 FROM event_checkins c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.event_id=?
		 ORDER BY c.check_in_time`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttendanceRow
	for rows.Next() {
		var a AttendanceRow
		if err := rows.Scan(&a.ID, &a.EventID, &a.UserID, &a.TenantID, &a.CheckInTime,
			&a.CheckOutTime, &a.Status, &a.Note, &a.CreatedAt,
			&a.Username, &a.FirstName, &a.LastName, &a.Email); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
