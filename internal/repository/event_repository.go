package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oporhq/opor-admin-api/internal/model"
)

// EventRepo persists calendar events, their participant lists and the inline
// QR check-in token.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

const eventCols = "id,tenant_id,title,description,start_at,end_at,location,type,status,created_by,updated_by,qr_token,qr_token_expires_at,created_at,updated_at"

func scanEvent(scan func(dest ...any) error) (model.Event, error) {
	var e model.Event
	err := scan(&e.ID, &e.TenantID, &e.Title, &e.Description, &e.StartAt, &e.EndAt,
		&e.Location, &e.Type, &e.Status, &e.CreatedBy, &e.UpdatedBy,
		&e.QRToken, &e.QRExpiresAt, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	return e, err
}

// Create inserts an event and its participant list in one transaction and
// returns the new id.
func (r *EventRepo) Create(ctx context.Context, e model.Event, participants []uint64) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (tenant_id, title, description, start_at, end_at, location, type, status, created_by, updated_by)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.TenantID, e.Title, e.Description, e.StartAt, e.EndAt, e.Location,
		e.Type, e.Status, e.CreatedBy, e.UpdatedBy)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, uid := range participants {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO event_participants (event_id, user_id) VALUES (?,?)",
			id, uid); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindByID fetches a tenant's event by id.
func (r *EventRepo) FindByID(ctx context.Context, tenantID, id uint64) (model.Event, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+eventCols+" FROM events WHERE id=? AND tenant_id=? LIMIT 1", id, tenantID)
	return scanEvent(row.Scan)
}

// List returns the tenant's events overlapping the [from, to) window, oldest
// first. Zero bounds disable the corresponding side of the filter.
func (r *EventRepo) List(ctx context.Context, tenantID uint64, from, to time.Time) ([]model.Event, error) {
	query := "SELECT " + eventCols + " FROM events WHERE tenant_id=?"
	args := []any{tenantID}
	if !from.IsZero() {
		query += " AND end_at >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		query += " AND start_at < ?"
		args = append(args, to)
	}
	query += " ORDER BY start_at"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update rewrites the mutable fields of an event and replaces its participant
// list when participants is non-nil.
func (r *EventRepo) Update(ctx context.Context, e model.Event, participants []uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE events SET title=?, description=?, start_at=?, end_at=?, location=?, type=?, status=?, updated_by=?, updated_at=UTC_TIMESTAMP()
		 WHERE id=? AND tenant_id=?`,
		e.Title, e.Description, e.StartAt, e.EndAt, e.Location, e.Type, e.Status,
		e.UpdatedBy, e.ID, e.TenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if participants != nil {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM event_participants WHERE event_id=?", e.ID); err != nil {
			return err
		}
		for _, uid := range participants {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO event_participants (event_id, user_id) VALUES (?,?)",
				e.ID, uid); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// UpdateStatus transitions an event between active/cancelled/completed.
func (r *EventRepo) UpdateStatus(ctx context.Context, tenantID, id uint64, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE events SET status=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND tenant_id=?",
		status, id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCheckinToken overwrites the event's inline QR token pair. Only one token
// is active per event; regeneration replaces the previous one.
func (r *EventRepo) SetCheckinToken(ctx context.Context, tenantID, id uint64, token string, expiresAt time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE events SET qr_token=?, qr_token_expires_at=? WHERE id=? AND tenant_id=?",
		token, expiresAt, id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Participants returns the ids of all users invited to an event.
func (r *EventRepo) Participants(ctx context.Context, eventID uint64) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT user_id FROM event_participants WHERE event_id=?", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// IsParticipant reports whether a user is on an event's participant list.
func (r *EventRepo) IsParticipant(ctx context.Context, eventID, userID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM event_participants WHERE event_id=? AND user_id=?",
		eventID, userID).Scan(&n)
	return n > 0, err
}
