package model

import "time"

// Event types and statuses mirror the enumerations accepted by the calendar
// endpoints.
const (
	EventTypeNormal  = "normal"
	EventTypeHoliday = "holiday"
	EventTypeMeeting = "meeting"

	EventActive    = "active"
	EventCancelled = "cancelled"
	EventCompleted = "completed"
)

// Event represents a calendar event as stored in the `events` table. The QR
// token pair is stored inline on the event: at most one check-in token is
// active per event and regeneration simply overwrites it.
//
// Fields:
//
//	ID           – primary key identifier.
//	TenantID     – owning tenant; every query filters on it.
//	Title        – event title.
//	Description  – optional long description (nullable).
//	StartAt      – scheduled start (UTC).
//	EndAt        – scheduled end (UTC).
//	Location     – optional free-form location (nullable).
//	Type         – normal | holiday | meeting.
//	Status       – active | cancelled | completed.
//	CreatedBy    – user who created the event.
//	UpdatedBy    – user who last modified the event.
//	QRToken      – current check-in token (nullable; inert once expired).
//	QRExpiresAt  – expiry of the current check-in token (nullable).
//	CreatedAt    – creation timestamp.
//	UpdatedAt    – last update timestamp.
type Event struct {
	ID          uint64     // events.id
	TenantID    uint64     // events.tenant_id
	Title       string     // events.title
	Description *string    // events.description (nullable)
	StartAt     time.Time  // events.start_at
	EndAt       time.Time  // events.end_at
	Location    *string    // events.location (nullable)
	Type        string     // events.type
	Status      string     // events.status
	CreatedBy   uint64     // events.created_by
	UpdatedBy   uint64     // events.updated_by
	QRToken     *string    // events.qr_token (nullable)
	QRExpiresAt *time.Time // events.qr_token_expires_at (nullable)
	CreatedAt   time.Time  // events.created_at
	UpdatedAt   time.Time  // events.updated_at
}

// Participant links a user to an event they are expected to attend.
//
// Fields:
//
//	EventID – event being attended.
//	UserID  – invited user.
type Participant struct {
	EventID uint64 // event_participants.event_id
	UserID  uint64 // event_participants.user_id
}
