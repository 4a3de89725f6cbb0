package model

import "time"

// Check-in statuses. A participant checking in within the grace window after
// the event start is "present"; later check-ins are recorded as "late".
// "absent" only ever appears in reports, never in stored rows.
const (
	CheckinPresent = "present"
	CheckinLate    = "late"
	CheckinAbsent  = "absent"
)

// LateAfter is the grace period after an event's start before a check-in is
// recorded as late.
const LateAfter = 15 * time.Minute

// Checkin records one participant's attendance at one event. The
// (EventID, UserID) pair is unique, so a participant can check in at most
// once per event.
//
// Fields:
//
//	ID           – primary key identifier.
//	EventID      – event attended.
//	UserID       – attending user.
//	TenantID     – owning tenant (denormalised for tenant-scoped queries).
//	CheckInTime  – when the participant checked in.
//	CheckOutTime – when the participant checked out (nullable).
//	Status       – present | late.
//	Note         – optional free-form note (nullable).
//	CreatedAt    – creation timestamp.
type Checkin struct {
	ID           uint64     // event_checkins.id
	EventID      uint64     // event_checkins.event_id
	UserID       uint64     // event_checkins.user_id
	TenantID     uint64     // event_checkins.tenant_id
	CheckInTime  time.Time  // event_checkins.check_in_time
	CheckOutTime *time.Time // event_checkins.check_out_time (nullable)
	Status       string     // event_checkins.status
	Note         *string    // event_checkins.note (nullable)
	CreatedAt    time.Time  // event_checkins.created_at
}
