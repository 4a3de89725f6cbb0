// Package queue defines message payloads exchanged over the message broker
// and the background consumer that processes them.
package queue

// Actions carried by an EventNotification.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionCancelled = "cancelled"
)

// EventNotification is published whenever a calendar event is created,
// updated or cancelled. It contains enough information for downstream
// consumers (mail dispatch, audit, analytics) to act without querying the
// primary database.
type EventNotification struct {
	EventID      uint64   `json:"event_id"`
	TenantID     uint64   `json:"tenant_id"`
	Action       string   `json:"action"`
	Title        string   `json:"title"`
	StartAt      string   `json:"start_at"`
	EndAt        string   `json:"end_at"`
	Location     string   `json:"location,omitempty"`
	Participants []uint64 `json:"participants,omitempty"`
	OccurredAt   string   `json:"occurred_at"`
}
