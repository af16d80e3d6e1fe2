package models

type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event is streamed to live sessions; it is never persisted.
type Event struct {
	UserID         string    `json:"user_id"`
	NotificationID string    `json:"id"`
	Kind           EventKind `json:"event"`
}
