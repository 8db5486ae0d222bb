package model

import "time"

// NotificationKind classifies a notification.
type NotificationKind string

const (
	NotificationNewMessages NotificationKind = "new_messages"
	NotificationExpired     NotificationKind = "expired"
	NotificationError       NotificationKind = "error"
)

// Notification represents an alert surfaced to the user about activity
// on a mailbox.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// InboxID links this notification to the originating mailbox.
	InboxID string `json:"inbox_id"`

	// Kind identifies what produced the notification.
	Kind NotificationKind `json:"kind"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}
