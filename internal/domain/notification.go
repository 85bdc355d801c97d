package domain

import "time"

// NotificationKind drives display severity in the client.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "INFO"
	NotificationSuccess NotificationKind = "SUCCESS"
	NotificationError   NotificationKind = "ERROR"
)

// Notification is an append-only, user-directed alert consumed by the UI.
// There is no acknowledgment protocol beyond the read flag.
type Notification struct {
	ID        string
	UserID    string
	TicketID  *string
	Message   string
	Kind      NotificationKind
	IsRead    bool
	CreatedAt time.Time
}
