package domain

import "time"

// ActivityLog is an append-only audit record of account actions.
type ActivityLog struct {
	ID        string
	UserID    string
	Action    string
	Details   string
	IP        *string
	CreatedAt time.Time
}
