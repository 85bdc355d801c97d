package dto

import (
	"time"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
)

// CreateNoteRequest payload.
type CreateNoteRequest struct {
	Body          string  `json:"body" validate:"required"`
	IsInternal    bool    `json:"is_internal"`
	AttachmentKey *string `json:"attachment_key"`
}

// NoteResponse represents a thread entry.
type NoteResponse struct {
	ID            string                `json:"id"`
	TicketID      string                `json:"ticket_id"`
	AuthorID      string                `json:"author_id"`
	AuthorType    domain.NoteAuthorType `json:"author_type"`
	Body          string                `json:"body"`
	IsInternal    bool                  `json:"is_internal"`
	AttachmentKey *string               `json:"attachment_key"`
	CreatedAt     time.Time             `json:"created_at"`
}

// NotificationResponse is an alert feed entry.
type NotificationResponse struct {
	ID        string                  `json:"id"`
	TicketID  *string                 `json:"ticket_id"`
	Message   string                  `json:"message"`
	Kind      domain.NotificationKind `json:"kind"`
	IsRead    bool                    `json:"is_read"`
	CreatedAt time.Time               `json:"created_at"`
}
