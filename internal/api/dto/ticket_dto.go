package dto

import (
	"time"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title         string                `json:"title" validate:"required"`
	Description   string                `json:"description" validate:"required"`
	Category      domain.TicketCategory `json:"category" validate:"required"`
	Priority      domain.TicketPriority `json:"priority"`
	AttachmentKey *string               `json:"attachment_key"`
}

// UpdateTicketRequest carries a partial mutation; absent fields are
// untouched.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Category    *domain.TicketCategory `json:"category"`
	Status      *domain.TicketStatus   `json:"status"`
	Priority    *domain.TicketPriority `json:"priority"`
	AssigneeID  *string                `json:"assignee_id"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                `json:"id"`
	ExternalKey string                `json:"external_key"`
	Title       string                `json:"title"`
	Category    domain.TicketCategory `json:"category"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	AssigneeID  *string               `json:"assignee_id"`
	DueDate     time.Time             `json:"due_date"`
	IsBreached  bool                  `json:"is_breached"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID            string                `json:"id"`
	ExternalKey   string                `json:"external_key"`
	OwnerID       string                `json:"owner_id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Category      domain.TicketCategory `json:"category"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	AssigneeID    *string               `json:"assignee_id"`
	AttachmentKey *string               `json:"attachment_key"`
	DueDate       time.Time             `json:"due_date"`
	IsBreached    bool                  `json:"is_breached"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	ClosedAt      *time.Time            `json:"closed_at"`
}
