package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// IsTerminal reports whether no further transitions exist from s.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// ValidTicketStatus reports whether s is a known status value.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// ValidTicketPriority reports whether p is a known priority value.
func ValidTicketPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// TicketCategory enumerates the fixed issue categories.
type TicketCategory string

const (
	CategoryTechnical TicketCategory = "TECHNICAL"
	CategoryHardware  TicketCategory = "HARDWARE"
	CategorySoftware  TicketCategory = "SOFTWARE"
	CategoryAccess    TicketCategory = "ACCESS"
	CategoryGeneral   TicketCategory = "GENERAL"
	CategoryHR        TicketCategory = "HR"
	CategoryFinance   TicketCategory = "FINANCE"
)

// ValidTicketCategory reports whether c is a known category value.
func ValidTicketCategory(c TicketCategory) bool {
	switch c {
	case CategoryTechnical, CategoryHardware, CategorySoftware, CategoryAccess, CategoryGeneral, CategoryHR, CategoryFinance:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
//
// DueDate is fixed at creation from the priority at that moment and is not
// recomputed when staff later change the priority. IsBreached flips to true
// at most once, by the SLA scheduler, and is never reset.
type Ticket struct {
	ID            string
	ExternalKey   string
	OwnerID       string
	Title         string
	Description   string
	Category      TicketCategory
	Status        TicketStatus
	Priority      TicketPriority
	AssigneeID    *string
	AttachmentKey *string
	DueDate       time.Time
	IsBreached    bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ClosedAt      *time.Time
}
