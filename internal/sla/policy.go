// Package sla holds the response-time policy: the mapping from ticket
// priority to response window, due date computation, and the breach
// eligibility predicate the scheduler scans with. Everything here is pure.
package sla

import (
	"time"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
)

const (
	windowLow      = 48 * time.Hour
	windowMedium   = 24 * time.Hour
	windowHigh     = 4 * time.Hour
	windowCritical = 1 * time.Hour
)

// ResponseWindow returns the response deadline window for a priority.
// Unknown or empty priorities fall back to the Medium window.
func ResponseWindow(priority domain.TicketPriority) time.Duration {
	switch priority {
	case domain.TicketPriorityLow:
		return windowLow
	case domain.TicketPriorityHigh:
		return windowHigh
	case domain.TicketPriorityCritical:
		return windowCritical
	case domain.TicketPriorityMedium:
		return windowMedium
	default:
		return windowMedium
	}
}

// DueDate computes the SLA deadline for a ticket created at createdAt.
// It is evaluated once at creation; later priority edits do not move it.
func DueDate(createdAt time.Time, priority domain.TicketPriority) time.Time {
	return createdAt.Add(ResponseWindow(priority))
}

// BreachEligible reports whether the scheduler should escalate the ticket.
// Terminal tickets and tickets already flagged are never eligible again,
// which is what makes escalation idempotent.
func BreachEligible(ticket *domain.Ticket, now time.Time) bool {
	if ticket.IsBreached {
		return false
	}
	if ticket.Status != domain.TicketStatusOpen && ticket.Status != domain.TicketStatusInProgress {
		return false
	}
	return ticket.DueDate.Before(now)
}
