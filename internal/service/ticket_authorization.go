package service

import (
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
	apperrors "github.com/Vijay-Anand-VJ/helpdesk-service/pkg/util"
)

// TicketChanges is a partial ticket mutation. Nil fields are untouched.
type TicketChanges struct {
	Title       *string
	Description *string
	Category    *domain.TicketCategory
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	AssigneeID  *string
}

// IsEmpty reports whether no field is set.
func (c TicketChanges) IsEmpty() bool {
	return c.Title == nil && c.Description == nil && c.Category == nil &&
		c.Status == nil && c.Priority == nil && c.AssigneeID == nil
}

// FilterTicketChanges decides which of the proposed changes the actor may
// apply to the ticket. Disallowed fields are stripped rather than failing
// the whole request, which is the mass-assignment guard: a customer
// sending priority or assignee alongside a title edit gets the title edit.
// An actor with no standing at all (not the owner, not staff) is rejected.
//
// The SLA scheduler does not pass through here; its writes go through the
// repository's conditional breach update, which can only set the breach
// flag and escalate priority.
//
// Customer rules are deliberately tighter than plain ownership: title and
// description edits are accepted only while the ticket is still Open, and
// the only status a customer may request is Closed.
func FilterTicketChanges(role domain.Role, actorID string, ticket *domain.Ticket, proposed TicketChanges) (TicketChanges, error) {
	if role.IsStaff() {
		allowed := TicketChanges{
			Title:       proposed.Title,
			Description: proposed.Description,
			Category:    proposed.Category,
			Status:      proposed.Status,
			Priority:    proposed.Priority,
		}
		if role.CanAssign() {
			allowed.AssigneeID = proposed.AssigneeID
		}
		return allowed, nil
	}

	if ticket.OwnerID != actorID {
		return TicketChanges{}, apperrors.NewForbidden("not authorized to update this ticket")
	}

	allowed := TicketChanges{}
	if ticket.Status == domain.TicketStatusOpen {
		allowed.Title = proposed.Title
		allowed.Description = proposed.Description
	}
	if proposed.Status != nil && *proposed.Status == domain.TicketStatusClosed {
		allowed.Status = proposed.Status
	}
	return allowed, nil
}
