package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/events"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/repository"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/sla"
	apperrors "github.com/Vijay-Anand-VJ/helpdesk-service/pkg/util"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets       repository.TicketRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	dispatcher    events.Dispatcher
	clock         Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo       repository.TicketRepository
	UserRepo         repository.UserRepository
	NotificationRepo repository.NotificationRepository
	Dispatcher       events.Dispatcher
	Clock            Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title         string
	Description   string
	Category      domain.TicketCategory
	Priority      domain.TicketPriority
	AttachmentKey *string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	Categories  []domain.TicketCategory
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &TicketService{
		tickets:       deps.TicketRepo,
		users:         deps.UserRepo,
		notifications: deps.NotificationRepo,
		dispatcher:    deps.Dispatcher,
		clock:         clock,
	}
}

// CreateTicket creates a ticket for its owner. The SLA due date is
// computed once here from the creation-time priority and never moves
// afterwards, even if staff later change the priority.
func (s *TicketService) CreateTicket(ctx context.Context, ownerID string, input TicketCreateInput) (*domain.Ticket, error) {
	if !domain.ValidTicketCategory(input.Category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": input.Category})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidTicketPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		ExternalKey:   generateTicketKey(),
		OwnerID:       ownerID,
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Category:      input.Category,
		Status:        domain.TicketStatusOpen,
		Priority:      priority,
		AttachmentKey: input.AttachmentKey,
		DueDate:       sla.DueDate(now, priority),
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.notifyUser(ctx, ownerID, &ticket.ID,
		fmt.Sprintf("Your ticket %q has been created.", ticket.Title),
		domain.NotificationSuccess,
	); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    userActor(domain.RoleCustomer, ownerID),
		Payload: events.TicketCreatedPayload{
			OwnerID:  ticket.OwnerID,
			Category: ticket.Category,
			Priority: ticket.Priority,
			Title:    ticket.Title,
			DueDate:  ticket.DueDate,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets visible to the actor: customers see their
// own, staff see everything.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		Categories:  filter.Categories,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if !actor.Role.IsStaff() {
		repoFilter.OwnerID = &actor.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket fetches a ticket ensuring the actor may view it.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.Role.IsStaff() && ticket.OwnerID != actor.ID {
		return nil, apperrors.NewForbidden("not authorized to view this ticket")
	}
	return ticket, nil
}

// UpdateTicket applies the permitted subset of the proposed changes.
// Status transitions follow the lifecycle state machine; a status change
// notifies the owner and an assignment change notifies the new assignee,
// exactly once each.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, ticketID string, proposed TicketChanges) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	allowed, err := FilterTicketChanges(actor.Role, actor.ID, ticket, proposed)
	if err != nil {
		return nil, err
	}
	if allowed.IsEmpty() {
		return nil, apperrors.NewValidationError("no applicable changes", nil)
	}

	oldStatus := ticket.Status
	oldPriority := ticket.Priority
	oldAssignee := ticket.AssigneeID

	if allowed.Status != nil && *allowed.Status != ticket.Status {
		if !domain.ValidTicketStatus(*allowed.Status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *allowed.Status})
		}
		if !isValidTransition(ticket.Status, *allowed.Status) {
			return nil, apperrors.NewConflict("invalid status transition", map[string]any{
				"from": ticket.Status,
				"to":   *allowed.Status,
			})
		}
		ticket.Status = *allowed.Status
		if ticket.Status == domain.TicketStatusClosed {
			now := s.clock.Now()
			ticket.ClosedAt = &now
		}
	}
	if allowed.Priority != nil {
		if !domain.ValidTicketPriority(*allowed.Priority) {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *allowed.Priority})
		}
		ticket.Priority = *allowed.Priority
	}
	if allowed.Category != nil {
		if !domain.ValidTicketCategory(*allowed.Category) {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": *allowed.Category})
		}
		ticket.Category = *allowed.Category
	}
	if allowed.Title != nil && strings.TrimSpace(*allowed.Title) != "" {
		ticket.Title = strings.TrimSpace(*allowed.Title)
	}
	if allowed.Description != nil && strings.TrimSpace(*allowed.Description) != "" {
		ticket.Description = strings.TrimSpace(*allowed.Description)
	}
	if allowed.AssigneeID != nil {
		if err := s.checkAssignee(ctx, *allowed.AssigneeID); err != nil {
			return nil, err
		}
		ticket.AssigneeID = allowed.AssigneeID
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if ticket.Status != oldStatus {
		if err := s.notifyUser(ctx, ticket.OwnerID, &ticket.ID,
			fmt.Sprintf("Ticket %s status changed from %s to %s", ticket.ExternalKey, oldStatus, ticket.Status),
			domain.NotificationInfo,
		); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    userActor(actor.Role, actor.ID),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}

	if assigneeChanged(oldAssignee, ticket.AssigneeID) {
		if err := s.notifyUser(ctx, *ticket.AssigneeID, &ticket.ID,
			fmt.Sprintf("A ticket has been assigned to you: %s", ticket.ExternalKey),
			domain.NotificationSuccess,
		); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    userActor(actor.Role, actor.ID),
			Payload:  events.TicketAssignedPayload{AssigneeID: ticket.AssigneeID},
		})
	}

	if ticket.Priority != oldPriority {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketPriorityChanged,
			TicketID: ticket.ID,
			Actor:    userActor(actor.Role, actor.ID),
			Payload: events.TicketPriorityChangedPayload{
				OldPriority: oldPriority,
				NewPriority: ticket.Priority,
			},
		})
	}

	return ticket, nil
}

func (s *TicketService) checkAssignee(ctx context.Context, assigneeID string) error {
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("assignee", map[string]any{"user_id": assigneeID})
		}
		return apperrors.MapError(err)
	}
	if !assignee.Role.IsStaff() {
		return apperrors.NewConflict("assignee is not staff", map[string]any{"user_id": assigneeID})
	}
	if assignee.Status != domain.UserStatusActive {
		return apperrors.NewConflict("assignee inactive", map[string]any{"user_id": assigneeID})
	}
	return nil
}

func (s *TicketService) notifyUser(ctx context.Context, userID string, ticketID *string, message string, kind domain.NotificationKind) error {
	return s.notifications.Create(ctx, &domain.Notification{
		UserID:   userID,
		TicketID: ticketID,
		Message:  message,
		Kind:     kind,
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func assigneeChanged(old, current *string) bool {
	if current == nil {
		return false
	}
	return old == nil || *old != *current
}

func userActor(role domain.Role, userID string) events.Actor {
	return events.Actor{Role: role, UserID: &userID}
}

func generateTicketKey() string {
	return "HD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// allowedTransitions is the ticket lifecycle: Open leads to InProgress or
// straight to Closed, InProgress resolves or closes, and both Resolved and
// Closed are terminal. Re-opening is not modeled.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
