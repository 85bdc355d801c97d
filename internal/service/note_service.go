package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/events"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/repository"
	apperrors "github.com/Vijay-Anand-VJ/helpdesk-service/pkg/util"
)

// NoteService manages the threaded conversation on a ticket.
type NoteService struct {
	tickets    repository.TicketRepository
	notes      repository.NoteRepository
	dispatcher events.Dispatcher
}

// NewNoteService constructs the service.
func NewNoteService(tickets repository.TicketRepository, notes repository.NoteRepository, dispatcher events.Dispatcher) *NoteService {
	return &NoteService{tickets: tickets, notes: notes, dispatcher: dispatcher}
}

// NoteCreateInput describes a new note.
type NoteCreateInput struct {
	Body          string
	IsInternal    bool
	AttachmentKey *string
}

// ListNotes returns a ticket's notes; internal notes are hidden from
// customers.
func (s *NoteService) ListNotes(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Note, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && ticket.OwnerID != actor.ID {
		return nil, apperrors.NewForbidden("not authorized to view this ticket")
	}
	notes, err := s.notes.ListByTicket(ctx, ticketID, actor.Role.IsStaff())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return notes, nil
}

// AddNote appends a note to the ticket thread. Customers may only comment
// on their own tickets and cannot post internal notes.
func (s *NoteService) AddNote(ctx context.Context, actor *domain.User, ticketID string, input NoteCreateInput) (*domain.Note, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	authorType := domain.NoteAuthorStaff
	isInternal := input.IsInternal
	if !actor.Role.IsStaff() {
		if ticket.OwnerID != actor.ID {
			return nil, apperrors.NewForbidden("not authorized to comment on this ticket")
		}
		authorType = domain.NoteAuthorCustomer
		isInternal = false
	}

	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}

	note := &domain.Note{
		TicketID:      ticket.ID,
		AuthorID:      actor.ID,
		AuthorType:    authorType,
		Body:          body,
		IsInternal:    isInternal,
		AttachmentKey: input.AttachmentKey,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketNoteAdded,
			TicketID:  ticket.ID,
			Actor:     userActor(actor.Role, actor.ID),
			Timestamp: time.Now(),
			Payload: events.TicketNoteAddedPayload{
				NoteID:     note.ID,
				AuthorType: note.AuthorType,
				IsInternal: note.IsInternal,
			},
		})
	}
	return note, nil
}

func (s *NoteService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}
