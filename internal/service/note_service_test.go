package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
)

type memNoteRepo struct {
	mu     sync.Mutex
	nextID int
	notes  []domain.Note
}

func (r *memNoteRepo) Create(ctx context.Context, note *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	note.ID = fmt.Sprintf("note-%d", r.nextID)
	r.notes = append(r.notes, *note)
	return nil
}

func (r *memNoteRepo) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Note
	for _, note := range r.notes {
		if note.TicketID != ticketID {
			continue
		}
		if note.IsInternal && !includeInternal {
			continue
		}
		out = append(out, note)
	}
	return out, nil
}

func newTestNoteService(t *testing.T) (*NoteService, *memNoteRepo, string) {
	t.Helper()
	tickets := newMemTicketRepo()
	ticket := &domain.Ticket{
		OwnerID:  "cust-1",
		Title:    "t",
		Status:   domain.TicketStatusOpen,
		Priority: domain.TicketPriorityMedium,
	}
	require.NoError(t, tickets.Create(context.Background(), ticket))
	notes := &memNoteRepo{}
	return NewNoteService(tickets, notes, nil), notes, ticket.ID
}

func TestAddNoteCustomer(t *testing.T) {
	svc, _, ticketID := newTestNoteService(t)
	owner := &domain.User{ID: "cust-1", Role: domain.RoleCustomer, Status: domain.UserStatusActive}

	note, err := svc.AddNote(context.Background(), owner, ticketID, NoteCreateInput{
		Body:       "any update on this?",
		IsInternal: true, // customers cannot post internal notes
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NoteAuthorCustomer, note.AuthorType)
	assert.False(t, note.IsInternal)
}

func TestAddNoteCustomerForeignTicket(t *testing.T) {
	svc, _, ticketID := newTestNoteService(t)
	stranger := &domain.User{ID: "cust-2", Role: domain.RoleCustomer, Status: domain.UserStatusActive}

	_, err := svc.AddNote(context.Background(), stranger, ticketID, NoteCreateInput{Body: "hi"})
	assert.Error(t, err)
}

func TestAddNoteStaffInternal(t *testing.T) {
	svc, _, ticketID := newTestNoteService(t)
	agent := &domain.User{ID: "agent-1", Role: domain.RoleAgent, Status: domain.UserStatusActive}

	note, err := svc.AddNote(context.Background(), agent, ticketID, NoteCreateInput{
		Body:       "checked the logs, looks like a disk failure",
		IsInternal: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NoteAuthorStaff, note.AuthorType)
	assert.True(t, note.IsInternal)
}

func TestAddNoteEmptyBody(t *testing.T) {
	svc, _, ticketID := newTestNoteService(t)
	agent := &domain.User{ID: "agent-1", Role: domain.RoleAgent, Status: domain.UserStatusActive}

	_, err := svc.AddNote(context.Background(), agent, ticketID, NoteCreateInput{Body: "   "})
	assert.Error(t, err)
}

func TestListNotesHidesInternalFromCustomers(t *testing.T) {
	svc, _, ticketID := newTestNoteService(t)
	owner := &domain.User{ID: "cust-1", Role: domain.RoleCustomer, Status: domain.UserStatusActive}
	agent := &domain.User{ID: "agent-1", Role: domain.RoleAgent, Status: domain.UserStatusActive}

	_, err := svc.AddNote(context.Background(), owner, ticketID, NoteCreateInput{Body: "public question"})
	require.NoError(t, err)
	_, err = svc.AddNote(context.Background(), agent, ticketID, NoteCreateInput{Body: "internal triage", IsInternal: true})
	require.NoError(t, err)

	visible, err := svc.ListNotes(context.Background(), owner, ticketID)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	all, err := svc.ListNotes(context.Background(), agent, ticketID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
