package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/events"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/observability"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/repository"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/sla"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	markErr map[string]error
	findErr error
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{
		tickets: make(map[string]*domain.Ticket),
		markErr: make(map[string]error),
	}
}

func (s *fakeTicketStore) add(ticket *domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[ticket.ID] = ticket
}

func (s *fakeTicketStore) get(id string) domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.tickets[id]
}

func (s *fakeTicketStore) FindBreachEligible(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	var eligible []domain.Ticket
	for _, ticket := range s.tickets {
		if sla.BreachEligible(ticket, now) {
			eligible = append(eligible, *ticket)
		}
	}
	return eligible, nil
}

func (s *fakeTicketStore) MarkBreached(ctx context.Context, ticketID string, escalatePriority bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.markErr[ticketID]; err != nil {
		return false, err
	}
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return false, nil
	}
	if ticket.IsBreached || ticket.Status.IsTerminal() {
		return false, nil
	}
	ticket.IsBreached = true
	if escalatePriority {
		ticket.Priority = domain.TicketPriorityCritical
	}
	return true, nil
}

func (s *fakeTicketStore) Create(ctx context.Context, ticket *domain.Ticket) error { return nil }
func (s *fakeTicketStore) Update(ctx context.Context, ticket *domain.Ticket) error { return nil }
func (s *fakeTicketStore) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return nil, errors.New("not implemented")
}
func (s *fakeTicketStore) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, nil
}
func (s *fakeTicketStore) StatusCounts(ctx context.Context) (map[domain.TicketStatus]int, error) {
	return nil, nil
}
func (s *fakeTicketStore) PriorityCounts(ctx context.Context) (map[domain.TicketPriority]int, error) {
	return nil, nil
}
func (s *fakeTicketStore) CategoryCounts(ctx context.Context) (map[domain.TicketCategory]int, error) {
	return nil, nil
}
func (s *fakeTicketStore) BreachedCount(ctx context.Context) (int, error) { return 0, nil }
func (s *fakeTicketStore) AgentPerformance(ctx context.Context) ([]repository.AgentPerformance, error) {
	return nil, nil
}

type fakeNoteStore struct {
	mu    sync.Mutex
	notes []domain.Note
	err   error
}

func (s *fakeNoteStore) Create(ctx context.Context, note *domain.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.notes = append(s.notes, *note)
	return nil
}

func (s *fakeNoteStore) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Note, error) {
	return nil, nil
}

type fakeNotificationStore struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (s *fakeNotificationStore) Create(ctx context.Context, notification *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, *notification)
	return nil
}

func (s *fakeNotificationStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	return nil, nil
}

func overdueTicket(id, owner string, priority domain.TicketPriority, dueDate time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:          id,
		ExternalKey: "HD-" + id,
		OwnerID:     owner,
		Title:       "printer on fire",
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		DueDate:     dueDate,
	}
}

func newTestScheduler(tickets *fakeTicketStore, notes *fakeNoteStore, notifications *fakeNotificationStore, clock Clock) (*SLAScheduler, *observability.Metrics, events.Dispatcher) {
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	s := New(Dependencies{
		TicketRepo:       tickets,
		NoteRepo:         notes,
		NotificationRepo: notifications,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           zap.NewNop(),
		Clock:            clock,
	})
	return s, metrics, dispatcher
}

func TestRunOnceEscalatesOverdueTicket(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tickets := newFakeTicketStore()
	notes := &fakeNoteStore{}
	notifications := &fakeNotificationStore{}
	tickets.add(overdueTicket("t1", "owner-1", domain.TicketPriorityMedium, clock.Now().Add(-time.Hour)))

	s, metrics, _ := newTestScheduler(tickets, notes, notifications, clock)
	s.RunOnce(context.Background())

	got := tickets.get("t1")
	assert.True(t, got.IsBreached)
	assert.Equal(t, domain.TicketPriorityCritical, got.Priority)

	require.Len(t, notes.notes, 1)
	note := notes.notes[0]
	assert.Equal(t, "t1", note.TicketID)
	assert.Equal(t, domain.NoteAuthorSystem, note.AuthorType)
	assert.Equal(t, "owner-1", note.AuthorID)
	assert.True(t, note.IsInternal)

	require.Len(t, notifications.items, 1)
	assert.Equal(t, "owner-1", notifications.items[0].UserID)
	assert.Equal(t, domain.NotificationError, notifications.items[0].Kind)

	_, escalations, failures := metrics.ScanTotals()
	assert.Equal(t, int64(1), escalations)
	assert.Equal(t, int64(0), failures)
}

func TestRunOnceNotifiesAssigneeWhenAssigned(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tickets := newFakeTicketStore()
	notes := &fakeNoteStore{}
	notifications := &fakeNotificationStore{}
	ticket := overdueTicket("t1", "owner-1", domain.TicketPriorityHigh, clock.Now().Add(-time.Hour))
	agent := "agent-9"
	ticket.AssigneeID = &agent
	tickets.add(ticket)

	s, _, _ := newTestScheduler(tickets, notes, notifications, clock)
	s.RunOnce(context.Background())

	require.Len(t, notifications.items, 1)
	assert.Equal(t, "agent-9", notifications.items[0].UserID)
	assert.Contains(t, notifications.items[0].Message, "URGENT")
}

func TestRunOnceEscalatesAtMostOnce(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tickets := newFakeTicketStore()
	notes := &fakeNoteStore{}
	notifications := &fakeNotificationStore{}
	tickets.add(overdueTicket("t1", "owner-1", domain.TicketPriorityLow, clock.Now().Add(-time.Hour)))

	s, metrics, _ := newTestScheduler(tickets, notes, notifications, clock)
	s.RunOnce(context.Background())
	clock.Advance(10 * time.Minute)
	s.RunOnce(context.Background())
	s.RunOnce(context.Background())

	assert.Len(t, notes.notes, 1)
	assert.Len(t, notifications.items, 1)
	_, escalations, _ := metrics.ScanTotals()
	assert.Equal(t, int64(1), escalations)
}

func TestRunOnceKeepsCriticalPriority(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tickets := newFakeTicketStore()
	notes := &fakeNoteStore{}
	notifications := &fakeNotificationStore{}
	tickets.add(overdueTicket("t1", "owner-1", domain.TicketPriorityCritical, clock.Now().Add(-time.Minute)))

	s, _, _ := newTestScheduler(tickets, notes, notifications, clock)
	s.RunOnce(context.Background())

	got := tickets.get("t1")
	assert.True(t, got.IsBreached)
	assert.Equal(t, domain.TicketPriorityCritical, got.Priority)
	assert.Len(t, notifications.items, 1)
}

func TestRunOnceIsolatesPerTicketFailures(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tickets := newFakeTicketStore()
	notes := &fakeNoteStore{}
	notifications := &fakeNotificationStore{}
	overdue := clock.Now().Add(-time.Hour)
	tickets.add(overdueTicket("t1", "owner-1", domain.TicketPriorityMedium, overdue))
	tickets.add(overdueTicket("t2", "owner-2", domain.TicketPriorityMedium, overdue))
	tickets.add(overdueTicket("t3", "owner-3", domain.TicketPriorityMedium, overdue))
	tickets.markErr["t2"] = errors.New("connection reset")

	s, metrics, _ := newTestScheduler(tickets, notes, notifications, clock)
	s.RunOnce(context.Background())

	assert.True(t, tickets.get("t1").IsBreached)
	assert.False(t, tickets.get("t2").IsBreached)
	assert.True(t, tickets.get("t3").IsBreached)
	_, escalations, failures := metrics.ScanTotals()
	assert.Equal(t, int64(2), escalations)
	assert.Equal(t, int64(1), failures)

	// The failed ticket stays eligible and is picked up next scan.
	delete(tickets.markErr, "t2")
	s.RunOnce(context.Background())
	assert.True(t, tickets.get("t2").IsBreached)
	_, escalations, _ = metrics.ScanTotals()
	assert.Equal(t, int64(3), escalations)
}

func TestRunOnceQueryFailure(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tickets := newFakeTicketStore()
	tickets.findErr = errors.New("db down")
	notes := &fakeNoteStore{}
	notifications := &fakeNotificationStore{}

	s, metrics, _ := newTestScheduler(tickets, notes, notifications, clock)
	s.RunOnce(context.Background())

	scans, escalations, failures := metrics.ScanTotals()
	assert.Equal(t, int64(1), scans)
	assert.Equal(t, int64(0), escalations)
	assert.Equal(t, int64(1), failures)
}

func TestRunOncePublishesBreachEvent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tickets := newFakeTicketStore()
	notes := &fakeNoteStore{}
	notifications := &fakeNotificationStore{}
	tickets.add(overdueTicket("t1", "owner-1", domain.TicketPriorityHigh, clock.Now().Add(-time.Hour)))

	s, _, dispatcher := newTestScheduler(tickets, notes, notifications, clock)
	var received []events.Event
	dispatcher.Subscribe(events.EventTicketSLABreached, func(ctx context.Context, event events.Event) error {
		received = append(received, event)
		return nil
	})

	s.RunOnce(context.Background())

	require.Len(t, received, 1)
	assert.True(t, received[0].Actor.System)
	payload, ok := received[0].Payload.(events.TicketSLABreachedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.TicketPriorityHigh, payload.OldPriority)
	assert.Equal(t, "owner-1", payload.RecipientID)
}

func TestBreachAppearsAfterDueDatePasses(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	tickets := newFakeTicketStore()
	notes := &fakeNoteStore{}
	notifications := &fakeNotificationStore{}

	// A critical ticket created now is due in one hour.
	tickets.add(overdueTicket("t1", "owner-1", domain.TicketPriorityCritical,
		sla.DueDate(start, domain.TicketPriorityCritical)))

	s, _, _ := newTestScheduler(tickets, notes, notifications, clock)

	s.RunOnce(context.Background())
	assert.False(t, tickets.get("t1").IsBreached)

	clock.Advance(59 * time.Minute)
	s.RunOnce(context.Background())
	assert.False(t, tickets.get("t1").IsBreached)

	clock.Advance(2 * time.Minute)
	s.RunOnce(context.Background())
	assert.True(t, tickets.get("t1").IsBreached)
	assert.Len(t, notifications.items, 1)
}

func TestRunOnceSkipsTerminalTickets(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tickets := newFakeTicketStore()
	notes := &fakeNoteStore{}
	notifications := &fakeNotificationStore{}
	resolved := overdueTicket("t1", "owner-1", domain.TicketPriorityMedium, clock.Now().Add(-time.Hour))
	resolved.Status = domain.TicketStatusResolved
	tickets.add(resolved)

	s, metrics, _ := newTestScheduler(tickets, notes, notifications, clock)
	s.RunOnce(context.Background())

	assert.False(t, tickets.get("t1").IsBreached)
	assert.Equal(t, domain.TicketPriorityMedium, tickets.get("t1").Priority)
	assert.Empty(t, notifications.items)
	_, escalations, _ := metrics.ScanTotals()
	assert.Equal(t, int64(0), escalations)
}

func TestRunOnceSurvivesLostNote(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tickets := newFakeTicketStore()
	notes := &fakeNoteStore{err: errors.New("notes table gone")}
	notifications := &fakeNotificationStore{}
	tickets.add(overdueTicket("t1", "owner-1", domain.TicketPriorityMedium, clock.Now().Add(-time.Hour)))

	s, metrics, _ := newTestScheduler(tickets, notes, notifications, clock)
	s.RunOnce(context.Background())

	// The ticket write already landed, so the escalation still counts and
	// the notification still goes out.
	assert.True(t, tickets.get("t1").IsBreached)
	assert.Len(t, notifications.items, 1)
	_, escalations, failures := metrics.ScanTotals()
	assert.Equal(t, int64(1), escalations)
	assert.Equal(t, int64(0), failures)
}

func TestStartTwiceFails(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s, _, _ := newTestScheduler(newFakeTicketStore(), &fakeNoteStore{}, &fakeNotificationStore{}, clock)

	require.NoError(t, s.Start(time.Hour))
	defer s.Stop()

	assert.Error(t, s.Start(time.Hour))
}
