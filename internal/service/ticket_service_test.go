package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/repository"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type memTicketRepo struct {
	mu      sync.Mutex
	nextID  int
	tickets map[string]*domain.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *memTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = fmt.Sprintf("ticket-%d", r.nextID)
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.OwnerID != nil && ticket.OwnerID != *filter.OwnerID {
			continue
		}
		out = append(out, *ticket)
	}
	return out, nil
}

func (r *memTicketRepo) FindBreachEligible(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	return nil, nil
}
func (r *memTicketRepo) MarkBreached(ctx context.Context, ticketID string, escalatePriority bool) (bool, error) {
	return false, nil
}
func (r *memTicketRepo) StatusCounts(ctx context.Context) (map[domain.TicketStatus]int, error) {
	return nil, nil
}
func (r *memTicketRepo) PriorityCounts(ctx context.Context) (map[domain.TicketPriority]int, error) {
	return nil, nil
}
func (r *memTicketRepo) CategoryCounts(ctx context.Context) (map[domain.TicketCategory]int, error) {
	return nil, nil
}
func (r *memTicketRepo) BreachedCount(ctx context.Context) (int, error) { return 0, nil }
func (r *memTicketRepo) AgentPerformance(ctx context.Context) ([]repository.AgentPerformance, error) {
	return nil, nil
}

type memUserRepo struct {
	users map[string]*domain.User
}

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error { return nil }
func (r *memUserRepo) Update(ctx context.Context, user *domain.User) error { return nil }
func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}
func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
func (r *memUserRepo) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	return nil, nil
}

type memNotificationRepo struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (r *memNotificationRepo) Create(ctx context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *notification)
	return nil
}

func (r *memNotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	return nil, nil
}

func (r *memNotificationRepo) forUser(userID string) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, item := range r.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out
}

func testUsers() *memUserRepo {
	return &memUserRepo{users: map[string]*domain.User{
		"cust-1":     {ID: "cust-1", Role: domain.RoleCustomer, Status: domain.UserStatusActive},
		"cust-2":     {ID: "cust-2", Role: domain.RoleCustomer, Status: domain.UserStatusActive},
		"agent-1":    {ID: "agent-1", Role: domain.RoleAgent, Status: domain.UserStatusActive},
		"agent-idle": {ID: "agent-idle", Role: domain.RoleAgent, Status: domain.UserStatusInactive},
		"mgr-1":      {ID: "mgr-1", Role: domain.RoleManager, Status: domain.UserStatusActive},
	}}
}

func newTestTicketService(clock Clock) (*TicketService, *memTicketRepo, *memNotificationRepo) {
	tickets := newMemTicketRepo()
	notifications := &memNotificationRepo{}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:       tickets,
		UserRepo:         testUsers(),
		NotificationRepo: notifications,
		Clock:            clock,
	})
	return svc, tickets, notifications
}

func TestCreateTicketDefaultsAndDueDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	svc, _, notifications := newTestTicketService(fixedClock{now: now})

	ticket, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title:       "  laptop will not boot  ",
		Description: "black screen on power up",
		Category:    domain.CategoryHardware,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, now.Add(24*time.Hour), ticket.DueDate)
	assert.Equal(t, "laptop will not boot", ticket.Title)
	assert.False(t, ticket.IsBreached)
	assert.NotEmpty(t, ticket.ExternalKey)

	owned := notifications.forUser("cust-1")
	require.Len(t, owned, 1)
	assert.Equal(t, domain.NotificationSuccess, owned[0].Kind)
}

func TestCreateTicketCriticalDueInOneHour(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	svc, _, _ := newTestTicketService(fixedClock{now: now})

	ticket, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title:       "production down",
		Description: "all requests failing",
		Category:    domain.CategoryTechnical,
		Priority:    domain.TicketPriorityCritical,
	})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), ticket.DueDate)
}

func TestCreateTicketRejectsUnknownCategory(t *testing.T) {
	svc, _, _ := newTestTicketService(fixedClock{now: time.Now()})

	_, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title:       "x",
		Description: "y",
		Category:    domain.TicketCategory("GARDENING"),
	})
	assert.Error(t, err)
}

func TestUpdateTicketStatusTransition(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	svc, _, notifications := newTestTicketService(fixedClock{now: now})
	agent := &domain.User{ID: "agent-1", Role: domain.RoleAgent, Status: domain.UserStatusActive}

	ticket, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title: "t", Description: "d", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)
	created := len(notifications.forUser("cust-1"))

	updated, err := svc.UpdateTicket(context.Background(), agent, ticket.ID, TicketChanges{
		Status: statusPtr(domain.TicketStatusInProgress),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	// Exactly one status notification for the owner.
	owned := notifications.forUser("cust-1")
	require.Len(t, owned, created+1)
	assert.Contains(t, owned[created].Message, "status changed")
}

func TestUpdateTicketRejectsInvalidTransition(t *testing.T) {
	svc, _, _ := newTestTicketService(fixedClock{now: time.Now()})
	agent := &domain.User{ID: "agent-1", Role: domain.RoleAgent, Status: domain.UserStatusActive}

	ticket, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title: "t", Description: "d", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	_, err = svc.UpdateTicket(context.Background(), agent, ticket.ID, TicketChanges{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	assert.Error(t, err, "open tickets must pass through in progress before resolution")
}

func TestUpdateTicketTerminalIsFinal(t *testing.T) {
	svc, _, _ := newTestTicketService(fixedClock{now: time.Now()})
	agent := &domain.User{ID: "agent-1", Role: domain.RoleAgent, Status: domain.UserStatusActive}

	ticket, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title: "t", Description: "d", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	_, err = svc.UpdateTicket(context.Background(), agent, ticket.ID, TicketChanges{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	require.NoError(t, err)

	_, err = svc.UpdateTicket(context.Background(), agent, ticket.ID, TicketChanges{
		Status: statusPtr(domain.TicketStatusInProgress),
	})
	assert.Error(t, err)
}

func TestUpdateTicketCloseSetsClosedAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	svc, _, _ := newTestTicketService(fixedClock{now: now})
	agent := &domain.User{ID: "agent-1", Role: domain.RoleAgent, Status: domain.UserStatusActive}

	ticket, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title: "t", Description: "d", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateTicket(context.Background(), agent, ticket.ID, TicketChanges{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ClosedAt)
	assert.Equal(t, now, *updated.ClosedAt)
}

func TestUpdateTicketAssignmentNotifiesOnce(t *testing.T) {
	svc, _, notifications := newTestTicketService(fixedClock{now: time.Now()})
	manager := &domain.User{ID: "mgr-1", Role: domain.RoleManager, Status: domain.UserStatusActive}

	ticket, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title: "t", Description: "d", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	_, err = svc.UpdateTicket(context.Background(), manager, ticket.ID, TicketChanges{
		AssigneeID: strPtr("agent-1"),
	})
	require.NoError(t, err)
	require.Len(t, notifications.forUser("agent-1"), 1)

	// Re-assigning to the same agent does not notify again.
	_, err = svc.UpdateTicket(context.Background(), manager, ticket.ID, TicketChanges{
		AssigneeID: strPtr("agent-1"),
	})
	require.NoError(t, err)
	assert.Len(t, notifications.forUser("agent-1"), 1)
}

func TestUpdateTicketRejectsNonStaffAssignee(t *testing.T) {
	svc, _, _ := newTestTicketService(fixedClock{now: time.Now()})
	manager := &domain.User{ID: "mgr-1", Role: domain.RoleManager, Status: domain.UserStatusActive}

	ticket, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title: "t", Description: "d", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	_, err = svc.UpdateTicket(context.Background(), manager, ticket.ID, TicketChanges{
		AssigneeID: strPtr("cust-2"),
	})
	assert.Error(t, err)

	_, err = svc.UpdateTicket(context.Background(), manager, ticket.ID, TicketChanges{
		AssigneeID: strPtr("agent-idle"),
	})
	assert.Error(t, err, "inactive staff cannot be assigned")
}

func TestUpdateTicketCustomerStrippedToNothing(t *testing.T) {
	svc, _, _ := newTestTicketService(fixedClock{now: time.Now()})
	owner := &domain.User{ID: "cust-1", Role: domain.RoleCustomer, Status: domain.UserStatusActive}

	ticket, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title: "t", Description: "d", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	// Only privileged fields proposed: everything is stripped and the
	// update is rejected as empty rather than partially applied.
	_, err = svc.UpdateTicket(context.Background(), owner, ticket.ID, TicketChanges{
		Priority:   priorityPtr(domain.TicketPriorityCritical),
		AssigneeID: strPtr("agent-1"),
	})
	assert.Error(t, err)

	fresh, err := svc.GetTicket(context.Background(), owner, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, fresh.Priority)
	assert.Nil(t, fresh.AssigneeID)
}

func TestUpdateTicketPriorityDoesNotMoveDueDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	svc, _, _ := newTestTicketService(fixedClock{now: now})
	agent := &domain.User{ID: "agent-1", Role: domain.RoleAgent, Status: domain.UserStatusActive}

	ticket, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title: "t", Description: "d", Category: domain.CategoryGeneral,
		Priority: domain.TicketPriorityLow,
	})
	require.NoError(t, err)
	originalDue := ticket.DueDate

	updated, err := svc.UpdateTicket(context.Background(), agent, ticket.ID, TicketChanges{
		Priority: priorityPtr(domain.TicketPriorityCritical),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityCritical, updated.Priority)
	assert.Equal(t, originalDue, updated.DueDate)
}

func TestListTicketsScopesCustomers(t *testing.T) {
	svc, _, _ := newTestTicketService(fixedClock{now: time.Now()})
	owner := &domain.User{ID: "cust-1", Role: domain.RoleCustomer, Status: domain.UserStatusActive}
	other := &domain.User{ID: "cust-2", Role: domain.RoleCustomer, Status: domain.UserStatusActive}
	agent := &domain.User{ID: "agent-1", Role: domain.RoleAgent, Status: domain.UserStatusActive}

	_, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title: "mine", Description: "d", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)
	_, err = svc.CreateTicket(context.Background(), "cust-2", TicketCreateInput{
		Title: "theirs", Description: "d", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	mine, err := svc.ListTickets(context.Background(), owner, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := svc.ListTickets(context.Background(), other, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	all, err := svc.ListTickets(context.Background(), agent, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetTicketVisibility(t *testing.T) {
	svc, _, _ := newTestTicketService(fixedClock{now: time.Now()})
	owner := &domain.User{ID: "cust-1", Role: domain.RoleCustomer, Status: domain.UserStatusActive}
	other := &domain.User{ID: "cust-2", Role: domain.RoleCustomer, Status: domain.UserStatusActive}
	agent := &domain.User{ID: "agent-1", Role: domain.RoleAgent, Status: domain.UserStatusActive}

	ticket, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title: "t", Description: "d", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	_, err = svc.GetTicket(context.Background(), owner, ticket.ID)
	assert.NoError(t, err)
	_, err = svc.GetTicket(context.Background(), agent, ticket.ID)
	assert.NoError(t, err)
	_, err = svc.GetTicket(context.Background(), other, ticket.ID)
	assert.Error(t, err)

	_, err = svc.GetTicket(context.Background(), owner, "missing")
	assert.Error(t, err)
}
