// Package scheduler runs the SLA breach scan: a periodic background task
// that finds overdue tickets, flags them breached, escalates their
// priority, and leaves a note and notification trail.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/events"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/observability"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/repository"
)

const scanLockKey = "helpdesk:sla-scan-lock"

// Clock abstracts wall time so scans are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall-clock implementation.
func SystemClock() Clock { return systemClock{} }

// Locker guards a scan against concurrent service instances. Locking is
// best effort; a single instance runs correctly without one because the
// conditional breach update already guarantees at-most-once escalation.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// SLAScheduler owns the scan lifecycle. Construct it once at startup with
// explicit dependencies; Start launches the periodic scan and RunOnce
// executes a single scan directly.
type SLAScheduler struct {
	tickets       repository.TicketRepository
	notes         repository.NoteRepository
	notifications repository.NotificationRepository
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	clock         Clock
	locker        Locker
	lockTTL       time.Duration
	cron          *cron.Cron
}

// Dependencies bundles collaborators for the scheduler.
type Dependencies struct {
	TicketRepo       repository.TicketRepository
	NoteRepo         repository.NoteRepository
	NotificationRepo repository.NotificationRepository
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	Clock            Clock
	Locker           Locker
	LockTTL          time.Duration
}

// New constructs the scheduler.
func New(deps Dependencies) *SLAScheduler {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}
	lockTTL := deps.LockTTL
	if lockTTL <= 0 {
		lockTTL = 55 * time.Second
	}
	return &SLAScheduler{
		tickets:       deps.TicketRepo,
		notes:         deps.NoteRepo,
		notifications: deps.NotificationRepo,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		clock:         clock,
		locker:        deps.Locker,
		lockTTL:       lockTTL,
	}
}

// Start begins the periodic scan at the given interval.
func (s *SLAScheduler) Start(interval time.Duration) error {
	if s.cron != nil {
		return fmt.Errorf("sla scheduler already started")
	}
	if interval <= 0 {
		interval = time.Minute
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), s.tick); err != nil {
		return fmt.Errorf("schedule sla scan: %w", err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("sla scheduler started", zap.Duration("interval", interval))
	return nil
}

// Stop halts the periodic scan. A scan already in flight runs to
// completion.
func (s *SLAScheduler) Stop() {
	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.logger.Info("sla scheduler stopped")
}

func (s *SLAScheduler) tick() {
	ctx := context.Background()
	if s.locker != nil {
		ok, err := s.locker.AcquireLock(ctx, scanLockKey, s.lockTTL)
		if err != nil {
			s.logger.Warn("sla scan lock unavailable, proceeding unlocked", zap.Error(err))
		} else if !ok {
			s.logger.Info("sla scan already running elsewhere")
			return
		} else {
			defer func() { _ = s.locker.ReleaseLock(context.Background(), scanLockKey) }()
		}
	}
	s.RunOnce(ctx)
}

// RunOnce executes a single scan. Tickets are processed independently: a
// failing escalation is logged and skipped, never aborting the rest of the
// scan, and the ticket stays eligible for the next tick. No backoff is
// applied; a persistently failing store is simply retried on the next
// interval.
func (s *SLAScheduler) RunOnce(ctx context.Context) {
	now := s.clock.Now()
	tickets, err := s.tickets.FindBreachEligible(ctx, now)
	if err != nil {
		s.logger.Error("sla scan query failed", zap.Error(err))
		s.metrics.RecordScan(0, 1)
		return
	}

	escalated, failed := 0, 0
	for i := range tickets {
		if err := s.escalate(ctx, &tickets[i]); err != nil {
			failed++
			s.logger.Error("sla escalation failed",
				zap.String("ticket_id", tickets[i].ID),
				zap.Error(err))
			continue
		}
		escalated++
	}
	s.metrics.RecordScan(escalated, failed)

	if escalated > 0 || failed > 0 {
		s.logger.Info("sla scan complete",
			zap.Int("eligible", len(tickets)),
			zap.Int("escalated", escalated),
			zap.Int("failed", failed))
	}
}

// escalate performs the breach sequence for one ticket: flag and escalate
// in a single conditional update, then record the internal note, then
// notify the recipient. The conditional update makes re-runs no-ops, so a
// second scan racing this one cannot double-escalate. Once the ticket
// write lands, note and notification failures are degraded outcomes: they
// are logged and the ticket update is never retried or rolled back.
func (s *SLAScheduler) escalate(ctx context.Context, ticket *domain.Ticket) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("escalation panic: %v", r)
		}
	}()

	oldPriority := ticket.Priority
	bumpPriority := ticket.Priority != domain.TicketPriorityCritical

	applied, err := s.tickets.MarkBreached(ctx, ticket.ID, bumpPriority)
	if err != nil {
		return err
	}
	if !applied {
		// Another scan or a concurrent edit got there first.
		s.logger.Debug("ticket no longer breach-eligible", zap.String("ticket_id", ticket.ID))
		return nil
	}

	ticket.IsBreached = true
	if bumpPriority {
		ticket.Priority = domain.TicketPriorityCritical
	}
	s.logger.Warn("sla breach detected",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_key", ticket.ExternalKey),
		zap.String("old_priority", string(oldPriority)))

	// No system account exists, so the ticket owner is the author of
	// record; the SYSTEM author type marks the true origin.
	note := &domain.Note{
		TicketID:   ticket.ID,
		AuthorID:   ticket.OwnerID,
		AuthorType: domain.NoteAuthorSystem,
		Body:       "SLA breached: ticket exceeded its due date. Priority escalated to Critical.",
		IsInternal: true,
	}
	if noteErr := s.notes.Create(ctx, note); noteErr != nil {
		s.logger.Error("breach note lost",
			zap.String("ticket_id", ticket.ID),
			zap.Error(noteErr))
	}

	recipient := ticket.OwnerID
	message := fmt.Sprintf("Your ticket %s has breached its SLA. Priority escalated to Critical.", ticket.ExternalKey)
	if ticket.AssigneeID != nil {
		recipient = *ticket.AssigneeID
		message = fmt.Sprintf("URGENT: ticket %s assigned to you has breached its SLA.", ticket.ExternalKey)
	}
	notification := &domain.Notification{
		UserID:   recipient,
		TicketID: &ticket.ID,
		Message:  message,
		Kind:     domain.NotificationError,
	}
	if notifyErr := s.notifications.Create(ctx, notification); notifyErr != nil {
		s.logger.Error("breach notification lost",
			zap.String("ticket_id", ticket.ID),
			zap.Error(notifyErr))
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketSLABreached,
			TicketID:  ticket.ID,
			Actor:     events.Actor{System: true},
			Timestamp: s.clock.Now(),
			Payload: events.TicketSLABreachedPayload{
				OldPriority: oldPriority,
				DueDate:     ticket.DueDate,
				RecipientID: recipient,
			},
		})
	}
	return nil
}
