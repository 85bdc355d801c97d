package service

import (
	"context"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/repository"
	apperrors "github.com/Vijay-Anand-VJ/helpdesk-service/pkg/util"
)

// ReportService aggregates ticket statistics for dashboards.
type ReportService struct {
	tickets repository.TicketRepository
}

// NewReportService constructs the service.
func NewReportService(tickets repository.TicketRepository) *ReportService {
	return &ReportService{tickets: tickets}
}

// TicketStats is the dashboard aggregate.
type TicketStats struct {
	Total            int
	ByStatus         map[domain.TicketStatus]int
	ByPriority       map[domain.TicketPriority]int
	ByCategory       map[domain.TicketCategory]int
	SLABreaches      int
	AgentPerformance []repository.AgentPerformance
}

// TicketStats assembles status, priority, category, breach, and agent
// workload breakdowns.
func (s *ReportService) TicketStats(ctx context.Context) (*TicketStats, error) {
	byStatus, err := s.tickets.StatusCounts(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byPriority, err := s.tickets.PriorityCounts(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byCategory, err := s.tickets.CategoryCounts(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	breaches, err := s.tickets.BreachedCount(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	agents, err := s.tickets.AgentPerformance(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	total := 0
	for _, count := range byStatus {
		total += count
	}

	return &TicketStats{
		Total:            total,
		ByStatus:         byStatus,
		ByPriority:       byPriority,
		ByCategory:       byCategory,
		SLABreaches:      breaches,
		AgentPerformance: agents,
	}, nil
}
