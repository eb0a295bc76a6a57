package followups

import (
	"context"
	"time"

	"github.com/google/uuid"

	"solar_sdr_backend/internal/events"
	"solar_sdr_backend/internal/leads/domain"
	leadsrepo "solar_sdr_backend/internal/leads/repository"
	platformevents "solar_sdr_backend/platform/events"
	"solar_sdr_backend/platform/logger"
)

// Service schedules and cancels follow-ups. It never sends anything; the
// executor owns delivery.
type Service struct {
	repo *Repository
	bus  platformevents.Bus
	log  *logger.Logger
}

// NewService creates the follow-up service.
func NewService(repo *Repository, bus platformevents.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// SchedulePlan creates a PENDING follow-up. For reengagement kinds it is a
// no-op when one is already pending, so repeated turns do not stack rows.
func (s *Service) SchedulePlan(ctx context.Context, q leadsrepo.Querier, leadID uuid.UUID, kind domain.FollowUpKind, dueAt time.Time, templateKey string) (*domain.FollowUp, error) {
	if kind.IsReengagement() {
		pending, err := s.repo.HasPendingReengagement(ctx, q, leadID)
		if err != nil {
			return nil, err
		}
		if pending {
			return nil, nil
		}
	}

	if templateKey == "" {
		templateKey = DefaultTemplateKey(kind)
	}
	return s.repo.Create(ctx, q, leadID, kind, templateKey, dueAt)
}

// CancelReengagements cancels pending reengagements when a lead reaches a
// terminal stage, publishing the count for analytics.
func (s *Service) CancelReengagements(ctx context.Context, q leadsrepo.Querier, leadID uuid.UUID, reason string) error {
	count, err := s.repo.CancelPendingReengagements(ctx, q, leadID)
	if err != nil {
		return err
	}
	if count > 0 {
		s.bus.Publish(ctx, events.NewFollowUpCanceled(leadID, count, reason))
	}
	return nil
}

// CancelAllForLead cancels every pending follow-up for a lead (operator CLI).
func (s *Service) CancelAllForLead(ctx context.Context, leadID uuid.UUID, reason string) (int, error) {
	count, err := s.repo.CancelAllPendingForLead(ctx, leadID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.bus.Publish(ctx, events.NewFollowUpCanceled(leadID, count, reason))
	}
	return count, nil
}
