package agent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"solar_sdr_backend/internal/followups"
	"solar_sdr_backend/internal/leads/domain"
	leadsrepo "solar_sdr_backend/internal/leads/repository"
)

// FollowUpAgent plans reengagement touches for leads that go quiet mid-
// qualification. The executor loop owns the actual delivery.
type FollowUpAgent struct {
	svc  *followups.Service
	repo *leadsrepo.Repository
}

// NewFollowUpAgent creates the follow-up subagent.
func NewFollowUpAgent(svc *followups.Service, repo *leadsrepo.Repository) *FollowUpAgent {
	return &FollowUpAgent{svc: svc, repo: repo}
}

// Name implements Subagent.
func (a *FollowUpAgent) Name() string { return "followup" }

// Handle schedules the short-window reengagement. SchedulePlan deduplicates,
// so calling this on every eligible turn is safe.
func (a *FollowUpAgent) Handle(ctx context.Context, input *Input) (*Result, error) {
	_, err := a.svc.SchedulePlan(ctx, a.repo.Pool(), input.Lead.ID, domain.FollowUpReengage30M, time.Now().Add(30*time.Minute), "")
	if err != nil {
		return nil, err
	}
	return &Result{Source: a.Name()}, nil
}

// PlanReengagement schedules a specific reengagement kind at the given time.
// The orchestrator calls this after a turn leaves the lead waiting on a
// question.
func (a *FollowUpAgent) PlanReengagement(ctx context.Context, q leadsrepo.Querier, leadID uuid.UUID, kind domain.FollowUpKind, dueAt time.Time) error {
	_, err := a.svc.SchedulePlan(ctx, q, leadID, kind, dueAt, "")
	return err
}
