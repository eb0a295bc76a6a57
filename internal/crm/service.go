package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"solar_sdr_backend/internal/events"
	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/internal/leads/repository"
	platformevents "solar_sdr_backend/platform/events"
	"solar_sdr_backend/platform/logger"
)

// syncTimeout bounds one best-effort sync independently of the turn budget.
const syncTimeout = 15 * time.Second

// leadStore persists the external id the CRM assigns on first sync.
type leadStore interface {
	Pool() *pgxpool.Pool
	UpdateLead(ctx context.Context, q repository.Querier, id string, patch domain.LeadPatch) (*domain.Lead, error)
}

// Service synchronizes lead state with the CRM. Every method is best-effort:
// failures are logged and published, never returned to the conversation path.
type Service struct {
	client     *Client
	repo       leadStore
	bus        platformevents.Bus
	pipelineID string
	log        *logger.Logger
}

// NewService creates the CRM sync service.
func NewService(client *Client, repo leadStore, bus platformevents.Bus, pipelineID string, log *logger.Logger) *Service {
	return &Service{client: client, repo: repo, bus: bus, pipelineID: pipelineID, log: log}
}

// SyncLead upserts the lead remotely and stores the external id locally on
// first sync.
func (s *Service) SyncLead(ctx context.Context, lead *domain.Lead) {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	payload := s.payloadFor(lead)

	if lead.CRMExternalID != nil {
		if err := s.client.UpdateLead(ctx, *lead.CRMExternalID, payload); err != nil {
			s.reportFailure(ctx, lead, "update_lead", err)
		}
		return
	}

	externalID, err := s.client.UpsertLead(ctx, payload)
	if err != nil {
		s.reportFailure(ctx, lead, "upsert_lead", err)
		return
	}

	if _, err := s.repo.UpdateLead(ctx, s.repo.Pool(), lead.ID.String(), domain.LeadPatch{
		CRMExternalID: &externalID,
	}); err != nil {
		s.log.WithLead(lead.Phone).Error("failed to store crm external id", "error", err)
		return
	}
	lead.CRMExternalID = &externalID
}

// AdvanceStage moves the remote pipeline card to match the local stage.
func (s *Service) AdvanceStage(ctx context.Context, lead *domain.Lead) {
	if lead.CRMExternalID == nil {
		s.SyncLead(ctx, lead)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	err := s.client.UpdateLead(ctx, *lead.CRMExternalID, LeadPayload{
		PipelineID: s.pipelineID,
		StageID:    PipelineStageID(lead.Stage),
		Score:      lead.Score,
	})
	if err != nil {
		s.reportFailure(ctx, lead, "advance_stage", err)
	}
}

// AddNote appends a note to the remote lead, syncing first when the lead
// has never been pushed. Handoff notes often arrive before the first sync.
func (s *Service) AddNote(ctx context.Context, lead *domain.Lead, text string) {
	if lead.CRMExternalID == nil {
		s.SyncLead(ctx, lead)
		if lead.CRMExternalID == nil {
			return
		}
	}

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	if err := s.client.AddNote(ctx, *lead.CRMExternalID, text); err != nil {
		s.reportFailure(ctx, lead, "add_note", err)
	}
}

// CreateTask creates a task on the remote lead, e.g. a human handoff for
// investment prospects.
func (s *Service) CreateTask(ctx context.Context, lead *domain.Lead, text string, dueAt time.Time, taskType string) {
	if lead.CRMExternalID == nil {
		s.SyncLead(ctx, lead)
		if lead.CRMExternalID == nil {
			return
		}
	}

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	err := s.client.CreateTask(ctx, *lead.CRMExternalID, TaskPayload{
		Text:  text,
		DueAt: dueAt,
		Type:  taskType,
	})
	if err != nil {
		s.reportFailure(ctx, lead, "create_task", err)
	}
}

func (s *Service) payloadFor(lead *domain.Lead) LeadPayload {
	payload := LeadPayload{
		Name:        lead.DisplayName,
		Phone:       lead.Phone,
		PipelineID:  s.pipelineID,
		StageID:     PipelineStageID(lead.Stage),
		Score:       lead.Score,
		Temperature: string(lead.Temperature),
	}
	if lead.DisplayName == "" {
		payload.Name = lead.Phone
	}
	if lead.Email != nil {
		payload.Email = *lead.Email
	}
	if lead.MonthlyBillAmount != nil {
		payload.MonthlyBill = *lead.MonthlyBillAmount
	}
	return payload
}

func (s *Service) reportFailure(ctx context.Context, lead *domain.Lead, op string, err error) {
	s.log.WithLead(lead.Phone).Warn("crm sync failed",
		"op", op,
		"error", err,
	)
	s.bus.Publish(ctx, events.NewCRMSyncFailed(lead.ID, op, fmt.Sprintf("%v", err)))
}
