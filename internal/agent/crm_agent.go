package agent

import (
	"context"
	"fmt"

	"solar_sdr_backend/internal/crm"
	"solar_sdr_backend/internal/leads/domain"
)

// CRMAgent mirrors qualification progress into the CRM. All of its work is
// best-effort; a CRM outage never blocks the conversation.
type CRMAgent struct {
	svc *crm.Service
}

// NewCRMAgent creates the CRM subagent.
func NewCRMAgent(svc *crm.Service) *CRMAgent {
	return &CRMAgent{svc: svc}
}

// Name implements Subagent.
func (a *CRMAgent) Name() string { return "crm" }

// Handle syncs the lead and logs the inbound message as a note. Errors are
// swallowed inside the CRM service, so this never fails the turn.
func (a *CRMAgent) Handle(ctx context.Context, input *Input) (*Result, error) {
	a.svc.SyncLead(ctx, input.Lead)
	if input.Text != "" {
		a.svc.AddNote(ctx, input.Lead, fmt.Sprintf("Mensagem do lead: %s", input.Text))
	}
	return &Result{Source: a.Name()}, nil
}

// NoteHandoff records the human-takeover request on the CRM card so the
// sales team picks up the investment track.
func (a *CRMAgent) NoteHandoff(ctx context.Context, lead *domain.Lead) {
	a.svc.AddNote(ctx, lead, "Lead pediu a trilha de investimento. Encaminhar para um especialista humano.")
}
