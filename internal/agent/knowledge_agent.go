package agent

import (
	"context"

	"solar_sdr_backend/internal/knowledge"
)

// KnowledgeAgent answers informational questions grounded in the curated
// corpus.
type KnowledgeAgent struct {
	svc *knowledge.Service
}

// NewKnowledgeAgent creates the knowledge subagent.
func NewKnowledgeAgent(svc *knowledge.Service) *KnowledgeAgent {
	return &KnowledgeAgent{svc: svc}
}

// Name implements Subagent.
func (a *KnowledgeAgent) Name() string { return "knowledge" }

// Handle runs grounded retrieval. An empty answer means the corpus had
// nothing relevant; the orchestrator falls back to the coordinator model.
func (a *KnowledgeAgent) Handle(ctx context.Context, input *Input) (*Result, error) {
	answer, err := a.svc.AnswerWithSources(ctx, input.Text)
	if err != nil {
		return nil, err
	}

	return &Result{
		Source:    a.Name(),
		Reply:     answer.Text,
		Citations: answer.Citations,
	}, nil
}
