package agent

import (
	"context"

	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/internal/qualification"
)

// QualificationAgent operates the funnel state machine: slot extraction,
// stage advancement, scoring, and the next-question hint.
type QualificationAgent struct {
	machine *qualification.Machine
	scorer  *qualification.Scorer
}

// NewQualificationAgent creates the qualification subagent.
func NewQualificationAgent(machine *qualification.Machine, scorer *qualification.Scorer) *QualificationAgent {
	return &QualificationAgent{machine: machine, scorer: scorer}
}

// Name implements Subagent.
func (a *QualificationAgent) Name() string { return "qualification" }

// Handle extracts slots from the inbound text, advances the stage, and
// recomputes the score.
func (a *QualificationAgent) Handle(_ context.Context, input *Input) (*Result, error) {
	slots := qualification.ExtractSlots(input.Slots, input.Text)
	if input.Artifact != nil && input.Artifact.Transcript != "" {
		slots = qualification.ExtractSlots(slots, input.Artifact.Transcript)
	}

	stage, handoff := a.machine.Advance(input.Lead.Stage, slots)

	return &Result{
		Source:       a.Name(),
		SlotUpdates:  &slots,
		NeedsHandoff: handoff,
		NextAction:   qualification.NextQuestionHint(stage),
	}, nil
}

// ScoreAndClassify exposes the scorer for the orchestrator's post-process
// step.
func (a *QualificationAgent) ScoreAndClassify(slots domain.Slots, messageCount int) (int, domain.Temperature) {
	score := a.scorer.Score(slots, messageCount)
	return score, a.scorer.Classify(score)
}
