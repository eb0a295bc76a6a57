// Package agent implements the conversation orchestrator and its
// specialist subagents: per-lead serialized turn handling, intent routing,
// model calls, and humanized outbound delivery.
package agent

import (
	"context"

	"solar_sdr_backend/internal/calendar"
	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/internal/media"
)

// Input is everything a subagent may need for one turn. Subagents never
// send messages; they return a Result the orchestrator serializes.
type Input struct {
	Lead     *domain.Lead
	Slots    domain.Slots
	Text     string
	Artifact *media.Artifact
	History  []*domain.Message
}

// BillAnalysis is the structured reading of a power bill.
type BillAnalysis struct {
	Amount          float64 `json:"amount"`
	KWh             float64 `json:"kwh,omitempty"`
	Distributor     string  `json:"distributor,omitempty"`
	ReferencePeriod string  `json:"reference_period,omitempty"`
}

// Result is the tagged output of a subagent. Source names the producer;
// only the fields relevant to that producer are set.
type Result struct {
	Source string

	// Reply is the suggested user-facing text. The orchestrator may
	// rephrase or split it but never bypasses the humanized sender.
	Reply string

	SlotUpdates  *domain.Slots
	NeedsHandoff bool
	NextAction   string

	Citations     []string
	BillAnalysis  *BillAnalysis
	ProposedSlots []calendar.Slot
	Event         *domain.CalendarEvent
}

// Subagent is a bounded-scope handler the orchestrator can delegate to.
type Subagent interface {
	Name() string
	Handle(ctx context.Context, input *Input) (*Result, error)
}
