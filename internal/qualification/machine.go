package qualification

import (
	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/platform/config"
)

// Machine advances leads through the funnel based on slot saturation.
type Machine struct {
	minBill float64
}

// NewMachine creates the state machine from configuration.
func NewMachine(cfg config.QualificationConfig) *Machine {
	return &Machine{minBill: cfg.GetMinBillThreshold()}
}

// Advance computes the next stage for the lead given the current slots.
// It returns the stage (unchanged when slots are not yet saturated) and
// whether the lead needs a human handoff (investment track).
func (m *Machine) Advance(stage domain.Stage, slots domain.Slots) (domain.Stage, bool) {
	// Each case may cascade: a single message can fill several slots at
	// once, so keep advancing until a slot is missing.
	for {
		next, handoff := m.step(stage, slots)
		if handoff {
			return next, true
		}
		if next == stage {
			return next, false
		}
		stage = next
	}
}

func (m *Machine) step(stage domain.Stage, slots domain.Slots) (domain.Stage, bool) {
	switch stage {
	case domain.StageInitial:
		// Any inbound moves the funnel off the starting line.
		return domain.StageIdentifying, false

	case domain.StageIdentifying:
		if slots.Name != "" {
			return domain.StageDiscoveringSolution, false
		}

	case domain.StageDiscoveringSolution:
		if slots.Solution == domain.SolutionInvestment {
			return stage, true
		}
		if slots.Solution != "" && slots.Solution != domain.SolutionUnknown {
			return domain.StageCapturingBill, false
		}

	case domain.StageCapturingBill:
		// Exactly at the threshold still qualifies.
		if slots.MonthlyBillAmount >= m.minBill && slots.MonthlyBillAmount > 0 {
			return domain.StageCheckingCompetitor, false
		}

	case domain.StageCheckingCompetitor:
		if slots.HasCompetitor != nil {
			return domain.StageScheduling, false
		}

	case domain.StageScheduling:
		if slots.MeetingDatetime != "" && len(slots.AttendeeEmails) > 0 {
			return domain.StageScheduled, false
		}
	}

	return stage, false
}

// ValidTransition reports whether moving from one stage to another respects
// the funnel. The only allowed backward move is SCHEDULED → SCHEDULING
// (reschedule).
func ValidTransition(from, to domain.Stage) bool {
	if from == to {
		return true
	}
	if from == domain.StageScheduled && to == domain.StageScheduling {
		return true
	}
	if to == domain.StageAbandoned || to == domain.StageWon || to == domain.StageLost {
		return true
	}
	order := map[domain.Stage]int{
		domain.StageInitial:             0,
		domain.StageIdentifying:         1,
		domain.StageDiscoveringSolution: 2,
		domain.StageCapturingBill:       3,
		domain.StageCheckingCompetitor:  4,
		domain.StageScheduling:          5,
		domain.StageScheduled:           6,
	}
	fromOrder, okFrom := order[from]
	toOrder, okTo := order[to]
	return okFrom && okTo && toOrder > fromOrder
}

// NextQuestionHint names the slot the conversation should chase next.
func NextQuestionHint(stage domain.Stage) string {
	switch stage {
	case domain.StageIdentifying:
		return "perguntar o nome do cliente"
	case domain.StageDiscoveringSolution:
		return "apresentar as opções de solução e perguntar qual interessa"
	case domain.StageCapturingBill:
		return "perguntar o valor da conta de luz mensal"
	case domain.StageCheckingCompetitor:
		return "perguntar se já tem desconto com outra empresa e de quanto"
	case domain.StageScheduling:
		return "propor horários e coletar o e-mail para o convite"
	default:
		return ""
	}
}
