package qualification

import (
	"testing"

	"solar_sdr_backend/internal/leads/domain"
)

func boolPtr(v bool) *bool { return &v }

func TestAdvanceCascades(t *testing.T) {
	m := &Machine{minBill: 400}

	// One message can fill several slots; the machine must cascade through
	// every satisfied stage in a single call.
	slots := domain.Slots{
		Name:              "Ana",
		Solution:          domain.SolutionLotRental,
		MonthlyBillAmount: 900,
	}
	stage, handoff := m.Advance(domain.StageInitial, slots)
	if handoff {
		t.Fatal("unexpected handoff")
	}
	if stage != domain.StageCheckingCompetitor {
		t.Fatalf("unexpected stage:\nwant: %q\ngot:  %q", domain.StageCheckingCompetitor, stage)
	}
}

func TestAdvanceBillThresholdBoundary(t *testing.T) {
	m := &Machine{minBill: 400}

	// Exactly at the threshold still qualifies.
	stage, _ := m.Advance(domain.StageCapturingBill, domain.Slots{MonthlyBillAmount: 400})
	if stage != domain.StageCheckingCompetitor {
		t.Fatalf("bill at threshold did not advance, got %q", stage)
	}

	stage, _ = m.Advance(domain.StageCapturingBill, domain.Slots{MonthlyBillAmount: 399.99})
	if stage != domain.StageCapturingBill {
		t.Fatalf("bill below threshold advanced to %q", stage)
	}

	// Zero means not captured yet, not a failed qualification.
	stage, _ = m.Advance(domain.StageCapturingBill, domain.Slots{})
	if stage != domain.StageCapturingBill {
		t.Fatalf("empty bill advanced to %q", stage)
	}
}

func TestAdvanceInvestmentHandsOff(t *testing.T) {
	m := &Machine{minBill: 400}

	stage, handoff := m.Advance(domain.StageDiscoveringSolution, domain.Slots{
		Name:     "Ana",
		Solution: domain.SolutionInvestment,
	})
	if !handoff {
		t.Fatal("investment track must request handoff")
	}
	if stage != domain.StageDiscoveringSolution {
		t.Fatalf("handoff must not advance the stage, got %q", stage)
	}
}

func TestAdvanceSchedulingNeedsDatetimeAndEmail(t *testing.T) {
	m := &Machine{minBill: 400}

	stage, _ := m.Advance(domain.StageScheduling, domain.Slots{MeetingDatetime: "2026-09-01T10:00:00-03:00"})
	if stage != domain.StageScheduling {
		t.Fatalf("scheduling advanced without attendee email, got %q", stage)
	}

	stage, _ = m.Advance(domain.StageScheduling, domain.Slots{
		MeetingDatetime: "2026-09-01T10:00:00-03:00",
		AttendeeEmails:  []string{"ana@example.com"},
	})
	if stage != domain.StageScheduled {
		t.Fatalf("scheduling did not complete, got %q", stage)
	}
}

func TestAdvanceSchedulingWaitsForBooking(t *testing.T) {
	m := &Machine{minBill: 400}

	// Fully qualified but not booked: the lead holds at SCHEDULING until a
	// confirmed meeting fills the datetime and attendee slots.
	slots := domain.Slots{
		Name:              "Carlos",
		Solution:          domain.SolutionOwnPlant,
		MonthlyBillAmount: 450,
		HasCompetitor:     boolPtr(false),
	}
	stage, _ := m.Advance(domain.StageScheduling, slots)
	if stage != domain.StageScheduling {
		t.Fatalf("unbooked lead advanced to %q", stage)
	}

	slots.MeetingDatetime = "2026-09-01T14:00:00Z"
	slots.AttendeeEmails = []string{"carlos@example.com"}
	stage, _ = m.Advance(domain.StageScheduling, slots)
	if stage != domain.StageScheduled {
		t.Fatalf("booked lead did not reach SCHEDULED, got %q", stage)
	}
}

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from, to domain.Stage
		want     bool
	}{
		{domain.StageInitial, domain.StageIdentifying, true},
		{domain.StageIdentifying, domain.StageScheduling, true},
		{domain.StageScheduled, domain.StageScheduling, true},
		{domain.StageScheduling, domain.StageCapturingBill, false},
		{domain.StageCheckingCompetitor, domain.StageIdentifying, false},
		{domain.StageCapturingBill, domain.StageAbandoned, true},
		{domain.StageScheduled, domain.StageWon, true},
		{domain.StageIdentifying, domain.StageLost, true},
		{domain.StageScheduling, domain.StageScheduling, true},
	}
	for _, tc := range cases {
		if got := ValidTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("ValidTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestNextQuestionHint(t *testing.T) {
	if hint := NextQuestionHint(domain.StageCapturingBill); hint == "" {
		t.Fatal("expected hint for bill capture stage")
	}
	if hint := NextQuestionHint(domain.StageWon); hint != "" {
		t.Fatalf("terminal stage produced hint %q", hint)
	}
}
