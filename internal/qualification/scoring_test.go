package qualification

import (
	"testing"

	"solar_sdr_backend/internal/leads/domain"
)

func testScorer() *Scorer {
	return NewScorer(DefaultWeights(), 400, 20, 80)
}

func TestScoreFullyQualifiedLead(t *testing.T) {
	s := testScorer()
	slots := domain.Slots{
		Name:              "Ana",
		MonthlyBillAmount: 1700, // above minBill*4
		Solution:          domain.SolutionOwnPlant,
		HasCompetitor:     boolPtr(false),
	}

	// 10 (name) + 40 (bill max) + 20 (preferred solution) + 15 (no
	// competitor) + 10 (high engagement) = 95.
	if got := s.Score(slots, 20); got != 95 {
		t.Fatalf("unexpected score:\nwant: %d\ngot:  %d", 95, got)
	}
	if temp := s.Classify(95); temp != domain.TemperatureHot {
		t.Fatalf("unexpected temperature: %q", temp)
	}
}

func TestScoreBillTiers(t *testing.T) {
	s := testScorer()
	cases := []struct {
		amount float64
		want   int
	}{
		{0, 0},
		{399, 0},
		{400, 20},
		{800, 30},
		{1600, 40},
	}
	for _, tc := range cases {
		got := s.Score(domain.Slots{MonthlyBillAmount: tc.amount}, 0)
		if got != tc.want {
			t.Fatalf("score for bill %v:\nwant: %d\ngot:  %d", tc.amount, tc.want, got)
		}
	}
}

func TestScoreCompetitorBeatable(t *testing.T) {
	s := testScorer()

	// Discount under the max is beatable and worth points.
	beatable := domain.Slots{HasCompetitor: boolPtr(true), CompetitorDiscountPct: 15}
	if got := s.Score(beatable, 0); got != 20 {
		t.Fatalf("beatable competitor score:\nwant: %d\ngot:  %d", 20, got)
	}

	// At or above the max discount the lead earns nothing for it.
	locked := domain.Slots{HasCompetitor: boolPtr(true), CompetitorDiscountPct: 20}
	if got := s.Score(locked, 0); got != 0 {
		t.Fatalf("locked-in competitor scored %d", got)
	}
}

func TestScoreEngagementTiers(t *testing.T) {
	s := testScorer()
	cases := []struct {
		messages int
		want     int
	}{
		{0, 0},
		{1, 2},
		{5, 5},
		{15, 10},
	}
	for _, tc := range cases {
		if got := s.Score(domain.Slots{}, tc.messages); got != tc.want {
			t.Fatalf("engagement score for %d messages:\nwant: %d\ngot:  %d", tc.messages, tc.want, got)
		}
	}
}

func TestClassifyBoundaries(t *testing.T) {
	s := testScorer()
	cases := []struct {
		score int
		want  domain.Temperature
	}{
		{0, domain.TemperatureCold},
		{39, domain.TemperatureCold},
		{40, domain.TemperatureWarm},
		{79, domain.TemperatureWarm},
		{80, domain.TemperatureHot},
		{100, domain.TemperatureHot},
	}
	for _, tc := range cases {
		if got := s.Classify(tc.score); got != tc.want {
			t.Fatalf("Classify(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestScoreClampedToHundred(t *testing.T) {
	weights := DefaultWeights()
	weights.Name = 200
	s := NewScorer(weights, 400, 20, 80)
	if got := s.Score(domain.Slots{Name: "Ana"}, 0); got != 100 {
		t.Fatalf("score not clamped: %d", got)
	}
}
