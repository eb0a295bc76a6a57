package qualification

import (
	"solar_sdr_backend/internal/leads/domain"
)

// Weights are the score contributions per captured slot. Numbers vary per
// campaign, so they are data, not constants.
type Weights struct {
	Name               int
	BillBase           int
	BillMid            int
	BillMax            int
	SolutionPreferred  int
	SolutionKnown      int
	CompetitorNone     int
	CompetitorBeatable int
	EngagementLow      int
	EngagementMedium   int
	EngagementHigh     int
}

// DefaultWeights returns the standard campaign weighting.
func DefaultWeights() Weights {
	return Weights{
		Name:               10,
		BillBase:           20,
		BillMid:            30,
		BillMax:            40,
		SolutionPreferred:  20,
		SolutionKnown:      10,
		CompetitorNone:     15,
		CompetitorBeatable: 20,
		EngagementLow:      2,
		EngagementMedium:   5,
		EngagementHigh:     10,
	}
}

// Scorer computes qualification scores and temperatures.
type Scorer struct {
	weights     Weights
	minBill     float64
	discountMax float64
	hotScoreMin int
}

// NewScorer creates a scorer. discountMax is the competitor discount above
// which the lead is considered hard to win.
func NewScorer(weights Weights, minBill, discountMax float64, hotScoreMin int) *Scorer {
	return &Scorer{
		weights:     weights,
		minBill:     minBill,
		discountMax: discountMax,
		hotScoreMin: hotScoreMin,
	}
}

// Score computes the qualification score from the current slots and message
// count, clamped to [0,100].
func (s *Scorer) Score(slots domain.Slots, messageCount int) int {
	score := 0

	if slots.Name != "" {
		score += s.weights.Name
	}

	score += s.billPoints(slots.MonthlyBillAmount)

	switch slots.Solution {
	case domain.SolutionOwnPlant, domain.SolutionLotRental:
		score += s.weights.SolutionPreferred
	case domain.SolutionDiscountHigh, domain.SolutionDiscountLow, domain.SolutionInvestment:
		score += s.weights.SolutionKnown
	}

	if slots.HasCompetitor != nil {
		if !*slots.HasCompetitor {
			score += s.weights.CompetitorNone
		} else if slots.CompetitorDiscountPct > 0 && slots.CompetitorDiscountPct < s.discountMax {
			score += s.weights.CompetitorBeatable
		}
	}

	score += s.engagementPoints(messageCount)

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// billPoints scales with how far the bill sits above the minimum threshold.
func (s *Scorer) billPoints(amount float64) int {
	switch {
	case amount <= 0 || amount < s.minBill:
		return 0
	case amount >= s.minBill*4:
		return s.weights.BillMax
	case amount >= s.minBill*2:
		return s.weights.BillMid
	default:
		return s.weights.BillBase
	}
}

func (s *Scorer) engagementPoints(messageCount int) int {
	switch {
	case messageCount >= 15:
		return s.weights.EngagementHigh
	case messageCount >= 5:
		return s.weights.EngagementMedium
	case messageCount > 0:
		return s.weights.EngagementLow
	default:
		return 0
	}
}

// Classify maps a score to a temperature. The boundary belongs to the upper
// tier at 40 and at the configured hot minimum.
func (s *Scorer) Classify(score int) domain.Temperature {
	switch {
	case score >= s.hotScoreMin:
		return domain.TemperatureHot
	case score >= 40:
		return domain.TemperatureWarm
	default:
		return domain.TemperatureCold
	}
}
