// Package domain defines the core entities of the qualification funnel.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stage is the lead's position in the qualification funnel.
type Stage string

const (
	StageInitial             Stage = "INITIAL"
	StageIdentifying         Stage = "IDENTIFYING"
	StageDiscoveringSolution Stage = "DISCOVERING_SOLUTION"
	StageCapturingBill       Stage = "CAPTURING_BILL"
	StageCheckingCompetitor  Stage = "CHECKING_COMPETITOR"
	StageScheduling          Stage = "SCHEDULING"
	StageScheduled           Stage = "SCHEDULED"
	StageAbandoned           Stage = "ABANDONED"
	StageWon                 Stage = "WON"
	StageLost                Stage = "LOST"
)

// IsTerminal reports whether the stage ends the funnel. SCHEDULED is terminal
// only until the meeting completes, so it counts here for follow-up purposes.
func (s Stage) IsTerminal() bool {
	switch s {
	case StageScheduled, StageWon, StageLost, StageAbandoned:
		return true
	}
	return false
}

// Valid reports whether the value is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageInitial, StageIdentifying, StageDiscoveringSolution,
		StageCapturingBill, StageCheckingCompetitor, StageScheduling,
		StageScheduled, StageAbandoned, StageWon, StageLost:
		return true
	}
	return false
}

// Solution is the product track the lead chose.
type Solution string

const (
	SolutionOwnPlant     Solution = "OWN_PLANT"
	SolutionLotRental    Solution = "LOT_RENTAL"
	SolutionDiscountHigh Solution = "DISCOUNT_HIGH"
	SolutionDiscountLow  Solution = "DISCOUNT_LOW"
	SolutionInvestment   Solution = "INVESTMENT"
	SolutionUnknown      Solution = "UNKNOWN"
)

// Temperature classifies lead readiness from the qualification score.
type Temperature string

const (
	TemperatureCold Temperature = "COLD"
	TemperatureWarm Temperature = "WARM"
	TemperatureHot  Temperature = "HOT"
)

// Lead is a prospective customer keyed by phone number.
type Lead struct {
	ID                    uuid.UUID
	Phone                 string
	DisplayName           string
	Email                 *string
	Stage                 Stage
	Solution              Solution
	MonthlyBillAmount     *float64
	CompetitorName        *string
	CompetitorDiscountPct *float64
	Score                 int
	Temperature           Temperature
	CRMExternalID         *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// LeadPatch carries partial updates for a lead. Nil fields are untouched.
type LeadPatch struct {
	DisplayName           *string
	Email                 *string
	Stage                 *Stage
	Solution              *Solution
	MonthlyBillAmount     *float64
	CompetitorName        *string
	CompetitorDiscountPct *float64
	Score                 *int
	Temperature           *Temperature
	CRMExternalID         *string
}
