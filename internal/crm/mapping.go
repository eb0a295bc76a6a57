package crm

import (
	"solar_sdr_backend/internal/leads/domain"
)

// stageMapping is the single source of truth from funnel stages to external
// pipeline stage ids. Keep every stage here; scattering these ids across
// call sites is how mappings drift.
var stageMapping = map[domain.Stage]string{
	domain.StageInitial:             "stage_new",
	domain.StageIdentifying:         "stage_contacted",
	domain.StageDiscoveringSolution: "stage_discovery",
	domain.StageCapturingBill:       "stage_qualifying",
	domain.StageCheckingCompetitor:  "stage_qualifying",
	domain.StageScheduling:          "stage_meeting_pending",
	domain.StageScheduled:           "stage_meeting_booked",
	domain.StageWon:                 "stage_won",
	domain.StageLost:                "stage_lost",
	domain.StageAbandoned:           "stage_lost",
}

// PipelineStageID maps a funnel stage to the external pipeline stage id.
func PipelineStageID(stage domain.Stage) string {
	if id, ok := stageMapping[stage]; ok {
		return id
	}
	return stageMapping[domain.StageInitial]
}
