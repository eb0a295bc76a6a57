package crm

import (
	"testing"

	"solar_sdr_backend/internal/leads/domain"
)

func TestPipelineStageIDCoversAllStages(t *testing.T) {
	stages := []domain.Stage{
		domain.StageInitial,
		domain.StageIdentifying,
		domain.StageDiscoveringSolution,
		domain.StageCapturingBill,
		domain.StageCheckingCompetitor,
		domain.StageScheduling,
		domain.StageScheduled,
		domain.StageWon,
		domain.StageLost,
		domain.StageAbandoned,
	}
	for _, stage := range stages {
		if PipelineStageID(stage) == "" {
			t.Fatalf("stage %q has no pipeline mapping", stage)
		}
	}
}

func TestPipelineStageIDKnownMappings(t *testing.T) {
	cases := []struct {
		stage domain.Stage
		want  string
	}{
		{domain.StageScheduled, "stage_meeting_booked"},
		{domain.StageWon, "stage_won"},
		{domain.StageAbandoned, "stage_lost"},
	}
	for _, tc := range cases {
		if got := PipelineStageID(tc.stage); got != tc.want {
			t.Fatalf("PipelineStageID(%q):\nwant: %q\ngot:  %q", tc.stage, tc.want, got)
		}
	}

	// Unknown stages land in the entry column rather than erroring.
	if got := PipelineStageID(domain.Stage("SOMETHING_NEW")); got != "stage_new" {
		t.Fatalf("unexpected fallback: %q", got)
	}
}
