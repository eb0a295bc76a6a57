package analytics

import (
	"context"

	"github.com/google/uuid"

	"solar_sdr_backend/internal/events"
	platformevents "solar_sdr_backend/platform/events"
	"solar_sdr_backend/platform/logger"
)

// Subscriber records every domain event as an analytics row.
type Subscriber struct {
	repo *Repository
	log  *logger.Logger
}

// NewSubscriber creates the analytics subscriber.
func NewSubscriber(repo *Repository, log *logger.Logger) *Subscriber {
	return &Subscriber{repo: repo, log: log}
}

// Register subscribes to every event the system publishes.
func (s *Subscriber) Register(bus *platformevents.InMemoryBus) {
	names := []string{
		events.LeadCreatedName,
		events.StageAdvancedName,
		events.TurnCompletedName,
		events.GuardrailFiredName,
		events.FollowUpSentName,
		events.FollowUpCanceledName,
		events.MeetingScheduledName,
		events.MeetingCanceledName,
		events.ReminderSentName,
		events.CRMSyncFailedName,
		events.MediaIngestFailedName,
	}
	for _, name := range names {
		bus.Subscribe(name, platformevents.HandlerFunc(s.handle))
	}
}

func (s *Subscriber) handle(ctx context.Context, event platformevents.Event) error {
	leadID, payload := describe(event)
	return s.repo.Insert(ctx, event.EventName(), leadID, payload)
}

// describe flattens the typed event into the analytics payload.
func describe(event platformevents.Event) (*uuid.UUID, map[string]any) {
	switch e := event.(type) {
	case *events.LeadCreated:
		return &e.LeadID, map[string]any{"phone": e.Phone}
	case *events.StageAdvanced:
		return &e.LeadID, map[string]any{"from": e.From, "to": e.To, "score": e.Score}
	case *events.TurnCompleted:
		return &e.LeadID, map[string]any{
			"stage": e.Stage, "delegated": e.Delegated,
			"duration_ms": e.DurationMS, "degraded": e.Degraded,
		}
	case *events.GuardrailFired:
		return &e.LeadID, map[string]any{"term": e.Term}
	case *events.FollowUpSent:
		return &e.LeadID, map[string]any{"followup_id": e.FollowUpID, "kind": e.Kind}
	case *events.FollowUpCanceled:
		return &e.LeadID, map[string]any{"count": e.Count, "reason": e.Reason}
	case *events.MeetingScheduled:
		return &e.LeadID, map[string]any{"event_id": e.EventID}
	case *events.MeetingCanceled:
		return &e.LeadID, map[string]any{"reason": e.Reason}
	case *events.ReminderSent:
		return &e.LeadID, map[string]any{"kind": e.Kind}
	case *events.CRMSyncFailed:
		return &e.LeadID, map[string]any{"op": e.Op, "reason": e.Reason}
	case *events.MediaIngestFailed:
		return &e.LeadID, map[string]any{"kind": e.Kind, "reason": e.Reason}
	}
	return nil, map[string]any{}
}
