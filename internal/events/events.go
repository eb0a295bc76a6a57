// Package events defines the domain events published on the in-process bus.
package events

import (
	"github.com/google/uuid"

	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/platform/events"
)

// Event names.
const (
	LeadCreatedName       = "lead.created"
	StageAdvancedName     = "lead.stage_advanced"
	TurnCompletedName     = "conversation.turn_completed"
	GuardrailFiredName    = "conversation.guardrail_fired"
	FollowUpSentName      = "followup.sent"
	FollowUpCanceledName  = "followup.canceled"
	MeetingScheduledName  = "calendar.meeting_scheduled"
	MeetingCanceledName   = "calendar.meeting_canceled"
	ReminderSentName      = "calendar.reminder_sent"
	CRMSyncFailedName     = "crm.sync_failed"
	MediaIngestFailedName = "media.ingest_failed"
)

// LeadCreated fires when a first inbound message creates a lead.
type LeadCreated struct {
	events.BaseEvent
	LeadID uuid.UUID
	Phone  string
}

// NewLeadCreated creates a LeadCreated event.
func NewLeadCreated(leadID uuid.UUID, phone string) *LeadCreated {
	return &LeadCreated{
		BaseEvent: events.NewBaseEvent(LeadCreatedName),
		LeadID:    leadID,
		Phone:     phone,
	}
}

// StageAdvanced fires on every qualification stage transition.
type StageAdvanced struct {
	events.BaseEvent
	LeadID uuid.UUID
	From   domain.Stage
	To     domain.Stage
	Score  int
}

// NewStageAdvanced creates a StageAdvanced event.
func NewStageAdvanced(leadID uuid.UUID, from, to domain.Stage, score int) *StageAdvanced {
	return &StageAdvanced{
		BaseEvent: events.NewBaseEvent(StageAdvancedName),
		LeadID:    leadID,
		From:      from,
		To:        to,
		Score:     score,
	}
}

// TurnCompleted fires after every orchestrator turn, successful or degraded.
type TurnCompleted struct {
	events.BaseEvent
	LeadID     uuid.UUID
	Stage      domain.Stage
	Delegated  string
	DurationMS int64
	Degraded   bool
}

// NewTurnCompleted creates a TurnCompleted event.
func NewTurnCompleted(leadID uuid.UUID, stage domain.Stage, delegated string, durationMS int64, degraded bool) *TurnCompleted {
	return &TurnCompleted{
		BaseEvent:  events.NewBaseEvent(TurnCompletedName),
		LeadID:     leadID,
		Stage:      stage,
		Delegated:  delegated,
		DurationMS: durationMS,
		Degraded:   degraded,
	}
}

// GuardrailFired fires when an inbound message matches the forbidden-term set.
type GuardrailFired struct {
	events.BaseEvent
	LeadID uuid.UUID
	Term   string
}

// NewGuardrailFired creates a GuardrailFired event.
func NewGuardrailFired(leadID uuid.UUID, term string) *GuardrailFired {
	return &GuardrailFired{
		BaseEvent: events.NewBaseEvent(GuardrailFiredName),
		LeadID:    leadID,
		Term:      term,
	}
}

// FollowUpSent fires when the executor delivers a follow-up.
type FollowUpSent struct {
	events.BaseEvent
	LeadID     uuid.UUID
	FollowUpID uuid.UUID
	Kind       domain.FollowUpKind
}

// NewFollowUpSent creates a FollowUpSent event.
func NewFollowUpSent(leadID, followUpID uuid.UUID, kind domain.FollowUpKind) *FollowUpSent {
	return &FollowUpSent{
		BaseEvent:  events.NewBaseEvent(FollowUpSentName),
		LeadID:     leadID,
		FollowUpID: followUpID,
		Kind:       kind,
	}
}

// FollowUpCanceled fires when pending follow-ups are canceled for a lead.
type FollowUpCanceled struct {
	events.BaseEvent
	LeadID uuid.UUID
	Count  int
	Reason string
}

// NewFollowUpCanceled creates a FollowUpCanceled event.
func NewFollowUpCanceled(leadID uuid.UUID, count int, reason string) *FollowUpCanceled {
	return &FollowUpCanceled{
		BaseEvent: events.NewBaseEvent(FollowUpCanceledName),
		LeadID:    leadID,
		Count:     count,
		Reason:    reason,
	}
}

// MeetingScheduled fires when a calendar event is confirmed for a lead.
type MeetingScheduled struct {
	events.BaseEvent
	LeadID  uuid.UUID
	EventID uuid.UUID
}

// NewMeetingScheduled creates a MeetingScheduled event.
func NewMeetingScheduled(leadID, eventID uuid.UUID) *MeetingScheduled {
	return &MeetingScheduled{
		BaseEvent: events.NewBaseEvent(MeetingScheduledName),
		LeadID:    leadID,
		EventID:   eventID,
	}
}

// MeetingCanceled fires when a calendar event is canceled, locally or by
// remote reconciliation.
type MeetingCanceled struct {
	events.BaseEvent
	LeadID uuid.UUID
	Reason string
}

// NewMeetingCanceled creates a MeetingCanceled event.
func NewMeetingCanceled(leadID uuid.UUID, reason string) *MeetingCanceled {
	return &MeetingCanceled{
		BaseEvent: events.NewBaseEvent(MeetingCanceledName),
		LeadID:    leadID,
		Reason:    reason,
	}
}

// ReminderSent fires when a meeting reminder goes out.
type ReminderSent struct {
	events.BaseEvent
	LeadID uuid.UUID
	Kind   domain.FollowUpKind
}

// NewReminderSent creates a ReminderSent event.
func NewReminderSent(leadID uuid.UUID, kind domain.FollowUpKind) *ReminderSent {
	return &ReminderSent{
		BaseEvent: events.NewBaseEvent(ReminderSentName),
		LeadID:    leadID,
		Kind:      kind,
	}
}

// CRMSyncFailed fires when a best-effort CRM call gives up.
type CRMSyncFailed struct {
	events.BaseEvent
	LeadID uuid.UUID
	Op     string
	Reason string
}

// NewCRMSyncFailed creates a CRMSyncFailed event.
func NewCRMSyncFailed(leadID uuid.UUID, op, reason string) *CRMSyncFailed {
	return &CRMSyncFailed{
		BaseEvent: events.NewBaseEvent(CRMSyncFailedName),
		LeadID:    leadID,
		Op:        op,
		Reason:    reason,
	}
}

// MediaIngestFailed fires when the media pipeline returns an error artifact.
type MediaIngestFailed struct {
	events.BaseEvent
	LeadID uuid.UUID
	Kind   string
	Reason string
}

// NewMediaIngestFailed creates a MediaIngestFailed event.
func NewMediaIngestFailed(leadID uuid.UUID, kind, reason string) *MediaIngestFailed {
	return &MediaIngestFailed{
		BaseEvent: events.NewBaseEvent(MediaIngestFailedName),
		LeadID:    leadID,
		Kind:      kind,
		Reason:    reason,
	}
}
