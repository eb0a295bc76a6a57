package domain

import (
	"time"

	"github.com/google/uuid"
)

// FollowUpKind distinguishes reengagements from meeting reminders.
type FollowUpKind string

const (
	FollowUpReengage30M FollowUpKind = "REENGAGE_30M"
	FollowUpReengage24H FollowUpKind = "REENGAGE_24H"
	FollowUpNurture     FollowUpKind = "NURTURE"
	FollowUpReminder24H FollowUpKind = "REMINDER_24H"
	FollowUpReminder2H  FollowUpKind = "REMINDER_2H"
	FollowUpReminder30M FollowUpKind = "REMINDER_30M"
)

// IsReengagement reports whether the kind reengages a dormant lead, as
// opposed to reminding about a scheduled meeting.
func (k FollowUpKind) IsReengagement() bool {
	switch k {
	case FollowUpReengage30M, FollowUpReengage24H, FollowUpNurture:
		return true
	}
	return false
}

// FollowUpStatus is the delivery state. Transitions out of PENDING happen
// exactly once.
type FollowUpStatus string

const (
	FollowUpPending  FollowUpStatus = "PENDING"
	FollowUpSent     FollowUpStatus = "SENT"
	FollowUpCanceled FollowUpStatus = "CANCELED"
	FollowUpFailed   FollowUpStatus = "FAILED"
)

// FollowUp is a scheduled outbound message for a lead.
type FollowUp struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	Kind         FollowUpKind
	TemplateKey  string
	DueAt        time.Time
	Status       FollowUpStatus
	AttemptCount int
	LastError    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CalendarEventStatus is the meeting state.
type CalendarEventStatus string

const (
	CalendarConfirmed   CalendarEventStatus = "CONFIRMED"
	CalendarRescheduled CalendarEventStatus = "RESCHEDULED"
	CalendarCanceled    CalendarEventStatus = "CANCELED"
)

// CalendarEvent mirrors one external calendar event for a lead.
type CalendarEvent struct {
	ID              uuid.UUID
	LeadID          uuid.UUID
	ExternalEventID string
	StartAt         time.Time
	EndAt           time.Time
	AttendeeEmails  []string
	Reminder24HSent bool
	Reminder2HSent  bool
	Reminder30MSent bool
	Status          CalendarEventStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AnalyticsEvent is an append-only funnel metric record.
type AnalyticsEvent struct {
	ID        uuid.UUID
	Kind      string
	LeadID    *uuid.UUID
	Payload   map[string]any
	Timestamp time.Time
}
