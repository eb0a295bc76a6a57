package agent

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"solar_sdr_backend/internal/leads/domain"
)

func TestCalendarToolDepsBookingLifecycle(t *testing.T) {
	deps := &CalendarToolDeps{}
	lead := &domain.Lead{ID: uuid.New(), Phone: "+5581999887766"}

	deps.SetLeadContext(lead, domain.Slots{})
	if deps.BookedEvent() != nil {
		t.Fatal("fresh context must not carry a booking")
	}

	start := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	deps.noteBooking(&domain.CalendarEvent{
		ID:             uuid.New(),
		LeadID:         lead.ID,
		StartAt:        start,
		AttendeeEmails: []string{"ana@example.com"},
	})

	event := deps.BookedEvent()
	if event == nil {
		t.Fatal("booking not recorded")
	}
	if !event.StartAt.Equal(start) {
		t.Fatalf("unexpected start:\nwant: %v\ngot:  %v", start, event.StartAt)
	}

	// The next turn starts clean; a stale booking must never advance a
	// different conversation.
	deps.SetLeadContext(lead, domain.Slots{})
	if deps.BookedEvent() != nil {
		t.Fatal("stale booking leaked into the next run")
	}
}

func TestBookingSlotUpdatesFillSchedulingSlots(t *testing.T) {
	event := &domain.CalendarEvent{
		StartAt:        time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC),
		AttendeeEmails: []string{"ana@example.com"},
	}

	updates := bookingSlotUpdates(event)
	if updates.MeetingDatetime != "2026-09-01T14:00:00Z" {
		t.Fatalf("unexpected meeting datetime: %q", updates.MeetingDatetime)
	}
	if len(updates.AttendeeEmails) != 1 || updates.AttendeeEmails[0] != "ana@example.com" {
		t.Fatalf("unexpected attendees: %v", updates.AttendeeEmails)
	}

	// Merged into qualified slots, the booking is what finally satisfies
	// the SCHEDULING exit condition.
	slots := mergeSlots(domain.Slots{Name: "Ana"}, *updates)
	if slots.MeetingDatetime == "" || len(slots.AttendeeEmails) == 0 {
		t.Fatalf("booking did not reach the slots: %+v", slots)
	}
}
