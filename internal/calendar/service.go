package calendar

import (
	"context"
	"fmt"
	"time"

	"solar_sdr_backend/internal/events"
	"solar_sdr_backend/internal/followups"
	"solar_sdr_backend/internal/leads/domain"
	leadsrepo "solar_sdr_backend/internal/leads/repository"
	"solar_sdr_backend/platform/apperr"
	"solar_sdr_backend/platform/config"
	platformevents "solar_sdr_backend/platform/events"
	"solar_sdr_backend/platform/logger"
)

const (
	maxReminderAttempts = 3

	slotDayStart = 9
	slotDayEnd   = 18
)

// reminderThresholds pairs each reminder window with its flag column and
// follow-up kind, most urgent first so one tick never sends two reminders
// for the same event.
var reminderThresholds = []struct {
	window time.Duration
	column string
	kind   domain.FollowUpKind
	sent   func(*domain.CalendarEvent) bool
}{
	{30 * time.Minute, "reminder_30m_sent", domain.FollowUpReminder30M, func(e *domain.CalendarEvent) bool { return e.Reminder30MSent }},
	{2 * time.Hour, "reminder_2h_sent", domain.FollowUpReminder2H, func(e *domain.CalendarEvent) bool { return e.Reminder2HSent }},
	{24 * time.Hour, "reminder_24h_sent", domain.FollowUpReminder24H, func(e *domain.CalendarEvent) bool { return e.Reminder24HSent }},
}

// Sender delivers reminder messages through the humanized sender.
type Sender interface {
	Send(ctx context.Context, lead *domain.Lead, chunks []string) error
}

// Service owns meeting scheduling and the sync/reminder loops.
type Service struct {
	client *Client
	repo   *Repository
	leads  *leadsrepo.Repository
	sender Sender
	bus    platformevents.Bus
	log    *logger.Logger

	meetingDuration time.Duration
	missedPolicy    string

	now func() time.Time
}

// NewService creates the calendar service.
func NewService(client *Client, repo *Repository, leads *leadsrepo.Repository, sender Sender, bus platformevents.Bus, cfg config.CalendarConfig, log *logger.Logger) *Service {
	return &Service{
		client:          client,
		repo:            repo,
		leads:           leads,
		sender:          sender,
		bus:             bus,
		log:             log,
		meetingDuration: cfg.GetMeetingDuration(),
		missedPolicy:    cfg.GetMissedMeetingPolicy(),
		now:             time.Now,
	}
}

// Slot is a proposed meeting time.
type Slot struct {
	Start time.Time
	End   time.Time
}

// FindSlots proposes up to count free business-hour slots after from,
// skipping weekends and times the provider reports busy.
func (s *Service) FindSlots(ctx context.Context, from time.Time, count int) ([]Slot, error) {
	horizon := from.Add(14 * 24 * time.Hour)
	busy, err := s.client.ListEvents(ctx, from, horizon)
	if err != nil {
		return nil, err
	}

	var slots []Slot
	cursor := from.Truncate(time.Hour).Add(time.Hour)
	for len(slots) < count && cursor.Before(horizon) {
		if cursor.Weekday() == time.Saturday || cursor.Weekday() == time.Sunday ||
			cursor.Hour() < slotDayStart || cursor.Hour() >= slotDayEnd {
			cursor = cursor.Add(time.Hour)
			continue
		}

		candidate := Slot{Start: cursor, End: cursor.Add(s.meetingDuration)}
		if !overlapsAny(candidate, busy) {
			slots = append(slots, candidate)
		}
		cursor = cursor.Add(time.Hour)
	}
	return slots, nil
}

func overlapsAny(slot Slot, busy []Event) bool {
	for _, ev := range busy {
		if ev.Status == "cancelled" {
			continue
		}
		if slot.Start.Before(ev.End) && ev.Start.Before(slot.End) {
			return true
		}
	}
	return false
}

// Schedule books a meeting for the lead. Attendee emails are mandatory, and
// any existing non-terminal event is canceled before the new one is created
// so the one-active-event invariant holds.
func (s *Service) Schedule(ctx context.Context, lead *domain.Lead, start time.Time, attendees []string) (*domain.CalendarEvent, error) {
	if len(attendees) == 0 {
		return nil, apperr.New(apperr.KindValidation, "attendee emails are required before scheduling")
	}

	if existing, err := s.repo.GetActiveForLead(ctx, lead.ID); err == nil {
		if err := s.cancelEvent(ctx, lead, existing, "rescheduled"); err != nil {
			return nil, err
		}
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	created, err := s.client.CreateEvent(ctx, Event{
		Summary:     fmt.Sprintf("Reunião Energia Solar - %s", displayName(lead)),
		Description: "Apresentação da proposta de economia de energia.",
		Start:       start,
		End:         start.Add(s.meetingDuration),
		Attendees:   attendees,
	})
	if err != nil {
		return nil, err
	}

	event, err := s.repo.Create(ctx, lead.ID, created.ID, created.Start, created.End, attendees)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.NewMeetingScheduled(lead.ID, event.ID))
	return event, nil
}

// Reschedule cancels the active event and books a new slot with the same
// attendees.
func (s *Service) Reschedule(ctx context.Context, lead *domain.Lead, start time.Time) (*domain.CalendarEvent, error) {
	existing, err := s.repo.GetActiveForLead(ctx, lead.ID)
	if err != nil {
		return nil, err
	}
	return s.Schedule(ctx, lead, start, existing.AttendeeEmails)
}

// Cancel removes the lead's active meeting.
func (s *Service) Cancel(ctx context.Context, lead *domain.Lead, reason string) error {
	existing, err := s.repo.GetActiveForLead(ctx, lead.ID)
	if err != nil {
		return err
	}
	return s.cancelEvent(ctx, lead, existing, reason)
}

func (s *Service) cancelEvent(ctx context.Context, lead *domain.Lead, event *domain.CalendarEvent, reason string) error {
	if err := s.client.DeleteEvent(ctx, event.ExternalEventID); err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return err
	}
	if err := s.repo.SetStatus(ctx, event.ID, domain.CalendarCanceled); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.NewMeetingCanceled(lead.ID, reason))
	return nil
}

// SyncTick reconciles upcoming local events with the provider. Remote wins
// on every divergence; local-only changes are overwritten and logged.
func (s *Service) SyncTick(ctx context.Context) (processed, failed int) {
	now := s.now()

	upcoming, err := s.repo.ListUpcomingConfirmed(ctx, now.Add(14*24*time.Hour))
	if err != nil {
		s.log.Error("calendar sync listing failed", "error", err)
		return 0, 0
	}

	for _, record := range upcoming {
		if err := s.syncOne(ctx, record); err != nil {
			s.log.Error("calendar sync failed", "event_id", record.ID, "error", err)
			failed++
		} else {
			processed++
		}
	}

	s.handleMissed(ctx, now)
	s.log.SchedulerEvent("calendar_sync", processed, failed)
	return processed, failed
}

func (s *Service) syncOne(ctx context.Context, record *EventRecord) error {
	remote, err := s.client.GetEvent(ctx, record.ExternalEventID)
	if apperr.Is(err, apperr.KindNotFound) {
		// Deleted upstream: cancel locally and tell the lead's funnel.
		if err := s.repo.SetStatus(ctx, record.ID, domain.CalendarCanceled); err != nil {
			return err
		}
		s.bus.Publish(ctx, events.NewMeetingCanceled(record.LeadID, "remote_deleted"))
		return nil
	}
	if err != nil {
		return err
	}

	if remote.Status == "cancelled" {
		if err := s.repo.SetStatus(ctx, record.ID, domain.CalendarCanceled); err != nil {
			return err
		}
		s.bus.Publish(ctx, events.NewMeetingCanceled(record.LeadID, "remote_canceled"))
		return nil
	}

	if !remote.Start.Equal(record.StartAt) || !remote.End.Equal(record.EndAt) ||
		!sameAttendees(remote.Attendees, record.AttendeeEmails) {
		s.log.Info("calendar divergence, remote wins",
			"event_id", record.ID,
			"local_start", record.StartAt,
			"remote_start", remote.Start,
		)
		return s.repo.ApplyRemote(ctx, record.ID, remote.Start, remote.End, remote.Attendees)
	}
	return nil
}

// handleMissed applies the missed-meeting policy to CONFIRMED events whose
// end time already passed.
func (s *Service) handleMissed(ctx context.Context, now time.Time) {
	missed, err := s.repo.ListMissed(ctx, now)
	if err != nil {
		s.log.Error("missed meeting listing failed", "error", err)
		return
	}

	for _, record := range missed {
		lead, err := s.leads.GetLeadByID(ctx, s.leads.Pool(), record.LeadID.String())
		if err != nil {
			s.log.Error("missed meeting lead lookup failed", "event_id", record.ID, "error", err)
			continue
		}

		if err := s.repo.SetStatus(ctx, record.ID, domain.CalendarCanceled); err != nil {
			s.log.Error("missed meeting cancel failed", "event_id", record.ID, "error", err)
			continue
		}

		stage := domain.StageScheduling
		if s.missedPolicy == "lost" {
			stage = domain.StageLost
		}
		if _, err := s.leads.UpdateLead(ctx, s.leads.Pool(), lead.ID.String(), domain.LeadPatch{Stage: &stage}); err != nil {
			s.log.Error("missed meeting stage update failed", "lead_id", lead.ID, "error", err)
			continue
		}

		s.log.WithLead(lead.Phone).Info("missed meeting handled",
			"policy", s.missedPolicy,
			"new_stage", stage,
		)
	}
}

// ReminderTick fires 24h/2h/30m reminders for CONFIRMED events. The flag is
// set only after a successful send, so a failed send retries next tick up
// to the attempt cap.
func (s *Service) ReminderTick(ctx context.Context) (processed, failed int) {
	now := s.now()

	upcoming, err := s.repo.ListUpcomingConfirmed(ctx, now.Add(25*time.Hour))
	if err != nil {
		s.log.Error("reminder listing failed", "error", err)
		return 0, 0
	}

	for _, record := range upcoming {
		sent, err := s.remindOne(ctx, record, now)
		if err != nil {
			failed++
		} else if sent {
			processed++
		}
	}

	s.log.SchedulerEvent("reminders", processed, failed)
	return processed, failed
}

func (s *Service) remindOne(ctx context.Context, record *EventRecord, now time.Time) (bool, error) {
	until := record.StartAt.Sub(now)
	if until <= 0 {
		return false, nil
	}

	for _, threshold := range reminderThresholds {
		if until > threshold.window || threshold.sent(&record.CalendarEvent) {
			continue
		}
		if record.ReminderAttempts >= maxReminderAttempts {
			return false, nil
		}

		lead, err := s.leads.GetLeadByID(ctx, s.leads.Pool(), record.LeadID.String())
		if err != nil {
			return false, err
		}

		text := followups.Render(followups.DefaultTemplateKey(threshold.kind), threshold.kind, lead)
		if err := s.sender.Send(ctx, lead, []string{text}); err != nil {
			if bumpErr := s.repo.BumpReminderAttempts(ctx, record.ID); bumpErr != nil {
				s.log.Error("reminder attempt bump failed", "event_id", record.ID, "error", bumpErr)
			}
			return false, err
		}

		if err := s.repo.MarkReminderSent(ctx, record.ID, threshold.column); err != nil {
			return false, err
		}
		s.bus.Publish(ctx, events.NewReminderSent(lead.ID, threshold.kind))
		return true, nil
	}
	return false, nil
}

func sameAttendees(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, email := range a {
		seen[email] = struct{}{}
	}
	for _, email := range b {
		if _, ok := seen[email]; !ok {
			return false
		}
	}
	return true
}

func displayName(lead *domain.Lead) string {
	if lead.DisplayName != "" {
		return lead.DisplayName
	}
	return lead.Phone
}
