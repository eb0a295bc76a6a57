package followups

import (
	"context"
	"time"

	"solar_sdr_backend/internal/events"
	"solar_sdr_backend/internal/leads/domain"
	leadsrepo "solar_sdr_backend/internal/leads/repository"
	platformevents "solar_sdr_backend/platform/events"
	"solar_sdr_backend/platform/logger"
)

const (
	claimBatch  = 10
	maxAttempts = 3
)

// Sender delivers outbound chunks with humanized pacing and per-lead
// serialization. Implemented by the orchestrator's sender.
type Sender interface {
	Send(ctx context.Context, lead *domain.Lead, chunks []string) error
}

// Executor drains due follow-ups each tick and delivers them.
type Executor struct {
	repo   *Repository
	leads  *leadsrepo.Repository
	sender Sender
	bus    platformevents.Bus
	log    *logger.Logger

	quietStart int
	quietEnd   int

	now func() time.Time
}

// NewExecutor creates the follow-up executor.
func NewExecutor(repo *Repository, leads *leadsrepo.Repository, sender Sender, bus platformevents.Bus, quietStart, quietEnd int, log *logger.Logger) *Executor {
	return &Executor{
		repo:       repo,
		leads:      leads,
		sender:     sender,
		bus:        bus,
		log:        log,
		quietStart: quietStart,
		quietEnd:   quietEnd,
		now:        time.Now,
	}
}

// Tick claims and processes one batch of due follow-ups. Returns how many
// were processed and how many failed; contention is not an error, the next
// tick re-claims.
func (e *Executor) Tick(ctx context.Context) (processed, failed int) {
	now := e.now()

	claimed, err := e.repo.ClaimDue(ctx, now, claimBatch)
	if err != nil {
		e.log.Error("follow-up claim failed", "error", err)
		return 0, 0
	}

	for _, fu := range claimed {
		if ctx.Err() != nil {
			// Shutdown: unclaimed rows stay PENDING; claimed ones are
			// released by rescheduling to their original due time.
			_ = e.repo.Reschedule(context.Background(), fu.ID, fu.DueAt)
			continue
		}
		if err := e.process(ctx, fu, now); err != nil {
			failed++
		} else {
			processed++
		}
	}

	e.log.SchedulerEvent("followups", processed, failed)
	return processed, failed
}

func (e *Executor) process(ctx context.Context, fu *domain.FollowUp, now time.Time) error {
	lead, err := e.leads.GetLeadByID(ctx, e.leads.Pool(), fu.LeadID.String())
	if err != nil {
		e.log.Error("follow-up lead lookup failed", "followup_id", fu.ID, "error", err)
		_, markErr := e.repo.MarkFailed(ctx, fu.ID, err.Error(), maxAttempts)
		return firstError(err, markErr)
	}

	// Terminal leads get no reengagement; reminders stay valid for
	// SCHEDULED leads.
	if fu.Kind.IsReengagement() && lead.Stage.IsTerminal() {
		if err := e.repo.Cancel(ctx, fu.ID); err != nil {
			return err
		}
		e.bus.Publish(ctx, events.NewFollowUpCanceled(lead.ID, 1, "terminal_stage"))
		return nil
	}

	if InQuietHours(now, e.quietStart, e.quietEnd) {
		return e.repo.Reschedule(ctx, fu.ID, NextWindowOpen(now, e.quietStart, e.quietEnd))
	}

	text := Render(fu.TemplateKey, fu.Kind, lead)
	if err := e.sender.Send(ctx, lead, []string{text}); err != nil {
		status, markErr := e.repo.MarkFailed(ctx, fu.ID, err.Error(), maxAttempts)
		if markErr != nil {
			return markErr
		}
		if status == domain.FollowUpFailed {
			e.log.WithLead(lead.Phone).Warn("follow-up exhausted its attempts",
				"followup_id", fu.ID,
				"kind", fu.Kind,
			)
		}
		return err
	}

	if err := e.repo.MarkSent(ctx, fu.ID); err != nil {
		return err
	}
	e.bus.Publish(ctx, events.NewFollowUpSent(lead.ID, fu.ID, fu.Kind))
	return nil
}

// InQuietHours reports whether t falls inside the quiet window. The window
// may wrap midnight (20:00-08:00).
func InQuietHours(t time.Time, start, end int) bool {
	hour := t.Hour()
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// NextWindowOpen returns the next moment the quiet window opens for sending.
func NextWindowOpen(t time.Time, start, end int) time.Time {
	open := time.Date(t.Year(), t.Month(), t.Day(), end, 0, 0, 0, t.Location())
	if !open.After(t) {
		open = open.Add(24 * time.Hour)
	}
	return open
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
