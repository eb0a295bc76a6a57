package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/platform/apperr"
)

// Repository persists the local mirror of calendar events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a calendar event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `
	id, lead_id, external_event_id, start_at, end_at, attendee_emails,
	reminder_24h_sent, reminder_2h_sent, reminder_30m_sent, reminder_attempts,
	status, created_at, updated_at`

// EventRecord is a calendar event plus its reminder retry counter, which
// only the reminder loop cares about.
type EventRecord struct {
	domain.CalendarEvent
	ReminderAttempts int
}

func scanEvent(row pgx.Row) (*EventRecord, error) {
	var ev EventRecord
	err := row.Scan(
		&ev.ID, &ev.LeadID, &ev.ExternalEventID, &ev.StartAt, &ev.EndAt,
		&ev.AttendeeEmails,
		&ev.Reminder24HSent, &ev.Reminder2HSent, &ev.Reminder30MSent,
		&ev.ReminderAttempts,
		&ev.Status, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Create inserts a CONFIRMED local mirror for a provider event.
func (r *Repository) Create(ctx context.Context, leadID uuid.UUID, externalID string, startAt, endAt time.Time, attendees []string) (*domain.CalendarEvent, error) {
	ev, err := scanEvent(r.pool.QueryRow(ctx, `
		INSERT INTO calendar_events (lead_id, external_event_id, start_at, end_at, attendee_emails, status)
		VALUES ($1, $2, $3, $4, $5, 'CONFIRMED')
		RETURNING`+eventColumns,
		leadID, externalID, startAt, endAt, attendees))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create calendar event", err)
	}
	return &ev.CalendarEvent, nil
}

// GetActiveForLead returns the lead's single non-terminal event, or
// NotFound. The invariant of at most one active event per lead lives here.
func (r *Repository) GetActiveForLead(ctx context.Context, leadID uuid.UUID) (*domain.CalendarEvent, error) {
	ev, err := scanEvent(r.pool.QueryRow(ctx, `
		SELECT`+eventColumns+`
		FROM calendar_events
		WHERE lead_id = $1 AND status <> 'CANCELED'
		ORDER BY created_at DESC
		LIMIT 1`, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "no active calendar event")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get calendar event", err)
	}
	return &ev.CalendarEvent, nil
}

// SetStatus moves an event between CONFIRMED/RESCHEDULED/CANCELED.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status domain.CalendarEventStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE calendar_events SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to set event status", err)
	}
	return nil
}

// ApplyRemote overwrites local time and attendees with the provider's
// version. Remote wins on conflict.
func (r *Repository) ApplyRemote(ctx context.Context, id uuid.UUID, startAt, endAt time.Time, attendees []string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE calendar_events
		SET start_at = $2, end_at = $3, attendee_emails = $4,
		    reminder_24h_sent = CASE WHEN start_at <> $2 THEN false ELSE reminder_24h_sent END,
		    reminder_2h_sent  = CASE WHEN start_at <> $2 THEN false ELSE reminder_2h_sent END,
		    reminder_30m_sent = CASE WHEN start_at <> $2 THEN false ELSE reminder_30m_sent END,
		    updated_at = now()
		WHERE id = $1`, id, startAt, endAt, attendees)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to apply remote event", err)
	}
	return nil
}

// ListUpcomingConfirmed returns CONFIRMED events starting before the horizon.
func (r *Repository) ListUpcomingConfirmed(ctx context.Context, horizon time.Time) ([]*EventRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+eventColumns+`
		FROM calendar_events
		WHERE status = 'CONFIRMED' AND start_at <= $1 AND start_at > now() - interval '1 hour'
		ORDER BY start_at`, horizon)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list upcoming events", err)
	}
	defer rows.Close()

	var evs []*EventRecord
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan event", err)
		}
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}

// ListMissed returns CONFIRMED events whose end already passed.
func (r *Repository) ListMissed(ctx context.Context, now time.Time) ([]*EventRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+eventColumns+`
		FROM calendar_events
		WHERE status = 'CONFIRMED' AND end_at < $1
		ORDER BY end_at`, now)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list missed events", err)
	}
	defer rows.Close()

	var evs []*EventRecord
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan event", err)
		}
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}

// MarkReminderSent sets one reminder flag and resets the failure counter.
func (r *Repository) MarkReminderSent(ctx context.Context, id uuid.UUID, column string) error {
	var sql string
	switch column {
	case "reminder_24h_sent":
		sql = `UPDATE calendar_events SET reminder_24h_sent = true, reminder_attempts = 0, updated_at = now() WHERE id = $1`
	case "reminder_2h_sent":
		sql = `UPDATE calendar_events SET reminder_2h_sent = true, reminder_attempts = 0, updated_at = now() WHERE id = $1`
	case "reminder_30m_sent":
		sql = `UPDATE calendar_events SET reminder_30m_sent = true, reminder_attempts = 0, updated_at = now() WHERE id = $1`
	default:
		return apperr.New(apperr.KindInternal, "unknown reminder column")
	}

	if _, err := r.pool.Exec(ctx, sql, id); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to mark reminder sent", err)
	}
	return nil
}

// BumpReminderAttempts increments the failure counter for an event's
// current reminder.
func (r *Repository) BumpReminderAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE calendar_events SET reminder_attempts = reminder_attempts + 1, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to bump reminder attempts", err)
	}
	return nil
}
