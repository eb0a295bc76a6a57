// Package followups implements scheduled reengagement and reminder
// delivery: persistence with at-most-once claims, message templates, and
// the periodic executor.
package followups

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"solar_sdr_backend/internal/leads/domain"
	leadsrepo "solar_sdr_backend/internal/leads/repository"
	"solar_sdr_backend/platform/apperr"
)

// claimLease is how long a claimed row stays invisible to other workers.
// A worker that dies mid-send loses its claim after the lease and the next
// tick re-claims the row.
const claimLease = 5 * time.Minute

// Repository persists follow-ups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a follow-up repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const followUpColumns = `
	id, lead_id, kind, template_key, due_at, status, attempt_count, last_error,
	created_at, updated_at`

func scanFollowUp(row pgx.Row) (*domain.FollowUp, error) {
	var fu domain.FollowUp
	err := row.Scan(
		&fu.ID, &fu.LeadID, &fu.Kind, &fu.TemplateKey, &fu.DueAt,
		&fu.Status, &fu.AttemptCount, &fu.LastError,
		&fu.CreatedAt, &fu.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &fu, nil
}

// Create inserts a PENDING follow-up.
func (r *Repository) Create(ctx context.Context, q leadsrepo.Querier, leadID uuid.UUID, kind domain.FollowUpKind, templateKey string, dueAt time.Time) (*domain.FollowUp, error) {
	fu, err := scanFollowUp(q.QueryRow(ctx, `
		INSERT INTO follow_ups (lead_id, kind, template_key, due_at, status)
		VALUES ($1, $2, $3, $4, 'PENDING')
		RETURNING`+followUpColumns,
		leadID, kind, templateKey, dueAt))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create follow-up", err)
	}
	return fu, nil
}

// HasPendingReengagement reports whether the lead already has a PENDING
// reengagement row, so the orchestrator does not stack them.
func (r *Repository) HasPendingReengagement(ctx context.Context, q leadsrepo.Querier, leadID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM follow_ups
			WHERE lead_id = $1 AND status = 'PENDING'
			  AND kind IN ('REENGAGE_30M', 'REENGAGE_24H', 'NURTURE')
		)`, leadID).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to check pending follow-ups", err)
	}
	return exists, nil
}

// ClaimDue atomically claims up to batch PENDING rows whose due_at has
// passed. FOR UPDATE SKIP LOCKED plus the claim lease guarantees no two
// workers hold the same row.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, batch int) ([]*domain.FollowUp, error) {
	query := `
		UPDATE follow_ups SET claimed_at = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM follow_ups
			WHERE status = 'PENDING'
			  AND due_at <= $1
			  AND (claimed_at IS NULL OR claimed_at < $2)
			ORDER BY due_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING` + followUpColumns

	rows, err := r.pool.Query(ctx, query, now, now.Add(-claimLease), batch)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to claim follow-ups", err)
	}
	defer rows.Close()

	var claimed []*domain.FollowUp
	for rows.Next() {
		fu, err := scanFollowUp(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan follow-up", err)
		}
		claimed = append(claimed, fu)
	}
	return claimed, rows.Err()
}

// MarkSent transitions a claimed row to SENT. The status guard makes the
// transition exactly-once even if a stale worker wakes up late.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE follow_ups SET status = 'SENT', updated_at = now()
		WHERE id = $1 AND status = 'PENDING'`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to mark follow-up sent", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindConflict, "follow-up already transitioned")
	}
	return nil
}

// MarkFailed records a delivery failure. After maxAttempts the row moves to
// FAILED instead of staying retryable; the abandonment sweep counts those.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, cause string, maxAttempts int) (domain.FollowUpStatus, error) {
	var status domain.FollowUpStatus
	err := r.pool.QueryRow(ctx, `
		UPDATE follow_ups SET
			attempt_count = attempt_count + 1,
			last_error    = $2,
			claimed_at    = NULL,
			status        = CASE WHEN attempt_count + 1 >= $3 THEN 'FAILED' ELSE 'PENDING' END,
			updated_at    = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING status`, id, cause, maxAttempts).Scan(&status)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to mark follow-up failed", err)
	}
	return status, nil
}

// Reschedule moves a claimed row's due time (quiet hours) and releases the
// claim so a later tick picks it up.
func (r *Repository) Reschedule(ctx context.Context, id uuid.UUID, dueAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE follow_ups SET due_at = $2, claimed_at = NULL, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'`, id, dueAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to reschedule follow-up", err)
	}
	return nil
}

// Cancel transitions one row to CANCELED.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE follow_ups SET status = 'CANCELED', updated_at = now()
		WHERE id = $1 AND status = 'PENDING'`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to cancel follow-up", err)
	}
	return nil
}

// CancelPendingReengagements cancels every PENDING reengagement for a lead
// and returns how many rows changed. Called when the lead reaches a
// terminal stage.
func (r *Repository) CancelPendingReengagements(ctx context.Context, q leadsrepo.Querier, leadID uuid.UUID) (int, error) {
	tag, err := q.Exec(ctx, `
		UPDATE follow_ups SET status = 'CANCELED', updated_at = now()
		WHERE lead_id = $1 AND status = 'PENDING'
		  AND kind IN ('REENGAGE_30M', 'REENGAGE_24H', 'NURTURE')`, leadID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to cancel reengagements", err)
	}
	return int(tag.RowsAffected()), nil
}

// CancelAllPendingForLead cancels every PENDING row for a lead, regardless
// of kind. Used by the operator CLI.
func (r *Repository) CancelAllPendingForLead(ctx context.Context, leadID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE follow_ups SET status = 'CANCELED', updated_at = now()
		WHERE lead_id = $1 AND status = 'PENDING'`, leadID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to cancel follow-ups", err)
	}
	return int(tag.RowsAffected()), nil
}
