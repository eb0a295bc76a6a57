// Package repository implements typed persistence over Postgres for leads,
// conversations, messages, and agent sessions.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/platform/apperr"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every method can
// run inside the per-turn transaction or standalone.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides lead persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a lead repository backed by the given pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool exposes the underlying pool for transaction management.
func (r *Repository) Pool() *pgxpool.Pool { return r.pool }

// InTx runs fn inside a single transaction, committing on nil error and
// rolling back otherwise. Orchestrator turns use this for all their writes.
func (r *Repository) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to commit transaction", err)
	}
	return nil
}

const leadColumns = `
	id, phone, display_name, email, stage, solution,
	monthly_bill_amount, competitor_name, competitor_discount_pct,
	score, temperature, crm_external_id, created_at, updated_at`

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var lead domain.Lead
	err := row.Scan(
		&lead.ID, &lead.Phone, &lead.DisplayName, &lead.Email,
		&lead.Stage, &lead.Solution,
		&lead.MonthlyBillAmount, &lead.CompetitorName, &lead.CompetitorDiscountPct,
		&lead.Score, &lead.Temperature, &lead.CRMExternalID,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// UpsertLeadByPhone returns the lead for the phone, creating it on first
// contact. Idempotent: repeated calls with an empty patch change nothing.
func (r *Repository) UpsertLeadByPhone(ctx context.Context, q Querier, phone string) (*domain.Lead, error) {
	query := `
		INSERT INTO leads (phone, stage, solution, score, temperature)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (phone) DO UPDATE SET updated_at = leads.updated_at
		RETURNING` + leadColumns

	lead, err := scanLead(q.QueryRow(ctx, query, phone,
		domain.StageInitial, domain.SolutionUnknown, domain.TemperatureCold))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to upsert lead", err)
	}
	return lead, nil
}

// GetLeadByPhone fetches a lead by its unique phone.
func (r *Repository) GetLeadByPhone(ctx context.Context, q Querier, phone string) (*domain.Lead, error) {
	lead, err := scanLead(q.QueryRow(ctx,
		`SELECT`+leadColumns+` FROM leads WHERE phone = $1`, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "lead not found", err)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get lead", err)
	}
	return lead, nil
}

// GetLeadByID fetches a lead by id.
func (r *Repository) GetLeadByID(ctx context.Context, q Querier, id string) (*domain.Lead, error) {
	lead, err := scanLead(q.QueryRow(ctx,
		`SELECT`+leadColumns+` FROM leads WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "lead not found", err)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get lead", err)
	}
	return lead, nil
}

// UpdateLead applies a partial patch. Nil patch fields leave columns
// untouched; pointer fields carrying nil-able values map to SQL NULL, never
// to a stringified sentinel.
func (r *Repository) UpdateLead(ctx context.Context, q Querier, id string, patch domain.LeadPatch) (*domain.Lead, error) {
	query := `
		UPDATE leads SET
			display_name            = COALESCE($2, display_name),
			email                   = COALESCE($3, email),
			stage                   = COALESCE($4, stage),
			solution                = COALESCE($5, solution),
			monthly_bill_amount     = COALESCE($6, monthly_bill_amount),
			competitor_name         = COALESCE($7, competitor_name),
			competitor_discount_pct = COALESCE($8, competitor_discount_pct),
			score                   = COALESCE($9, score),
			temperature             = COALESCE($10, temperature),
			crm_external_id         = COALESCE($11, crm_external_id),
			updated_at              = now()
		WHERE id = $1
		RETURNING` + leadColumns

	lead, err := scanLead(q.QueryRow(ctx, query, id,
		patch.DisplayName, patch.Email, patch.Stage, patch.Solution,
		patch.MonthlyBillAmount, patch.CompetitorName, patch.CompetitorDiscountPct,
		patch.Score, patch.Temperature, patch.CRMExternalID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "lead not found", err)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update lead", err)
	}
	return lead, nil
}

// ListDormantLeads returns non-terminal leads with no inbound activity since
// the cutoff and at least minFailedReengagements failed reengagement rows.
func (r *Repository) ListDormantLeads(ctx context.Context, q Querier, cutoff time.Time, minFailedReengagements int) ([]*domain.Lead, error) {
	query := fmt.Sprintf(`
		SELECT%s FROM leads l
		WHERE l.stage NOT IN ('SCHEDULED', 'WON', 'LOST', 'ABANDONED')
		  AND EXISTS (
			SELECT 1 FROM conversations c
			WHERE c.lead_id = l.id AND c.last_activity_at < $1
		  )
		  AND (
			SELECT count(*) FROM follow_ups f
			WHERE f.lead_id = l.id
			  AND f.status = 'FAILED'
			  AND f.kind IN ('REENGAGE_30M', 'REENGAGE_24H', 'NURTURE')
		  ) >= $2`, leadColumns)

	rows, err := q.Query(ctx, query, cutoff, minFailedReengagements)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list dormant leads", err)
	}
	defer rows.Close()

	var leads []*domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan lead", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}
