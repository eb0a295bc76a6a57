// Package analytics persists funnel events for reporting.
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/platform/apperr"
)

// Repository writes append-only analytics events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one event. A nil LeadID is stored as NULL for events that
// are not lead-scoped.
func (r *Repository) Insert(ctx context.Context, kind string, leadID *uuid.UUID, payload map[string]any) error {
	query := `
		INSERT INTO analytics_events (kind, lead_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := r.pool.Exec(ctx, query, kind, leadID, payload, time.Now()); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to insert analytics event", err)
	}
	return nil
}

// CountByKind returns event counts per kind within the window, newest
// window boundary first.
func (r *Repository) CountByKind(ctx context.Context, from, to time.Time) (map[string]int, error) {
	query := `
		SELECT kind, COUNT(*)
		FROM analytics_events
		WHERE occurred_at >= $1 AND occurred_at < $2
		GROUP BY kind`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to count analytics events", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan analytics count", err)
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

// StageFunnel returns how many leads currently sit in each stage.
func (r *Repository) StageFunnel(ctx context.Context) (map[domain.Stage]int, error) {
	query := `SELECT stage, COUNT(*) FROM leads GROUP BY stage`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to query stage funnel", err)
	}
	defer rows.Close()

	funnel := make(map[domain.Stage]int)
	for rows.Next() {
		var stage domain.Stage
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan funnel row", err)
		}
		funnel[stage] = count
	}
	return funnel, rows.Err()
}
