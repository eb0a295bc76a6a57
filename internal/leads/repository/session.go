package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/platform/apperr"
)

// GetOrCreateSession loads the conversation's agent session, creating an
// empty one on first use. Turns and slots are stored as JSONB.
func (r *Repository) GetOrCreateSession(ctx context.Context, q Querier, convID uuid.UUID) (*domain.AgentSession, error) {
	query := `
		INSERT INTO agent_sessions (conversation_id, turns, slots)
		VALUES ($1, '[]'::jsonb, '{}'::jsonb)
		ON CONFLICT (conversation_id) DO UPDATE SET updated_at = now()
		RETURNING id, conversation_id, turns, slots, created_at, updated_at`

	var (
		session  domain.AgentSession
		turnsRaw []byte
		slotsRaw []byte
	)
	err := q.QueryRow(ctx, query, convID).Scan(
		&session.ID, &session.ConversationID, &turnsRaw, &slotsRaw,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get or create session", err)
	}

	if err := json.Unmarshal(turnsRaw, &session.Turns); err != nil {
		return nil, apperr.Wrap(apperr.KindIntegrity, "corrupt session turns", err)
	}
	if err := json.Unmarshal(slotsRaw, &session.Slots); err != nil {
		return nil, apperr.Wrap(apperr.KindIntegrity, "corrupt session slots", err)
	}
	return &session, nil
}

// SaveSession persists the trimmed turns and working-memory slots.
func (r *Repository) SaveSession(ctx context.Context, q Querier, session *domain.AgentSession) error {
	turnsRaw, err := json.Marshal(session.Turns)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode session turns", err)
	}
	slotsRaw, err := json.Marshal(session.Slots)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode session slots", err)
	}

	_, err = q.Exec(ctx, `
		UPDATE agent_sessions
		SET turns = $2, slots = $3, updated_at = now()
		WHERE id = $1`, session.ID, turnsRaw, slotsRaw)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to save session", err)
	}
	return nil
}
