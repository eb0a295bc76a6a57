package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/platform/apperr"
)

const conversationColumns = `
	id, lead_id, session_id, state, follow_up_count, message_count,
	last_activity_at, created_at, updated_at`

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := row.Scan(
		&conv.ID, &conv.LeadID, &conv.SessionID, &conv.State,
		&conv.FollowUpCount, &conv.MessageCount,
		&conv.LastActivityAt, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetOrCreateConversation returns the lead's single conversation, creating it
// with a fresh session id on first contact.
func (r *Repository) GetOrCreateConversation(ctx context.Context, q Querier, leadID uuid.UUID) (*domain.Conversation, error) {
	query := `
		INSERT INTO conversations (lead_id, session_id, state)
		VALUES ($1, $2, $3)
		ON CONFLICT (lead_id) DO UPDATE SET updated_at = now()
		RETURNING` + conversationColumns

	conv, err := scanConversation(q.QueryRow(ctx, query,
		leadID, uuid.NewString(), domain.ConversationActive))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get or create conversation", err)
	}
	return conv, nil
}

// GetConversationByLeadID is the read-only lookup for operator views.
func (r *Repository) GetConversationByLeadID(ctx context.Context, q Querier, leadID uuid.UUID) (*domain.Conversation, error) {
	query := `SELECT` + conversationColumns + ` FROM conversations WHERE lead_id = $1`

	conv, err := scanConversation(q.QueryRow(ctx, query, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("conversation not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get conversation", err)
	}
	return conv, nil
}

// TouchActivity bumps last_activity_at and reactivates a dormant conversation.
func (r *Repository) TouchActivity(ctx context.Context, q Querier, convID uuid.UUID) error {
	_, err := q.Exec(ctx, `
		UPDATE conversations
		SET last_activity_at = now(), state = 'ACTIVE', updated_at = now()
		WHERE id = $1`, convID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to touch conversation", err)
	}
	return nil
}

// SetConversationState moves a conversation between ACTIVE/DORMANT/CLOSED.
func (r *Repository) SetConversationState(ctx context.Context, q Querier, convID uuid.UUID, state domain.ConversationState) error {
	_, err := q.Exec(ctx, `
		UPDATE conversations SET state = $2, updated_at = now() WHERE id = $1`,
		convID, state)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to set conversation state", err)
	}
	return nil
}

// AppendMessage inserts an immutable message and returns its monotonic
// per-conversation sequence number. Callers hold the per-lead lock, so the
// max+1 read cannot race with another writer for the same conversation.
func (r *Repository) AppendMessage(ctx context.Context, q Querier, msg *domain.Message) (int64, error) {
	query := `
		INSERT INTO messages (conversation_id, seq, direction, content_type, content, gateway_message_id, status, created_at)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5, $6, $7
		FROM messages WHERE conversation_id = $1
		RETURNING id, seq`

	ts := msg.Timestamp
	err := q.QueryRow(ctx, query,
		msg.ConversationID, msg.Direction, msg.ContentType, msg.Content,
		msg.GatewayMessageID, msg.Status, ts,
	).Scan(&msg.ID, &msg.Seq)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to append message", err)
	}

	_, err = q.Exec(ctx, `
		UPDATE conversations SET message_count = message_count + 1, updated_at = now()
		WHERE id = $1`, msg.ConversationID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to bump message count", err)
	}
	return msg.Seq, nil
}

// GetConversationHistory returns the most recent messages in chronological
// order, up to limit.
func (r *Repository) GetConversationHistory(ctx context.Context, q Querier, convID uuid.UUID, limit int) ([]*domain.Message, error) {
	query := `
		SELECT id, conversation_id, seq, direction, content_type, content, gateway_message_id, status, created_at
		FROM (
			SELECT id, conversation_id, seq, direction, content_type, content, gateway_message_id, status, created_at
			FROM messages WHERE conversation_id = $1
			ORDER BY seq DESC LIMIT $2
		) recent
		ORDER BY seq ASC`

	rows, err := q.Query(ctx, query, convID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load history", err)
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.Seq, &m.Direction, &m.ContentType,
			&m.Content, &m.GatewayMessageID, &m.Status, &m.Timestamp,
		); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan message", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// MarkMessageFailed records a delivery failure for later reconciliation.
func (r *Repository) MarkMessageFailed(ctx context.Context, q Querier, msgID uuid.UUID) error {
	_, err := q.Exec(ctx,
		`UPDATE messages SET status = $2 WHERE id = $1`,
		msgID, domain.MessageStatusFailed)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to mark message failed", err)
	}
	return nil
}

// HasGatewayMessage reports whether an inbound message with the gateway id is
// already stored. Backstop behind the in-memory webhook dedupe.
func (r *Repository) HasGatewayMessage(ctx context.Context, q Querier, gatewayMessageID string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE gateway_message_id = $1)`,
		gatewayMessageID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, apperr.Wrap(apperr.KindInternal, "failed to check gateway message", err)
	}
	return exists, nil
}
