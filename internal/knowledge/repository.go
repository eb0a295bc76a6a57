// Package knowledge implements the hybrid retrieval core: chunked Q&A
// corpus with 768-dim embeddings, blended vector + lexical search, and
// model-grounded answers with citations.
package knowledge

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"solar_sdr_backend/platform/apperr"
)

// Chunk is one curated Q&A entry. The embedding covers question, synonyms,
// and the answer head.
type Chunk struct {
	ID        uuid.UUID
	TopicKey  string
	Question  string
	Synonyms  []string
	Answer    string
	Category  string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ScoredChunk pairs a chunk with its hybrid relevance score.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Repository persists knowledge chunks in Postgres with a pgvector column.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a knowledge repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert writes a chunk and its embedding, keyed by topic_key. The lexical
// tsvector column is maintained by the database.
func (r *Repository) Upsert(ctx context.Context, chunk *Chunk, embedding []float32) error {
	query := `
		INSERT INTO knowledge_chunks (topic_key, question, synonyms, answer, category, tags, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (topic_key) DO UPDATE SET
			question   = EXCLUDED.question,
			synonyms   = EXCLUDED.synonyms,
			answer     = EXCLUDED.answer,
			category   = EXCLUDED.category,
			tags       = EXCLUDED.tags,
			embedding  = EXCLUDED.embedding,
			updated_at = now()
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		chunk.TopicKey, chunk.Question, chunk.Synonyms, chunk.Answer,
		chunk.Category, chunk.Tags, pgvector.NewVector(embedding),
	).Scan(&chunk.ID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to upsert knowledge chunk", err)
	}
	return nil
}

// Search runs the hybrid query: alpha weights cosine similarity against the
// normalized lexical rank. Results come back sorted by blended score
// descending, capped at limit; the minimum-score cut happens in the service.
func (r *Repository) Search(ctx context.Context, embedding []float32, query string, alpha float64, limit int) ([]ScoredChunk, error) {
	sql := `
		SELECT id, topic_key, question, synonyms, answer, category, tags,
		       created_at, updated_at,
		       ($3 * (1 - (embedding <=> $1)))
		       + ((1 - $3) * ts_rank(tsv, plainto_tsquery('portuguese', $2), 32)) AS score
		FROM knowledge_chunks
		WHERE embedding IS NOT NULL
		ORDER BY score DESC
		LIMIT $4`

	rows, err := r.pool.Query(ctx, sql, pgvector.NewVector(embedding), query, alpha, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to search knowledge", err)
	}
	defer rows.Close()

	var results []ScoredChunk
	for rows.Next() {
		var sc ScoredChunk
		if err := rows.Scan(
			&sc.Chunk.ID, &sc.Chunk.TopicKey, &sc.Chunk.Question, &sc.Chunk.Synonyms,
			&sc.Chunk.Answer, &sc.Chunk.Category, &sc.Chunk.Tags,
			&sc.Chunk.CreatedAt, &sc.Chunk.UpdatedAt, &sc.Score,
		); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan knowledge chunk", err)
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// ListMissingEmbeddings returns chunks whose embedding column is NULL, for
// the backfill command.
func (r *Repository) ListMissingEmbeddings(ctx context.Context, limit int) ([]Chunk, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, topic_key, question, synonyms, answer, category, tags, created_at, updated_at
		FROM knowledge_chunks
		WHERE embedding IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list chunks", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(
			&c.ID, &c.TopicKey, &c.Question, &c.Synonyms, &c.Answer,
			&c.Category, &c.Tags, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan chunk", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SetEmbedding writes the embedding for an existing chunk.
func (r *Repository) SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE knowledge_chunks SET embedding = $2, updated_at = now() WHERE id = $1`,
		id, pgvector.NewVector(embedding))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to set embedding", err)
	}
	return nil
}
