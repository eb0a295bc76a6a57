package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"solar_sdr_backend/platform/ai/gemini"
	"solar_sdr_backend/platform/config"
	"solar_sdr_backend/platform/logger"
)

const (
	// answerHeadLen limits how much of the answer feeds the embedding text.
	answerHeadLen = 512

	embeddingCacheSize = 1024
	embeddingCacheTTL  = 30 * time.Minute
)

// Embedder produces 768-dim vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer synthesizes grounded answers.
type Completer interface {
	Complete(ctx context.Context, req gemini.CompletionRequest) (string, error)
}

// Service is the knowledge store facade used by the orchestrator and the
// knowledge subagent.
type Service struct {
	repo     *Repository
	embedder Embedder
	model    Completer
	log      *logger.Logger

	topK     int
	alpha    float64
	minScore float64

	// queryCache avoids re-embedding identical query strings within a session.
	queryCache *lru.LRU[string, []float32]
}

// NewService creates the knowledge service.
func NewService(repo *Repository, embedder Embedder, model Completer, cfg config.KnowledgeConfig, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		embedder:   embedder,
		model:      model,
		log:        log,
		topK:       cfg.GetKnowledgeTopK(),
		alpha:      cfg.GetHybridAlpha(),
		minScore:   cfg.GetKnowledgeMinScore(),
		queryCache: lru.NewLRU[string, []float32](embeddingCacheSize, nil, embeddingCacheTTL),
	}
}

// EmbeddingText builds the string that gets embedded for a chunk.
func EmbeddingText(c *Chunk) string {
	answer := c.Answer
	if len(answer) > answerHeadLen {
		answer = answer[:answerHeadLen]
	}
	parts := []string{c.Question}
	parts = append(parts, c.Synonyms...)
	parts = append(parts, answer)
	return strings.Join(parts, "\n")
}

// Index embeds and upserts a chunk.
func (s *Service) Index(ctx context.Context, chunk *Chunk) error {
	embedding, err := s.embedder.Embed(ctx, EmbeddingText(chunk))
	if err != nil {
		return err
	}
	return s.repo.Upsert(ctx, chunk, embedding)
}

// Search returns up to topK chunks whose hybrid score clears the configured
// minimum, sorted descending.
func (s *Service) Search(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		k = s.topK
	}

	embedding, err := s.queryEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.repo.Search(ctx, embedding, query, s.alpha, k)
	if err != nil {
		return nil, err
	}

	filtered := results[:0]
	for _, sc := range results {
		if sc.Score >= s.minScore {
			filtered = append(filtered, sc)
		}
	}
	return filtered, nil
}

// Answer is a grounded synthesis with the chunk ids it drew from.
type Answer struct {
	Text      string
	Citations []string
}

// AnswerWithSources retrieves grounding chunks and asks the model to
// synthesize an answer strictly from them.
func (s *Service) AnswerWithSources(ctx context.Context, query string) (*Answer, error) {
	chunks, err := s.Search(ctx, query, s.topK)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &Answer{}, nil
	}

	var grounding strings.Builder
	citations := make([]string, 0, len(chunks))
	for i, sc := range chunks {
		fmt.Fprintf(&grounding, "[%d] %s\n%s\n\n", i+1, sc.Chunk.Question, sc.Chunk.Answer)
		citations = append(citations, sc.Chunk.TopicKey)
	}

	text, err := s.model.Complete(ctx, gemini.CompletionRequest{
		System: "Você é um consultor de energia solar. Responda a pergunta do cliente usando apenas as informações de referência abaixo. Se a resposta não estiver nas referências, diga que vai verificar com a equipe.\n\nReferências:\n" + grounding.String(),
		Messages: []gemini.Message{
			{Role: "user", Text: query},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return nil, err
	}

	return &Answer{Text: text, Citations: citations}, nil
}

func (s *Service) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	if cached, ok := s.queryCache.Get(query); ok {
		return cached, nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	s.queryCache.Add(query, embedding)
	return embedding, nil
}
