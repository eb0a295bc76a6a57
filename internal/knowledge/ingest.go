package knowledge

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"solar_sdr_backend/platform/apperr"
)

// corpusFile is the YAML shape of the curated corpus.
type corpusFile struct {
	Chunks []corpusChunk `yaml:"chunks"`
}

type corpusChunk struct {
	TopicKey string   `yaml:"topic_key"`
	Question string   `yaml:"question"`
	Synonyms []string `yaml:"synonyms"`
	Answer   string   `yaml:"answer"`
	Category string   `yaml:"category"`
	Tags     []string `yaml:"tags"`
}

// LoadCorpus parses a YAML corpus file into chunks.
func LoadCorpus(path string) ([]Chunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "failed to read corpus file", err)
	}

	var file corpusFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "failed to parse corpus yaml", err)
	}

	chunks := make([]Chunk, 0, len(file.Chunks))
	for i, cc := range file.Chunks {
		if cc.TopicKey == "" || cc.Question == "" || cc.Answer == "" {
			return nil, apperr.New(apperr.KindValidation,
				fmt.Sprintf("chunk %d missing topic_key, question, or answer", i))
		}
		chunks = append(chunks, Chunk{
			TopicKey: cc.TopicKey,
			Question: cc.Question,
			Synonyms: cc.Synonyms,
			Answer:   cc.Answer,
			Category: cc.Category,
			Tags:     cc.Tags,
		})
	}
	return chunks, nil
}

// IngestCorpus indexes every chunk from the file, returning how many were
// written.
func (s *Service) IngestCorpus(ctx context.Context, path string) (int, error) {
	chunks, err := LoadCorpus(path)
	if err != nil {
		return 0, err
	}

	for i := range chunks {
		if err := s.Index(ctx, &chunks[i]); err != nil {
			return i, fmt.Errorf("chunk %q: %w", chunks[i].TopicKey, err)
		}
	}
	return len(chunks), nil
}

// BackfillEmbeddings embeds chunks whose vector is missing, in batches.
func (s *Service) BackfillEmbeddings(ctx context.Context, batchSize int) (int, error) {
	total := 0
	for {
		chunks, err := s.repo.ListMissingEmbeddings(ctx, batchSize)
		if err != nil {
			return total, err
		}
		if len(chunks) == 0 {
			return total, nil
		}

		for i := range chunks {
			embedding, err := s.embedder.Embed(ctx, EmbeddingText(&chunks[i]))
			if err != nil {
				return total, fmt.Errorf("chunk %q: %w", chunks[i].TopicKey, err)
			}
			if err := s.repo.SetEmbedding(ctx, chunks[i].ID, embedding); err != nil {
				return total, err
			}
			total++
		}
	}
}
