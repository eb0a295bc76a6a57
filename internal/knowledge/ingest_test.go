package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"solar_sdr_backend/platform/apperr"
)

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

func TestLoadCorpus(t *testing.T) {
	path := writeCorpus(t, `
chunks:
  - topic_key: valor-minimo
    question: Qual o valor mínimo de conta?
    synonyms:
      - conta baixa pode
    answer: Trabalhamos com contas a partir de R$ 300.
    category: comercial
    tags: [qualificacao]
  - topic_key: fidelidade
    question: Tem fidelidade?
    answer: Aviso prévio de 90 dias, sem multa.
`)

	chunks, err := LoadCorpus(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("unexpected chunk count: %d", len(chunks))
	}
	if chunks[0].TopicKey != "valor-minimo" || chunks[0].Category != "comercial" {
		t.Fatalf("unexpected chunk: %+v", chunks[0])
	}
	if len(chunks[0].Synonyms) != 1 {
		t.Fatalf("synonyms lost: %+v", chunks[0])
	}
}

func TestLoadCorpusRejectsIncompleteChunk(t *testing.T) {
	path := writeCorpus(t, `
chunks:
  - topic_key: sem-resposta
    question: E a resposta?
`)
	_, err := LoadCorpus(path)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadCorpusMissingFile(t *testing.T) {
	_, err := LoadCorpus(filepath.Join(t.TempDir(), "nope.yaml"))
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestEmbeddingTextTruncatesAnswer(t *testing.T) {
	chunk := &Chunk{
		Question: "Pergunta?",
		Synonyms: []string{"sinônimo"},
		Answer:   strings.Repeat("a", 2*answerHeadLen),
	}
	text := EmbeddingText(chunk)
	if !strings.HasPrefix(text, "Pergunta?\nsinônimo\n") {
		t.Fatalf("unexpected prefix: %q", text[:40])
	}
	if len(text) > len("Pergunta?\nsinônimo\n")+answerHeadLen {
		t.Fatalf("answer not truncated: %d chars", len(text))
	}
}
