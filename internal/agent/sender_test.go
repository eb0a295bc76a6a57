package agent

import (
	"strings"
	"testing"
	"time"
)

func TestSplitChunks(t *testing.T) {
	chunks := SplitChunks("primeira parte\n\nsegunda parte")
	if len(chunks) != 2 {
		t.Fatalf("unexpected chunk count: %d", len(chunks))
	}
	if chunks[0] != "primeira parte" || chunks[1] != "segunda parte" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestSplitChunksSingleParagraph(t *testing.T) {
	chunks := SplitChunks("  só uma mensagem  ")
	if len(chunks) != 1 || chunks[0] != "só uma mensagem" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestSplitChunksOverflowFoldsIntoLast(t *testing.T) {
	chunks := SplitChunks("um\n\ndois\n\ntrês\n\nquatro\n\ncinco")
	if len(chunks) != 3 {
		t.Fatalf("unexpected chunk count: %d", len(chunks))
	}
	// Nothing is dropped: overflow paragraphs join the last chunk.
	if !strings.Contains(chunks[2], "quatro") || !strings.Contains(chunks[2], "cinco") {
		t.Fatalf("overflow paragraphs lost: %q", chunks[2])
	}
}

func TestSplitChunksEmpty(t *testing.T) {
	chunks := SplitChunks("   \n\n  ")
	if len(chunks) != 1 || chunks[0] != "" {
		t.Fatalf("unexpected chunks for empty input: %v", chunks)
	}
}

func TestTypingDuration(t *testing.T) {
	s := &Sender{typingMax: 5 * time.Second}

	// Short chunks hit the one second floor.
	if d := s.typingDuration("oi"); d != time.Second {
		t.Fatalf("short chunk duration: %v", d)
	}

	// 80 chars at 40 chars/s is two seconds.
	if d := s.typingDuration(strings.Repeat("a", 80)); d != 2*time.Second {
		t.Fatalf("mid chunk duration: %v", d)
	}

	// Long chunks are capped at the configured ceiling.
	if d := s.typingDuration(strings.Repeat("a", 1000)); d != 5*time.Second {
		t.Fatalf("long chunk duration: %v", d)
	}
}
