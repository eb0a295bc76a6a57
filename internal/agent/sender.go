package agent

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"solar_sdr_backend/internal/gateway"
	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/platform/apperr"
	"solar_sdr_backend/platform/config"
	"solar_sdr_backend/platform/logger"
)

const (
	// typingCharsPerSecond drives the fake typing speed.
	typingCharsPerSecond = 40
	typingMin            = 1 * time.Second

	interChunkMin = 500 * time.Millisecond
	interChunkMax = 1500 * time.Millisecond

	sendRetries = 3
	maxChunks   = 3
)

// Gateway is the outbound surface the sender needs, satisfied by the
// gateway client.
type Gateway interface {
	SendText(ctx context.Context, phone, text, quotedID string) (*gateway.SendResult, error)
	SetTyping(ctx context.Context, phone string, duration time.Duration) error
}

// Sender is the humanized outbound path: typing indicator before each
// chunk, ordered delivery, per-lead serialization, and a total ceiling.
type Sender struct {
	gateway Gateway
	locks   *LeadLocks
	log     *logger.Logger

	typingMax time.Duration
	ceiling   time.Duration
}

// NewSender creates the humanized sender.
func NewSender(gateway Gateway, locks *LeadLocks, cfg config.OrchestratorConfig, log *logger.Logger) *Sender {
	return &Sender{
		gateway:   gateway,
		locks:     locks,
		log:       log,
		typingMax: time.Duration(cfg.GetTypingMaxMS()) * time.Millisecond,
		ceiling:   cfg.GetSendCeiling(),
	}
}

// Send delivers chunks under the lead's lock. Background loops (follow-ups,
// reminders) call this; it can never interleave with a live turn.
func (s *Sender) Send(ctx context.Context, lead *domain.Lead, chunks []string) error {
	s.locks.Lock(lead.Phone)
	defer s.locks.Unlock(lead.Phone)
	return s.SendLocked(ctx, lead, chunks)
}

// SendLocked delivers chunks assuming the caller already holds the lead's
// lock. The orchestrator uses this inside its serialized turn.
func (s *Sender) SendLocked(ctx context.Context, lead *domain.Lead, chunks []string) error {
	ctx, cancel := context.WithTimeout(ctx, s.ceiling)
	defer cancel()

	start := time.Now()
	for i, chunk := range chunks {
		typing := s.typingDuration(chunk)
		if err := s.gateway.SetTyping(ctx, lead.Phone, typing); err != nil {
			// The indicator is cosmetic; delivery proceeds without it.
			s.log.WithLead(lead.Phone).Debug("typing indicator failed", "error", err)
		}
		if err := sleepCtx(ctx, typing); err != nil {
			return err
		}

		if err := s.sendChunk(ctx, lead.Phone, chunk); err != nil {
			return err
		}

		if i < len(chunks)-1 {
			pause := interChunkMin + time.Duration(rand.Int63n(int64(interChunkMax-interChunkMin)))
			if err := sleepCtx(ctx, pause); err != nil {
				return err
			}
		}
	}

	s.log.GatewaySend(lead.Phone, len(chunks), float64(time.Since(start).Milliseconds()))
	return nil
}

// sendChunk retries retryable gateway errors with 1s/2s/4s backoff.
func (s *Sender) sendChunk(ctx context.Context, phone, text string) error {
	var lastErr error
	for attempt := 0; attempt <= sendRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			if err := sleepCtx(ctx, backoff); err != nil {
				return lastErr
			}
		}

		_, err := s.gateway.SendText(ctx, phone, text, "")
		if err == nil {
			return nil
		}
		lastErr = err
		if !apperr.Retryable(err) {
			break
		}
	}
	return lastErr
}

// typingDuration computes the indicator time for a chunk: one second floor,
// 40 chars/s pace, configured ceiling.
func (s *Sender) typingDuration(chunk string) time.Duration {
	d := time.Duration(len(chunk)) * time.Second / typingCharsPerSecond
	if d < typingMin {
		d = typingMin
	}
	if d > s.typingMax {
		d = s.typingMax
	}
	return d
}

// SplitChunks breaks a reply into 1-3 chunks on paragraph boundaries.
// Overflow paragraphs fold into the last chunk so nothing is dropped.
func SplitChunks(text string) []string {
	paragraphs := strings.Split(strings.TrimSpace(text), "\n\n")

	var chunks []string
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(chunks) < maxChunks {
			chunks = append(chunks, p)
		} else {
			chunks[maxChunks-1] += "\n\n" + p
		}
	}
	if len(chunks) == 0 {
		return []string{""}
	}
	return chunks
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
