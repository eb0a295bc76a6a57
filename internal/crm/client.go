// Package crm adapts the external CRM REST API: lead upserts, pipeline
// stage moves, notes, and tasks. All calls are best-effort; local state is
// authoritative and CRM failures never block a conversation.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"solar_sdr_backend/platform/apperr"
	"solar_sdr_backend/platform/config"
	"solar_sdr_backend/platform/logger"
)

const requestTimeout = 10 * time.Second

// Client is the typed CRM REST client with circuit breaking, client-side
// rate limiting, and jittered backoff on 429/5xx.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	retryMax int
	log      *logger.Logger
}

// NewClient creates the CRM client from configuration.
func NewClient(cfg config.CRMConfig, log *logger.Logger) *Client {
	fails := uint32(cfg.GetCircuitFails())
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "crm",
		Timeout: cfg.GetCircuitCooldown(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= fails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("crm circuit state changed", "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL:  cfg.GetCRMURL(),
		apiKey:   cfg.GetCRMAPIKey(),
		http:     &http.Client{Timeout: requestTimeout},
		breaker:  breaker,
		limiter:  rate.NewLimiter(rate.Limit(5), 5),
		retryMax: cfg.GetRetryMax(),
		log:      log,
	}
}

// LeadPayload is the CRM-side representation of a lead.
type LeadPayload struct {
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email,omitempty"`
	PipelineID  string  `json:"pipeline_id,omitempty"`
	StageID     string  `json:"stage_id,omitempty"`
	MonthlyBill float64 `json:"monthly_bill,omitempty"`
	Score       int     `json:"score,omitempty"`
	Temperature string  `json:"temperature,omitempty"`
}

// TaskPayload is a CRM task attached to a lead.
type TaskPayload struct {
	Text  string    `json:"text"`
	DueAt time.Time `json:"due_at"`
	Type  string    `json:"type"`
}

// UpsertLead creates or updates the remote lead, returning its external id.
func (c *Client) UpsertLead(ctx context.Context, payload LeadPayload) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/leads", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpdateLead patches the remote lead.
func (c *Client) UpdateLead(ctx context.Context, externalID string, payload LeadPayload) error {
	return c.call(ctx, http.MethodPatch, "/api/v1/leads/"+externalID, payload, nil)
}

// AddNote appends a note to the remote lead.
func (c *Client) AddNote(ctx context.Context, externalID, text string) error {
	body := map[string]string{"text": text}
	return c.call(ctx, http.MethodPost, "/api/v1/leads/"+externalID+"/notes", body, nil)
}

// CreateTask creates a task on the remote lead.
func (c *Client) CreateTask(ctx context.Context, externalID string, task TaskPayload) error {
	return c.call(ctx, http.MethodPost, "/api/v1/leads/"+externalID+"/tasks", task, nil)
}

// call runs one CRM request through the limiter, the breaker, and the retry
// loop. 4xx responses (except 429) fail immediately.
func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			jitter := time.Duration(rand.Int63n(int64(500 * time.Millisecond)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		_, err := c.breaker.Execute(func() (any, error) {
			return nil, c.doOnce(ctx, method, path, payload, out)
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return apperr.Wrap(apperr.KindUnavailable, "crm circuit open", err)
		}
		if !apperr.Retryable(err) {
			return err
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode crm payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to build crm request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "crm unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to decode crm response", err)
			}
		}
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return apperr.New(apperr.KindUnavailable, fmt.Sprintf("crm returned status %d", resp.StatusCode))
	default:
		return apperr.New(apperr.KindBadRequest, fmt.Sprintf("crm rejected request with status %d", resp.StatusCode))
	}
}
