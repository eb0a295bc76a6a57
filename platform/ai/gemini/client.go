// Package gemini provides the language model client used for completions,
// vision, audio understanding, and text embeddings.
// This is part of the platform layer and contains no business logic.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Config configures the model client.
type Config struct {
	APIKey         string
	PrimaryModel   string
	FallbackModel  string
	EmbeddingModel string
	EmbeddingDim   int
	Timeout        time.Duration
	RetryMax       int
	// RequestsPerSecond limits outbound calls to the provider. Zero disables
	// client-side limiting.
	RequestsPerSecond float64
}

// Client wraps the genai SDK with retry, fallback, and rate limiting.
type Client struct {
	genai   *genai.Client
	cfg     Config
	limiter *rate.Limiter
}

// Message is a single conversational turn supplied to Complete.
type Message struct {
	Role string // "user" or "model"
	Text string
}

// Media is an inline binary part (image or audio) supplied to Complete.
type Media struct {
	MIMEType string
	Data     []byte
}

// CompletionRequest describes a synchronous completion call.
type CompletionRequest struct {
	System      string
	Messages    []Message
	Media       []Media
	Temperature float32
	// JSONOutput asks the model for a JSON-only response.
	JSONOutput bool
}

// NewClient creates a new model client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("model API key not configured")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{genai: gc, cfg: cfg, limiter: limiter}, nil
}

// Complete runs a completion against the primary model, retrying transient
// failures with exponential backoff, then falls back to the secondary model.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	text, err := c.completeWithModel(ctx, c.cfg.PrimaryModel, req)
	if err == nil {
		return text, nil
	}

	if c.cfg.FallbackModel == "" || c.cfg.FallbackModel == c.cfg.PrimaryModel {
		return "", err
	}

	text, fbErr := c.completeWithModel(ctx, c.cfg.FallbackModel, req)
	if fbErr != nil {
		return "", fmt.Errorf("primary model failed (%v); fallback failed: %w", err, fbErr)
	}
	return text, nil
}

func (c *Client) completeWithModel(ctx context.Context, model string, req CompletionRequest) (string, error) {
	contents := buildContents(req)
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.System)},
		}
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr[float32](req.Temperature)
	}
	if req.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.RetryMax; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		text, err := c.generateOnce(ctx, model, contents, config)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isTransient(err) {
			break
		}
	}

	return "", lastErr
}

func (c *Client) generateOnce(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.genai.Models.GenerateContent(callCtx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("model returned empty response")
	}
	return text, nil
}

// Embed generates an embedding vector for the given text.
// The configured output dimensionality (768) is enforced.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	dim := int32(c.cfg.EmbeddingDim)
	resp, err := c.genai.Models.EmbedContent(callCtx, c.cfg.EmbeddingModel,
		[]*genai.Content{{Parts: []*genai.Part{genai.NewPartFromText(text)}}},
		&genai.EmbedContentConfig{OutputDimensionality: &dim},
	)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embedder returned no values")
	}

	values := resp.Embeddings[0].Values
	if c.cfg.EmbeddingDim > 0 && len(values) != c.cfg.EmbeddingDim {
		return nil, fmt.Errorf("embedder returned %d dims, expected %d", len(values), c.cfg.EmbeddingDim)
	}
	return values, nil
}

// EmbeddingDim returns the configured embedding dimensionality.
func (c *Client) EmbeddingDim() int {
	return c.cfg.EmbeddingDim
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func buildContents(req CompletionRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.Messages)+1)
	for _, msg := range req.Messages {
		role := genai.RoleUser
		if msg.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Text)},
		})
	}

	if len(req.Media) > 0 {
		parts := make([]*genai.Part, 0, len(req.Media))
		for _, m := range req.Media {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: m.MIMEType, Data: m.Data},
			})
		}
		if n := len(contents); n > 0 && contents[n-1].Role == genai.RoleUser {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
		} else {
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
		}
	}

	return contents
}

// isTransient reports whether the provider error is worth retrying.
// The genai SDK surfaces HTTP status in the error text; 429 and 5xx are
// retryable, everything else is a client or content problem.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"429", "500", "502", "503", "504", "deadline exceeded", "connection reset"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
