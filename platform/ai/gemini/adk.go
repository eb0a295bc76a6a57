package gemini

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// ADKModel adapts the Gemini client to the ADK model.LLM interface so
// tool-calling subagents can run against the same provider connection.
type ADKModel struct {
	client *Client
	name   string
}

// ADKModel returns an ADK-compatible wrapper over the primary model.
func (c *Client) ADKModel() *ADKModel {
	return &ADKModel{client: c, name: c.cfg.PrimaryModel}
}

// Name returns the underlying model identifier.
func (m *ADKModel) Name() string {
	return m.name
}

// GenerateContent forwards the ADK request to the genai SDK. Streaming is
// collapsed to a single response; the ADK runner handles both shapes.
func (m *ADKModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

func (m *ADKModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	if err := m.client.wait(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, m.client.cfg.Timeout)
	defer cancel()

	resp, err := m.client.genai.Models.GenerateContent(callCtx, m.name, req.Contents, req.Config)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("model returned no candidates")
	}

	return &model.LLMResponse{
		Content: &genai.Content{
			Role:  genai.RoleModel,
			Parts: resp.Candidates[0].Content.Parts,
		},
	}, nil
}
