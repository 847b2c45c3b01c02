// Package llm wraps the generative-text collaborator used for issue extraction
// and suggestion drafting.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-sonnet-4-5-20250929"

	defaultMaxTokens = 4096
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Generator turns a single prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AnthropicGenerator implements Generator with the Anthropic Messages API.
type AnthropicGenerator struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator creates a generator. Retries are disabled: callers
// decide what a failed call means.
func NewAnthropicGenerator(apiKey, model string, opts ...option.RequestOption) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if model == "" {
		model = DefaultModel
	}

	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	client := anthropic.NewClient(opts...)

	return &AnthropicGenerator{
		client:    &client,
		model:     model,
		maxTokens: defaultMaxTokens,
	}, nil
}

// WithMaxTokens overrides the response token limit.
func (g *AnthropicGenerator) WithMaxTokens(n int64) *AnthropicGenerator {
	if n > 0 {
		g.maxTokens = n
	}
	return g
}

// Model returns the configured model name.
func (g *AnthropicGenerator) Model() string {
	return g.model
}

// Generate sends prompt as a single user message and returns the concatenated text blocks.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call %s: %w", g.model, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
