package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-neows/internal/domain"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// Prompt is a single chat completion request
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// OpenAIConfig configures an OpenAIGenerator
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OpenAIGenerator generates text with the OpenAI chat completions API
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

// NewOpenAIGenerator creates a generator for cfg.Model
func NewOpenAIGenerator(cfg OpenAIConfig, log zerolog.Logger) *OpenAIGenerator {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		log:     log,
	}
}

// Generate sends p and returns the first choice's content
func (g *OpenAIGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	})
	if err != nil {
		g.log.Error().Err(err).Str("model", g.model).Dur("elapsed", time.Since(start)).Msg("OpenAI API error")
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	g.log.Info().Str("model", g.model).Int("chars", len(content)).Int("tokens", resp.Usage.TotalTokens).
		Dur("elapsed", time.Since(start)).Msg("generated analysis text")
	return content, nil
}

// NoopGenerator stands in when no provider credential is configured
type NoopGenerator struct{}

// Generate always fails with a ConfigurationError
func (NoopGenerator) Generate(context.Context, Prompt) (string, error) {
	return "", &domain.ConfigurationError{
		Setting: "OPENAI_KEY",
		Message: "OPENAI_KEY environment variable is not configured",
	}
}
