package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicAdapter uses the Anthropic API directly. Fallback for operators
// without a self-hosted endpoint.
type AnthropicAdapter struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicAdapter creates an Anthropic API adapter.
func NewAnthropicAdapter(config Config) (*AnthropicAdapter, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	model := config.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 16384
	}

	return &AnthropicAdapter{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (a *AnthropicAdapter) Name() string {
	return "anthropic-api"
}

func (a *AnthropicAdapter) IsAvailable() bool {
	return os.Getenv("ANTHROPIC_API_KEY") != ""
}

func (a *AnthropicAdapter) params(model, systemPrompt, userPrompt string) anthropic.MessageNewParams {
	if model == "" {
		model = a.model
	}
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(a.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
}

// Complete sends one message and returns the concatenated text blocks.
func (a *AnthropicAdapter) Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	resp, err := a.client.Messages.New(ctx, a.params(model, systemPrompt, userPrompt))
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var output string
	for _, block := range resp.Content {
		if block.Type == "text" {
			output += block.Text
		}
	}
	return output, nil
}

// Stream sends one message and forwards text deltas as they arrive.
func (a *AnthropicAdapter) Stream(ctx context.Context, model, systemPrompt, userPrompt string) (<-chan string, <-chan error) {
	deltas := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(deltas)

		stream := a.client.Messages.NewStreaming(ctx, a.params(model, systemPrompt, userPrompt))
		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
			if !ok || text.Text == "" {
				continue
			}

			select {
			case deltas <- text.Text:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err := stream.Err(); err != nil {
			errs <- fmt.Errorf("anthropic stream error: %w", err)
		}
	}()

	return deltas, errs
}
