package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackend classifies through the Anthropic Messages API.
type AnthropicBackend struct {
	client anthropic.Client
	apiKey string
	model  string
}

// NewAnthropicBackend returns a backend for apiKey. An empty key leaves the
// backend unavailable.
func NewAnthropicBackend(apiKey, model string) *AnthropicBackend {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &AnthropicBackend{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey)),
		apiKey: apiKey,
		model:  model,
	}
}

func (b *AnthropicBackend) Name() string    { return "anthropic" }
func (b *AnthropicBackend) Available() bool { return b.apiKey != "" }

func (b *AnthropicBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic response has no text content")
	}
	return sb.String(), nil
}
