package semantic

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend classifies through any OpenAI-compatible chat completions
// endpoint (OpenAI, DeepSeek, Groq, a local gateway, ...).
type OpenAIBackend struct {
	client openai.Client
	apiKey string
	model  string
}

// NewOpenAIBackend returns a backend for apiKey. baseURL is optional.
func NewOpenAIBackend(apiKey, baseURL, model string) *OpenAIBackend {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIBackend{
		client: openai.NewClient(opts...),
		apiKey: apiKey,
		model:  model,
	}
}

func (b *OpenAIBackend) Name() string    { return "openai" }
func (b *OpenAIBackend) Available() bool { return b.apiKey != "" }

func (b *OpenAIBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	completion, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(b.model),
		Messages:    msgs,
		MaxTokens:   openai.Int(256),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("openai response has no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
