// Package semantic wraps an external natural-language classifier behind an
// adapter boundary. All parsing and validation of the classifier's output
// happens here; callers only ever see an accepted intent.Result, "no
// decision", or an *AdapterError.
//
// Architecture:
//
//	Backend (interface)
//	  ├── CLIBackend        runs `claude -p ... --output-format json`
//	  ├── AnthropicBackend  Messages API via anthropic-sdk-go
//	  └── OpenAIBackend     chat completions via openai-go (any compatible vendor)
//
//	Adapter  availability check → timeout → Parse (schema) → Gate → Result
package semantic

import (
	"context"
	"errors"
	"fmt"
)

// Backend is an external classification capability.
type Backend interface {
	// Name identifies the backend in logs ("cli", "anthropic", "openai").
	Name() string

	// Available must be fast and free of side effects: no process spawn,
	// no network.
	Available() bool

	// Complete sends the prompts and returns the raw response text.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Kind classifies adapter failures.
type Kind string

const (
	KindUnavailable Kind = "unavailable"
	KindTimeout     Kind = "timeout"
	KindCanceled    Kind = "canceled"
	KindFailed      Kind = "failed"
	KindMalformed   Kind = "malformed"
)

// ErrUnavailable is wrapped by adapter errors of KindUnavailable.
var ErrUnavailable = errors.New("semantic classifier unavailable")

// AdapterError is returned for every failed classification. It never
// carries a partial result.
type AdapterError struct {
	Kind    Kind
	Backend string
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("semantic classifier (%s) %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Response is the structured output expected from the classifier.
type Response struct {
	PrimaryIntent     string   `json:"primary_intent"`
	Confidence        float64  `json:"confidence"`
	RecommendedAgents []string `json:"recommended_agents,omitempty"`
	TDDMode           bool     `json:"tdd_mode,omitempty"`
	Reasoning         string   `json:"reasoning,omitempty"`
}
