package semantic

import (
	"fmt"
	"os"
)

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	Backend   string // "cli" (default), "anthropic", "openai"
	Command   string // cli only
	Model     string
	APIKeyEnv string // env var holding the API key
	BaseURL   string // openai only
}

// NewBackend builds the backend named in cfg. API keys are read from the
// environment once, here.
func NewBackend(cfg BackendConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "cli":
		return NewCLIBackend(cfg.Command, cfg.Model), nil
	case "anthropic":
		env := cfg.APIKeyEnv
		if env == "" {
			env = "ANTHROPIC_API_KEY"
		}
		return NewAnthropicBackend(os.Getenv(env), cfg.Model), nil
	case "openai":
		env := cfg.APIKeyEnv
		if env == "" {
			env = "OPENAI_API_KEY"
		}
		return NewOpenAIBackend(os.Getenv(env), cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown semantic backend %q", cfg.Backend)
	}
}
