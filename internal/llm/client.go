package llm

import (
	"context"

	"github.com/littlelifetrip/ai-recommender/internal/config"
	"github.com/littlelifetrip/ai-recommender/internal/schemas"
)

// Generation is the raw output of one backend call.
type Generation struct {
	Text   string
	Tokens int
}

// Backend is an interchangeable text-generation capability. Implementations hold one
// client handle for their lifetime and are safe for concurrent use.
type Backend interface {
	// Provider identifies the upstream provider.
	Provider() Provider
	// Model returns the model identifier in use.
	Model() string
	// Generate submits system and user instructions. A non-nil schema asks the provider
	// to constrain output to it, or is embedded in the instructions when the provider
	// cannot enforce it. Failures are *TransportError or *BackendError.
	Generate(ctx context.Context, system, user string, schema *schemas.Descriptor) (Generation, error)
	// Close releases any resources held by the backend
	Close() error
}

// NewBackend creates the backend for the configured provider.
func NewBackend(ctx context.Context, cfg *Config) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, &config.ConfigurationError{Key: apiKeyName(cfg.Provider), Reason: "is required when DEFAULT_LLM_PROVIDER=" + string(cfg.Provider)}
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIBackend(cfg), nil
	case ProviderGemini:
		return NewGeminiBackend(ctx, cfg)
	case ProviderAnthropic:
		return NewAnthropicBackend(cfg), nil
	default:
		return nil, &config.ConfigurationError{Key: "DEFAULT_LLM_PROVIDER", Reason: "unsupported provider " + string(cfg.Provider)}
	}
}

func apiKeyName(p Provider) string {
	switch p {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
