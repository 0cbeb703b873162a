// Package llm provides the generation backends: one interface over the supported
// model providers, selected once per process.
package llm

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/littlelifetrip/ai-recommender/internal/config"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderOpenAI is the OpenAI chat completions provider
	ProviderOpenAI Provider = "openai"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderAnthropic is the Anthropic/Claude provider
	ProviderAnthropic Provider = "anthropic"
)

// Providers lists every supported provider.
var Providers = []Provider{ProviderOpenAI, ProviderGemini, ProviderAnthropic}

// ParseProvider converts a provider name into a Provider.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported provider %q", name)
}

// DefaultModel returns the model used when no override is configured.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o"
	case ProviderGemini:
		return "gemini-1.5-flash"
	case ProviderAnthropic:
		return "claude-3-sonnet-20240229"
	}
	return ""
}

// Config holds what a backend needs to reach its provider.
type Config struct {
	Provider Provider
	Model    string
	APIKey   string
	// BaseURL overrides the provider endpoint (HTTP providers only).
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// ConfigFromSettings builds a backend Config for the provider selected in settings.
// It fails with *config.ConfigurationError when the provider's credential is missing.
func ConfigFromSettings(s *config.Settings) (*Config, error) {
	provider, err := ParseProvider(s.Provider)
	if err != nil {
		return nil, &config.ConfigurationError{Key: "DEFAULT_LLM_PROVIDER", Reason: err.Error()}
	}
	key, err := s.APIKey()
	if err != nil {
		return nil, err
	}
	return &Config{
		Provider: provider,
		Model:    s.Model(),
		APIKey:   key,
		Timeout:  s.LLMTimeout,
	}, nil
}

// GetModel returns the configured model, or the provider default.
func (c *Config) GetModel() string {
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel(c.Provider)
}

func (c *Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (c *Config) baseURL(fallback string) string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return fallback
}
