// Package config provides configuration loading and validation for the recommender service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by DEFAULT_LLM_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Context cache backends accepted by CONTEXT_CACHE.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// ConfigurationError reports a missing or invalid setting detected at startup.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

// Settings is the process-wide configuration, loaded once and passed to constructors.
type Settings struct {
	DatabaseURL string

	// LLM
	Provider        string
	OpenAIAPIKey    string
	GeminiAPIKey    string
	AnthropicAPIKey string
	OpenAIModel     string
	GeminiModel     string
	AnthropicModel  string
	LLMTimeout      time.Duration
	MaxRetries      int

	JWT *JWTConfig

	// Context service
	IntegrationURL     string
	IntegrationTimeout time.Duration
	CacheBackend       string
	CacheTTL           time.Duration
	CacheSize          int
	RedisAddr          string

	DefaultLanguage string
	DefaultCurrency string

	Debug   bool
	Port    int
	LogMode string
}

// Load reads Settings from environment variables and validates them.
func Load() (*Settings, error) {
	s := &Settings{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Provider:        strings.ToLower(strings.TrimSpace(getEnv("DEFAULT_LLM_PROVIDER", ProviderOpenAI))),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
		AnthropicModel:  os.Getenv("ANTHROPIC_MODEL"),
		IntegrationURL:  strings.TrimRight(os.Getenv("INTEGRATION_SERVICE_URL"), "/"),
		CacheBackend:    strings.ToLower(getEnv("CONTEXT_CACHE", CacheMemory)),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "Ukrainian"),
		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "UAH"),
		LogMode:         getEnv("LOG_MODE", "prod"),
	}

	var err error
	if s.LLMTimeout, err = getSeconds("LLM_TIMEOUT_SECONDS", 120); err != nil {
		return nil, err
	}
	if s.IntegrationTimeout, err = getSeconds("INTEGRATION_TIMEOUT_SECONDS", 30); err != nil {
		return nil, err
	}
	if s.CacheTTL, err = getSeconds("CONTEXT_CACHE_TTL_SECONDS", 900); err != nil {
		return nil, err
	}
	if s.MaxRetries, err = getInt("LLM_MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if s.CacheSize, err = getInt("CONTEXT_CACHE_SIZE", 256); err != nil {
		return nil, err
	}
	if s.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if s.Debug, err = getBool("DEBUG", false); err != nil {
		return nil, err
	}

	if s.JWT, err = NewJWTConfig(); err != nil {
		return nil, err
	}

	if err := s.normalize(); err != nil {
		return nil, err
	}
	return s, nil
}

// normalize validates the settings and fills derived defaults.
func (s *Settings) normalize() error {
	if s.DatabaseURL == "" {
		return &ConfigurationError{Key: "DATABASE_URL", Reason: "is required"}
	}
	if s.IntegrationURL == "" {
		return &ConfigurationError{Key: "INTEGRATION_SERVICE_URL", Reason: "is required"}
	}
	if _, err := s.APIKey(); err != nil {
		return err
	}
	switch s.CacheBackend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		return &ConfigurationError{Key: "CONTEXT_CACHE", Reason: fmt.Sprintf("must be memory, redis or none, got %q", s.CacheBackend)}
	}
	if s.MaxRetries < 0 {
		return &ConfigurationError{Key: "LLM_MAX_RETRIES", Reason: "must not be negative"}
	}
	if s.CacheSize < 1 {
		s.CacheSize = 1
	}
	return nil
}

// APIKey returns the credential of the selected provider, or a ConfigurationError when it is absent.
func (s *Settings) APIKey() (string, error) {
	var key, name string
	switch s.Provider {
	case ProviderOpenAI:
		key, name = s.OpenAIAPIKey, "OPENAI_API_KEY"
	case ProviderGemini:
		key, name = s.GeminiAPIKey, "GEMINI_API_KEY"
	case ProviderAnthropic:
		key, name = s.AnthropicAPIKey, "ANTHROPIC_API_KEY"
	default:
		return "", &ConfigurationError{Key: "DEFAULT_LLM_PROVIDER", Reason: fmt.Sprintf("unsupported provider %q", s.Provider)}
	}
	if strings.TrimSpace(key) == "" {
		return "", &ConfigurationError{Key: name, Reason: "is required when DEFAULT_LLM_PROVIDER=" + s.Provider}
	}
	return key, nil
}

// Model returns the configured model override for the selected provider, or "".
func (s *Settings) Model() string {
	switch s.Provider {
	case ProviderOpenAI:
		return s.OpenAIModel
	case ProviderGemini:
		return s.GeminiModel
	case ProviderAnthropic:
		return s.AnthropicModel
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigurationError{Key: key, Reason: fmt.Sprintf("must be an integer: %v", err)}
	}
	return v, nil
}

func getSeconds(key string, fallback int) (time.Duration, error) {
	v, err := getInt(key, fallback)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, &ConfigurationError{Key: key, Reason: "must be positive"}
	}
	return time.Duration(v) * time.Second, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ConfigurationError{Key: key, Reason: fmt.Sprintf("must be a boolean: %v", err)}
	}
	return v, nil
}
