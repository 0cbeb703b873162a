package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setBaseEnv sets the minimum environment for Load to succeed with the openai provider.
func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DEFAULT_LLM_PROVIDER", "OPENAI_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY",
		"OPENAI_MODEL", "GEMINI_MODEL", "ANTHROPIC_MODEL",
		"LLM_TIMEOUT_SECONDS", "LLM_MAX_RETRIES", "INTEGRATION_TIMEOUT_SECONDS",
		"CONTEXT_CACHE", "CONTEXT_CACHE_TTL_SECONDS", "CONTEXT_CACHE_SIZE", "REDIS_ADDR",
		"DEFAULT_LANGUAGE", "DEFAULT_CURRENCY", "DEBUG", "PORT", "LOG_MODE",
		"JWT_ALGORITHM", "JWT_EXPIRATION_HOURS",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/recommender")
	t.Setenv("INTEGRATION_SERVICE_URL", "http://integration:8000/")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, s.Provider)
	assert.Equal(t, "http://integration:8000", s.IntegrationURL, "trailing slash should be trimmed")
	assert.Equal(t, 120*time.Second, s.LLMTimeout)
	assert.Equal(t, 30*time.Second, s.IntegrationTimeout)
	assert.Equal(t, 2, s.MaxRetries)
	assert.Equal(t, CacheMemory, s.CacheBackend)
	assert.Equal(t, 15*time.Minute, s.CacheTTL)
	assert.Equal(t, "Ukrainian", s.DefaultLanguage)
	assert.Equal(t, "UAH", s.DefaultCurrency)
	assert.Equal(t, 8080, s.Port)
	assert.False(t, s.Debug)
	assert.Equal(t, "HS256", s.JWT.Algorithm)
}

func TestLoad_MissingSelectedProviderKey(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		key      string
	}{
		{name: "openai", provider: "openai", key: "OPENAI_API_KEY"},
		{name: "gemini", provider: "gemini", key: "GEMINI_API_KEY"},
		{name: "anthropic", provider: "Anthropic", key: "ANTHROPIC_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("OPENAI_API_KEY", "")
			t.Setenv("DEFAULT_LLM_PROVIDER", tt.provider)

			s, err := Load()
			require.Error(t, err)
			assert.Nil(t, s)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestLoad_OtherProviderKeyNotRequired(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DEFAULT_LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")

	s, err := Load()
	require.NoError(t, err)

	key, err := s.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "g-key", key)
	assert.Equal(t, "gemini-2.0-flash", s.Model())
}

func TestLoad_UnsupportedProvider(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DEFAULT_LLM_PROVIDER", "mistral")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_LLM_PROVIDER")
}

func TestLoad_RequiredValues(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "INTEGRATION_SERVICE_URL", "JWT_SECRET_KEY"} {
		t.Run(key, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(key, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "LLM_TIMEOUT_SECONDS", value: "0"},
		{key: "LLM_TIMEOUT_SECONDS", value: "soon"},
		{key: "LLM_MAX_RETRIES", value: "-1"},
		{key: "CONTEXT_CACHE", value: "memcached"},
		{key: "DEBUG", value: "maybe"},
		{key: "PORT", value: "http"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DEBUG", "true")
	t.Setenv("PORT", "9000")
	t.Setenv("CONTEXT_CACHE", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("LLM_MAX_RETRIES", "0")

	s, err := Load()
	require.NoError(t, err)
	assert.True(t, s.Debug)
	assert.Equal(t, 9000, s.Port)
	assert.Equal(t, CacheRedis, s.CacheBackend)
	assert.Equal(t, "cache:6379", s.RedisAddr)
	assert.Equal(t, 0, s.MaxRetries)
}
