package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlelifetrip/ai-recommender/internal/schemas"
)

func TestOpenAIBackend_Generate(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" {\"ok\":true} "}}],"usage":{"total_tokens":321}}`))
	}))
	defer server.Close()

	b := NewOpenAIBackend(&Config{Provider: ProviderOpenAI, APIKey: "sk-test", BaseURL: server.URL + "/"})
	gen, err := b.Generate(context.Background(), "sys", "usr", schemas.ExplainResult())
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, gen.Text)
	assert.Equal(t, 321, gen.Tokens)

	assert.Equal(t, "gpt-4o", captured["model"])
	assert.InDelta(t, 0.7, captured["temperature"], 0.0001)
	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "usr", messages[1].(map[string]any)["content"])

	format := captured["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	jsonSchema := format["json_schema"].(map[string]any)
	assert.Equal(t, "explain_result", jsonSchema["name"])
	assert.Equal(t, false, jsonSchema["strict"])
}

func TestOpenAIBackend_NoSchemaOmitsResponseFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NotContains(t, string(body), "response_format")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hi"}}],"usage":{"total_tokens":3}}`))
	}))
	defer server.Close()

	b := NewOpenAIBackend(&Config{APIKey: "k", BaseURL: server.URL})
	gen, err := b.Generate(context.Background(), "sys", "usr", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", gen.Text)
}

func TestOpenAIBackend_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transport bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, transport: true},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"bad key"}`, transport: true},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
		{name: "empty content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"  "}}]}`},
		{name: "not json", status: http.StatusOK, body: `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			b := NewOpenAIBackend(&Config{APIKey: "k", BaseURL: server.URL})
			_, err := b.Generate(context.Background(), "s", "u", nil)
			require.Error(t, err)

			if tt.transport {
				var te *TransportError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, tt.status, te.StatusCode)
				assert.False(t, te.Timeout())
			} else {
				var be *BackendError
				require.ErrorAs(t, err, &be)
				assert.Equal(t, ProviderOpenAI, be.Provider)
			}
		})
	}
}

func TestOpenAIBackend_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	b := NewOpenAIBackend(&Config{APIKey: "k", BaseURL: server.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := b.Generate(ctx, "s", "u", nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Timeout())
}

func TestAnthropicBackend_Generate(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"a\":"},{"type":"text","text":"1}"}],"usage":{"input_tokens":100,"output_tokens":25}}`))
	}))
	defer server.Close()

	b := NewAnthropicBackend(&Config{Provider: ProviderAnthropic, APIKey: "ak-test", BaseURL: server.URL})
	gen, err := b.Generate(context.Background(), "be helpful", "plan a trip", schemas.TripPlan())
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, gen.Text)
	assert.Equal(t, 125, gen.Tokens)

	assert.Equal(t, "claude-3-sonnet-20240229", captured["model"])
	assert.EqualValues(t, 4096, captured["max_tokens"])
	system := captured["system"].(string)
	assert.Contains(t, system, "be helpful")
	assert.Contains(t, system, `"itinerary"`)
}

func TestAnthropicBackend_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`overloaded`))
	}))
	defer server.Close()

	b := NewAnthropicBackend(&Config{APIKey: "k", BaseURL: server.URL})
	_, err := b.Generate(context.Background(), "s", "u", nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Contains(t, te.Error(), "overloaded")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"tool_use"}],"usage":{}}`))
	}))
	defer empty.Close()

	b = NewAnthropicBackend(&Config{APIKey: "k", BaseURL: empty.URL})
	_, err = b.Generate(context.Background(), "s", "u", nil)
	var be *BackendError
	require.ErrorAs(t, err, &be)
}

func TestSystemWithSchema(t *testing.T) {
	assert.Equal(t, "plain", systemWithSchema("plain", nil))
	assert.Contains(t, systemWithSchema("plain", schemas.ExplainResult()), `"explanation"`)
}
