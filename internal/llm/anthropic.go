package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/littlelifetrip/ai-recommender/internal/schemas"
)

const (
	anthropicBaseURL   = "https://api.anthropic.com"
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 4096
)

// AnthropicBackend implements Backend for the Anthropic messages API. The API has no
// response schema option, so the schema document is appended to the system text.
type AnthropicBackend struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewAnthropicBackend creates a new Anthropic backend
func NewAnthropicBackend(cfg *Config) *AnthropicBackend {
	return &AnthropicBackend{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.GetModel(),
		baseURL:    cfg.baseURL(anthropicBaseURL),
		httpClient: cfg.httpClient(),
	}
}

func (b *AnthropicBackend) Provider() Provider { return ProviderAnthropic }

func (b *AnthropicBackend) Model() string { return b.model }

// Generate calls /v1/messages with a single user turn.
func (b *AnthropicBackend) Generate(ctx context.Context, system, user string, schema *schemas.Descriptor) (Generation, error) {
	payload := anthropicRequest{
		Model:     b.model,
		System:    systemWithSchema(system, schema),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: user},
		},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Generation{}, fmt.Errorf("failed to marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/messages", bytes.NewReader(raw))
	if err != nil {
		return Generation{}, fmt.Errorf("failed to create anthropic request: %w", err)
	}
	httpReq.Header.Set("x-api-key", b.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("content-type", "application/json")

	body, err := doRequest(b.httpClient, httpReq, ProviderAnthropic)
	if err != nil {
		return Generation{}, err
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return Generation{}, &BackendError{Provider: ProviderAnthropic, Reason: "undecodable response: " + err.Error()}
	}

	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(text.String())
	if content == "" {
		return Generation{}, &BackendError{Provider: ProviderAnthropic, Reason: "no text content in response"}
	}

	return Generation{
		Text:   content,
		Tokens: apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens,
	}, nil
}

// Close is a no-op; the HTTP client holds no per-backend resources.
func (b *AnthropicBackend) Close() error { return nil }

func systemWithSchema(system string, schema *schemas.Descriptor) string {
	if schema == nil {
		return system
	}
	return system + "\n\nRespond with JSON matching this schema:\n" + schema.JSON()
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
