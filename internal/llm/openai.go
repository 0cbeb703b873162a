package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/littlelifetrip/ai-recommender/internal/schemas"
)

const (
	openAIBaseURL     = "https://api.openai.com/v1"
	openAITemperature = 0.7
)

// OpenAIBackend implements Backend for the OpenAI chat completions API.
// Schemas are passed as a json_schema response format.
type OpenAIBackend struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIBackend creates a new OpenAI backend
func NewOpenAIBackend(cfg *Config) *OpenAIBackend {
	return &OpenAIBackend{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.GetModel(),
		baseURL:    cfg.baseURL(openAIBaseURL),
		httpClient: cfg.httpClient(),
	}
}

func (b *OpenAIBackend) Provider() Provider { return ProviderOpenAI }

func (b *OpenAIBackend) Model() string { return b.model }

// Generate calls chat/completions with a system and a user message.
func (b *OpenAIBackend) Generate(ctx context.Context, system, user string, schema *schemas.Descriptor) (Generation, error) {
	payload := openAIRequest{
		Model: b.model,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: openAITemperature,
	}
	if schema != nil {
		payload.ResponseFormat = &openAIResponseFormat{
			Type: "json_schema",
			JSONSchema: &openAIJSONSchema{
				Name:        schema.Name,
				Description: schema.Description,
				Schema:      schema.Document,
				Strict:      false,
			},
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Generation{}, fmt.Errorf("failed to marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return Generation{}, fmt.Errorf("failed to create openai request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	body, err := doRequest(b.httpClient, httpReq, ProviderOpenAI)
	if err != nil {
		return Generation{}, err
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return Generation{}, &BackendError{Provider: ProviderOpenAI, Reason: "undecodable response: " + err.Error()}
	}
	if len(apiResp.Choices) == 0 {
		return Generation{}, &BackendError{Provider: ProviderOpenAI, Reason: "no choices in response"}
	}
	content := strings.TrimSpace(apiResp.Choices[0].Message.Content)
	if content == "" {
		return Generation{}, &BackendError{Provider: ProviderOpenAI, Reason: "empty message content"}
	}

	return Generation{Text: content, Tokens: apiResp.Usage.TotalTokens}, nil
}

// Close is a no-op; the HTTP client holds no per-backend resources.
func (b *OpenAIBackend) Close() error { return nil }

// doRequest executes req and returns the body of a 2xx response. Network failures and
// other statuses become *TransportError.
func doRequest(client *http.Client, req *http.Request, p Provider) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: p, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: p, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(p, resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

type openAIJSONSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schema      map[string]any `json:"schema"`
	Strict      bool           `json:"strict"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}
