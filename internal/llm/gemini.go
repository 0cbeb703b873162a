package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/littlelifetrip/ai-recommender/internal/schemas"
)

// GeminiBackend implements Backend for Google Gemini. Schemas are converted to the
// SDK's response schema so the model is constrained server-side.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a new Gemini backend
func NewGeminiBackend(ctx context.Context, cfg *Config) (*GeminiBackend, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiBackend{
		client: client,
		model:  cfg.GetModel(),
	}, nil
}

func (b *GeminiBackend) Provider() Provider { return ProviderGemini }

func (b *GeminiBackend) Model() string { return b.model }

// Generate runs a single GenerateContent call.
func (b *GeminiBackend) Generate(ctx context.Context, system, user string, schema *schemas.Descriptor) (Generation, error) {
	model := b.client.GenerativeModel(b.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	if schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = ToGenaiSchema(schema.Document)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return Generation{}, &BackendError{Provider: ProviderGemini, Reason: blocked.Error()}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return Generation{}, &TransportError{Provider: ProviderGemini, Err: err}
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return Generation{}, &BackendError{Provider: ProviderGemini, Reason: err.Error()}
	}

	gen := Generation{Text: text}
	if resp.UsageMetadata != nil {
		gen.Tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return gen, nil
}

// Close releases resources held by the client
func (b *GeminiBackend) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	text := strings.TrimSpace(strings.Join(parts, ""))
	if text == "" {
		return "", fmt.Errorf("no text parts in response")
	}
	return text, nil
}

// ToGenaiSchema converts a JSON Schema document into the SDK schema type. Only the
// keywords Gemini understands are carried over; a "null" member of a type list sets
// Nullable.
func ToGenaiSchema(doc map[string]any) *genai.Schema {
	if doc == nil {
		return nil
	}
	s := &genai.Schema{}

	switch t := doc["type"].(type) {
	case string:
		s.Type = genaiType(t)
	case []any:
		for _, member := range t {
			name, _ := member.(string)
			if name == "null" {
				s.Nullable = true
				continue
			}
			if s.Type == genai.TypeUnspecified {
				s.Type = genaiType(name)
			}
		}
	}

	if d, ok := doc["description"].(string); ok {
		s.Description = d
	}
	if props, ok := doc["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if child, ok := raw.(map[string]any); ok {
				s.Properties[name] = ToGenaiSchema(child)
			}
		}
	}
	if items, ok := doc["items"].(map[string]any); ok {
		s.Items = ToGenaiSchema(items)
	}
	if req, ok := doc["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return s
}

func genaiType(name string) genai.Type {
	switch name {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	}
	return genai.TypeUnspecified
}
