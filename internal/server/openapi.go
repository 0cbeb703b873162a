package server

import (
	"net/http"

	"github.com/littlelifetrip/ai-recommender/internal/schemas"
)

const apiVersion = "0.1.0"

// OpenAPIDocument describes the API. Response schemas are the same documents used to
// validate model output.
func OpenAPIDocument() map[string]any {
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       "AI Recommender Service",
			"description": "AI-powered travel itinerary recommender service for LittleLifeTrip",
			"version":     apiVersion,
		},
		"paths": map[string]any{
			"/internal/v1/ai/recommend": operation("Generate a personalized travel itinerary.", "RecommendationRequest", "TripPlan"),
			"/internal/v1/ai/explain":   operation("Explain a specific trip plan or answer questions about it.", "ExplainRequest", "ExplainResult"),
			"/internal/v1/ai/improve":   operation("Improve an existing travel itinerary.", "ImproveRequest", "ImproveResult"),
			"/recommender/health": map[string]any{
				"get": map[string]any{
					"summary": "Health check endpoint for service monitoring.",
					"responses": map[string]any{
						"200": jsonContent("Service is up", map[string]any{
							"type": "object",
							"properties": map[string]any{
								"status":  map[string]any{"type": "string"},
								"service": map[string]any{"type": "string"},
							},
						}),
					},
				},
			},
		},
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"bearerAuth": map[string]any{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
			"schemas": map[string]any{
				"TripPlan":              openAPISchema(schemas.TripPlan().Document),
				"ExplainResult":         openAPISchema(schemas.ExplainResult().Document),
				"ImproveResult":         openAPISchema(schemas.ImproveResult().Document),
				"RecommendationRequest": recommendationRequestSchema(),
				"ExplainRequest":        explainRequestSchema(),
				"ImproveRequest":        improveRequestSchema(),
				"ErrorResponse": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"error":     map[string]any{"type": "string"},
						"message":   map[string]any{"type": "string"},
						"retryable": map[string]any{"type": "boolean"},
					},
					"required": []any{"error", "message", "retryable"},
				},
			},
		},
	}
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, OpenAPIDocument())
}

func (s *Server) handleDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(docsPage))
}

const docsPage = `<!DOCTYPE html>
<html>
<head>
<title>AI Recommender Service - Docs</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>
SwaggerUIBundle({url: "/recommender/openapi.json", dom_id: "#swagger-ui"});
</script>
</body>
</html>
`

func operation(summary, requestSchema, responseSchema string) map[string]any {
	errorRef := ref("ErrorResponse")
	return map[string]any{
		"post": map[string]any{
			"summary":  summary,
			"security": []any{map[string]any{"bearerAuth": []any{}}},
			"requestBody": map[string]any{
				"required": true,
				"content":  map[string]any{"application/json": map[string]any{"schema": ref(requestSchema)}},
			},
			"responses": map[string]any{
				"200": jsonContent("Successful response", ref(responseSchema)),
				"400": jsonContent("Invalid request", errorRef),
				"401": jsonContent("Missing or invalid bearer token", errorRef),
				"404": jsonContent("Trip plan not found", errorRef),
				"500": jsonContent("Generation failed", errorRef),
				"502": jsonContent("Upstream failure", errorRef),
				"504": jsonContent("Upstream timeout", errorRef),
			},
		},
	}
}

func jsonContent(description string, schema map[string]any) map[string]any {
	return map[string]any{
		"description": description,
		"content":     map[string]any{"application/json": map[string]any{"schema": schema}},
	}
}

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

// openAPISchema rewrites JSON Schema type unions such as ["string", "null"] into the
// OpenAPI 3.0 nullable form.
func openAPISchema(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		switch k {
		case "type":
			if union, ok := v.([]any); ok {
				for _, t := range union {
					if t == "null" {
						out["nullable"] = true
						continue
					}
					out["type"] = t
				}
				continue
			}
			out[k] = v
		case "properties":
			props := map[string]any{}
			for name, p := range v.(map[string]any) {
				props[name] = openAPISchema(p.(map[string]any))
			}
			out[k] = props
		case "items":
			out[k] = openAPISchema(v.(map[string]any))
		default:
			out[k] = v
		}
	}
	return out
}

func str(extra map[string]any) map[string]any {
	s := map[string]any{"type": "string"}
	for k, v := range extra {
		s[k] = v
	}
	return s
}

func strArray(maxItems int) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string", "maxLength": 50}, "maxItems": maxItems}
}

func tripConstraintsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"origin_city":       str(map[string]any{"minLength": 2, "maxLength": 100}),
			"destination_city":  str(map[string]any{"maxLength": 100, "nullable": true}),
			"start_date":        str(map[string]any{"format": "date", "nullable": true}),
			"end_date":          str(map[string]any{"format": "date", "nullable": true}),
			"duration_days":     map[string]any{"type": "integer", "minimum": 1, "maximum": 15},
			"total_budget":      map[string]any{"type": "integer", "minimum": 0, "nullable": true},
			"travel_party_size": map[string]any{"type": "integer", "minimum": 1, "maximum": 20, "default": 1},
		},
		"required": []any{"origin_city", "duration_days"},
	}
}

func recommendationRequestSchema() map[string]any {
	interests := strArray(10)
	interests["minItems"] = 1
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id": str(map[string]any{"format": "uuid"}),
			"user_profile": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"interests":        interests,
					"transport_modes":  strArray(10),
					"avg_daily_budget": map[string]any{"type": "integer", "minimum": 0, "nullable": true},
				},
				"required": []any{"interests"},
			},
			"constraints": tripConstraintsSchema(),
			"timezone":    str(map[string]any{"default": "Europe/Kyiv"}),
			"language":    str(map[string]any{"maxLength": 50}),
			"currency":    str(map[string]any{"minLength": 3, "maxLength": 3}),
		},
		"required": []any{"user_id", "user_profile", "constraints"},
	}
}

func explainRequestSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id":   str(map[string]any{"format": "uuid"}),
			"trip_id":   str(map[string]any{"format": "uuid"}),
			"question":  str(map[string]any{"maxLength": 500, "nullable": true}),
			"trip_plan": map[string]any{"type": "object", "nullable": true},
			"language":  str(map[string]any{"maxLength": 50}),
		},
		"required": []any{"user_id", "trip_id"},
	}
}

func improveRequestSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id":             str(map[string]any{"format": "uuid"}),
			"trip_id":             str(map[string]any{"format": "uuid"}),
			"current_plan":        map[string]any{"type": "object"},
			"improvement_request": str(map[string]any{"minLength": 5, "maxLength": 1000}),
			"constraints":         tripConstraintsSchema(),
			"language":            str(map[string]any{"maxLength": 50}),
			"currency":            str(map[string]any{"minLength": 3, "maxLength": 3}),
		},
		"required": []any{"user_id", "trip_id", "current_plan", "improvement_request"},
	}
}
