package schemas

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// StartTimePattern matches HH:MM on a 24 hour clock, with an optional leading zero.
const StartTimePattern = `^([01]?[0-9]|2[0-3]):[0-5][0-9]$`

// Descriptor is a named JSON Schema document describing a structured model output.
// The same document is sent to providers that enforce schemas server-side, embedded
// textually for those that do not, and used locally to validate responses.
type Descriptor struct {
	Name        string
	Description string
	Document    map[string]any

	once     sync.Once
	compiled *gojsonschema.Schema
	loadErr  error
}

// NewDescriptor creates a descriptor from a JSON Schema document.
func NewDescriptor(name, description string, document map[string]any) *Descriptor {
	return &Descriptor{Name: name, Description: description, Document: document}
}

func (d *Descriptor) schema() (*gojsonschema.Schema, error) {
	d.once.Do(func() {
		d.compiled, d.loadErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(d.Document))
		if d.loadErr != nil {
			d.loadErr = &SchemaLoadError{Path: d.Name, Message: "invalid schema document", Cause: d.loadErr}
		}
	})
	return d.compiled, d.loadErr
}

// Validate checks raw JSON against the descriptor. It returns *ValidationError for
// constraint violations and *SchemaLoadError when the schema or document cannot be loaded.
func (d *Descriptor) Validate(raw []byte) error {
	s, err := d.schema()
	if err != nil {
		return err
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &SchemaLoadError{Path: d.Name, Message: "document could not be loaded", Cause: err}
	}
	return fromResult(result)
}

// JSON returns the indented schema document.
func (d *Descriptor) JSON() string {
	b, err := json.MarshalIndent(d.Document, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"title": %q}`, d.Name)
	}
	return string(b)
}

var (
	tripPlanOnce sync.Once
	tripPlan     *Descriptor
	explainOnce  sync.Once
	explain      *Descriptor
	improveOnce  sync.Once
	improve      *Descriptor
)

// TripPlan describes the itinerary produced by the recommend use-case.
func TripPlan() *Descriptor {
	tripPlanOnce.Do(func() {
		tripPlan = NewDescriptor("trip_plan", "Complete trip plan with a day-by-day itinerary", tripPlanDocument())
	})
	return tripPlan
}

// ExplainResult describes the output of the explain use-case.
func ExplainResult() *Descriptor {
	explainOnce.Do(func() {
		explain = NewDescriptor("explain_result", "Explanation of a trip plan", object(
			map[string]any{
				"explanation":       str(1, 0),
				"highlights":        arrayOf(str(0, 0), 0),
				"answered_question": nullable("string"),
			},
			"explanation", "highlights",
		))
	})
	return explain
}

// ImproveResult describes the output of the improve use-case.
func ImproveResult() *Descriptor {
	improveOnce.Do(func() {
		improve = NewDescriptor("improve_result", "Improved trip plan with a list of changes", object(
			map[string]any{
				"improved_plan":       tripPlanDocument(),
				"changes_made":        arrayOf(str(0, 0), 0),
				"improvement_summary": str(1, 0),
			},
			"improved_plan", "changes_made", "improvement_summary",
		))
	})
	return improve
}

func tripPlanDocument() map[string]any {
	coordinates := object(map[string]any{
		"lat": num(-90, 90),
		"lng": num(-180, 180),
	}, "lat", "lng")
	coordinates["type"] = []any{"object", "null"}

	item := object(map[string]any{
		"day_index":   integer(1, 0),
		"order_index": integer(1, 0),
		"title":       str(2, 200),
		"description": str(10, 1000),
		"place_name":  str(2, 200),
		"coordinates": coordinates,
		"estimated_cost": map[string]any{
			"type":    []any{"number", "null"},
			"minimum": 0,
		},
		"duration_minutes": map[string]any{
			"type":    []any{"integer", "null"},
			"minimum": 15,
			"maximum": 480,
		},
		"start_time": map[string]any{
			"type":    []any{"string", "null"},
			"pattern": StartTimePattern,
		},
		"category":  nullable("string"),
		"rationale": str(10, 500),
	}, "day_index", "order_index", "title", "description", "place_name", "rationale")

	tips := arrayOf(str(0, 0), 0)
	tips["type"] = []any{"array", "null"}

	return object(map[string]any{
		"title":                 str(5, 200),
		"summary":               str(20, 1000),
		"destination":           str(1, 0),
		"total_budget_estimate": num(0, -1),
		"currency":              str(0, 0),
		"duration_days":         integer(1, 15),
		"itinerary":             arrayOf(item, 1),
		"tags":                  arrayOf(str(0, 0), 0),
		"tips":                  tips,
	}, "title", "summary", "destination", "total_budget_estimate", "duration_days", "itinerary")
}

func object(properties map[string]any, required ...string) map[string]any {
	req := make([]any, 0, len(required))
	for _, r := range required {
		req = append(req, r)
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   req,
	}
}

// str builds a string schema; zero bounds are omitted.
func str(minLen, maxLen int) map[string]any {
	s := map[string]any{"type": "string"}
	if minLen > 0 {
		s["minLength"] = minLen
	}
	if maxLen > 0 {
		s["maxLength"] = maxLen
	}
	return s
}

// integer builds an integer schema; a zero max means unbounded.
func integer(minimum, maximum int) map[string]any {
	s := map[string]any{"type": "integer", "minimum": minimum}
	if maximum > 0 {
		s["maximum"] = maximum
	}
	return s
}

// num builds a number schema; a negative max means unbounded.
func num(minimum, maximum float64) map[string]any {
	s := map[string]any{"type": "number", "minimum": minimum}
	if maximum >= 0 {
		s["maximum"] = maximum
	}
	return s
}

func arrayOf(items map[string]any, minItems int) map[string]any {
	s := map[string]any{"type": "array", "items": items}
	if minItems > 0 {
		s["minItems"] = minItems
	}
	return s
}

func nullable(t string) map[string]any {
	return map[string]any{"type": []any{t, "null"}}
}

// ForResponse picks the descriptor matching a stored response by its top-level keys.
// It returns nil when raw is not an object or matches no known shape.
func ForResponse(raw []byte) *Descriptor {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil
	}
	switch {
	case keys["improved_plan"] != nil:
		return ImproveResult()
	case keys["explanation"] != nil:
		return ExplainResult()
	case keys["itinerary"] != nil:
		return TripPlan()
	}
	return nil
}
