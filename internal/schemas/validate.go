// Package schemas provides JSON Schema descriptors and validation for generated payloads.
package schemas

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field      string
	Constraint string
	Value      any
	Message    string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s", i+1, err.Field, err.Message))
		if err.Constraint != "" {
			sb.WriteString(fmt.Sprintf(" [%s", err.Constraint))
			if err.Value != nil {
				sb.WriteString(fmt.Sprintf(", got %s", formatValue(err.Value)))
			}
			sb.WriteString("]")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Fields returns the paths of all failing fields.
func (ve *ValidationError) Fields() []string {
	fields := make([]string, 0, len(ve.Errors))
	for _, e := range ve.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

// fromResult converts a gojsonschema result into a *ValidationError, or nil when valid.
func fromResult(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:      field,
			Constraint: desc.Type(),
			Value:      desc.Value(),
			Message:    desc.Description(),
		})
	}

	return validationErr
}

// formatValue renders an offending value compactly for error text.
func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		if len([]rune(t)) > 60 {
			t = string([]rune(t)[:60]) + "..."
		}
		return fmt.Sprintf("%q", t)
	case map[string]any:
		return "object"
	case []any:
		return fmt.Sprintf("array(len=%d)", len(t))
	default:
		return fmt.Sprintf("%v", t)
	}
}
