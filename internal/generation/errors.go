package generation

import (
	"errors"
	"fmt"

	"github.com/littlelifetrip/ai-recommender/internal/schemas"
)

// MalformedJSONError reports model output that could not be parsed as JSON.
type MalformedJSONError struct {
	Err error
	Raw string
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("response is not valid JSON: %v", e.Err)
}

func (e *MalformedJSONError) Unwrap() error {
	return e.Err
}

// SchemaValidationError reports well-formed JSON that violates the output schema.
type SchemaValidationError struct {
	*schemas.ValidationError
	Raw string
}

func (e *SchemaValidationError) Error() string {
	return "response failed schema validation: " + e.ValidationError.Error()
}

func (e *SchemaValidationError) Unwrap() error {
	return e.ValidationError
}

// ExhaustedError is returned when every attempt produced invalid output.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed to generate valid itinerary after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// IsInvalidOutput reports whether err means the model answered but the answer was unusable.
func IsInvalidOutput(err error) bool {
	var (
		malformed *MalformedJSONError
		invalid   *SchemaValidationError
		exhausted *ExhaustedError
	)
	return errors.As(err, &malformed) || errors.As(err, &invalid) || errors.As(err, &exhausted)
}
