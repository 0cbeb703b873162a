package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/littlelifetrip/ai-recommender/internal/generation"
	"github.com/littlelifetrip/ai-recommender/internal/integration"
	"github.com/littlelifetrip/ai-recommender/internal/llm"
	"github.com/littlelifetrip/ai-recommender/internal/recommendation"
)

// Error codes returned in the "error" field of failure bodies.
const (
	CodeUnauthorized        = "unauthorized"
	CodeInvalidRequest      = "invalid_request"
	CodeTripPlanNotFound    = "trip_plan_not_found"
	CodeUpstreamTimeout     = "upstream_timeout"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeUpstreamBadResponse = "upstream_bad_response"
	CodeGenerationInvalid   = "generation_invalid"
	CodeInternal            = "internal_error"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Status describes how an error is reported to the caller.
type Status struct {
	Code      int
	ErrorCode string
	Retryable bool
}

// HTTPStatus classifies an error into a status code, machine-readable code and retry hint.
func HTTPStatus(err error) Status {
	var (
		validation *ErrValidation
		fields     validator.ValidationErrors
		transport  *llm.TransportError
		backend    *llm.BackendError
		upstream   *integration.UpstreamError
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &fields):
		return Status{Code: http.StatusBadRequest, ErrorCode: CodeInvalidRequest}
	case errors.Is(err, recommendation.ErrTripPlanNotFound):
		return Status{Code: http.StatusNotFound, ErrorCode: CodeTripPlanNotFound}
	case generation.IsInvalidOutput(err):
		return Status{Code: http.StatusInternalServerError, ErrorCode: CodeGenerationInvalid}
	case errors.As(err, &transport):
		if transport.Timeout() {
			return Status{Code: http.StatusGatewayTimeout, ErrorCode: CodeUpstreamTimeout, Retryable: true}
		}
		return Status{Code: http.StatusBadGateway, ErrorCode: CodeUpstreamUnavailable, Retryable: true}
	case errors.As(err, &upstream):
		return Status{Code: http.StatusBadGateway, ErrorCode: CodeUpstreamUnavailable, Retryable: true}
	case errors.As(err, &backend):
		return Status{Code: http.StatusBadGateway, ErrorCode: CodeUpstreamBadResponse}
	default:
		return Status{Code: http.StatusInternalServerError, ErrorCode: CodeInternal}
	}
}

// errorMessage renders the caller-facing summary of err. Internal failures are not
// described beyond a generic sentence.
func errorMessage(err error, st Status) string {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		return describeFields(fields)
	}

	switch st.ErrorCode {
	case CodeInternal:
		return "internal server error"
	case CodeGenerationInvalid:
		var exhausted *generation.ExhaustedError
		if errors.As(err, &exhausted) {
			return fmt.Sprintf("failed to generate a valid itinerary after %d attempts", exhausted.Attempts)
		}
		return "generated content did not match the expected format"
	}
	return err.Error()
}

// describeFields lists failing fields by their JSON path, e.g. "constraints.duration_days (max)".
func describeFields(fields validator.ValidationErrors) string {
	parts := make([]string, 0, len(fields))
	for _, fe := range fields {
		path := fe.Namespace()
		if _, rest, ok := strings.Cut(path, "."); ok {
			path = rest
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", path, fe.Tag()))
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}
