// Package generation turns backend text into validated, typed results. Itinerary
// generation retries with corrective instructions a bounded number of times.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/littlelifetrip/ai-recommender/internal/llm"
	"github.com/littlelifetrip/ai-recommender/internal/logger"
	"github.com/littlelifetrip/ai-recommender/internal/prompts"
	"github.com/littlelifetrip/ai-recommender/internal/schemas"
	"github.com/littlelifetrip/ai-recommender/internal/types"
)

const (
	// DefaultMaxRetries is the number of corrective attempts after the first.
	DefaultMaxRetries = 2
	// DefaultTimeout bounds a single backend call.
	DefaultTimeout = 120 * time.Second
)

// Options configures a Generator.
type Options struct {
	// MaxRetries bounds corrective attempts; total attempts are MaxRetries+1.
	MaxRetries int
	// Timeout bounds each backend call.
	Timeout time.Duration
}

// Result is a validated generation outcome.
type Result[T any] struct {
	Value T
	// Tokens counts only the attempt that produced Value.
	Tokens   int
	Attempts int
	// Raw is the cleaned JSON the value was decoded from.
	Raw json.RawMessage
}

// Generator validates backend output against schema descriptors.
type Generator struct {
	backend    llm.Backend
	log        *logger.Logger
	maxRetries int
	timeout    time.Duration
}

// New creates a Generator. A negative MaxRetries is treated as zero and a
// non-positive Timeout as DefaultTimeout.
func New(backend llm.Backend, log *logger.Logger, opts Options) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Generator{
		backend:    backend,
		log:        log.With("component", "generator", "provider", string(backend.Provider())),
		maxRetries: opts.MaxRetries,
		timeout:    opts.Timeout,
	}
}

// Provider returns the provider of the underlying backend.
func (g *Generator) Provider() llm.Provider {
	return g.backend.Provider()
}

// GenerateTripPlan produces a schema-valid itinerary. Unparseable output is retried with
// the original request and the parse error; schema violations are retried with a
// correction listing the failures. Transport and backend failures return immediately.
func (g *Generator) GenerateTripPlan(ctx context.Context, system, user string) (*Result[types.TripPlan], error) {
	desc := schemas.TripPlan()
	attempts := g.maxRetries + 1
	userText := user

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		gen, err := g.call(ctx, system, userText, desc)
		if err != nil {
			return nil, err
		}

		plan, raw, err := decode[types.TripPlan](gen.Text, desc)
		if err == nil {
			g.checkPlan(plan)
			g.log.Info("itinerary generated", "attempt", attempt, "tokens", gen.Tokens)
			return &Result[types.TripPlan]{Value: *plan, Tokens: gen.Tokens, Attempts: attempt, Raw: raw}, nil
		}
		last = err

		var (
			malformed *MalformedJSONError
			invalid   *SchemaValidationError
		)
		switch {
		case errors.As(err, &malformed):
			userText = prompts.CompileJSONRetry(user, malformed.Err)
		case errors.As(err, &invalid):
			userText = prompts.CompileCorrection(gen.Text, invalid.ValidationError)
		default:
			return nil, err
		}
		g.log.Warn("invalid itinerary output", "attempt", attempt, "max_attempts", attempts, "error", err.Error())
	}

	return nil, &ExhaustedError{Attempts: attempts, Last: last}
}

// GenerateExplanation makes a single call and validates the result.
func (g *Generator) GenerateExplanation(ctx context.Context, system, user string) (*Result[types.ExplainResult], error) {
	return single[types.ExplainResult](ctx, g, system, user, schemas.ExplainResult())
}

// GenerateImprovement makes a single call and validates the result.
func (g *Generator) GenerateImprovement(ctx context.Context, system, user string) (*Result[types.ImproveResult], error) {
	res, err := single[types.ImproveResult](ctx, g, system, user, schemas.ImproveResult())
	if err != nil {
		return nil, err
	}
	g.checkPlan(&res.Value.ImprovedPlan)
	return res, nil
}

func single[T any](ctx context.Context, g *Generator, system, user string, desc *schemas.Descriptor) (*Result[T], error) {
	gen, err := g.call(ctx, system, user, desc)
	if err != nil {
		return nil, err
	}
	v, raw, err := decode[T](gen.Text, desc)
	if err != nil {
		g.log.Warn("invalid output", "schema", desc.Name, "error", err.Error())
		return nil, err
	}
	return &Result[T]{Value: *v, Tokens: gen.Tokens, Attempts: 1, Raw: raw}, nil
}

func (g *Generator) call(ctx context.Context, system, user string, desc *schemas.Descriptor) (llm.Generation, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	gen, err := g.backend.Generate(callCtx, system, user, desc)
	if err != nil {
		g.log.Error("backend call failed", "schema", desc.Name, "duration", time.Since(start), "error", err.Error())
		return llm.Generation{}, err
	}
	g.log.Debug("backend call finished", "schema", desc.Name, "duration", time.Since(start), "tokens", gen.Tokens)
	return gen, nil
}

// checkPlan logs consistency problems the schema cannot express.
func (g *Generator) checkPlan(plan *types.TripPlan) {
	if dups := plan.DuplicateSlots(); len(dups) > 0 {
		g.log.Warn("itinerary has duplicate slots", "slots", fmt.Sprint(dups))
	}
	for _, day := range plan.Days() {
		if day > plan.DurationDays {
			g.log.Warn("itinerary day exceeds trip duration", "day_index", day, "duration_days", plan.DurationDays)
			break
		}
	}
}

type defaulter interface {
	ApplyDefaults()
}

// decode cleans, parses, validates and unmarshals model output into T.
func decode[T any](text string, desc *schemas.Descriptor) (*T, json.RawMessage, error) {
	cleaned := llm.CleanJSONBlock(text)

	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, nil, &MalformedJSONError{Err: err, Raw: text}
	}

	if err := desc.Validate([]byte(cleaned)); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			return nil, nil, &SchemaValidationError{ValidationError: ve, Raw: text}
		}
		return nil, nil, fmt.Errorf("failed to validate %s: %w", desc.Name, err)
	}

	var v T
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, nil, &MalformedJSONError{Err: err, Raw: text}
	}
	if d, ok := any(&v).(defaulter); ok {
		d.ApplyDefaults()
	}
	return &v, json.RawMessage(cleaned), nil
}
