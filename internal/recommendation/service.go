// Package recommendation orchestrates the recommend, explain and improve use-cases:
// each request is audited, context is gathered, prompts are compiled and the
// validated model output is returned.
package recommendation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/littlelifetrip/ai-recommender/internal/audit"
	"github.com/littlelifetrip/ai-recommender/internal/db"
	"github.com/littlelifetrip/ai-recommender/internal/generation"
	"github.com/littlelifetrip/ai-recommender/internal/integration"
	"github.com/littlelifetrip/ai-recommender/internal/logger"
	"github.com/littlelifetrip/ai-recommender/internal/prompts"
	"github.com/littlelifetrip/ai-recommender/internal/types"
)

// ErrTripPlanNotFound is returned by Explain when the request carries no plan and the
// trip has no completed run to take one from.
var ErrTripPlanNotFound = errors.New("trip plan not found")

const failWriteTimeout = 5 * time.Second

// PlanLookup finds previously generated plans.
type PlanLookup interface {
	LatestPlanRunForTrip(ctx context.Context, tripID uuid.UUID) (*db.AIRun, error)
}

// Defaults are applied when a request does not specify them.
type Defaults struct {
	Language string
	Currency string
}

// Service handles the three generation use-cases.
type Service struct {
	generator *generation.Generator
	recorder  *audit.Recorder
	fetcher   integration.Fetcher
	plans     PlanLookup
	defaults  Defaults
	log       *logger.Logger
}

// NewService creates a Service.
func NewService(generator *generation.Generator, recorder *audit.Recorder, fetcher integration.Fetcher, plans PlanLookup, defaults Defaults, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if defaults.Language == "" {
		defaults.Language = "Ukrainian"
	}
	if defaults.Currency == "" {
		defaults.Currency = types.DefaultCurrency
	}
	return &Service{
		generator: generator,
		recorder:  recorder,
		fetcher:   fetcher,
		plans:     plans,
		defaults:  defaults,
		log:       log.With("component", "recommendation"),
	}
}

// Recommend generates a new itinerary.
func (s *Service) Recommend(ctx context.Context, req *types.RecommendationRequest) (*types.TripPlan, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id: %w", err)
	}
	destination := req.Constraints.Destination()

	runID, err := s.recorder.Begin(ctx, audit.BeginInput{
		UserID:   userID,
		Provider: string(s.generator.Provider()),
		Prompt:   "Generate itinerary for " + destination,
	})
	if err != nil {
		return nil, err
	}
	log := s.log.With("run_id", runID.String(), "use_case", "recommend")

	tc, err := s.fetchContext(ctx, destination, req)
	if err != nil {
		return nil, s.fail(ctx, log, runID, err)
	}
	log.Debug("trip context loaded", "city", tc.City, "pois", len(tc.POIs), "forecast", tc.Weather.HasForecast())

	currency := s.currency(req.Currency)
	pair := prompts.CompileRecommendation(prompts.RecommendationInput{
		Preferences: req.UserProfile,
		Constraints: req.Constraints,
		Weather:     tc.Weather,
		POIs:        tc.POIs,
		Language:    s.language(req.Language),
		Currency:    currency,
	})

	res, err := s.generator.GenerateTripPlan(ctx, pair.System, pair.User)
	if err != nil {
		return nil, s.fail(ctx, log, runID, err)
	}

	s.recorder.CompleteAsync(runID, res.Value, res.Tokens)
	log.Info("itinerary ready", "destination", destination, "attempts", res.Attempts, "tokens", res.Tokens)
	return &res.Value, nil
}

// Explain describes a plan, answering the optional question.
func (s *Service) Explain(ctx context.Context, req *types.ExplainRequest) (*types.ExplainResult, error) {
	userID, tripID, err := parseIDs(req.UserID, req.TripID)
	if err != nil {
		return nil, err
	}

	question := "General explanation"
	if req.Question != nil {
		question = *req.Question
	}
	runID, err := s.recorder.Begin(ctx, audit.BeginInput{
		UserID:   userID,
		TripID:   &tripID,
		Provider: string(s.generator.Provider()),
		Prompt:   fmt.Sprintf("Explain trip %s: %s", tripID, question),
	})
	if err != nil {
		return nil, err
	}
	log := s.log.With("run_id", runID.String(), "use_case", "explain")

	plan, err := s.resolvePlan(ctx, tripID, req.TripPlan)
	if err != nil {
		return nil, s.fail(ctx, log, runID, err)
	}

	pair := prompts.CompileExplain(plan, req.Question, s.language(req.Language), "")
	res, err := s.generator.GenerateExplanation(ctx, pair.System, pair.User)
	if err != nil {
		return nil, s.fail(ctx, log, runID, err)
	}

	s.recorder.CompleteAsync(runID, res.Value, res.Tokens)
	log.Info("explanation ready", "trip_id", tripID.String(), "tokens", res.Tokens)
	return &res.Value, nil
}

// Improve revises a plan according to the caller's request.
func (s *Service) Improve(ctx context.Context, req *types.ImproveRequest) (*types.ImproveResult, error) {
	userID, tripID, err := parseIDs(req.UserID, req.TripID)
	if err != nil {
		return nil, err
	}

	runID, err := s.recorder.Begin(ctx, audit.BeginInput{
		UserID:   userID,
		TripID:   &tripID,
		Provider: string(s.generator.Provider()),
		Prompt:   fmt.Sprintf("Improve trip %s: %s", tripID, req.ImprovementRequest),
	})
	if err != nil {
		return nil, err
	}
	log := s.log.With("run_id", runID.String(), "use_case", "improve")

	pair := prompts.CompileImprove(req.CurrentPlan, req.ImprovementRequest, req.Constraints, s.language(req.Language), s.currency(req.Currency))
	res, err := s.generator.GenerateImprovement(ctx, pair.System, pair.User)
	if err != nil {
		return nil, s.fail(ctx, log, runID, err)
	}

	s.recorder.CompleteAsync(runID, res.Value, res.Tokens)
	log.Info("improvement ready", "trip_id", tripID.String(), "changes", len(res.Value.ChangesMade), "tokens", res.Tokens)
	return &res.Value, nil
}

// fetchContext loads weather and points of interest concurrently. Both must succeed.
func (s *Service) fetchContext(ctx context.Context, city string, req *types.RecommendationRequest) (*types.TripContext, error) {
	tc := &types.TripContext{City: city}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := s.fetcher.GetWeather(gctx, city, req.Constraints.StartDate, req.Constraints.EndDate)
		if err != nil {
			return fmt.Errorf("failed to fetch weather: %w", err)
		}
		tc.Weather = w
		return nil
	})
	g.Go(func() error {
		p, err := s.fetcher.SearchPOIs(gctx, city, req.UserProfile.Interests)
		if err != nil {
			return fmt.Errorf("failed to fetch points of interest: %w", err)
		}
		tc.POIs = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tc, nil
}

// resolvePlan returns the plan sent by the caller, or the plan of the trip's latest
// completed run that stored one.
func (s *Service) resolvePlan(ctx context.Context, tripID uuid.UUID, inline json.RawMessage) (json.RawMessage, error) {
	if len(inline) > 0 {
		return inline, nil
	}
	if s.plans == nil {
		return nil, ErrTripPlanNotFound
	}

	run, err := s.plans.LatestPlanRunForTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up trip plan: %w", err)
	}
	if run == nil || len(run.Response) == 0 {
		return nil, ErrTripPlanNotFound
	}

	// Improve runs store the plan under improved_plan; explain runs store no plan.
	var stored struct {
		ImprovedPlan json.RawMessage `json:"improved_plan"`
		Itinerary    json.RawMessage `json:"itinerary"`
	}
	if err := json.Unmarshal(run.Response, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode stored run: %w", err)
	}
	switch {
	case len(stored.ImprovedPlan) > 0:
		return stored.ImprovedPlan, nil
	case len(stored.Itinerary) > 0:
		return run.Response, nil
	default:
		return nil, ErrTripPlanNotFound
	}
}

// fail records err on the run and returns it unchanged. A failure to record is logged.
func (s *Service) fail(ctx context.Context, log *logger.Logger, runID uuid.UUID, err error) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failWriteTimeout)
	defer cancel()

	if ferr := s.recorder.Fail(writeCtx, runID, err.Error()); ferr != nil {
		log.Error("failed to record run failure", "error", ferr.Error(), "original_error", err.Error())
	}
	log.Warn("request failed", "error", err.Error())
	return err
}

func (s *Service) language(requested string) string {
	if requested != "" {
		return requested
	}
	return s.defaults.Language
}

func (s *Service) currency(requested string) string {
	if requested != "" {
		return requested
	}
	return s.defaults.Currency
}

func parseIDs(user, trip string) (uuid.UUID, uuid.UUID, error) {
	userID, err := uuid.Parse(user)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid user_id: %w", err)
	}
	tripID, err := uuid.Parse(trip)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid trip_id: %w", err)
	}
	return userID, tripID, nil
}
