// Package audit records every generation request as a run that moves from pending to
// exactly one of completed or failed.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/littlelifetrip/ai-recommender/internal/db"
	"github.com/littlelifetrip/ai-recommender/internal/logger"
)

const (
	// DefaultAsyncTimeout bounds a background completion write.
	DefaultAsyncTimeout = 10 * time.Second
	// maxErrorMessage caps stored error text, in runes.
	maxErrorMessage = 2000
)

// Store persists runs. Update methods report whether a row changed; a run that does
// not exist or already reached the opposite terminal state reports false.
type Store interface {
	InsertRun(ctx context.Context, input *db.AIRunInput) (uuid.UUID, error)
	CompleteRun(ctx context.Context, id uuid.UUID, response json.RawMessage, tokensUsed int) (bool, error)
	FailRun(ctx context.Context, id uuid.UUID, errorMessage string) (bool, error)
}

// BeginInput describes a run about to start.
type BeginInput struct {
	UserID   uuid.UUID
	TripID   *uuid.UUID
	Provider string
	Prompt   string
}

// Recorder writes run transitions to a Store.
type Recorder struct {
	store        Store
	log          *logger.Logger
	asyncTimeout time.Duration
	wg           sync.WaitGroup
}

// NewRecorder creates a Recorder.
func NewRecorder(store Store, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.Nop()
	}
	return &Recorder{
		store:        store,
		log:          log.With("component", "audit"),
		asyncTimeout: DefaultAsyncTimeout,
	}
}

// Begin inserts a pending run and returns its id. It must succeed before any
// generation work starts.
func (r *Recorder) Begin(ctx context.Context, in BeginInput) (uuid.UUID, error) {
	id, err := r.store.InsertRun(ctx, &db.AIRunInput{
		ID:       uuid.New(),
		UserID:   in.UserID,
		TripID:   in.TripID,
		Provider: in.Provider,
		Prompt:   in.Prompt,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record run start: %w", err)
	}
	r.log.Debug("run started", "run_id", id.String(), "provider", in.Provider)
	return id, nil
}

// Complete stores the payload and token count and marks the run completed. An unknown
// or already failed run is logged and ignored.
func (r *Recorder) Complete(ctx context.Context, id uuid.UUID, payload any, tokens int) error {
	response, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal run response: %w", err)
	}

	found, err := r.store.CompleteRun(ctx, id, response, tokens)
	if err != nil {
		return fmt.Errorf("failed to record run completion: %w", err)
	}
	if !found {
		r.log.Warn("run not completed: missing or already failed", "run_id", id.String())
		return nil
	}
	r.log.Debug("run completed", "run_id", id.String(), "tokens", tokens)
	return nil
}

// CompleteAsync runs Complete in the background with its own deadline. Failures are
// logged only. Use Wait to drain pending writes.
func (r *Recorder) CompleteAsync(id uuid.UUID, payload any, tokens int) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.asyncTimeout)
		defer cancel()
		if err := r.Complete(ctx, id, payload, tokens); err != nil {
			r.log.Error("background run completion failed", "run_id", id.String(), "error", err.Error())
		}
	}()
}

// Fail marks the run failed with the given message. An unknown or already completed
// run is logged and ignored.
func (r *Recorder) Fail(ctx context.Context, id uuid.UUID, message string) error {
	if r := []rune(message); len(r) > maxErrorMessage {
		message = string(r[:maxErrorMessage])
	}
	found, err := r.store.FailRun(ctx, id, message)
	if err != nil {
		return fmt.Errorf("failed to record run failure: %w", err)
	}
	if !found {
		r.log.Warn("run not failed: missing or already completed", "run_id", id.String())
		return nil
	}
	r.log.Info("run failed", "run_id", id.String(), "error", message)
	return nil
}

// Wait blocks until background writes finish or ctx is done.
func (r *Recorder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
