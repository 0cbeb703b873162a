// Package audittest provides an in-memory audit store for tests of packages that record runs.
package audittest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/littlelifetrip/ai-recommender/internal/db"
)

// MemoryStore is an in-process audit.Store with the same transition rules as the database.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*db.AIRun
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[uuid.UUID]*db.AIRun)}
}

func (s *MemoryStore) InsertRun(_ context.Context, input *db.AIRunInput) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	s.runs[id] = &db.AIRun{
		ID:        id,
		UserID:    input.UserID,
		TripID:    input.TripID,
		Provider:  input.Provider,
		Prompt:    input.Prompt,
		Status:    db.RunStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	return id, nil
}

func (s *MemoryStore) CompleteRun(_ context.Context, id uuid.UUID, response json.RawMessage, tokensUsed int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok || run.Status == db.RunStatusFailed {
		return false, nil
	}
	now := time.Now().UTC()
	run.Response = append(json.RawMessage(nil), response...)
	run.TokensUsed = &tokensUsed
	run.Status = db.RunStatusCompleted
	run.UpdatedAt = &now
	return true, nil
}

func (s *MemoryStore) FailRun(_ context.Context, id uuid.UUID, errorMessage string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok || run.Status == db.RunStatusCompleted {
		return false, nil
	}
	now := time.Now().UTC()
	run.ErrorMessage = &errorMessage
	run.Status = db.RunStatusFailed
	run.UpdatedAt = &now
	return true, nil
}

// LatestPlanRunForTrip returns the newest completed run of a trip that carries a plan, or nil.
func (s *MemoryStore) LatestPlanRunForTrip(_ context.Context, tripID uuid.UUID) (*db.AIRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *db.AIRun
	for _, run := range s.runs {
		if run.TripID == nil || *run.TripID != tripID || run.Status != db.RunStatusCompleted || !run.HasPlan() {
			continue
		}
		if latest == nil || run.UpdatedAt.After(*latest.UpdatedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// Get returns a copy of a run, or nil.
func (s *MemoryStore) Get(id uuid.UUID) *db.AIRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return nil
	}
	cp := *run
	return &cp
}

// Runs returns copies of all runs.
func (s *MemoryStore) Runs() []db.AIRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]db.AIRun, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, *run)
	}
	return out
}
