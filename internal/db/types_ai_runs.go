package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunStatus constants
const (
	RunStatusPending   = "pending"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// DefaultListLimit caps list queries when no limit is given.
const DefaultListLimit = 50

// AIRun is one audited generation request.
type AIRun struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	TripID       *uuid.UUID      `json:"trip_id,omitempty"`
	Provider     string          `json:"provider"`
	Prompt       string          `json:"prompt"`
	Response     json.RawMessage `json:"response,omitempty"`
	TokensUsed   *int            `json:"tokens_used,omitempty"`
	Status       string          `json:"status"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    *time.Time      `json:"updated_at,omitempty"`
}

// HasPlan reports whether the stored response carries a trip plan, either as an
// itinerary or as the improved_plan of an improvement.
func (r *AIRun) HasPlan() bool {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(r.Response, &keys); err != nil {
		return false
	}
	_, itinerary := keys["itinerary"]
	_, improved := keys["improved_plan"]
	return itinerary || improved
}

// AIRunInput represents input for creating a pending run
type AIRunInput struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	TripID   *uuid.UUID
	Provider string
	Prompt   string
}
