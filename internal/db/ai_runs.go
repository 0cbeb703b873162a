package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// AI Runs Methods
// -----------------------------------------------------------------------------

const aiRunColumns = `id, user_id, trip_id, provider::text, prompt, response, tokens_used,
	status::text, error_message, created_at, updated_at`

// InsertRun creates a pending run. A nil input ID is replaced with a new UUID.
func (db *DB) InsertRun(ctx context.Context, input *AIRunInput) (uuid.UUID, error) {
	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO integration.ai_runs (id, user_id, trip_id, provider, prompt, status, created_at)
		 VALUES ($1, $2, $3, CAST($4::text AS integration.llmprovider), $5, 'pending', NOW())`,
		id, input.UserID, input.TripID, input.Provider, input.Prompt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert ai run: %w", err)
	}
	return id, nil
}

// CompleteRun stores the response of a run and marks it completed. Failed runs are left
// untouched. The boolean reports whether a row was updated.
func (db *DB) CompleteRun(ctx context.Context, id uuid.UUID, response json.RawMessage, tokensUsed int) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE integration.ai_runs
		 SET response = $2, tokens_used = $3, status = 'completed', updated_at = NOW()
		 WHERE id = $1 AND status <> 'failed'`,
		id, []byte(response), tokensUsed,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete ai run: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FailRun records an error message and marks the run failed. Completed runs are left
// untouched. The boolean reports whether a row was updated.
func (db *DB) FailRun(ctx context.Context, id uuid.UUID, errorMessage string) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE integration.ai_runs
		 SET error_message = $2, status = 'failed', updated_at = NOW()
		 WHERE id = $1 AND status <> 'completed'`,
		id, errorMessage,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark ai run failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetRun retrieves a run by ID, or nil when it does not exist.
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (*AIRun, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+aiRunColumns+` FROM integration.ai_runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ai run: %w", err)
	}
	return run, nil
}

// ListRunsByUser returns the newest runs of a user.
func (db *DB) ListRunsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]AIRun, error) {
	return db.listRuns(ctx, "user_id", userID, limit)
}

// ListRunsByTrip returns the newest runs attached to a trip.
func (db *DB) ListRunsByTrip(ctx context.Context, tripID uuid.UUID, limit int) ([]AIRun, error) {
	return db.listRuns(ctx, "trip_id", tripID, limit)
}

// LatestPlanRunForTrip returns the most recent completed run of a trip whose response
// carries a plan, or nil. Explain runs store no plan and are skipped.
func (db *DB) LatestPlanRunForTrip(ctx context.Context, tripID uuid.UUID) (*AIRun, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+aiRunColumns+`
		 FROM integration.ai_runs
		 WHERE trip_id = $1 AND status = 'completed'
		   AND (response ? 'improved_plan' OR response ? 'itinerary')
		 ORDER BY COALESCE(updated_at, created_at) DESC
		 LIMIT 1`, tripID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest run for trip: %w", err)
	}
	return run, nil
}

// listRuns filters on an indexed column; column is never user input.
func (db *DB) listRuns(ctx context.Context, column string, id uuid.UUID, limit int) ([]AIRun, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+aiRunColumns+`
		 FROM integration.ai_runs
		 WHERE `+column+` = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ai runs: %w", err)
	}
	defer rows.Close()

	var runs []AIRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ai run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ai runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*AIRun, error) {
	var run AIRun
	var response []byte
	err := row.Scan(&run.ID, &run.UserID, &run.TripID, &run.Provider, &run.Prompt,
		&response, &run.TokensUsed, &run.Status, &run.ErrorMessage, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if response != nil {
		run.Response = json.RawMessage(response)
	}
	return &run, nil
}
