// Package types provides type definitions for structured data used throughout the recommender service.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "fmt"

// DefaultCurrency is applied to plans that omit a currency code.
const DefaultCurrency = "UAH"

// GeoCoordinates is a latitude/longitude pair.
type GeoCoordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ItineraryItem is one scheduled activity in a trip plan.
type ItineraryItem struct {
	DayIndex        int             `json:"day_index"`
	OrderIndex      int             `json:"order_index"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	PlaceName       string          `json:"place_name"`
	Coordinates     *GeoCoordinates `json:"coordinates,omitempty"`
	EstimatedCost   *float64        `json:"estimated_cost,omitempty"`
	DurationMinutes *int            `json:"duration_minutes,omitempty"`
	StartTime       *string         `json:"start_time,omitempty"`
	Category        *string         `json:"category,omitempty"`
	Rationale       string          `json:"rationale"`
}

// TripPlan is the structured itinerary produced by the recommend use-case.
type TripPlan struct {
	Title               string          `json:"title"`
	Summary             string          `json:"summary"`
	Destination         string          `json:"destination"`
	TotalBudgetEstimate float64         `json:"total_budget_estimate"`
	Currency            string          `json:"currency"`
	DurationDays        int             `json:"duration_days"`
	Itinerary           []ItineraryItem `json:"itinerary"`
	Tags                []string        `json:"tags"`
	Tips                []string        `json:"tips,omitempty"`
}

// ApplyDefaults fills the currency and tags when the model left them out.
func (p *TripPlan) ApplyDefaults() {
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
}

// Slot identifies an itinerary position.
type Slot struct {
	DayIndex   int
	OrderIndex int
}

func (s Slot) String() string {
	return fmt.Sprintf("day %d #%d", s.DayIndex, s.OrderIndex)
}

// DuplicateSlots returns every (day_index, order_index) pair used by more than one item,
// in order of first repetition.
func (p *TripPlan) DuplicateSlots() []Slot {
	seen := make(map[Slot]int, len(p.Itinerary))
	var dups []Slot
	for _, item := range p.Itinerary {
		s := Slot{DayIndex: item.DayIndex, OrderIndex: item.OrderIndex}
		seen[s]++
		if seen[s] == 2 {
			dups = append(dups, s)
		}
	}
	return dups
}

// Days returns the distinct day indexes in the itinerary, in first-seen order.
func (p *TripPlan) Days() []int {
	seen := make(map[int]bool)
	var days []int
	for _, item := range p.Itinerary {
		if !seen[item.DayIndex] {
			seen[item.DayIndex] = true
			days = append(days, item.DayIndex)
		}
	}
	return days
}

// ExplainResult is the output of the explain use-case.
type ExplainResult struct {
	Explanation      string   `json:"explanation"`
	Highlights       []string `json:"highlights"`
	AnsweredQuestion *string  `json:"answered_question"`
}

// ApplyDefaults replaces a missing highlights list with an empty one.
func (r *ExplainResult) ApplyDefaults() {
	if r.Highlights == nil {
		r.Highlights = []string{}
	}
}

// ImproveResult is the output of the improve use-case.
type ImproveResult struct {
	ImprovedPlan       TripPlan `json:"improved_plan"`
	ChangesMade        []string `json:"changes_made"`
	ImprovementSummary string   `json:"improvement_summary"`
}

// ApplyDefaults fills defaults on the nested plan.
func (r *ImproveResult) ApplyDefaults() {
	r.ImprovedPlan.ApplyDefaults()
	if r.ChangesMade == nil {
		r.ChangesMade = []string{}
	}
}
