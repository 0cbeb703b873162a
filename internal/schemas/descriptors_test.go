package schemas

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTripPlan(t *testing.T) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "trip_plan.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func firstItem(doc map[string]any) map[string]any {
	return doc["itinerary"].([]any)[0].(map[string]any)
}

func requireValidationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type, got %T", err)
	require.NotEmpty(t, ve.Errors)
	return ve
}

func TestTripPlan_ValidFixture(t *testing.T) {
	assert.NoError(t, TripPlan().Validate(marshal(t, loadTripPlan(t))))
}

func TestTripPlan_DurationBoundary(t *testing.T) {
	doc := loadTripPlan(t)

	doc["duration_days"] = 15
	assert.NoError(t, TripPlan().Validate(marshal(t, doc)), "15 days should be accepted")

	doc["duration_days"] = 16
	ve := requireValidationError(t, TripPlan().Validate(marshal(t, doc)))
	assert.Contains(t, ve.Fields(), "duration_days")

	doc["duration_days"] = 0
	ve = requireValidationError(t, TripPlan().Validate(marshal(t, doc)))
	assert.Contains(t, ve.Fields(), "duration_days")
}

func TestTripPlan_EmptyItineraryRejected(t *testing.T) {
	doc := loadTripPlan(t)
	doc["itinerary"] = []any{}

	ve := requireValidationError(t, TripPlan().Validate(marshal(t, doc)))
	assert.Contains(t, ve.Fields(), "itinerary")
}

func TestTripPlan_MissingRequiredField(t *testing.T) {
	doc := loadTripPlan(t)
	delete(doc, "itinerary")

	ve := requireValidationError(t, TripPlan().Validate(marshal(t, doc)))
	assert.Contains(t, ve.Error(), "itinerary")
	assert.Equal(t, "required", ve.Errors[0].Constraint)
}

func TestTripPlan_ItemConstraints(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(item map[string]any)
		field  string
	}{
		{
			name:   "start time out of range",
			mutate: func(item map[string]any) { item["start_time"] = "24:00" },
			field:  "itinerary.0.start_time",
		},
		{
			name:   "start time wrong format",
			mutate: func(item map[string]any) { item["start_time"] = "9am" },
			field:  "itinerary.0.start_time",
		},
		{
			name:   "duration below minimum",
			mutate: func(item map[string]any) { item["duration_minutes"] = 10 },
			field:  "itinerary.0.duration_minutes",
		},
		{
			name:   "duration above maximum",
			mutate: func(item map[string]any) { item["duration_minutes"] = 481 },
			field:  "itinerary.0.duration_minutes",
		},
		{
			name:   "negative cost",
			mutate: func(item map[string]any) { item["estimated_cost"] = -1 },
			field:  "itinerary.0.estimated_cost",
		},
		{
			name:   "latitude out of range",
			mutate: func(item map[string]any) { item["coordinates"] = map[string]any{"lat": 91, "lng": 0} },
			field:  "itinerary.0.coordinates.lat",
		},
		{
			name:   "longitude out of range",
			mutate: func(item map[string]any) { item["coordinates"] = map[string]any{"lat": 0, "lng": -181} },
			field:  "itinerary.0.coordinates.lng",
		},
		{
			name:   "day index zero",
			mutate: func(item map[string]any) { item["day_index"] = 0 },
			field:  "itinerary.0.day_index",
		},
		{
			name:   "short rationale",
			mutate: func(item map[string]any) { item["rationale"] = "nice" },
			field:  "itinerary.0.rationale",
		},
		{
			name:   "string where integer expected",
			mutate: func(item map[string]any) { item["order_index"] = "first" },
			field:  "itinerary.0.order_index",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := loadTripPlan(t)
			tt.mutate(firstItem(doc))

			ve := requireValidationError(t, TripPlan().Validate(marshal(t, doc)))
			assert.Contains(t, ve.Fields(), tt.field)
			assert.NotEmpty(t, ve.Errors[0].Constraint)
		})
	}
}

func TestTripPlan_StartTimeAccepted(t *testing.T) {
	for _, v := range []string{"00:00", "9:05", "19:30", "23:59"} {
		doc := loadTripPlan(t)
		firstItem(doc)["start_time"] = v
		assert.NoError(t, TripPlan().Validate(marshal(t, doc)), v)
	}
}

func TestTripPlan_ShortTitleReportsValue(t *testing.T) {
	doc := loadTripPlan(t)
	doc["title"] = "Trip"

	ve := requireValidationError(t, TripPlan().Validate(marshal(t, doc)))
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, "title", ve.Errors[0].Field)
	assert.Equal(t, "Trip", ve.Errors[0].Value)
	assert.Contains(t, ve.Error(), `got "Trip"`)
}

func TestExplainResult_Validate(t *testing.T) {
	valid := `{"explanation":"Balanced plan","highlights":["coffee","museum"],"answered_question":null}`
	assert.NoError(t, ExplainResult().Validate([]byte(valid)))

	objectExplanation := `{"explanation":{"text":"nested"},"highlights":[]}`
	ve := requireValidationError(t, ExplainResult().Validate([]byte(objectExplanation)))
	assert.Contains(t, ve.Fields(), "explanation")
}

func TestImproveResult_NestedPlanValidated(t *testing.T) {
	plan := loadTripPlan(t)
	result := map[string]any{
		"improved_plan":       plan,
		"changes_made":        []string{"added a restaurant"},
		"improvement_summary": "More local food",
	}
	assert.NoError(t, ImproveResult().Validate(marshal(t, result)))

	plan["duration_days"] = 16
	ve := requireValidationError(t, ImproveResult().Validate(marshal(t, result)))
	assert.Contains(t, ve.Fields(), "improved_plan.duration_days")
}

func TestDescriptor_MalformedDocument(t *testing.T) {
	err := TripPlan().Validate([]byte(`{"title": `))
	require.Error(t, err)
	_, ok := err.(*SchemaLoadError)
	assert.True(t, ok, "malformed JSON should surface as a load error, got %T", err)
}

func TestDescriptor_JSON(t *testing.T) {
	out := TripPlan().JSON()
	assert.True(t, strings.HasPrefix(out, "{\n"))
	assert.Contains(t, out, `"duration_days"`)
	assert.Contains(t, out, StartTimePattern[:5])

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "object", parsed["type"])
}

func TestForResponse(t *testing.T) {
	plan := marshal(t, loadTripPlan(t))

	assert.Same(t, TripPlan(), ForResponse(plan))
	assert.Same(t, ExplainResult(), ForResponse([]byte(`{"explanation":"x","highlights":[]}`)))
	assert.Same(t, ImproveResult(), ForResponse([]byte(`{"improved_plan":{},"changes_made":[]}`)))
	assert.Nil(t, ForResponse([]byte(`{"foo":1}`)))
	assert.Nil(t, ForResponse([]byte(`[1,2]`)))
	assert.Nil(t, ForResponse(nil))
}
