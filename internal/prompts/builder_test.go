package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/littlelifetrip/ai-recommender/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func kyivInput(poiCount int) RecommendationInput {
	pois := make([]types.POI, 0, poiCount)
	for i := 1; i <= poiCount; i++ {
		pois = append(pois, types.POI(fmt.Sprintf(`{"name":"Place %02d","lat":50.45,"lng":30.52,"price_uah":%d}`, i, i*10)))
	}
	return RecommendationInput{
		Preferences: types.UserPreferences{
			Interests:      []string{"history", "food"},
			TransportModes: []string{"walking", "public_transport"},
		},
		Constraints: types.TripConstraints{
			OriginCity:      "Kyiv",
			DurationDays:    3,
			TravelPartySize: 2,
		},
		Weather: &types.Weather{
			City:     "Kyiv",
			Forecast: json.RawMessage(`[{"date":"2024-12-15","condition":"snow","temp_c":-3}]`),
		},
		POIs:     pois,
		Language: "Ukrainian",
		Currency: "UAH",
	}
}

func TestCompileRecommendation_Deterministic(t *testing.T) {
	a := CompileRecommendation(kyivInput(5))
	b := CompileRecommendation(kyivInput(5))
	assert.Equal(t, a, b)
}

func TestCompileRecommendation_Content(t *testing.T) {
	p := CompileRecommendation(kyivInput(3))

	assert.Contains(t, p.System, "Use Ukrainian language")
	assert.Contains(t, p.System, "All costs must be in UAH")
	assert.Contains(t, p.System, `"currency": "UAH" - REQUIRED`)
	assert.Contains(t, p.System, "60-180 minutes per activity")
	assert.NotContains(t, p.System, "{{.")

	assert.Contains(t, p.User, "- Interests: history, food")
	assert.Contains(t, p.User, "- Transport: walking, public_transport")
	assert.Contains(t, p.User, "- Daily budget: not specified UAH")
	assert.Contains(t, p.User, "- Destination city: Kyiv", "destination falls back to origin")
	assert.Contains(t, p.User, "- Duration: 3 days")
	assert.Contains(t, p.User, "- Number of travelers: 2")
	assert.Contains(t, p.User, "\nWEATHER FORECAST for Kyiv:\n[\n  {\n    \"date\": \"2024-12-15\"")
	assert.Contains(t, p.User, "AVAILABLE PLACES (Points of Interest):")
	assert.Contains(t, p.User, `"name": "Place 03"`)
	assert.NotContains(t, p.User, "{{.")
}

func TestCompileRecommendation_POICap(t *testing.T) {
	p := CompileRecommendation(kyivInput(20))

	assert.Contains(t, p.User, `"name": "Place 15"`)
	assert.NotContains(t, p.User, `"name": "Place 16"`)
	assert.Equal(t, MaxPOIs, strings.Count(p.User, `"name": "Place `))
}

func TestCompileRecommendation_NoContext(t *testing.T) {
	in := kyivInput(0)
	in.Weather = nil
	in.Constraints.DestinationCity = ptr("Lviv")
	in.Constraints.StartDate = ptr("2024-12-15")
	in.Constraints.EndDate = ptr("2024-12-17")
	in.Constraints.TotalBudget = ptr(15000)
	in.Preferences.AvgDailyBudget = ptr(2000)

	p := CompileRecommendation(in)
	assert.NotContains(t, p.User, "WEATHER FORECAST")
	assert.NotContains(t, p.User, "AVAILABLE PLACES (Points")
	assert.Contains(t, p.User, "- Destination city: Lviv")
	assert.Contains(t, p.User, "- Dates: 2024-12-15 to 2024-12-17")
	assert.Contains(t, p.User, "- Total budget: 15000 UAH")
	assert.Contains(t, p.User, "- Daily budget: 2000 UAH")
}

func TestCompileRecommendation_CustomSchema(t *testing.T) {
	in := kyivInput(1)
	in.Schema = `{"type":"object"}`
	p := CompileRecommendation(in)
	assert.Contains(t, p.System, "REQUIRED JSON SCHEMA:\n{\"type\":\"object\"}")
}

func TestCompileRecommendation_NonASCIIPreserved(t *testing.T) {
	in := kyivInput(0)
	in.POIs = []types.POI{types.POI(`{"name":"Софійський собор","note":"<b>&</b>"}`)}
	p := CompileRecommendation(in)
	assert.Contains(t, p.User, "Софійський собор")
	assert.Contains(t, p.User, "<b>&</b>")
}

func TestCompileExplain(t *testing.T) {
	plan := json.RawMessage(`{"title":"Weekend in Kyiv","duration_days":2}`)

	p := CompileExplain(plan, ptr("Why this restaurant?"), "English", "")
	assert.Contains(t, p.System, "Respond ONLY with valid JSON in English language.")
	assert.Contains(t, p.System, `"answered_question"`)
	assert.Contains(t, p.User, "USER QUESTION: Why this restaurant?")
	assert.Contains(t, p.User, "\"title\": \"Weekend in Kyiv\"")

	general := CompileExplain(plan, nil, "English", "")
	assert.Contains(t, general.User, "Provide a general explanation of the itinerary.")
	assert.NotContains(t, general.User, "USER QUESTION")

	assert.Equal(t, p, CompileExplain(plan, ptr("Why this restaurant?"), "English", ""))
}

func TestCompileImprove(t *testing.T) {
	plan := json.RawMessage(`{"title":"Weekend in Kyiv"}`)

	p := CompileImprove(plan, "Add more Ukrainian cuisine", nil, "Ukrainian", "UAH")
	assert.Contains(t, p.System, "All costs in UAH.")
	assert.Contains(t, p.System, `"improved_plan"`)
	assert.Contains(t, p.User, "IMPROVEMENT REQUEST:\nAdd more Ukrainian cuisine")
	assert.NotContains(t, p.User, "NEW CONSTRAINTS")

	withConstraints := CompileImprove(plan, "Shorter trip", &types.TripConstraints{OriginCity: "Kyiv", DurationDays: 1, TravelPartySize: 1}, "Ukrainian", "UAH")
	assert.Contains(t, withConstraints.User, "NEW CONSTRAINTS:\n{\n  \"origin_city\": \"Kyiv\"")
	assert.Contains(t, withConstraints.User, `"duration_days": 1`)
}

func TestCompileCorrection(t *testing.T) {
	invalid := strings.Repeat("x", 1500)
	err := errors.New("validation failed: duration_days must be <= 15")

	out := CompileCorrection(invalid, err)
	assert.Contains(t, out, "ERROR: validation failed: duration_days must be <= 15")
	assert.Contains(t, out, strings.Repeat("x", 1000)+"...")
	assert.NotContains(t, out, strings.Repeat("x", 1001))

	short := CompileCorrection(`{"title":"x"}`, err)
	assert.Contains(t, short, "INVALID RESPONSE:\n{\"title\":\"x\"}\n")
}

func TestCompileJSONRetry(t *testing.T) {
	out := CompileJSONRetry("Create a travel itinerary", errors.New("invalid character 'S' looking for beginning of value"))
	assert.True(t, strings.HasPrefix(out, "Your previous response was not valid JSON. Please return valid JSON only."))
	assert.Contains(t, out, "invalid character 'S'")
	assert.True(t, strings.HasSuffix(out, "Original request:\nCreate a travel itinerary"))
}

func TestExcerpt_RuneSafe(t *testing.T) {
	s := strings.Repeat("ї", 1001)
	out := Excerpt(s, 1000)
	assert.Equal(t, strings.Repeat("ї", 1000)+"...", out)
	assert.Equal(t, "abc", Excerpt("abc", 1000))
}

func TestIndentJSON_InvalidPassThrough(t *testing.T) {
	assert.Equal(t, "not json", indentJSON([]byte("not json")))
	require.Equal(t, "{\n  \"a\": 1\n}", indentJSON([]byte(` {"a":1} `)))
}
