package prompts

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/littlelifetrip/ai-recommender/internal/types"
)

const (
	// MaxPOIs bounds how many points of interest are embedded in a prompt.
	MaxPOIs = 15
	// CorrectionExcerptRunes bounds how much of an invalid response is echoed back.
	CorrectionExcerptRunes = 1000

	notSpecified = "not specified"
)

// Pair is a system/user instruction pair.
type Pair struct {
	System string
	User   string
}

// RecommendationInput carries everything needed to compile an itinerary prompt.
type RecommendationInput struct {
	Preferences types.UserPreferences
	Constraints types.TripConstraints
	Weather     *types.Weather
	POIs        []types.POI
	Language    string
	Currency    string
	// Schema is the output description embedded in the system text.
	// Empty means RecommendationSchema(Currency).
	Schema string
}

// RecommendationSchema returns the human-readable TripPlan outline for a currency.
func RecommendationSchema(currency string) string {
	return Format(MustGet(fileRecommendation, "schema_outline"), map[string]string{"Currency": currency})
}

// ExplainSchema returns the human-readable ExplainResult outline.
func ExplainSchema() string {
	return MustGet(fileExplain, "schema_outline")
}

// CompileRecommendation renders the itinerary prompt pair.
func CompileRecommendation(in RecommendationInput) Pair {
	schema := in.Schema
	if schema == "" {
		schema = RecommendationSchema(in.Currency)
	}

	system := Format(MustGet(fileRecommendation, "system"), map[string]string{
		"Language": in.Language,
		"Currency": in.Currency,
		"Schema":   schema,
	})

	transport := in.Preferences.TransportModes
	if len(transport) == 0 {
		transport = []string{"walking"}
	}

	user := Format(MustGet(fileRecommendation, "user"), map[string]string{
		"Interests":       strings.Join(in.Preferences.Interests, ", "),
		"TransportModes":  strings.Join(transport, ", "),
		"DailyBudget":     intOrNotSpecified(in.Preferences.AvgDailyBudget),
		"Currency":        in.Currency,
		"OriginCity":      orNotSpecified(in.Constraints.OriginCity),
		"DestinationCity": orNotSpecified(in.Constraints.Destination()),
		"Dates":           dates(in.Constraints.StartDate, in.Constraints.EndDate),
		"DurationDays":    strconv.Itoa(in.Constraints.DurationDays),
		"TotalBudget":     intOrNotSpecified(in.Constraints.TotalBudget),
		"PartySize":       strconv.Itoa(max(in.Constraints.TravelPartySize, 1)),
		"WeatherContext":  weatherContext(in.Weather, in.Constraints.Destination()),
		"POIsContext":     poisContext(in.POIs),
		"Language":        in.Language,
	})

	return Pair{System: system, User: user}
}

// CompileExplain renders the explanation prompt pair. An empty schema means ExplainSchema().
func CompileExplain(tripPlan json.RawMessage, question *string, language, schema string) Pair {
	if schema == "" {
		schema = ExplainSchema()
	}

	questionContext := MustGet(fileExplain, "no_question")
	if question != nil && strings.TrimSpace(*question) != "" {
		questionContext = Format(MustGet(fileExplain, "question"), map[string]string{"Question": *question})
	}

	system := Format(MustGet(fileExplain, "system"), map[string]string{
		"Language": language,
		"Schema":   schema,
	})
	user := Format(MustGet(fileExplain, "user"), map[string]string{
		"TripPlan":        indentJSON(tripPlan),
		"QuestionContext": questionContext,
		"Language":        language,
	})

	return Pair{System: system, User: user}
}

// CompileImprove renders the improvement prompt pair.
func CompileImprove(currentPlan json.RawMessage, request string, constraints *types.TripConstraints, language, currency string) Pair {
	constraintsContext := ""
	if constraints != nil {
		constraintsContext = Format(MustGet(fileImprove, "constraints_context"), map[string]string{
			"Constraints": encodeIndented(constraints),
		})
	}

	system := Format(MustGet(fileImprove, "system"), map[string]string{
		"Language": language,
		"Currency": currency,
		"Schema":   MustGet(fileImprove, "schema_outline"),
	})
	user := Format(MustGet(fileImprove, "user"), map[string]string{
		"CurrentPlan":        indentJSON(currentPlan),
		"ImprovementRequest": request,
		"ConstraintsContext": constraintsContext,
		"Language":           language,
		"Currency":           currency,
	})

	return Pair{System: system, User: user}
}

// CompileCorrection renders the follow-up user text after a schema violation. The invalid
// response is cut to CorrectionExcerptRunes and the error text is embedded verbatim.
func CompileCorrection(invalidResponse string, validationErr error) string {
	return Format(MustGet(fileCorrection, "validation"), map[string]string{
		"Error":           errorText(validationErr),
		"InvalidResponse": Excerpt(invalidResponse, CorrectionExcerptRunes),
	})
}

// CompileJSONRetry renders the follow-up user text after an unparseable response.
func CompileJSONRetry(originalRequest string, parseErr error) string {
	return Format(MustGet(fileCorrection, "json_retry"), map[string]string{
		"Error":           errorText(parseErr),
		"OriginalRequest": originalRequest,
	})
}

// Excerpt returns the first n runes of s, with "..." appended when s was cut.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func weatherContext(w *types.Weather, fallbackCity string) string {
	if !w.HasForecast() {
		return ""
	}
	city := w.City
	if city == "" {
		city = fallbackCity
	}
	return Format(MustGet(fileRecommendation, "weather_context"), map[string]string{
		"City":     city,
		"Forecast": indentJSON(w.Forecast),
	})
}

func poisContext(pois []types.POI) string {
	if len(pois) == 0 {
		return ""
	}
	if len(pois) > MaxPOIs {
		pois = pois[:MaxPOIs]
	}

	var arr bytes.Buffer
	arr.WriteByte('[')
	for i, p := range pois {
		if i > 0 {
			arr.WriteByte(',')
		}
		arr.Write(p)
	}
	arr.WriteByte(']')

	return Format(MustGet(fileRecommendation, "pois_context"), map[string]string{
		"POIs": indentJSON(arr.Bytes()),
	})
}

// indentJSON pretty-prints raw JSON without escaping non-ASCII or HTML characters.
// Input that is not valid JSON is returned as-is.
func indentJSON(raw []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(raw), "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}

func encodeIndented(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return notSpecified
	}
	return strings.TrimRight(buf.String(), "\n")
}

func dates(start, end *string) string {
	switch {
	case start != nil && end != nil:
		return *start + " to " + *end
	case start != nil:
		return "from " + *start
	case end != nil:
		return "until " + *end
	default:
		return notSpecified
	}
}

func intOrNotSpecified(v *int) string {
	if v == nil {
		return notSpecified
	}
	return strconv.Itoa(*v)
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
