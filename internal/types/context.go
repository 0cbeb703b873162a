package types

import "encoding/json"

// Weather is the forecast returned by the context service. The forecast body is kept
// verbatim so it can be embedded in prompts without loss.
type Weather struct {
	City     string          `json:"city"`
	Forecast json.RawMessage `json:"forecast,omitempty"`
}

// HasForecast reports whether a non-null forecast is present.
func (w *Weather) HasForecast() bool {
	if w == nil || len(w.Forecast) == 0 {
		return false
	}
	s := string(w.Forecast)
	return s != "null" && s != "{}" && s != "[]"
}

// POI is a point of interest, kept verbatim.
type POI = json.RawMessage

// TripContext is everything fetched for a destination before prompting.
type TripContext struct {
	City    string
	Weather *Weather
	POIs    []POI
}
