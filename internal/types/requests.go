package types

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by Normalize.
const (
	DefaultTimezone        = "Europe/Kyiv"
	DefaultTravelPartySize = 1
)

// DefaultTransportModes is used when the caller does not state a preference.
var DefaultTransportModes = []string{"walking", "public_transport"}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared request validator, with the "jsonobject" tag registered.
// Field errors report JSON names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("jsonobject", func(fl validator.FieldLevel) bool {
			raw := bytes.TrimSpace(fl.Field().Bytes())
			if len(raw) == 0 || raw[0] != '{' {
				return false
			}
			return json.Valid(raw)
		})
	})
	return validate
}

// UserPreferences describes what the traveller likes.
type UserPreferences struct {
	Interests      []string `json:"interests" validate:"required,min=1,max=10,dive,required,max=50"`
	TransportModes []string `json:"transport_modes" validate:"max=10,dive,required,max=50"`
	AvgDailyBudget *int     `json:"avg_daily_budget,omitempty" validate:"omitempty,gte=0"`
}

// TripConstraints bounds the trip being planned.
type TripConstraints struct {
	OriginCity      string  `json:"origin_city" validate:"required,min=2,max=100"`
	DestinationCity *string `json:"destination_city,omitempty" validate:"omitempty,max=100"`
	StartDate       *string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate         *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DurationDays    int     `json:"duration_days" validate:"required,min=1,max=15"`
	TotalBudget     *int    `json:"total_budget,omitempty" validate:"omitempty,gte=0"`
	TravelPartySize int     `json:"travel_party_size" validate:"min=1,max=20"`
}

// Destination returns the destination city, falling back to the origin when none was given.
func (c *TripConstraints) Destination() string {
	if c.DestinationCity != nil {
		if d := strings.TrimSpace(*c.DestinationCity); d != "" {
			return d
		}
	}
	return c.OriginCity
}

// Normalize applies defaults.
func (c *TripConstraints) Normalize() {
	c.OriginCity = strings.TrimSpace(c.OriginCity)
	if c.TravelPartySize == 0 {
		c.TravelPartySize = DefaultTravelPartySize
	}
}

// RecommendationRequest asks for a new itinerary.
type RecommendationRequest struct {
	UserID      string          `json:"user_id" validate:"required,uuid"`
	UserProfile UserPreferences `json:"user_profile" validate:"required"`
	Constraints TripConstraints `json:"constraints" validate:"required"`
	Timezone    string          `json:"timezone" validate:"max=64"`
	Language    string          `json:"language,omitempty" validate:"omitempty,max=50"`
	Currency    string          `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
}

// Normalize lowercases list preferences and applies defaults.
func (r *RecommendationRequest) Normalize() {
	r.UserProfile.Interests = lowerTrim(r.UserProfile.Interests)
	if len(r.UserProfile.TransportModes) == 0 {
		r.UserProfile.TransportModes = append([]string(nil), DefaultTransportModes...)
	} else {
		r.UserProfile.TransportModes = lowerTrim(r.UserProfile.TransportModes)
	}
	r.Constraints.Normalize()
	if strings.TrimSpace(r.Timezone) == "" {
		r.Timezone = DefaultTimezone
	}
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
}

// Validate validates the request. Call Normalize first.
func (r *RecommendationRequest) Validate() error {
	return Validator().Struct(r)
}

// ExplainRequest asks for an explanation of an existing plan. When TripPlan is empty the
// plan is looked up from the latest completed improvement of the trip; recommend runs carry
// no trip id and explain runs store no plan.
type ExplainRequest struct {
	UserID   string          `json:"user_id" validate:"required,uuid"`
	TripID   string          `json:"trip_id" validate:"required,uuid"`
	Question *string         `json:"question,omitempty" validate:"omitempty,max=500"`
	TripPlan json.RawMessage `json:"trip_plan,omitempty" validate:"omitempty,jsonobject"`
	Language string          `json:"language,omitempty" validate:"omitempty,max=50"`
}

// Normalize drops an empty question.
func (r *ExplainRequest) Normalize() {
	if r.Question != nil && strings.TrimSpace(*r.Question) == "" {
		r.Question = nil
	}
	if bytes.Equal(bytes.TrimSpace(r.TripPlan), []byte("null")) {
		r.TripPlan = nil
	}
}

// Validate validates the request. Call Normalize first.
func (r *ExplainRequest) Validate() error {
	return Validator().Struct(r)
}

// ImproveRequest asks for a revised plan.
type ImproveRequest struct {
	UserID             string           `json:"user_id" validate:"required,uuid"`
	TripID             string           `json:"trip_id" validate:"required,uuid"`
	CurrentPlan        json.RawMessage  `json:"current_plan" validate:"required,jsonobject"`
	ImprovementRequest string           `json:"improvement_request" validate:"required,min=5,max=1000"`
	Constraints        *TripConstraints `json:"constraints,omitempty" validate:"omitempty"`
	Language           string           `json:"language,omitempty" validate:"omitempty,max=50"`
	Currency           string           `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
}

// Normalize applies defaults to nested constraints.
func (r *ImproveRequest) Normalize() {
	r.ImprovementRequest = strings.TrimSpace(r.ImprovementRequest)
	if r.Constraints != nil {
		r.Constraints.Normalize()
	}
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
}

// Validate validates the request. Call Normalize first.
func (r *ImproveRequest) Validate() error {
	return Validator().Struct(r)
}

func lowerTrim(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
