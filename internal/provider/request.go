package provider

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "trip-optimizer/internal/common/errors"
	"trip-optimizer/internal/models"
)

// requestSchema validates an inline optimization request before anything is
// decoded. Wish levels and ratings are range-checked here so malformed input
// fails fast as a validation error instead of surfacing mid-pipeline.
const requestSchema = `{
  "type": "object",
  "required": ["trip"],
  "properties": {
    "trip": {
      "type": "object",
      "required": ["tripId", "startDate", "days", "places", "members"],
      "properties": {
        "tripId": {"type": "string", "minLength": 1},
        "startDate": {"type": "string", "format": "date-time"},
        "days": {"type": "integer", "minimum": 1},
        "places": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id", "name", "wishLevel", "memberId"],
            "properties": {
              "id": {"type": "string", "minLength": 1},
              "name": {"type": "string", "minLength": 1},
              "wishLevel": {"type": "integer", "minimum": 1, "maximum": 5},
              "rating": {"type": "number", "minimum": 0, "maximum": 5},
              "stayDurationMinutes": {"type": "integer", "minimum": 0},
              "memberId": {"type": "string", "minLength": 1},
              "location": {
                "type": "object",
                "properties": {
                  "lat": {"type": "number", "minimum": -90, "maximum": 90},
                  "lng": {"type": "number", "minimum": -180, "maximum": 180}
                }
              }
            }
          }
        },
        "members": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id"],
            "properties": {
              "id": {"type": "string", "minLength": 1},
              "optimizationEligible": {"type": "boolean"}
            }
          }
        }
      }
    },
    "settings": {
      "type": "object",
      "properties": {
        "fairnessWeight": {"type": "number", "minimum": 0, "maximum": 1},
        "efficiencyWeight": {"type": "number", "minimum": 0, "maximum": 1},
        "preferredTransport": {"enum": ["walking", "car", "public_transport", "flight"]},
        "maxPlacesPerDay": {"type": "integer", "minimum": 1},
        "maxTotalDurationMinutes": {"type": "integer", "minimum": 1},
        "dayStartHour": {"type": "integer", "minimum": 0, "maximum": 23},
        "dayEndHour": {"type": "integer", "minimum": 1, "maximum": 24}
      }
    }
  }
}`

var compiledRequestSchema = gojsonschema.NewStringLoader(requestSchema)

// Request is an inline optimization request: a trip snapshot plus optional
// setting overrides.
type Request struct {
	Trip     models.TripContext `json:"trip"`
	Settings *models.Settings   `json:"settings,omitempty"`
}

// ParseRequest validates raw JSON against the request schema and decodes it.
// Schema violations come back as a single non-retryable validation error
// listing every failed constraint.
func ParseRequest(raw []byte) (*Request, error) {
	result, err := gojsonschema.Validate(compiledRequestSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, apperrors.NewValidation(apperrors.CodeBadRequest, collectStage, err.Error())
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, apperrors.NewValidation(apperrors.CodeBadRequest, collectStage, strings.Join(issues, "; "))
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, apperrors.NewValidation(apperrors.CodeBadRequest, collectStage, err.Error())
	}
	return &req, nil
}

// EffectiveSettings merges the request's overrides over the given defaults.
// Zero-valued numeric fields keep the default; a settings block always
// carries its own meals flag.
func (r *Request) EffectiveSettings(defaults models.Settings) models.Settings {
	if r.Settings == nil {
		return defaults
	}
	s := defaults
	o := r.Settings
	if o.FairnessWeight != 0 || o.EfficiencyWeight != 0 {
		s.FairnessWeight = o.FairnessWeight
		s.EfficiencyWeight = o.EfficiencyWeight
	}
	if o.PreferredTransport != "" {
		s.PreferredTransport = o.PreferredTransport
	}
	if o.MaxPlacesPerDay != 0 {
		s.MaxPlacesPerDay = o.MaxPlacesPerDay
	}
	if o.MaxTotalDurationMinutes != 0 {
		s.MaxTotalDurationMinutes = o.MaxTotalDurationMinutes
	}
	if o.DayStartHour != 0 || o.DayEndHour != 0 {
		s.DayStartHour = o.DayStartHour
		s.DayEndHour = o.DayEndHour
	}
	s.IncludeMeals = o.IncludeMeals
	return s
}
