// Package models holds the domain types shared across the optimizer:
// the trip snapshot the pipeline consumes and the schedule it produces.
package models

import "time"

// TransportMode is how the group moves between two scheduled places.
type TransportMode string

const (
	TransportWalking TransportMode = "walking"
	TransportCar     TransportMode = "car"
	TransportPublic  TransportMode = "public_transport"
	TransportFlight  TransportMode = "flight"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether the location is unresolved. The zero value (null
// island) is reserved as the "no location" marker.
func (l Location) IsZero() bool {
	return l.Lat == 0 && l.Lng == 0
}

// Place is one candidate destination proposed by a trip member.
type Place struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Location            Location `json:"location"`
	Category            string   `json:"category"`
	WishLevel           int      `json:"wishLevel"`
	Rating              float64  `json:"rating"`
	StayDurationMinutes int      `json:"stayDurationMinutes"`
	MemberID            string   `json:"memberId"`
}

// MustVisit reports whether the place carries the highest wish level and so
// bypasses the selection threshold (budgets still apply).
func (p Place) MustVisit() bool {
	return p.WishLevel >= 5
}

// Member is one participant of the trip.
type Member struct {
	ID                   string `json:"id"`
	DisplayName          string `json:"displayName"`
	OptimizationEligible bool   `json:"optimizationEligible"`
}

// TripContext is the read-only snapshot an optimization run works on.
type TripContext struct {
	TripID    string    `json:"tripId"`
	StartDate time.Time `json:"startDate"`
	Days      int       `json:"days"`
	Places    []Place   `json:"places"`
	Members   []Member  `json:"members"`
}

// EligibleMembers returns the members whose preferences count toward the
// fairness metrics, preserving input order.
func (t *TripContext) EligibleMembers() []Member {
	out := make([]Member, 0, len(t.Members))
	for _, m := range t.Members {
		if m.OptimizationEligible {
			out = append(out, m)
		}
	}
	return out
}

// Settings are the per-run knobs. Immutable once a run starts.
type Settings struct {
	FairnessWeight          float64       `json:"fairnessWeight"`
	EfficiencyWeight        float64       `json:"efficiencyWeight"`
	IncludeMeals            bool          `json:"includeMeals"`
	PreferredTransport      TransportMode `json:"preferredTransport"`
	MaxPlacesPerDay         int           `json:"maxPlacesPerDay"`
	MaxTotalDurationMinutes int           `json:"maxTotalDurationMinutes"`
	DayStartHour            int           `json:"dayStartHour"`
	DayEndHour              int           `json:"dayEndHour"`
}

// DefaultSettings mirrors the configuration defaults for callers that build
// a run without a loaded config.
func DefaultSettings() Settings {
	return Settings{
		FairnessWeight:          0.6,
		EfficiencyWeight:        0.4,
		IncludeMeals:            true,
		PreferredTransport:      TransportCar,
		MaxPlacesPerDay:         6,
		MaxTotalDurationMinutes: 480,
		DayStartHour:            9,
		DayEndHour:              21,
	}
}
