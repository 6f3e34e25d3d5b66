// internal/optimizer/schedule/config.go
package schedule

import "trip-optimizer/internal/models"

// MealSlot is one configurable meal window.
type MealSlot struct {
	Type            models.MealType
	Hour            int
	DurationMinutes int
	EstimatedCost   float64
}

// Config holds the transport thresholds and meal windows used when laying
// out day timelines.
type Config struct {
	WalkingMaxKm float64
	CarMaxKm     float64
	FlightMinKm  float64
	Meals        []MealSlot
}

// DefaultConfig returns the documented thresholds: walking under 1 km, car
// between 1 and 20 km with a car floor up to 200 km, flight beyond that, and
// the three standard meal windows.
func DefaultConfig() Config {
	return Config{
		WalkingMaxKm: 1.0,
		CarMaxKm:     20.0,
		FlightMinKm:  200.0,
		Meals: []MealSlot{
			{Type: models.MealBreakfast, Hour: 8, DurationMinutes: 60, EstimatedCost: 15},
			{Type: models.MealLunch, Hour: 12, DurationMinutes: 90, EstimatedCost: 25},
			{Type: models.MealDinner, Hour: 18, DurationMinutes: 120, EstimatedCost: 40},
		},
	}
}
