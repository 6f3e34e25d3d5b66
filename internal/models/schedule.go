package models

import "time"

// ScoredPlace is a candidate annotated with its selection score in [0,1].
type ScoredPlace struct {
	Place
	Score float64 `json:"score"`
}

// ScheduledPlace is a place laid into a day's timeline.
type ScheduledPlace struct {
	Place                         Place         `json:"place"`
	ArrivalTime                   time.Time     `json:"arrivalTime"`
	DepartureTime                 time.Time     `json:"departureTime"`
	TransportMode                 TransportMode `json:"transportMode"`
	TravelTimeFromPreviousMinutes int           `json:"travelTimeFromPreviousMinutes"`
	OrderInDay                    int           `json:"orderInDay"`
}

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

// MealBreak is a meal slot inserted into a day's timeline.
type MealBreak struct {
	Type          MealType  `json:"type"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	EstimatedCost float64   `json:"estimatedCost"`
}

// DailySchedule is the ordered plan for one trip day. Day is 1-based;
// OrderInDay over Places is contiguous from 1.
type DailySchedule struct {
	Date                   time.Time        `json:"date"`
	Day                    int              `json:"day"`
	Places                 []ScheduledPlace `json:"places"`
	MealBreaks             []MealBreak      `json:"mealBreaks"`
	TotalTravelTimeMinutes int              `json:"totalTravelTimeMinutes"`
	TotalVisitTimeMinutes  int              `json:"totalVisitTimeMinutes"`
}
