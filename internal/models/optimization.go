package models

// Stage identifies one phase of an optimization run.
type Stage string

const (
	StageCollecting  Stage = "collecting"
	StageNormalizing Stage = "normalizing"
	StageSelecting   Stage = "selecting"
	StageRouting     Stage = "routing"
	StageComplete    Stage = "complete"
	StageError       Stage = "error"
)

// Detail keys of OptimizationScore.Details.
const (
	DetailAdoptionBalance  = "user_adoption_balance"
	DetailWishBalance      = "wish_satisfaction_balance"
	DetailTravelEfficiency = "travel_efficiency"
	DetailTimeCompliance   = "time_constraint_compliance"
)

// OptimizationScore summarizes the quality of a produced itinerary. All
// components live in [0,1]; Display is the 0-100 rendering of Overall.
type OptimizationScore struct {
	Overall    float64            `json:"overall"`
	Fairness   float64            `json:"fairness"`
	Efficiency float64            `json:"efficiency"`
	Details    map[string]float64 `json:"details"`
	Display    int                `json:"display"`
}

// OptimizationProgress is one stage-transition update.
type OptimizationProgress struct {
	Stage      Stage  `json:"stage"`
	Percentage int    `json:"percentage"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

// OptimizationResult is the terminal output of a successful run.
type OptimizationResult struct {
	DailySchedules    []DailySchedule   `json:"dailySchedules"`
	Score             OptimizationScore `json:"score"`
	ScheduledPlaces   []ScoredPlace     `json:"scheduledPlaces"`
	UnscheduledPlaces []ScoredPlace     `json:"unscheduledPlaces"`
	Reason            string            `json:"reason"`
	ExecutionTimeMs   int64             `json:"executionTimeMs"`
}
