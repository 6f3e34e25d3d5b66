// Package selector ranks candidate places and greedily picks a feasible
// subset under the daily count and duration budgets.
package selector

import (
	"fmt"
	"math"
	"sort"

	"trip-optimizer/internal/common/logger"
	"trip-optimizer/internal/models"
	"trip-optimizer/internal/spatial"
)

// Result is the selection outcome. An empty selection with a reason is a
// valid terminal outcome, not a failure.
type Result struct {
	ScheduledPlaces   []models.ScoredPlace
	UnscheduledPlaces []models.ScoredPlace
	Reason            string
}

type Selector struct {
	weights Weights
	logger  logger.Logger
}

func New(weights Weights, log logger.Logger) *Selector {
	return &Selector{
		weights: weights,
		logger:  log.WithFields(map[string]interface{}{"component": "selector"}),
	}
}

// Threshold is the acceptance bar for the next pick given how many places
// are already selected out of the candidate total. It never decreases within
// a run.
func Threshold(selected, totalCandidates int) float64 {
	total := totalCandidates
	if total < 1 {
		total = 1
	}
	return baseThreshold + float64(selected)/float64(total)*thresholdRamp
}

// Score computes the selection score of one place in [0,1]. The centroid of
// the candidate pool stands in for the location context; places without a
// resolvable location get a neutral proximity contribution.
func (s *Selector) Score(p models.Place, center models.Location, hasCenter bool) float64 {
	priorityScore := float64(p.WishLevel) / 5.0 * s.weights.Priority
	ratingScore := p.Rating / 5.0 * s.weights.Rating
	durationPenalty := math.Min(float64(p.StayDurationMinutes)/penaltyReferenceMinutes, 1.0) * maxDurationPenalty

	proximity := 0.5
	if hasCenter && !p.Location.IsZero() {
		proximity = math.Max(0, math.Min(1, 1.0-spatial.DistanceKm(p.Location, center)/proximityReferenceKm))
	}
	locationScore := s.weights.Location * proximity

	return math.Max(0, math.Min(1, priorityScore+ratingScore+locationScore-durationPenalty))
}

// Select ranks the trip's candidates and walks the ranking greedily.
// Selection is deterministic: the sort is stable, so score ties keep input
// order.
func (s *Selector) Select(trip *models.TripContext, settings models.Settings) *Result {
	if len(trip.Places) == 0 {
		return &Result{Reason: "no candidate places to select from"}
	}

	center, hasCenter := spatial.Centroid(trip.Places)

	scored := make([]models.ScoredPlace, 0, len(trip.Places))
	for _, p := range trip.Places {
		scored = append(scored, models.ScoredPlace{Place: p, Score: s.Score(p, center, hasCenter)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	// Budgets are reserved across the whole trip span; the schedule builder
	// enforces the per-day invariants again when laying out timelines.
	days := trip.Days
	if days < 1 {
		days = 1
	}
	maxCount := settings.MaxPlacesPerDay * days
	maxDuration := settings.MaxTotalDurationMinutes * days

	var selected, rejected []models.ScoredPlace
	usedMinutes := 0
	total := len(scored)

	for _, sp := range scored {
		if len(selected) >= maxCount {
			rejected = append(rejected, sp)
			continue
		}
		if usedMinutes+sp.StayDurationMinutes > maxDuration {
			rejected = append(rejected, sp)
			continue
		}
		// Must-visit places skip the score bar but never the budgets above.
		if !sp.MustVisit() && sp.Score < Threshold(len(selected), total) {
			rejected = append(rejected, sp)
			continue
		}
		selected = append(selected, sp)
		usedMinutes += sp.StayDurationMinutes
	}

	reason := buildReason(selected, rejected, usedMinutes)

	s.logger.Info("places selected", map[string]interface{}{
		"tripId":      trip.TripID,
		"candidates":  total,
		"selected":    len(selected),
		"usedMinutes": usedMinutes,
		"reason":      reason,
	})

	return &Result{
		ScheduledPlaces:   selected,
		UnscheduledPlaces: rejected,
		Reason:            reason,
	}
}

func buildReason(selected, rejected []models.ScoredPlace, usedMinutes int) string {
	if len(selected) == 0 {
		return "no places met the selection criteria"
	}

	mustVisit, highRated := 0, 0
	for _, sp := range selected {
		if sp.MustVisit() {
			mustVisit++
		}
		if sp.Rating >= highRatingCutoff {
			highRated++
		}
	}

	reason := fmt.Sprintf("selected %d places: %d must-visit, %d rated %.1f+, %.1fh of visits planned",
		len(selected), mustVisit, highRated, highRatingCutoff, float64(usedMinutes)/60.0)

	if len(rejected) > 0 {
		reason += fmt.Sprintf("; %d excluded, mostly due to %s", len(rejected), dominantRejection(rejected))
	}
	return reason
}

// dominantRejection names the weaker score component most common among the
// rejected places.
func dominantRejection(rejected []models.ScoredPlace) string {
	lowPriority := 0
	for _, sp := range rejected {
		if float64(sp.WishLevel) <= sp.Rating {
			lowPriority++
		}
	}
	if lowPriority*2 >= len(rejected) {
		return "low priority"
	}
	return "low rating"
}
