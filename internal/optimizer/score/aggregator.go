// Package score computes the overall quality score of a produced itinerary
// from the normalizer, selector and schedule-builder outputs.
package score

import (
	"math"

	"trip-optimizer/internal/models"
	"trip-optimizer/internal/optimizer/normalize"
	"trip-optimizer/internal/optimizer/selector"
)

// Aggregate composes the fairness and efficiency details into one
// OptimizationScore. Pure; every component is clamped to [0,1].
func Aggregate(trip *models.TripContext, norm *normalize.Result, sel *selector.Result, schedules []models.DailySchedule, settings models.Settings) models.OptimizationScore {
	adoption := adoptionBalance(trip, sel, norm)
	wish := wishSatisfactionBalance(trip, sel, norm)
	travel := travelEfficiency(schedules)
	compliance := timeCompliance(schedules, settings)

	fairness := clamp((adoption + wish) / 2)
	efficiency := clamp((travel + compliance) / 2)
	overall := clamp(settings.FairnessWeight*fairness + settings.EfficiencyWeight*efficiency)

	return models.OptimizationScore{
		Overall:    overall,
		Fairness:   fairness,
		Efficiency: efficiency,
		Details: map[string]float64{
			models.DetailAdoptionBalance:  adoption,
			models.DetailWishBalance:      wish,
			models.DetailTravelEfficiency: travel,
			models.DetailTimeCompliance:   compliance,
		},
		Display: int(math.Round(overall * 100)),
	}
}

// adoptionBalance blends the normalizer's group fairness with how evenly the
// selector adopted each eligible member's contributions.
func adoptionBalance(trip *models.TripContext, sel *selector.Result, norm *normalize.Result) float64 {
	contributed := make(map[string]int)
	for _, p := range trip.Places {
		contributed[p.MemberID]++
	}
	adopted := make(map[string]int)
	for _, sp := range sel.ScheduledPlaces {
		adopted[sp.MemberID]++
	}

	var rates []float64
	for _, m := range trip.EligibleMembers() {
		if contributed[m.ID] == 0 {
			continue
		}
		rates = append(rates, float64(adopted[m.ID])/float64(contributed[m.ID]))
	}

	return clamp((balance(rates) + norm.GroupFairness) / 2)
}

// wishSatisfactionBalance measures how evenly the selection honors each
// member's strongest wishes, using the normalized scores.
func wishSatisfactionBalance(trip *models.TripContext, sel *selector.Result, norm *normalize.Result) float64 {
	selectedByMember := make(map[string][]models.ScoredPlace)
	for _, sp := range sel.ScheduledPlaces {
		selectedByMember[sp.MemberID] = append(selectedByMember[sp.MemberID], sp)
	}

	contributed := make(map[string]bool)
	for _, p := range trip.Places {
		contributed[p.MemberID] = true
	}

	var satisfaction []float64
	for _, m := range trip.EligibleMembers() {
		if !contributed[m.ID] {
			continue
		}
		picks := selectedByMember[m.ID]
		if len(picks) == 0 {
			satisfaction = append(satisfaction, 0)
			continue
		}
		var sum float64
		for _, sp := range picks {
			sum += norm.NormalizedScore(sp.Place)
		}
		satisfaction = append(satisfaction, sum/float64(len(picks)))
	}

	return balance(satisfaction)
}

// travelEfficiency is the share of on-the-move-or-visiting time spent
// actually visiting.
func travelEfficiency(schedules []models.DailySchedule) float64 {
	var travel, visit int
	for _, ds := range schedules {
		travel += ds.TotalTravelTimeMinutes
		visit += ds.TotalVisitTimeMinutes
	}
	if travel+visit == 0 {
		return 0
	}
	return clamp(float64(visit) / float64(travel+visit))
}

// timeCompliance averages how well each day stays inside the daily time
// budget; days within budget score 1.0.
func timeCompliance(schedules []models.DailySchedule, settings models.Settings) float64 {
	if len(schedules) == 0 {
		return 0
	}
	var sum float64
	for _, ds := range schedules {
		used := ds.TotalVisitTimeMinutes + ds.TotalTravelTimeMinutes
		if used <= settings.MaxTotalDurationMinutes || used == 0 {
			sum += 1.0
			continue
		}
		sum += float64(settings.MaxTotalDurationMinutes) / float64(used)
	}
	return clamp(sum / float64(len(schedules)))
}

// balance maps a list of rates to [0,1]: 1.0 when all rates are equal,
// approaching 0 as they diverge. Uses mean absolute deviation.
func balance(rates []float64) float64 {
	if len(rates) <= 1 {
		return 1.0
	}
	var mean float64
	for _, r := range rates {
		mean += r
	}
	mean /= float64(len(rates))

	var mad float64
	for _, r := range rates {
		mad += math.Abs(r - mean)
	}
	mad /= float64(len(rates))

	return clamp(1.0 - 2.0*mad)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
