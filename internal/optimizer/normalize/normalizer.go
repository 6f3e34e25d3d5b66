// Package normalize rescales each member's raw wish levels onto a common
// scale so one generous rater cannot dominate selection, and summarizes how
// balanced the group's contributions are.
package normalize

import (
	"math"

	apperrors "trip-optimizer/internal/common/errors"
	"trip-optimizer/internal/common/logger"
	"trip-optimizer/internal/models"
)

const stage = string(models.StageNormalizing)

// Result carries per-member normalized scores keyed by member id then place
// id, plus the group fairness summary in [0,1].
type Result struct {
	MemberScores  map[string]map[string]float64
	GroupFairness float64
}

// NormalizedScore looks up the normalized wish score for a place, falling
// back to the raw wish fraction when the place was not normalized (for
// example when its contributor is unknown).
func (r *Result) NormalizedScore(p models.Place) float64 {
	if scores, ok := r.MemberScores[p.MemberID]; ok {
		if s, ok := scores[p.ID]; ok {
			return s
		}
	}
	return float64(p.WishLevel) / 5.0
}

type Normalizer struct {
	logger logger.Logger
}

func New(log logger.Logger) *Normalizer {
	return &Normalizer{logger: log.WithFields(map[string]interface{}{"component": "normalizer"})}
}

// Normalize is a pure function of the trip snapshot. It fails with a
// validation error when the trip has no places or no members.
func (n *Normalizer) Normalize(trip *models.TripContext) (*Result, error) {
	if trip == nil || len(trip.Places) == 0 {
		return nil, apperrors.NewValidation(apperrors.CodeEmptyTrip, stage, "trip has no candidate places")
	}
	if len(trip.Members) == 0 {
		return nil, apperrors.NewValidation(apperrors.CodeNoMembers, stage, "trip has no members")
	}

	byMember := make(map[string][]models.Place)
	for _, p := range trip.Places {
		byMember[p.MemberID] = append(byMember[p.MemberID], p)
	}

	scores := make(map[string]map[string]float64, len(byMember))
	for memberID, places := range byMember {
		scores[memberID] = rescale(places)
	}

	fairness := groupFairness(scores, trip.EligibleMembers())

	n.logger.Debug("preferences normalized", map[string]interface{}{
		"tripId":        trip.TripID,
		"members":       len(byMember),
		"places":        len(trip.Places),
		"groupFairness": fairness,
	})

	return &Result{MemberScores: scores, GroupFairness: fairness}, nil
}

// rescale maps one member's wish levels onto [0,1] against their own range.
// A member with a single wish value (or all-equal wishes) normalizes to 1.0.
func rescale(places []models.Place) map[string]float64 {
	minWish, maxWish := places[0].WishLevel, places[0].WishLevel
	for _, p := range places[1:] {
		if p.WishLevel < minWish {
			minWish = p.WishLevel
		}
		if p.WishLevel > maxWish {
			maxWish = p.WishLevel
		}
	}

	out := make(map[string]float64, len(places))
	for _, p := range places {
		if maxWish == minWish {
			out[p.ID] = 1.0
			continue
		}
		out[p.ID] = float64(p.WishLevel-minWish) / float64(maxWish-minWish)
	}
	return out
}

// groupFairness measures how evenly the normalized contribution mass is
// spread across eligible members: 1.0 means perfectly even shares, 0 means a
// single member holds everything. Computed as one minus the total variation
// distance from the uniform share, rescaled to [0,1].
func groupFairness(scores map[string]map[string]float64, eligible []models.Member) float64 {
	if len(eligible) <= 1 {
		return 1.0
	}

	totals := make([]float64, 0, len(eligible))
	var grand float64
	for _, m := range eligible {
		var sum float64
		for _, s := range scores[m.ID] {
			sum += s
		}
		totals = append(totals, sum)
		grand += sum
	}
	if grand == 0 {
		return 1.0
	}

	ideal := 1.0 / float64(len(totals))
	var tvd float64
	for _, t := range totals {
		tvd += math.Abs(t/grand - ideal)
	}
	tvd /= 2

	fairness := 1.0 - tvd/(1.0-ideal)
	return math.Max(0, math.Min(1, fairness))
}
