// internal/optimizer/selector/config.go
package selector

// Weights are the place-score component weights.
type Weights struct {
	Priority float64
	Rating   float64
	Location float64
}

// DefaultWeights returns the documented default split.
func DefaultWeights() Weights {
	return Weights{Priority: 0.4, Rating: 0.3, Location: 0.3}
}

const (
	// maxDurationPenalty caps how much a long stay can cost a place.
	maxDurationPenalty = 0.1
	// penaltyReferenceMinutes is the stay length at which the duration
	// penalty saturates.
	penaltyReferenceMinutes = 240.0

	// baseThreshold and thresholdRamp shape the rising acceptance bar:
	// early picks clear 0.5, the last pick has to clear up to 0.9.
	baseThreshold = 0.5
	thresholdRamp = 0.4

	// proximityReferenceKm is the distance from the candidate centroid at
	// which the proximity contribution reaches zero.
	proximityReferenceKm = 20.0

	highRatingCutoff = 4.0
)
