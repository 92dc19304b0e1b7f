package pairing

import (
	"math"
)

// noInteractionDays stands in for an infinite gap in the risk formulas.
const noInteractionDays = 1000.0

const (
	basicDaysWeight      = 0.4
	basicDiversityWeight = 0.3
	basicActivityWeight  = 0.3

	daysDecay      = 0.1
	diversityDecay = 0.2
	activityDecay  = 0.15

	basicFailureRisk    = 50.0
	advancedFailureRisk = 100.0
)

// Weights are the relative contributions of each factor in the advanced model.
type Weights struct {
	Days      float64 `json:"days"`
	Diversity float64 `json:"diversity"`
	Activity  float64 `json:"activity"`
	Pattern   float64 `json:"pattern"`
}

func DefaultWeights() Weights {
	return Weights{Days: 0.4, Diversity: 0.25, Activity: 0.25, Pattern: 0.10}
}

// Normalize clamps every weight to [0,1] and rescales them to sum to 1. A zero sum falls
// back to the defaults.
func (w Weights) Normalize() Weights {
	c := Weights{
		Days:      clamp(w.Days, 0, 1),
		Diversity: clamp(w.Diversity, 0, 1),
		Activity:  clamp(w.Activity, 0, 1),
		Pattern:   clamp(w.Pattern, 0, 1),
	}
	sum := c.Days + c.Diversity + c.Activity + c.Pattern
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Days:      c.Days / sum,
		Diversity: c.Diversity / sum,
		Activity:  c.Activity / sum,
		Pattern:   c.Pattern / sum,
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func substituteDays(days float64) float64 {
	if math.IsInf(days, 1) {
		return noInteractionDays
	}
	return days
}

// BasicRisk scores a pair from recency, diversity and relative activity with fixed weights.
func BasicRisk(days float64, diversity, activity int) (risk float64) {
	defer func() {
		if recover() != nil {
			risk = basicFailureRisk
		}
	}()

	inverse := func(x float64) float64 { return 100 / (x + 1) }

	risk = inverse(substituteDays(days))*basicDaysWeight +
		inverse(float64(diversity))*basicDiversityWeight +
		inverse(float64(activity))*basicActivityWeight

	if math.IsNaN(risk) {
		return basicFailureRisk
	}
	return clamp(risk, 0, 100)
}

// AdvancedRisk scores a pair with saturating decays per factor, the pattern score and
// caller-supplied weights. Failures score as maximally risky.
func AdvancedRisk(days float64, diversity, activity int, pattern float64, weights Weights) (risk float64) {
	defer func() {
		if recover() != nil {
			risk = advancedFailureRisk
		}
	}()

	decay := func(x, k float64) float64 { return 100 / (1 + k*x) }
	w := weights.Normalize()

	risk = w.Days*decay(substituteDays(days), daysDecay) +
		w.Diversity*decay(float64(diversity), diversityDecay) +
		w.Activity*decay(float64(activity), activityDecay) +
		w.Pattern*pattern

	if math.IsNaN(risk) {
		return advancedFailureRisk
	}
	return clamp(risk, 0, 100)
}
