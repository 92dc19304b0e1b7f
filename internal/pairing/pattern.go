package pairing

import (
	"math"
	"sort"

	"pairing-workers/internal/models"
)

// NeutralPatternRisk is reported whenever there is not enough data to judge regularity.
const NeutralPatternRisk = 50.0

const (
	amountPatternWeight   = 0.6
	temporalPatternWeight = 0.4
)

// meanStd returns the mean and population standard deviation of xs.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}

// AmountVariationRisk scores how uniform the positive amounts are. Identical amounts score 100.
func AmountVariationRisk(amounts []float64) float64 {
	positive := make([]float64, 0, len(amounts))
	for _, a := range amounts {
		if a > 0 && !math.IsInf(a, 0) {
			positive = append(positive, a)
		}
	}
	if len(positive) < 2 {
		return NeutralPatternRisk
	}

	mean, std := meanStd(positive)
	if mean <= 0 {
		return NeutralPatternRisk
	}
	return 100 * (1 - math.Min(1, std/mean))
}

// TemporalRegularityRisk scores how evenly spaced the transaction dates are. Unparseable
// dates are ignored.
func TemporalRegularityRisk(dates []string) float64 {
	days := make([]float64, 0, len(dates))
	for _, raw := range dates {
		t, err := ParseDate(raw)
		if err != nil {
			continue
		}
		days = append(days, float64(t.Unix())/86400)
	}
	if len(days) < 2 {
		return NeutralPatternRisk
	}
	sort.Float64s(days)

	gaps := make([]float64, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		if gap := days[i] - days[i-1]; gap > 0 {
			gaps = append(gaps, gap)
		}
	}
	if len(gaps) == 0 {
		return NeutralPatternRisk
	}

	mean, std := meanStd(gaps)
	if mean <= 0 {
		return NeutralPatternRisk
	}
	return 100 * (1 - math.Min(1, (std/mean)/2))
}

// PatternRisk combines amount and timing regularity of a pair's transactions.
func PatternRisk(txs []models.Transaction) (risk float64) {
	defer func() {
		if recover() != nil {
			risk = NeutralPatternRisk
		}
	}()

	amounts := make([]float64, len(txs))
	dates := make([]string, len(txs))
	for i, tx := range txs {
		amounts[i] = tx.Amount
		dates[i] = tx.Date
	}

	risk = amountPatternWeight*AmountVariationRisk(amounts) +
		temporalPatternWeight*TemporalRegularityRisk(dates)
	if math.IsNaN(risk) || math.IsInf(risk, 0) {
		return NeutralPatternRisk
	}
	return risk
}
