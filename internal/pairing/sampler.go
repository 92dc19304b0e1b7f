package pairing

import (
	"math"
	"math/rand/v2"

	"pairing-workers/internal/models"

	"github.com/shopspring/decimal"
)

// Rand is the randomness the samplers draw from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// globalRand uses the goroutine-safe top-level source.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

const (
	maxSamplePoints = 50

	lowRiskTier  = 30.0
	highRiskTier = 70.0

	midTierExponent = 0.6
	minShapeWeight  = 0.05
)

// AmountSet is a set of amounts a sampler must not return.
type AmountSet map[float64]struct{}

func NewAmountSet(amounts ...float64) AmountSet {
	s := make(AmountSet, len(amounts))
	for _, a := range amounts {
		s.Add(a)
	}
	return s
}

func (s AmountSet) Add(amount float64) {
	s[amount] = struct{}{}
}

func (s AmountSet) Has(amount float64) bool {
	_, ok := s[amount]
	return ok
}

type weighted struct {
	amount float64
	weight float64
}

func roundAmount(x float64) float64 {
	return decimal.NewFromFloat(x).Round(0).InexactFloat64()
}

func pointCount(span float64) int {
	if span <= 0 || math.IsNaN(span) {
		return 0
	}
	return int(math.Min(maxSamplePoints, math.Floor(span)))
}

// collector rounds candidate points and keeps those inside bounds, not excluded and not
// already seen.
type collector struct {
	bounds   models.Range
	excluded AmountSet
	seen     AmountSet
	out      []weighted
}

func newCollector(bounds models.Range, excluded AmountSet) *collector {
	return &collector{bounds: bounds, excluded: excluded, seen: NewAmountSet()}
}

func (c *collector) add(point, weight float64) {
	amount := roundAmount(point)
	if !c.bounds.Contains(amount) || c.excluded.Has(amount) || c.seen.Has(amount) {
		return
	}
	c.seen.Add(amount)
	c.out = append(c.out, weighted{amount: amount, weight: weight})
}

func pick(r Rand, candidates []weighted) (float64, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	var total float64
	for _, c := range candidates {
		total += c.weight
	}
	if total <= 0 {
		return candidates[len(candidates)-1].amount, true
	}

	target := r.Float64() * total
	for _, c := range candidates {
		target -= c.weight
		if target < 0 {
			return c.amount, true
		}
	}
	return candidates[len(candidates)-1].amount, true
}

// SampleAmount draws an integer amount from rng biased towards its upper end. Ranges
// starting at zero are narrowed to their upper third.
func SampleAmount(r Rand, rng models.Range, excluded AmountSet) (float64, bool) {
	n := pointCount(rng.Span())
	if n == 0 {
		return 0, false
	}

	start := rng.Start
	if start == 0 {
		start = rng.End - rng.Span()/3
	}

	c := newCollector(rng, excluded)
	for i := 0; i < n; i++ {
		f := math.Sqrt(float64(i) / float64(n))
		c.add(start+(rng.End-start)*f, 0)
	}
	// Weights grow linearly with position among the surviving candidates.
	for i := range c.out {
		c.out[i].weight = float64(i + 1)
	}
	return pick(r, c.out)
}

// SampleAmountAdvanced shapes the draw by the pair's risk tier. Low risk pairs stay close to
// their historical amounts, high risk pairs are pushed towards the extremes. It falls back
// to SampleAmount when no shaped candidate survives.
func SampleAmountAdvanced(r Rand, rng models.Range, excluded AmountSet, prior []float64, risk float64) (float64, bool) {
	sub := rng
	if risk < lowRiskTier {
		sub = historicalWindow(rng, prior)
	}

	n := pointCount(sub.Span())
	if n == 0 {
		return SampleAmount(r, rng, excluded)
	}

	c := newCollector(rng, excluded)
	center, half := sub.Midpoint(), sub.Span()/2

	switch {
	case risk < lowRiskTier:
		for i := 0; i <= n; i++ {
			x := sub.Start + sub.Span()*float64(i)/float64(n)
			z := (x - center) / (half / 2)
			c.add(x, math.Max(minShapeWeight, math.Exp(-0.5*z*z)))
		}
	case risk > highRiskTier:
		for i := 0; i <= n; i++ {
			x := sub.Start + sub.Span()*float64(i)/float64(n)
			d := math.Abs(x-center) / half
			c.add(x, d*d+minShapeWeight)
		}
	default:
		for i := 0; i < n; i++ {
			f := math.Pow(float64(i)/float64(n), midTierExponent)
			c.add(sub.Start+sub.Span()*f, float64(i+1))
		}
	}

	if amount, ok := pick(r, c.out); ok {
		return amount, true
	}
	return SampleAmount(r, rng, excluded)
}

// historicalWindow narrows rng to mean ± 2 standard deviations of the prior amounts.
func historicalWindow(rng models.Range, prior []float64) models.Range {
	positive := make([]float64, 0, len(prior))
	for _, a := range prior {
		if a > 0 {
			positive = append(positive, a)
		}
	}
	if len(positive) < 2 {
		return rng
	}

	mean, std := meanStd(positive)
	w := models.Range{
		Start: math.Max(rng.Start, mean-2*std),
		End:   math.Min(rng.End, mean+2*std),
	}
	if w.Empty() {
		return rng
	}
	return w
}
