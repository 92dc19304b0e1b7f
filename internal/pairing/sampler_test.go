package pairing

import (
	"math"
	"testing"

	"pairing-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleAmount_Deterministic(t *testing.T) {
	rng := models.Range{Start: 0, End: 300}

	// start shifts to 200; the first point is the shifted start and the last sits just under 300
	low, ok := SampleAmount(fixedRand(0), rng, nil)
	require.True(t, ok)
	assert.Equal(t, 200.0, low)

	high, ok := SampleAmount(fixedRand(0.999999), rng, nil)
	require.True(t, ok)
	assert.Equal(t, 299.0, high)
}

func TestSampleAmount_Containment(t *testing.T) {
	ranges := []models.Range{
		{Start: 0, End: 500},
		{Start: 0, End: 3},
		{Start: 120, End: 180},
		{Start: 10.5, End: 11.7},
		{Start: 1000, End: 50000},
	}
	excluded := NewAmountSet(450, 451, 452, 150, 11)
	r := seededRand(7)

	for _, rg := range ranges {
		for i := 0; i < 200; i++ {
			amount, ok := SampleAmount(r, rg, excluded)
			if !ok {
				continue
			}
			assert.True(t, rg.Contains(amount), "%v outside %+v", amount, rg)
			assert.False(t, excluded.Has(amount), "%v is excluded", amount)
			assert.Equal(t, math.Round(amount), amount)
		}
	}
}

func TestSampleAmount_WeightsFollowSurvivors(t *testing.T) {
	// points 100, 102, 102.83 and 103.46 round to 100, 102, 103 and 103
	rg := models.Range{Start: 100, End: 104}
	excluded := NewAmountSet(100)

	// survivors 102 and 103 weigh 1 and 2, so 102 owns the first third of the draw
	tests := []struct {
		draw float64
		want float64
	}{
		{draw: 0, want: 102},
		{draw: 0.32, want: 102},
		{draw: 0.34, want: 103},
		{draw: 0.999999, want: 103},
	}

	for _, tt := range tests {
		amount, ok := SampleAmount(fixedRand(tt.draw), rg, excluded)
		require.True(t, ok)
		assert.Equal(t, tt.want, amount, "draw %v", tt.draw)
	}
}

func TestSampleAmount_None(t *testing.T) {
	tests := []struct {
		name     string
		rng      models.Range
		excluded AmountSet
	}{
		{name: "empty range", rng: models.Range{Start: 100, End: 100}},
		{name: "inverted range", rng: models.Range{Start: 100, End: 50}},
		{name: "span below one", rng: models.Range{Start: 10.2, End: 10.9}},
		// points 10 and 11.41, rounding to 10 and 11
		{name: "every candidate excluded", rng: models.Range{Start: 10, End: 12}, excluded: NewAmountSet(10, 11)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := SampleAmount(fixedRand(0.5), tt.rng, tt.excluded)
			assert.False(t, ok)
		})
	}
}

func TestSampleAmountAdvanced_Containment(t *testing.T) {
	rg := models.Range{Start: 0, End: 800}
	prior := []float64{300, 320, 310, 305, 0}
	excluded := NewAmountSet(300, 310, 320)
	r := seededRand(11)

	for _, risk := range []float64{0, 15, 29.9, 30, 50, 70, 70.1, 95, 100} {
		for i := 0; i < 100; i++ {
			amount, ok := SampleAmountAdvanced(r, rg, excluded, prior, risk)
			require.True(t, ok)
			assert.True(t, rg.Contains(amount), "risk %v: %v outside range", risk, amount)
			assert.False(t, excluded.Has(amount), "risk %v: %v is excluded", risk, amount)
		}
	}
}

func TestSampleAmountAdvanced_LowRiskFollowsHistory(t *testing.T) {
	rg := models.Range{Start: 0, End: 800}
	prior := []float64{300, 320, 310, 290, 305}
	mean, std := meanStd(prior)
	r := seededRand(3)

	for i := 0; i < 100; i++ {
		amount, ok := SampleAmountAdvanced(r, rg, nil, prior, 10)
		require.True(t, ok)
		assert.GreaterOrEqual(t, amount, math.Floor(mean-2*std))
		assert.LessOrEqual(t, amount, math.Ceil(mean+2*std))
	}
}

func TestSampleAmountAdvanced_HighRiskPrefersExtremes(t *testing.T) {
	rg := models.Range{Start: 0, End: 1000}

	first, ok := SampleAmountAdvanced(fixedRand(0), rg, nil, nil, 90)
	require.True(t, ok)
	assert.Equal(t, 0.0, first)

	last, ok := SampleAmountAdvanced(fixedRand(0.999999), rg, nil, nil, 90)
	require.True(t, ok)
	assert.Equal(t, 1000.0, last)
}

func TestSampleAmountAdvanced_FallsBackToBasic(t *testing.T) {
	// a history window narrower than one unit has no shaped points
	amount, ok := SampleAmountAdvanced(fixedRand(0), models.Range{Start: 0, End: 300}, nil, []float64{100, 100.2}, 10)
	require.True(t, ok)
	assert.Equal(t, 200.0, amount)

	_, ok = SampleAmountAdvanced(fixedRand(0.5), models.Range{Start: 10, End: 12}, NewAmountSet(10, 11, 12), nil, 50)
	assert.False(t, ok)
}

func TestHistoricalWindow(t *testing.T) {
	rg := models.Range{Start: 0, End: 500}

	assert.Equal(t, rg, historicalWindow(rg, nil))
	assert.Equal(t, rg, historicalWindow(rg, []float64{100}))

	w := historicalWindow(rg, []float64{100, 200})
	assert.Equal(t, models.Range{Start: 50, End: 250}, w)

	clipped := historicalWindow(rg, []float64{480, 520})
	assert.Equal(t, 500.0, clipped.End)
}
