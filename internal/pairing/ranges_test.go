package pairing

import (
	"math"
	"testing"

	apperrors "pairing-workers/internal/common/errors"
	"pairing-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntersect(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []models.Range
		expected models.Range
		found    bool
	}{
		{
			name:  "disjoint ranges",
			a:     []models.Range{{Start: 0, End: 100}},
			b:     []models.Range{{Start: 200, End: 300}},
			found: false,
		},
		{
			name:  "touching ranges do not overlap",
			a:     []models.Range{{Start: 0, End: 100}},
			b:     []models.Range{{Start: 100, End: 300}},
			found: false,
		},
		{
			name:     "identical ranges",
			a:        []models.Range{{Start: 50, End: 500}},
			b:        []models.Range{{Start: 50, End: 500}},
			expected: models.Range{Start: 50, End: 500},
			found:    true,
		},
		{
			name:     "partial overlap",
			a:        []models.Range{{Start: 0, End: 300}},
			b:        []models.Range{{Start: 200, End: 600}},
			expected: models.Range{Start: 200, End: 300},
			found:    true,
		},
		{
			name:     "widest overlap wins",
			a:        []models.Range{{Start: 0, End: 100}, {Start: 400, End: 1000}},
			b:        []models.Range{{Start: 50, End: 120}, {Start: 300, End: 900}},
			expected: models.Range{Start: 400, End: 900},
			found:    true,
		},
		{
			name:  "empty inputs",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Intersect(tt.a, tt.b)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.expected, got)
			}

			swapped, okSwapped := Intersect(tt.b, tt.a)
			assert.Equal(t, ok, okSwapped)
			assert.Equal(t, got, swapped)
		})
	}
}

func TestUsesCappedChannel(t *testing.T) {
	affiliates, err := Consolidate([]models.AffiliateRange{
		rangeRow("a", 0, 1000, models.ChannelA),
		rangeRow("b", 0, 1000, models.ChannelB),
		rangeRow("c", 0, 1000, models.ChannelBoth),
		rangeRow("d", 0, 1000),
	})
	require.NoError(t, err)
	a, b, c, d := affiliates[0], affiliates[1], affiliates[2], affiliates[3]

	assert.True(t, UsesCappedChannel(a, b))
	assert.True(t, UsesCappedChannel(b, a))
	assert.True(t, UsesCappedChannel(c, d))
	assert.False(t, UsesCappedChannel(b, d))
}

func TestEffectiveRange(t *testing.T) {
	affiliates, err := Consolidate([]models.AffiliateRange{
		rangeRow("capped", 0, 2000, models.ChannelA),
		rangeRow("open", 0, 2000, models.ChannelB),
		rangeRow("open2", 0, 2000, models.ChannelB),
	})
	require.NoError(t, err)
	capped, open, open2 := affiliates[0], affiliates[1], affiliates[2]
	overlap := models.Range{Start: 0, End: 2000}

	t.Run("cap applies when either side receives on the capped channel", func(t *testing.T) {
		got := effectiveRange(overlap, capped, open, Options{})
		assert.Equal(t, models.Range{Start: 0, End: CappedChannelLimit}, got)
	})

	t.Run("no cap between uncapped affiliates", func(t *testing.T) {
		got := effectiveRange(overlap, open, open2, Options{})
		assert.Equal(t, overlap, got)
	})

	t.Run("cap is not binding below the limit", func(t *testing.T) {
		got := effectiveRange(models.Range{Start: 0, End: 500}, capped, open, Options{})
		assert.Equal(t, models.Range{Start: 0, End: 500}, got)
	})

	t.Run("amount floor and ceiling narrow the range", func(t *testing.T) {
		got := effectiveRange(overlap, open, open2, Options{AmountMin: floatPtr(100), AmountMax: floatPtr(250)})
		assert.Equal(t, models.Range{Start: 100, End: 250}, got)
	})

	t.Run("floor above the cap empties the range", func(t *testing.T) {
		got := effectiveRange(overlap, capped, open, Options{AmountMin: floatPtr(900)})
		assert.True(t, got.Empty())
	})
}

func TestConsolidate(t *testing.T) {
	t.Run("groups rows per affiliate in first-seen order", func(t *testing.T) {
		rows := []models.AffiliateRange{
			rangeRow("b", 0, 100, models.ChannelB),
			rangeRow("a", 0, 50, models.ChannelA),
			rangeRow("b", 200, 400, models.ChannelBoth),
		}

		affiliates, err := Consolidate(rows)
		require.NoError(t, err)
		require.Len(t, affiliates, 2)

		assert.Equal(t, "b", affiliates[0].ID)
		assert.Equal(t, []models.Range{{Start: 0, End: 100}, {Start: 200, End: 400}}, affiliates[0].Ranges)
		assert.True(t, affiliates[0].ReceivesOn(models.ChannelB))
		assert.True(t, affiliates[0].ReceivesOn(models.ChannelBoth))
		assert.False(t, affiliates[0].ReceivesOn(models.ChannelA))
		assert.Equal(t, "a", affiliates[1].ID)
	})

	t.Run("display name falls back to id", func(t *testing.T) {
		affiliates, err := Consolidate([]models.AffiliateRange{{AffiliateID: "x", RangeStart: 0, RangeEnd: 10}})
		require.NoError(t, err)
		assert.Equal(t, "x", affiliates[0].DisplayName)
	})

	t.Run("inverted range is kept", func(t *testing.T) {
		affiliates, err := Consolidate([]models.AffiliateRange{rangeRow("x", 500, 100)})
		require.NoError(t, err)
		assert.True(t, affiliates[0].Ranges[0].Empty())
	})

	invalid := []struct {
		name string
		row  models.AffiliateRange
	}{
		{name: "missing id", row: models.AffiliateRange{RangeStart: 0, RangeEnd: 10}},
		{name: "missing bound", row: models.AffiliateRange{AffiliateID: "x", RangeStart: math.NaN(), RangeEnd: 10}},
		{name: "negative bound", row: models.AffiliateRange{AffiliateID: "x", RangeStart: -5, RangeEnd: 10}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Consolidate([]models.AffiliateRange{tt.row})
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}
