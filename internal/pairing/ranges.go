package pairing

import (
	"fmt"
	"math"

	apperrors "pairing-workers/internal/common/errors"
	"pairing-workers/internal/models"
)

// CappedChannelLimit is the maximum amount that can be received on the capped channel.
const CappedChannelLimit = 800.0

// Intersect returns the widest overlap between any range of a and any range of b.
// The second result is false when no pair of ranges overlaps.
func Intersect(a, b []models.Range) (models.Range, bool) {
	var (
		best  models.Range
		found bool
	)
	for _, ra := range a {
		for _, rb := range b {
			overlap := models.Range{
				Start: math.Max(ra.Start, rb.Start),
				End:   math.Min(ra.End, rb.End),
			}
			if overlap.Empty() {
				continue
			}
			if !found || overlap.Span() > best.Span() {
				best = overlap
				found = true
			}
		}
	}
	return best, found
}

// UsesCappedChannel reports whether either affiliate receives on the capped channel.
func UsesCappedChannel(a, b *models.Affiliate) bool {
	for _, af := range []*models.Affiliate{a, b} {
		if af.ReceivesOn(models.ChannelA) || af.ReceivesOn(models.ChannelBoth) {
			return true
		}
	}
	return false
}

// effectiveRange applies the capped channel limit and the optional amount floor and ceiling.
func effectiveRange(overlap models.Range, a, b *models.Affiliate, opts Options) models.Range {
	eff := overlap
	if UsesCappedChannel(a, b) {
		eff.End = math.Min(eff.End, CappedChannelLimit)
	}
	if opts.AmountMin != nil {
		eff.Start = math.Max(eff.Start, *opts.AmountMin)
	}
	if opts.AmountMax != nil {
		eff.End = math.Min(eff.End, *opts.AmountMax)
	}
	return eff
}

// Consolidate folds range rows into one record per affiliate, keeping first-seen order.
func Consolidate(rows []models.AffiliateRange) ([]*models.Affiliate, error) {
	index := make(map[string]*models.Affiliate, len(rows))
	out := make([]*models.Affiliate, 0, len(rows))

	for i, row := range rows {
		if err := validateRow(i, row); err != nil {
			return nil, err
		}

		af, ok := index[row.AffiliateID]
		if !ok {
			af = &models.Affiliate{
				ID:              row.AffiliateID,
				DisplayName:     row.DisplayName,
				ReceiveChannels: map[models.Channel]struct{}{},
				SendChannels:    map[models.Channel]struct{}{},
			}
			if af.DisplayName == "" {
				af.DisplayName = row.AffiliateID
			}
			index[row.AffiliateID] = af
			out = append(out, af)
		}

		af.Ranges = append(af.Ranges, models.Range{Start: row.RangeStart, End: row.RangeEnd})
		for _, ch := range row.ReceiveChannels {
			af.ReceiveChannels[ch] = struct{}{}
		}
		for _, ch := range row.SendChannels {
			af.SendChannels[ch] = struct{}{}
		}
	}

	return out, nil
}

func validateRow(i int, row models.AffiliateRange) error {
	switch {
	case row.AffiliateID == "":
		return apperrors.NewValidationError(fmt.Sprintf("range row %d: missing affiliate id", i))
	case math.IsNaN(row.RangeStart) || math.IsNaN(row.RangeEnd):
		return apperrors.NewValidationError(fmt.Sprintf("range row %d (%s): missing amount range", i, row.AffiliateID))
	case row.RangeStart < 0 || row.RangeEnd < 0:
		return apperrors.NewValidationError(fmt.Sprintf("range row %d (%s): negative amount range", i, row.AffiliateID))
	}
	return nil
}
