package pairing

import (
	"context"

	apperrors "pairing-workers/internal/common/errors"
	"pairing-workers/internal/models"
)

const (
	DefaultDetailHistory     = 10
	DefaultDetailSuggestions = 5
	DefaultDetailAttempts    = 20
)

// DetailRequest asks for a close look at one pair.
type DetailRequest struct {
	AffiliateID1 string
	AffiliateID2 string
	// FullHistory returns every transaction of the pair instead of the latest HistoryLimit.
	FullHistory bool
	// Options, when set, applies a custom scoring configuration and reports the risk.
	Options *Options

	HistoryLimit int
	Suggestions  int
	Attempts     int
}

func (r DetailRequest) withDefaults() DetailRequest {
	if r.HistoryLimit <= 0 {
		r.HistoryLimit = DefaultDetailHistory
	}
	if r.Suggestions <= 0 {
		r.Suggestions = DefaultDetailSuggestions
	}
	if r.Attempts <= 0 {
		r.Attempts = DefaultDetailAttempts
	}
	return r
}

// PairDetail is the detail view of one pair.
type PairDetail struct {
	Affiliate1        string               `json:"affiliate1"`
	Affiliate2        string               `json:"affiliate2"`
	PairIDs           [2]string            `json:"pairIds"`
	EffectiveRange    models.Range         `json:"effectiveRange"`
	UsesCappedChannel bool                 `json:"usesCappedChannel"`
	DaysSinceLast     DaysSince            `json:"daysSinceLast"`
	History           []models.Transaction `json:"history"`
	TotalTransactions int                  `json:"totalTransactions"`
	SuggestedAmounts  []float64            `json:"suggestedAmounts"`
	PatternRisk       float64              `json:"patternRisk"`
	Risk              *float64             `json:"risk,omitempty"`
}

// Details reports the pair's recent history, several non-repeating amount suggestions and
// its pattern risk.
func (e *Engine) Details(ctx context.Context, snap *models.Snapshot, req DetailRequest) (*PairDetail, error) {
	req = req.withDefaults()

	if req.AffiliateID1 == "" || req.AffiliateID2 == "" {
		return nil, apperrors.NewValidationError("both affiliate ids are required")
	}
	if req.AffiliateID1 == req.AffiliateID2 {
		return nil, apperrors.NewValidationError("an affiliate cannot be paired with itself")
	}
	opts := Options{}
	if req.Options != nil {
		if err := req.Options.Validate(); err != nil {
			return nil, err
		}
		opts = *req.Options
	}
	if snap == nil {
		return nil, apperrors.NewValidationError("snapshot is required")
	}

	affiliates, err := Consolidate(snap.Ranges)
	if err != nil {
		return nil, err
	}
	a, b := findAffiliate(affiliates, req.AffiliateID1), findAffiliate(affiliates, req.AffiliateID2)
	if a == nil {
		return nil, apperrors.NewAffiliateNotFoundError(req.AffiliateID1)
	}
	if b == nil {
		return nil, apperrors.NewAffiliateNotFoundError(req.AffiliateID2)
	}

	overlap, ok := Intersect(a.Ranges, b.Ranges)
	if !ok {
		return nil, apperrors.NewNoCompatibleRangeError(a.ID, b.ID)
	}
	eff := effectiveRange(overlap, a, b, opts)
	if eff.Empty() {
		return nil, apperrors.NewNoCompatibleRangeError(a.ID, b.ID)
	}

	history, err := NewHistory(snap.Transactions)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewProcessingError("pair details interrupted", err)
	}

	days := history.DaysSinceLast(a.ID, b.ID, e.now())
	txs := history.PairTransactions(a.ID, b.ID)

	shown := txs
	if !req.FullHistory && len(shown) > req.HistoryLimit {
		shown = shown[:req.HistoryLimit]
	}

	detail := &PairDetail{
		Affiliate1:        a.DisplayName,
		Affiliate2:        b.DisplayName,
		PairIDs:           [2]string{a.ID, b.ID},
		EffectiveRange:    eff,
		UsesCappedChannel: UsesCappedChannel(a, b),
		DaysSinceLast:     DaysSince(days),
		History:           shown,
		TotalTransactions: len(txs),
		PatternRisk:       PatternRisk(txs),
		SuggestedAmounts:  []float64{},
	}

	risk := 0.0
	if req.Options != nil {
		m := e.measure(history, a, b, days, opts)
		risk = m.risk
		rounded := roundRisk(risk)
		detail.Risk = &rounded
	}

	prior := amountsOf(txs)
	excluded := NewAmountSet(amountsOf(shown)...)
	for attempt := 0; attempt < req.Attempts && len(detail.SuggestedAmounts) < req.Suggestions; attempt++ {
		amount, ok := e.sample(eff, excluded, prior, risk, opts.Advanced())
		if !ok {
			break
		}
		excluded.Add(amount)
		detail.SuggestedAmounts = append(detail.SuggestedAmounts, amount)
	}

	e.logger.Info("pair details computed", map[string]interface{}{
		"affiliate1":   a.ID,
		"affiliate2":   b.ID,
		"transactions": len(txs),
		"suggestions":  len(detail.SuggestedAmounts),
		"cappedRange":  detail.UsesCappedChannel,
	})

	return detail, nil
}

func findAffiliate(affiliates []*models.Affiliate, id string) *models.Affiliate {
	for _, af := range affiliates {
		if af.ID == id {
			return af
		}
	}
	return nil
}
