// Package pairing screens affiliate pairs, scores how detectable their interaction pattern
// is and proposes a transfer amount for each accepted pair.
package pairing

import (
	"context"
	"fmt"
	"sort"
	"time"

	apperrors "pairing-workers/internal/common/errors"
	"pairing-workers/internal/common/logger"
	"pairing-workers/internal/models"
)

// Engine runs pairing passes over snapshots. It keeps no state between runs and is safe for
// concurrent use as long as its Rand is.
type Engine struct {
	logger        logger.Logger
	rand          Rand
	now           func() time.Time
	maxPairs      int
	recentAmounts int
}

type Option func(*Engine)

// WithRand replaces the randomness used by the samplers.
func WithRand(r Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rand = r
		}
	}
}

// WithClock sets the source of "today" for recency metrics.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMaxPairs bounds how many pairs one run examines.
func WithMaxPairs(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPairs = n
		}
	}
}

// WithRecentAmounts sets how many of a pair's latest amounts suggestions must avoid. Zero
// turns the exclusion off.
func WithRecentAmounts(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.recentAmounts = n
		}
	}
}

func NewEngine(log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:        log,
		rand:          globalRand{},
		now:           time.Now,
		maxPairs:      DefaultMaxPairs,
		recentAmounts: defaultRecentAmounts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run enumerates every affiliate pair in snap and returns the accepted ones ordered by
// ascending risk.
func (e *Engine) Run(ctx context.Context, snap *models.Snapshot, opts Options) (*RunResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, apperrors.NewValidationError("snapshot is required")
	}

	affiliates, err := Consolidate(snap.Ranges)
	if err != nil {
		return nil, err
	}

	result := newRunResult(opts.ModelName())
	if len(affiliates) < 2 {
		e.logger.Info("not enough affiliates to pair", map[string]interface{}{
			"affiliates": len(affiliates),
		})
		return result, nil
	}

	history, err := NewHistory(snap.Transactions)
	if err != nil {
		return nil, err
	}

	today := e.now()

outer:
	for i := 0; i < len(affiliates); i++ {
		for j := i + 1; j < len(affiliates); j++ {
			if result.Examined >= e.maxPairs {
				result.Truncated = true
				break outer
			}
			if err := ctx.Err(); err != nil {
				return nil, apperrors.NewProcessingError("pairing run interrupted", err)
			}

			result.Examined++
			res := e.evaluate(history, affiliates[i], affiliates[j], opts, today)
			if res.Accepted() {
				result.Pairs = append(result.Pairs, *res.Candidate)
			} else {
				result.Skipped[res.Skip]++
			}
		}
	}

	sort.SliceStable(result.Pairs, func(i, j int) bool {
		return result.Pairs[i].rawRisk < result.Pairs[j].rawRisk
	})

	e.logger.Info("pairing run finished", map[string]interface{}{
		"model":        result.Model,
		"affiliates":   len(affiliates),
		"transactions": history.Len(),
		"examined":     result.Examined,
		"accepted":     result.Accepted(),
		"skipped":      result.Skipped,
		"truncated":    result.Truncated,
	})

	return result, nil
}

// evaluate screens and scores one pair. A panic anywhere in here skips the pair.
func (e *Engine) evaluate(h *History, a, b *models.Affiliate, opts Options, today time.Time) (res PairResult) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn("pair evaluation failed", map[string]interface{}{
				"affiliate1": a.ID,
				"affiliate2": b.ID,
				"panic":      fmt.Sprint(rec),
			})
			res = skipped(SkipEvaluationFailed)
		}
	}()

	if a.ID == b.ID {
		return e.skip(a, b, SkipSelfPair)
	}

	overlap, ok := Intersect(a.Ranges, b.Ranges)
	if !ok {
		return e.skip(a, b, SkipNoOverlap)
	}

	eff := effectiveRange(overlap, a, b, opts)
	if eff.Empty() {
		return e.skip(a, b, SkipEmptyRange)
	}

	days := h.DaysSinceLast(a.ID, b.ID, today)
	if days < float64(opts.CooldownDays) {
		return e.skip(a, b, SkipCooldown)
	}

	m := e.measure(h, a, b, days, opts)
	if m.risk > opts.MaxRisk {
		return e.skip(a, b, SkipRiskExceeded)
	}

	prior := amountsOf(m.txs)
	excluded := NewAmountSet(firstN(prior, e.recentAmounts)...)
	amount, ok := e.sample(eff, excluded, prior, m.risk, opts.Advanced())
	if !ok {
		amount = eff.Midpoint()
	}

	return accepted(&Candidate{
		Affiliate1:      a.DisplayName,
		Affiliate2:      b.DisplayName,
		DaysSinceLast:   DaysSince(days),
		DiversityMin:    m.diversity,
		ActivityMin:     m.activity,
		SuggestedAmount: amount,
		Risk:            roundRisk(m.risk),
		PatternRisk:     m.pattern,
		EffectiveRange:  eff,
		PairIDs:         [2]string{a.ID, b.ID},
		rawRisk:         m.risk,
	})
}

func (e *Engine) skip(a, b *models.Affiliate, reason SkipReason) PairResult {
	e.logger.Debug("pair skipped", map[string]interface{}{
		"affiliate1": a.ID,
		"affiliate2": b.ID,
		"reason":     string(reason),
	})
	return skipped(reason)
}

type pairMetrics struct {
	diversity OwnedMetric
	activity  OwnedMetric
	pattern   *float64
	risk      float64
	txs       []models.Transaction
}

func (e *Engine) measure(h *History, a, b *models.Affiliate, days float64, opts Options) pairMetrics {
	var m pairMetrics

	divA, divB := h.Diversity(a.ID), h.Diversity(b.ID)
	if divA < divB {
		m.diversity = OwnedMetric{Value: divA, AffiliateID: a.ID, Label: a.DisplayName}
	} else {
		m.diversity = OwnedMetric{Value: divB, AffiliateID: b.ID, Label: b.DisplayName}
	}

	activity, owner := h.RelativeActivity(a.ID, b.ID)
	m.activity = OwnedMetric{Value: activity, AffiliateID: owner, Label: a.DisplayName}
	if owner == b.ID {
		m.activity.Label = b.DisplayName
	}

	m.txs = h.PairTransactions(a.ID, b.ID)

	if opts.Advanced() {
		p := PatternRisk(m.txs)
		m.pattern = &p
		m.risk = AdvancedRisk(days, m.diversity.Value, m.activity.Value, p, opts.weights())
	} else {
		m.risk = BasicRisk(days, m.diversity.Value, m.activity.Value)
	}
	return m
}

func (e *Engine) sample(rng models.Range, excluded AmountSet, prior []float64, risk float64, advanced bool) (float64, bool) {
	if advanced {
		return SampleAmountAdvanced(e.rand, rng, excluded, prior, risk)
	}
	return SampleAmount(e.rand, rng, excluded)
}

func amountsOf(txs []models.Transaction) []float64 {
	out := make([]float64, len(txs))
	for i, tx := range txs {
		out[i] = tx.Amount
	}
	return out
}

func firstN(xs []float64, n int) []float64 {
	if n >= 0 && len(xs) > n {
		return xs[:n]
	}
	return xs
}
