package pairing

import (
	"encoding/json"
	"math"

	"pairing-workers/internal/models"

	"github.com/shopspring/decimal"
)

// NoPriorInteraction replaces the day count of pairs that never transacted.
const NoPriorInteraction = "no prior interaction"

// DaysSince is a day count where +Inf means the pair never transacted.
type DaysSince float64

func (d DaysSince) Known() bool {
	return !math.IsInf(float64(d), 1)
}

func (d DaysSince) MarshalJSON() ([]byte, error) {
	if !d.Known() {
		return json.Marshal(NoPriorInteraction)
	}
	return json.Marshal(int64(d))
}

// OwnedMetric is a pair minimum together with the affiliate it belongs to.
type OwnedMetric struct {
	Value       int    `json:"value"`
	AffiliateID string `json:"affiliateId"`
	Label       string `json:"label"`
}

// Candidate is an accepted pair.
type Candidate struct {
	Affiliate1      string       `json:"affiliate1"`
	Affiliate2      string       `json:"affiliate2"`
	DaysSinceLast   DaysSince    `json:"daysSinceLast"`
	DiversityMin    OwnedMetric  `json:"diversityMinimum"`
	ActivityMin     OwnedMetric  `json:"relativeActivityMinimum"`
	SuggestedAmount float64      `json:"suggestedAmount"`
	Risk            float64      `json:"risk"`
	PatternRisk     *float64     `json:"patternRisk,omitempty"`
	EffectiveRange  models.Range `json:"effectiveRange"`
	PairIDs         [2]string    `json:"pairIds"`

	rawRisk float64
}

// SkipReason says why a pair was not accepted.
type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipSelfPair         SkipReason = "self_pair"
	SkipNoOverlap        SkipReason = "no_overlap"
	SkipEmptyRange       SkipReason = "empty_range"
	SkipCooldown         SkipReason = "cooldown"
	SkipRiskExceeded     SkipReason = "risk_exceeded"
	SkipEvaluationFailed SkipReason = "evaluation_failed"
)

// PairResult holds exactly one of an accepted candidate or a skip reason.
type PairResult struct {
	Candidate *Candidate
	Skip      SkipReason
}

func accepted(c *Candidate) PairResult { return PairResult{Candidate: c} }

func skipped(reason SkipReason) PairResult { return PairResult{Skip: reason} }

func (r PairResult) Accepted() bool {
	return r.Candidate != nil
}

// RunResult is the outcome of one pairing run.
type RunResult struct {
	Pairs     []Candidate        `json:"pairs"`
	Examined  int                `json:"pairsExamined"`
	Skipped   map[SkipReason]int `json:"skipped"`
	Truncated bool               `json:"truncated"`
	Model     string             `json:"model"`
}

func newRunResult(model string) *RunResult {
	return &RunResult{
		Pairs:   []Candidate{},
		Skipped: map[SkipReason]int{},
		Model:   model,
	}
}

// Accepted is the number of pairs in the result.
func (r *RunResult) Accepted() int {
	return len(r.Pairs)
}

func roundRisk(risk float64) float64 {
	return decimal.NewFromFloat(risk).Round(2).InexactFloat64()
}
