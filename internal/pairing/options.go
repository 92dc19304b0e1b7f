package pairing

import (
	"fmt"
	"math"

	apperrors "pairing-workers/internal/common/errors"
)

const (
	DefaultCooldownDays = 1
	DefaultMaxRisk      = 50.0
	DefaultMaxPairs     = 10000

	defaultRecentAmounts = 10
)

// Options configure one pairing run.
type Options struct {
	// CooldownDays is the minimum number of days since a pair's last transaction.
	CooldownDays int
	// MaxRisk drops pairs scoring above it. Range [0, 100].
	MaxRisk float64
	// AmountMin and AmountMax narrow every effective range when set.
	AmountMin *float64
	AmountMax *float64
	// UseAdvancedModel selects the weighted model with the pattern term.
	UseAdvancedModel bool
	// Weights for the advanced model. Supplying weights implies the advanced model.
	Weights *Weights
}

func DefaultOptions() Options {
	return Options{
		CooldownDays: DefaultCooldownDays,
		MaxRisk:      DefaultMaxRisk,
	}
}

// Advanced reports whether the run scores with the advanced model.
func (o Options) Advanced() bool {
	return o.UseAdvancedModel || o.Weights != nil
}

// ModelName is reported in run summaries.
func (o Options) ModelName() string {
	if o.Advanced() {
		return "advanced"
	}
	return "basic"
}

func (o Options) weights() Weights {
	if o.Weights == nil {
		return DefaultWeights()
	}
	return *o.Weights
}

// Validate rejects options the engine cannot run with.
func (o Options) Validate() error {
	if o.CooldownDays < 0 {
		return apperrors.NewValidationError(fmt.Sprintf("cooldownDays must be >= 0, got %d", o.CooldownDays))
	}
	if math.IsNaN(o.MaxRisk) || o.MaxRisk < 0 || o.MaxRisk > 100 {
		return apperrors.NewValidationError(fmt.Sprintf("maxRisk must be within [0, 100], got %v", o.MaxRisk))
	}
	if o.AmountMin != nil && *o.AmountMin < 0 {
		return apperrors.NewValidationError(fmt.Sprintf("amountMin must be >= 0, got %v", *o.AmountMin))
	}
	if o.AmountMax != nil && *o.AmountMax < 0 {
		return apperrors.NewValidationError(fmt.Sprintf("amountMax must be >= 0, got %v", *o.AmountMax))
	}
	if o.AmountMin != nil && o.AmountMax != nil && *o.AmountMin > *o.AmountMax {
		return apperrors.NewValidationError(fmt.Sprintf("amountMin %v exceeds amountMax %v", *o.AmountMin, *o.AmountMax))
	}
	if w := o.Weights; w != nil {
		if w.Days < 0 || w.Diversity < 0 || w.Activity < 0 || w.Pattern < 0 {
			return apperrors.NewValidationError("weights must be non-negative")
		}
	}
	return nil
}

// Overrides is the job-variable shape of Options. Nil fields keep the base value.
type Overrides struct {
	CooldownDays     *int     `json:"cooldownDays,omitempty"`
	MaxRisk          *float64 `json:"maxRisk,omitempty"`
	AmountMin        *float64 `json:"amountMin,omitempty"`
	AmountMax        *float64 `json:"amountMax,omitempty"`
	UseAdvancedModel bool     `json:"useAdvancedModel,omitempty"`
	Weights          *Weights `json:"weights,omitempty"`
}

// Apply layers the overrides on top of base.
func (o Overrides) Apply(base Options) Options {
	out := base
	if o.CooldownDays != nil {
		out.CooldownDays = *o.CooldownDays
	}
	if o.MaxRisk != nil {
		out.MaxRisk = *o.MaxRisk
	}
	if o.AmountMin != nil {
		out.AmountMin = o.AmountMin
	}
	if o.AmountMax != nil {
		out.AmountMax = o.AmountMax
	}
	if o.UseAdvancedModel {
		out.UseAdvancedModel = true
	}
	if o.Weights != nil {
		w := *o.Weights
		out.Weights = &w
	}
	return out
}
