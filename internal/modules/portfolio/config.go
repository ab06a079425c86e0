package portfolio

import (
	"errors"
	"fmt"
	"math"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidTarget is returned for target allocations that are out of range.
var ErrInvalidTarget = errors.New("invalid target allocation")

var validate = validator.New()

// Config holds the tracker settings.
type Config struct {
	TargetAllocation       map[string]float64 `json:"target_allocation" mapstructure:"target_allocation"`
	RebalanceFrequency     Frequency          `json:"rebalance_frequency" mapstructure:"rebalance_frequency" validate:"oneof=hourly daily weekly monthly"`
	OptimizationMethod     OptimizationMethod `json:"optimization_method" mapstructure:"optimization_method" validate:"oneof=equal_weight risk_parity mean_variance black_litterman"`
	RebalanceThreshold     float64            `json:"rebalance_threshold" mapstructure:"rebalance_threshold" validate:"gte=0,lte=2"`
	FeeRate                float64            `json:"fee_rate" mapstructure:"fee_rate" validate:"gte=0,lt=1"`
	RiskFreeAnnual         float64            `json:"risk_free_annual" mapstructure:"risk_free_annual" validate:"gte=0,lte=1"`
	MinTradeWeight         float64            `json:"min_trade_weight" mapstructure:"min_trade_weight" validate:"gte=0,lte=1"`
	PriorityDriftThreshold float64            `json:"priority_drift_threshold" mapstructure:"priority_drift_threshold" validate:"gte=0,lte=1"`
	ReturnHistory          int                `json:"return_history" mapstructure:"return_history" validate:"gte=2"`
	VolatilityWindow       int                `json:"volatility_window" mapstructure:"volatility_window" validate:"gte=2"`
}

// DefaultConfig returns the documented tracker defaults.
func DefaultConfig() Config {
	return Config{
		TargetAllocation:       map[string]float64{},
		RebalanceFrequency:     FrequencyDaily,
		OptimizationMethod:     MethodEqualWeight,
		RebalanceThreshold:     0.05,
		FeeRate:                0.003,
		RiskFreeAnnual:         0.02,
		MinTradeWeight:         0.001,
		PriorityDriftThreshold: 0.05,
		ReturnHistory:          365,
		VolatilityWindow:       30,
	}
}

// Validate checks ranges and the target allocation.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid portfolio config: %w", err)
	}
	return ValidateTarget(c.TargetAllocation)
}

// ValidateTarget accepts weights in [0, 1] summing to at most 1. Whatever the
// assets leave over is the cash target.
func ValidateTarget(targets map[string]float64) error {
	sum := 0.0
	seen := make(map[string]string, len(targets))
	for asset, w := range targets {
		key := domain.NormalizeAsset(asset)
		if key == "" {
			return fmt.Errorf("%w: empty asset", ErrInvalidTarget)
		}
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s and %s name the same asset", ErrInvalidTarget, prev, asset)
		}
		seen[key] = asset
		if math.IsNaN(w) || w < 0 || w > 1 {
			return fmt.Errorf("%w: weight %v for %s", ErrInvalidTarget, w, asset)
		}
		sum += w
	}
	if sum > 1+1e-9 {
		return fmt.Errorf("%w: weights sum to %.6f", ErrInvalidTarget, sum)
	}
	return nil
}

func copyTarget(targets map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(targets))
	for asset, w := range targets {
		out[asset] = w
	}
	return out
}

// normalizeTarget copies targets under canonical asset keys.
func normalizeTarget(targets map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(targets))
	for asset, w := range targets {
		out[domain.NormalizeAsset(asset)] = w
	}
	return out
}

// impliedCash is 1 minus the asset targets unless cash is targeted explicitly.
func impliedCash(targets map[string]float64) float64 {
	if w, ok := targets[domain.CashAsset]; ok {
		return w
	}
	sum := 0.0
	for _, w := range targets {
		sum += w
	}
	return math.Max(0, 1-sum)
}
