package risk

import (
	"fmt"
	"math"
)

// Config holds the engine settings other than limits.
type Config struct {
	AssetBetas             map[string]float64 `json:"asset_betas" mapstructure:"asset_betas"`
	VaRMethod              Method             `json:"var_method" mapstructure:"var_method"`
	StressScenarios        []StressScenario   `json:"stress_scenarios" mapstructure:"stress_scenarios" validate:"dive"`
	HedgingStrategies      []HedgingStrategy  `json:"hedging_strategies" mapstructure:"hedging_strategies" validate:"dive"`
	TimeHorizonDays        int                `json:"time_horizon_days" mapstructure:"time_horizon_days" validate:"gte=1"`
	LookbackDays           int                `json:"lookback_days" mapstructure:"lookback_days" validate:"gte=1"`
	Simulations            int                `json:"simulations" mapstructure:"simulations" validate:"gte=1"`
	Seed                   uint64             `json:"seed" mapstructure:"seed"`
	RiskFreeAnnual         float64            `json:"risk_free_annual" mapstructure:"risk_free_annual" validate:"gte=0,lte=1"`
	LiquiditySizeThreshold float64            `json:"liquidity_size_threshold" mapstructure:"liquidity_size_threshold" validate:"gte=0"`
	AlertPercent           float64            `json:"alert_percent" mapstructure:"alert_percent" validate:"gt=0,lte=1"`
	MaxAlerts              int                `json:"max_alerts" mapstructure:"max_alerts" validate:"gte=1"`
}

// DefaultConfig returns the documented engine defaults.
func DefaultConfig() Config {
	return Config{
		VaRMethod:              MethodHistorical,
		TimeHorizonDays:        1,
		LookbackDays:           252,
		Simulations:            10000,
		RiskFreeAnnual:         0.02,
		LiquiditySizeThreshold: 100000,
		AlertPercent:           0.8,
		MaxAlerts:              500,
		HedgingStrategies:      DefaultHedgingStrategies(),
	}
}

// Validate checks ranges and the custom scenario and hedging definitions.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid risk config: %w", err)
	}
	for asset, beta := range c.AssetBetas {
		if math.IsNaN(beta) || math.IsInf(beta, 0) {
			return fmt.Errorf("invalid risk config: beta for %s is not finite", asset)
		}
	}
	return nil
}
