package execution

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Mode selects how fills are produced. Only simulation is supported.
type Mode string

const ModeSimulation Mode = "simulation"

// ImpactWarning is the price impact above which estimates carry a warning.
const ImpactWarning = 0.02

// FillRatio is the share of the requested quantity that counts as filled.
const FillRatio = 0.99

// Config holds the router settings.
type Config struct {
	Mode              Mode      `json:"mode" mapstructure:"mode" validate:"oneof=simulation"`
	DefaultStrategy   Strategy  `json:"default_strategy" mapstructure:"default_strategy" validate:"oneof=immediate twap vwap smart_routing"`
	PreferredVenues   []string  `json:"preferred_venues" mapstructure:"preferred_venues" validate:"min=1,dive,required"`
	Venues            []Venue   `json:"venues" mapstructure:"venues" validate:"min=1,dive"`
	VWAPProfile       []float64 `json:"vwap_profile" mapstructure:"vwap_profile" validate:"min=1,dive,gt=0"`
	SlippageTolerance float64   `json:"slippage_tolerance" mapstructure:"slippage_tolerance" validate:"gte=0,lte=1"`
	SplitThreshold    float64   `json:"split_threshold" mapstructure:"split_threshold" validate:"gt=0"`
	BaseSlippage      float64   `json:"base_slippage" mapstructure:"base_slippage" validate:"gte=0,lt=1"`
	TWAPSlices        int       `json:"twap_slices" mapstructure:"twap_slices" validate:"gte=1"`
}

// DefaultVenues returns the simulated venue catalog.
func DefaultVenues() []Venue {
	return []Venue{
		{Name: "uniswap", Fee: 0.003, Liquidity: 5_000_000, GasCost: 15},
		{Name: "sushiswap", Fee: 0.003, Liquidity: 2_000_000, GasCost: 12},
		{Name: "curve", Fee: 0.0004, Liquidity: 10_000_000, GasCost: 20},
	}
}

// DefaultConfig returns the documented router defaults.
func DefaultConfig() Config {
	return Config{
		Mode:              ModeSimulation,
		DefaultStrategy:   StrategySmartRouting,
		PreferredVenues:   []string{"uniswap", "sushiswap"},
		Venues:            DefaultVenues(),
		VWAPProfile:       []float64{0.3, 0.15, 0.1, 0.15, 0.3},
		SlippageTolerance: 0.01,
		SplitThreshold:    10000,
		BaseSlippage:      0.001,
		TWAPSlices:        5,
	}
}

// Validate checks ranges and that every preferred venue is in the catalog.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid execution config: %w", err)
	}
	names := make(map[string]bool, len(c.Venues))
	for _, v := range c.Venues {
		if names[v.Name] {
			return fmt.Errorf("invalid execution config: duplicate venue %s", v.Name)
		}
		names[v.Name] = true
	}
	for _, name := range c.PreferredVenues {
		if !names[name] {
			return fmt.Errorf("invalid execution config: unknown preferred venue %s", name)
		}
	}
	return nil
}

func (c Config) venue(name string) Venue {
	for _, v := range c.Venues {
		if v.Name == name {
			return v
		}
	}
	return Venue{Name: name}
}
