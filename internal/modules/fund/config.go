package fund

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DefaultTickSchedule runs the supervisory tick once a minute.
const DefaultTickSchedule = "@every 1m"

// DefaultEmergencyMultiplier is the share of max drawdown that trips the
// emergency stop.
const DefaultEmergencyMultiplier = 1.5

// Config holds the supervisor settings.
type Config struct {
	FundID               string  `json:"fund_id" mapstructure:"fund_id" validate:"required"`
	TickSchedule         string  `json:"tick_schedule" mapstructure:"tick_schedule" validate:"required"`
	EmergencyMultiplier  float64 `json:"emergency_drawdown_multiplier" mapstructure:"emergency_drawdown_multiplier" validate:"gte=1"`
	EmergencyStopEnabled bool    `json:"emergency_stop_enabled" mapstructure:"emergency_stop_enabled"`
	RebalanceOnViolation bool    `json:"rebalance_on_violation" mapstructure:"rebalance_on_violation"`
	PauseOnViolation     bool    `json:"pause_on_violation" mapstructure:"pause_on_violation"`
}

// DefaultConfig returns the documented supervisor defaults.
func DefaultConfig(fundID string) Config {
	return Config{
		FundID:               fundID,
		TickSchedule:         DefaultTickSchedule,
		EmergencyMultiplier:  DefaultEmergencyMultiplier,
		EmergencyStopEnabled: true,
		RebalanceOnViolation: true,
	}
}

// Validate checks the supervisor settings.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid fund config: %w", err)
	}
	return nil
}
