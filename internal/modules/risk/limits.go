package risk

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrInvalidLimits is returned when a limits or config value is out of range.
var ErrInvalidLimits = errors.New("invalid risk limits")

var validate = validator.New()

// Limits is the risk limit configuration. It is replaced wholesale through
// Engine.Configure; a zero upper limit disables that check.
type Limits struct {
	MaxDrawdown      float64 `json:"max_drawdown" msgpack:"max_drawdown" mapstructure:"max_drawdown" validate:"gte=0,lte=1"`
	MaxDailyLoss     float64 `json:"max_daily_loss" msgpack:"max_daily_loss" mapstructure:"max_daily_loss" validate:"gte=0,lte=1"`
	MaxWeeklyLoss    float64 `json:"max_weekly_loss" msgpack:"max_weekly_loss" mapstructure:"max_weekly_loss" validate:"gte=0,lte=1"`
	MaxLeverage      float64 `json:"max_leverage" msgpack:"max_leverage" mapstructure:"max_leverage" validate:"gte=0"`
	MaxConcentration float64 `json:"max_concentration" msgpack:"max_concentration" mapstructure:"max_concentration" validate:"gte=0,lte=1"`
	MaxVaR           float64 `json:"max_var" msgpack:"max_var" mapstructure:"max_var" validate:"gte=0,lte=1"`
	MinLiquidity     float64 `json:"min_liquidity" msgpack:"min_liquidity" mapstructure:"min_liquidity" validate:"gte=0,lte=1"`
}

// DefaultLimits returns the documented default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDrawdown:      0.20,
		MaxDailyLoss:     0.05,
		MaxWeeklyLoss:    0.10,
		MaxLeverage:      2.0,
		MaxConcentration: 0.30,
		MaxVaR:           0.10,
		MinLiquidity:     0.20,
	}
}

// Validate rejects negative or out-of-range limits.
func (l Limits) Validate() error {
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLimits, err)
	}
	if l.MaxWeeklyLoss > 0 && l.MaxDailyLoss > l.MaxWeeklyLoss {
		return fmt.Errorf("%w: max_daily_loss %.4f exceeds max_weekly_loss %.4f",
			ErrInvalidLimits, l.MaxDailyLoss, l.MaxWeeklyLoss)
	}
	return nil
}

// limitsWire has no methods so msgpack does not recurse into MarshalBinary.
type limitsWire Limits

// MarshalBinary encodes the limits as msgpack.
func (l Limits) MarshalBinary() ([]byte, error) {
	data, err := msgpack.Marshal((*limitsWire)(&l))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal limits: %w", err)
	}
	return data, nil
}

// UnmarshalBinary decodes msgpack limits and validates them.
func (l *Limits) UnmarshalBinary(data []byte) error {
	var decoded limitsWire
	if err := msgpack.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("failed to unmarshal limits: %w", err)
	}
	limits := Limits(decoded)
	if err := limits.Validate(); err != nil {
		return err
	}
	*l = limits
	return nil
}
