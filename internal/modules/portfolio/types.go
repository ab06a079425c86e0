// Package portfolio owns the in-memory view of positions, cash and
// allocation, measures drift against the target allocation and produces
// rebalance orders.
package portfolio

import (
	"time"

	"github.com/aristath/fundcore/internal/domain"
)

// Frequency is the rebalance cadence.
type Frequency string

const (
	FrequencyHourly  Frequency = "hourly"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Next returns the first rebalance time after from.
func (f Frequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyHourly:
		return from.Add(time.Hour)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from.AddDate(0, 0, 1)
	}
}

// OptimizationMethod selects how OptimizeAllocation builds weights.
type OptimizationMethod string

const (
	MethodEqualWeight    OptimizationMethod = "equal_weight"
	MethodRiskParity     OptimizationMethod = "risk_parity"
	MethodMeanVariance   OptimizationMethod = "mean_variance"
	MethodBlackLitterman OptimizationMethod = "black_litterman"
)

// Performance is the rolling snapshot derived from the return buffer.
type Performance struct {
	Sharpe          float64 `json:"sharpe"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	CurrentDrawdown float64 `json:"current_drawdown"`
	Volatility      float64 `json:"volatility"`
	TotalReturn     float64 `json:"total_return"`
	Observations    int     `json:"observations"`
}

// State is a copy of the tracker's portfolio view. Positions are sorted by asset.
type State struct {
	UpdatedAt     time.Time          `json:"updated_at"`
	LastRebalance time.Time          `json:"last_rebalance"`
	NextRebalance time.Time          `json:"next_rebalance"`
	Positions     []domain.Position  `json:"positions"`
	Allocation    map[string]float64 `json:"allocation"`
	Target        map[string]float64 `json:"target"`
	Performance   Performance        `json:"performance"`
	TotalValue    float64            `json:"total_value"`
	Cash          float64            `json:"cash"`
}

// Position returns the held position for an asset.
func (s State) Position(asset string) (domain.Position, bool) {
	for _, p := range s.Positions {
		if p.Asset == asset {
			return p, true
		}
	}
	return domain.Position{}, false
}

// StateUpdate merges any subset of fields into the state. Nil fields are left
// untouched; a non-nil Positions slice replaces the whole position set.
type StateUpdate struct {
	TotalValue    *float64           `json:"total_value,omitempty"`
	Cash          *float64           `json:"cash,omitempty"`
	Positions     []domain.Position  `json:"positions,omitempty"`
	Prices        map[string]float64 `json:"prices,omitempty"`
	LastRebalance *time.Time         `json:"last_rebalance,omitempty"`
	NextRebalance *time.Time         `json:"next_rebalance,omitempty"`
}

// AssetDrift is the deviation of one asset from its target weight.
type AssetDrift struct {
	Asset   string  `json:"asset"`
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
	Drift   float64 `json:"drift"`
}

// RebalanceCheck reports per-asset drifts and whether they add up past the
// threshold.
type RebalanceCheck struct {
	Timestamp  time.Time    `json:"timestamp"`
	Drifts     []AssetDrift `json:"drifts"`
	TotalDrift float64      `json:"total_drift"`
	Threshold  float64      `json:"threshold"`
	Needed     bool         `json:"needed"`
}

// RebalanceOrder is a one-cycle instruction from the tracker to execution.
type RebalanceOrder struct {
	Asset          string      `json:"asset"`
	Side           domain.Side `json:"side"`
	Quantity       float64     `json:"quantity"`
	Price          float64     `json:"price"`
	EstimatedValue float64     `json:"estimated_value"`
	CurrentWeight  float64     `json:"current_weight"`
	TargetWeight   float64     `json:"target_weight"`
	Priority       int         `json:"priority"`
}

// Fill is a realised execution fed back into the portfolio.
type Fill struct {
	OrderID  string      `json:"order_id,omitempty"`
	Asset    string      `json:"asset"`
	Side     domain.Side `json:"side"`
	Quantity float64     `json:"quantity"`
	Price    float64     `json:"price"`
	Fees     float64     `json:"fees"`
	Partial  bool        `json:"partial"`
}

// Notional is quantity × price.
func (f Fill) Notional() float64 {
	return f.Quantity * f.Price
}

// RebalanceResult summarises one rebalance cycle. Individual order failures
// are counted, never fatal.
type RebalanceResult struct {
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    time.Time        `json:"completed_at"`
	Orders         []RebalanceOrder `json:"orders"`
	Fills          []Fill           `json:"fills"`
	Errors         []string         `json:"errors"`
	Duration       time.Duration    `json:"duration"`
	TotalFees      float64          `json:"total_fees"`
	OrdersExecuted int              `json:"orders_executed"`
	OrdersFailed   int              `json:"orders_failed"`
	Success        bool             `json:"success"`
}

// AllocationConstraints bound OptimizeAllocation. Zero values mean
// unconstrained; an empty method uses the configured one.
type AllocationConstraints struct {
	Method         OptimizationMethod `json:"method,omitempty"`
	Assets         []string           `json:"assets,omitempty"`
	MaxSingleAsset float64            `json:"max_single_asset,omitempty" validate:"gte=0,lte=1"`
}

// OptimalAllocation is a normalized weight set including cash.
type OptimalAllocation struct {
	Timestamp time.Time          `json:"timestamp"`
	Method    OptimizationMethod `json:"method"`
	Weights   map[string]float64 `json:"weights"`
}
