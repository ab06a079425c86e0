// Package risk scores portfolio exposure: Value-at-Risk, derived risk
// metrics, limit checks, stress scenarios and hedging triggers.
package risk

import "time"

// Method selects the VaR estimator.
type Method string

const (
	MethodHistorical Method = "historical"
	MethodParametric Method = "parametric"
	MethodMonteCarlo Method = "monte_carlo"
)

// Normalize maps unknown methods to historical.
func (m Method) Normalize() Method {
	switch m {
	case MethodHistorical, MethodParametric, MethodMonteCarlo:
		return m
	default:
		return MethodHistorical
	}
}

// Severity of a limit breach.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Limit names used in violations, alerts and events.
const (
	LimitVaR           = "var"
	LimitDrawdown      = "drawdown"
	LimitDailyLoss     = "daily_loss"
	LimitWeeklyLoss    = "weekly_loss"
	LimitLeverage      = "leverage"
	LimitConcentration = "concentration"
	LimitLiquidity     = "liquidity"
)

// VaRResult holds loss estimates in currency units, already scaled to the
// configured horizon.
type VaRResult struct {
	Method      Method  `json:"method"`
	VaR95       float64 `json:"var95"`
	VaR99       float64 `json:"var99"`
	CVaR        float64 `json:"cvar"`
	HorizonDays int     `json:"horizon_days"`
	Samples     int     `json:"samples"`
	Fallback    bool    `json:"fallback"`
}

// MetricsSnapshot is an immutable point-in-time risk assessment. VaR figures
// are fractions of portfolio value.
type MetricsSnapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	Method          Method    `json:"method"`
	PortfolioValue  float64   `json:"portfolio_value"`
	VaR95           float64   `json:"var95"`
	VaR99           float64   `json:"var99"`
	CVaR            float64   `json:"cvar"`
	Beta            float64   `json:"beta"`
	Sharpe          float64   `json:"sharpe"`
	Sortino         float64   `json:"sortino"`
	MaxDrawdown     float64   `json:"max_drawdown"`
	CurrentDrawdown float64   `json:"current_drawdown"`
	DailyReturn     float64   `json:"daily_return"`
	WeeklyReturn    float64   `json:"weekly_return"`
	Leverage        float64   `json:"leverage"`
	Concentration   float64   `json:"concentration"`
	Liquidity       float64   `json:"liquidity"`
	Samples         int       `json:"samples"`
	Positions       int       `json:"positions"`
	Empty           bool      `json:"empty"`
}

// Metric looks up a snapshot field by the name hedging triggers use.
func (m MetricsSnapshot) Metric(name string) (float64, bool) {
	switch name {
	case "var95":
		return m.VaR95, true
	case "var99", "var":
		return m.VaR99, true
	case "cvar":
		return m.CVaR, true
	case "beta":
		return m.Beta, true
	case "max_drawdown":
		return m.MaxDrawdown, true
	case "current_drawdown", "drawdown":
		return m.CurrentDrawdown, true
	case "leverage":
		return m.Leverage, true
	case "concentration":
		return m.Concentration, true
	case "liquidity":
		return m.Liquidity, true
	case "daily_loss":
		return -m.DailyReturn, true
	case "weekly_loss":
		return -m.WeeklyReturn, true
	default:
		return 0, false
	}
}

// LimitViolation describes one limit that was breached or nearly breached.
type LimitViolation struct {
	Limit     string   `json:"limit"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
}

// LimitCheckResult is the outcome of CheckLimits.
type LimitCheckResult struct {
	Timestamp  time.Time        `json:"timestamp"`
	Violations []LimitViolation `json:"violations"`
	Warnings   []LimitViolation `json:"warnings"`
	Passed     bool             `json:"passed"`
}

// HasCritical reports whether any violation is critical.
func (r LimitCheckResult) HasCritical() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Violated reports whether the named limit was breached.
func (r LimitCheckResult) Violated(limit string) bool {
	for _, v := range r.Violations {
		if v.Limit == limit {
			return true
		}
	}
	return false
}

// Alert is the retained record of a limit breach.
type Alert struct {
	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ID             string     `json:"id"`
	Limit          string     `json:"limit"`
	Severity       Severity   `json:"severity"`
	Message        string     `json:"message"`
	Value          float64    `json:"value"`
	Threshold      float64    `json:"threshold"`
	Acknowledged   bool       `json:"acknowledged"`
}

// StressScenario is a hypothetical market shock.
type StressScenario struct {
	ID                   string  `json:"id" mapstructure:"id" validate:"required"`
	Name                 string  `json:"name" mapstructure:"name"`
	MarketMove           float64 `json:"market_move" mapstructure:"market_move" validate:"gte=-1,lte=1"`
	VolatilityMultiplier float64 `json:"volatility_multiplier" mapstructure:"volatility_multiplier" validate:"gt=0"`
	DurationDays         int     `json:"duration_days" mapstructure:"duration_days" validate:"gte=0"`
	CorrelationBreakdown bool    `json:"correlation_breakdown" mapstructure:"correlation_breakdown"`
	LiquidityCrisis      bool    `json:"liquidity_crisis" mapstructure:"liquidity_crisis"`
}

// PositionImpact is the stressed outcome for a single position.
type PositionImpact struct {
	Asset         string  `json:"asset"`
	MarketValue   float64 `json:"market_value"`
	StressedValue float64 `json:"stressed_value"`
	Loss          float64 `json:"loss"`
	Beta          float64 `json:"beta"`
}

// StressTestResult aggregates a scenario over a position set. Loss figures
// are positive for losses.
type StressTestResult struct {
	Timestamp            time.Time        `json:"timestamp"`
	Scenario             StressScenario   `json:"scenario"`
	WorstPosition        string           `json:"worst_position,omitempty"`
	PositionImpacts      []PositionImpact `json:"position_impacts"`
	Recommendations      []string         `json:"recommendations"`
	PortfolioValue       float64          `json:"portfolio_value"`
	StressedValue        float64          `json:"stressed_value"`
	PortfolioLoss        float64          `json:"portfolio_loss"`
	PortfolioLossPercent float64          `json:"portfolio_loss_percent"`
	StressedVaR99        float64          `json:"stressed_var99"`
}

// Condition is the direction of a hedging trigger.
type Condition string

const (
	ConditionAbove Condition = "above"
	ConditionBelow Condition = "below"
)

// Urgency of a hedging recommendation.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// HedgingStrategy triggers when a snapshot metric crosses a threshold.
type HedgingStrategy struct {
	ID         string    `json:"id" mapstructure:"id" validate:"required"`
	Name       string    `json:"name" mapstructure:"name"`
	Instrument string    `json:"instrument" mapstructure:"instrument" validate:"required"`
	Metric     string    `json:"metric" mapstructure:"metric" validate:"required"`
	Condition  Condition `json:"condition" mapstructure:"condition" validate:"oneof=above below"`
	Threshold  float64   `json:"threshold" mapstructure:"threshold" validate:"gte=0"`
	HedgeRatio float64   `json:"hedge_ratio" mapstructure:"hedge_ratio" validate:"gte=0,lte=1"`
	Enabled    bool      `json:"enabled" mapstructure:"enabled"`
}

// HedgingRecommendation is produced by CheckHedgingNeeded.
type HedgingRecommendation struct {
	Timestamp  time.Time `json:"timestamp"`
	StrategyID string    `json:"strategy_id"`
	Instrument string    `json:"instrument"`
	Metric     string    `json:"metric"`
	Urgency    Urgency   `json:"urgency"`
	Reason     string    `json:"reason"`
	Value      float64   `json:"value"`
	Threshold  float64   `json:"threshold"`
	HedgeRatio float64   `json:"hedge_ratio"`
}
