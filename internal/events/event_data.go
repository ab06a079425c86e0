package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// RiskMetricsData contains data for RiskMetricsCalculated events
type RiskMetricsData struct {
	FundID        string  `json:"fund_id"`
	Version       uint64  `json:"version"`
	VaR95         float64 `json:"var95"`
	VaR99         float64 `json:"var99"`
	CVaR          float64 `json:"cvar"`
	Drawdown      float64 `json:"drawdown"`
	Leverage      float64 `json:"leverage"`
	Concentration float64 `json:"concentration"`
	Liquidity     float64 `json:"liquidity"`
}

// EventType returns the event type for RiskMetricsData
func (d *RiskMetricsData) EventType() EventType {
	return RiskMetricsCalculated
}

// LimitBreachData contains data for RiskLimitViolation and RiskLimitWarning events
type LimitBreachData struct {
	Limit     string  `json:"limit"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Severity  string  `json:"severity"`
	Warning   bool    `json:"warning"`
}

// EventType returns the event type for LimitBreachData
func (d *LimitBreachData) EventType() EventType {
	if d.Warning {
		return RiskLimitWarning
	}
	return RiskLimitViolation
}

// LimitsConfiguredData contains data for RiskLimitsConfigured events
type LimitsConfiguredData struct {
	MaxDrawdown      float64 `json:"max_drawdown"`
	MaxLeverage      float64 `json:"max_leverage"`
	MaxConcentration float64 `json:"max_concentration"`
	MaxVaR           float64 `json:"max_var"`
	MinLiquidity     float64 `json:"min_liquidity"`
}

// EventType returns the event type for LimitsConfiguredData
func (d *LimitsConfiguredData) EventType() EventType {
	return RiskLimitsConfigured
}

// HedgingData contains data for HedgingRecommended events
type HedgingData struct {
	StrategyID string  `json:"strategy_id"`
	Instrument string  `json:"instrument"`
	Metric     string  `json:"metric"`
	Value      float64 `json:"value"`
	Threshold  float64 `json:"threshold"`
	Urgency    string  `json:"urgency"`
	HedgeRatio float64 `json:"hedge_ratio"`
}

// EventType returns the event type for HedgingData
func (d *HedgingData) EventType() EventType {
	return HedgingRecommended
}

// StressTestData contains data for StressTestCompleted events
type StressTestData struct {
	ScenarioID           string  `json:"scenario_id"`
	PortfolioLoss        float64 `json:"portfolio_loss"`
	PortfolioLossPercent float64 `json:"portfolio_loss_percent"`
	WorstPosition        string  `json:"worst_position,omitempty"`
}

// EventType returns the event type for StressTestData
func (d *StressTestData) EventType() EventType {
	return StressTestCompleted
}

// PortfolioStateData contains data for PortfolioStateUpdated events
type PortfolioStateData struct {
	TotalValue float64 `json:"total_value"`
	Cash       float64 `json:"cash"`
	Positions  int     `json:"positions"`
}

// EventType returns the event type for PortfolioStateData
func (d *PortfolioStateData) EventType() EventType {
	return PortfolioStateUpdated
}

// CashFlowData contains data for CashFlowApplied events
type CashFlowData struct {
	Amount     float64 `json:"amount"`
	Cash       float64 `json:"cash"`
	TotalValue float64 `json:"total_value"`
}

// EventType returns the event type for CashFlowData
func (d *CashFlowData) EventType() EventType {
	return CashFlowApplied
}

// RebalanceData contains data for RebalanceTriggered and RebalanceCompleted events
type RebalanceData struct {
	Reason         string   `json:"reason,omitempty"`
	TotalDrift     float64  `json:"total_drift,omitempty"`
	Orders         int      `json:"orders"`
	OrdersExecuted int      `json:"orders_executed"`
	OrdersFailed   int      `json:"orders_failed"`
	TotalFees      float64  `json:"total_fees"`
	DurationMs     int64    `json:"duration_ms"`
	Errors         []string `json:"errors,omitempty"`
	Completed      bool     `json:"completed"`
}

// EventType returns the event type for RebalanceData
func (d *RebalanceData) EventType() EventType {
	if d.Completed {
		return RebalanceCompleted
	}
	return RebalanceTriggered
}

// OrderData contains data for order lifecycle events
type OrderData struct {
	OrderID      string  `json:"order_id"`
	Asset        string  `json:"asset"`
	Side         string  `json:"side"`
	Strategy     string  `json:"strategy"`
	Status       string  `json:"status"`
	Quantity     float64 `json:"quantity"`
	FilledQty    float64 `json:"filled_quantity"`
	AveragePrice float64 `json:"average_price"`
	TotalFees    float64 `json:"total_fees"`
}

// EventType returns the event type for OrderData
func (d *OrderData) EventType() EventType {
	switch d.Status {
	case "filled":
		return OrderFilled
	case "partial":
		return OrderPartiallyFilled
	case "failed":
		return OrderFailed
	case "cancelled":
		return OrderCancelled
	default:
		return OrderCreated
	}
}

// OrderIntentData contains data for OrderIntentIssued events
type OrderIntentData struct {
	OrderID  string  `json:"order_id"`
	Asset    string  `json:"asset"`
	Side     string  `json:"side"`
	Strategy string  `json:"strategy"`
	Quantity float64 `json:"quantity"`
}

// EventType returns the event type for OrderIntentData
func (d *OrderIntentData) EventType() EventType {
	return OrderIntentIssued
}

// FundStateData contains data for FundStateChanged events
type FundStateData struct {
	FundID string `json:"fund_id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// EventType returns the event type for FundStateData
func (d *FundStateData) EventType() EventType {
	return FundStateChanged
}

// EmergencyStopData contains data for EmergencyStop events
type EmergencyStopData struct {
	FundID      string  `json:"fund_id"`
	Drawdown    float64 `json:"drawdown"`
	MaxDrawdown float64 `json:"max_drawdown"`
	Multiplier  float64 `json:"multiplier"`
}

// EventType returns the event type for EmergencyStopData
func (d *EmergencyStopData) EventType() EventType {
	return EmergencyStop
}

// TickData contains data for TickCompleted events
type TickData struct {
	FundID          string `json:"fund_id"`
	Sequence        uint64 `json:"sequence"`
	Violations      int    `json:"violations"`
	Warnings        int    `json:"warnings"`
	RebalanceNeeded bool   `json:"rebalance_needed"`
	Rebalanced      bool   `json:"rebalanced"`
	DurationMs      int64  `json:"duration_ms"`
}

// EventType returns the event type for TickData
func (d *TickData) EventType() EventType {
	return TickCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
