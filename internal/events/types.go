// Package events provides the fund's event stream: typed event payloads, a
// bounded publish/subscribe bus and the manager that emits and logs events.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Risk events
	RiskMetricsCalculated EventType = "RISK_METRICS_CALCULATED"
	RiskLimitViolation    EventType = "RISK_LIMIT_VIOLATION"
	RiskLimitWarning      EventType = "RISK_LIMIT_WARNING"
	RiskLimitsConfigured  EventType = "RISK_LIMITS_CONFIGURED"
	HedgingRecommended    EventType = "HEDGING_RECOMMENDED"
	StressTestCompleted   EventType = "STRESS_TEST_COMPLETED"

	// Portfolio events
	PortfolioStateUpdated EventType = "PORTFOLIO_STATE_UPDATED"
	CashFlowApplied       EventType = "CASH_FLOW_APPLIED"
	RebalanceTriggered    EventType = "REBALANCE_TRIGGERED"
	RebalanceCompleted    EventType = "REBALANCE_COMPLETED"

	// Execution events
	OrderCreated         EventType = "ORDER_CREATED"
	OrderIntentIssued    EventType = "ORDER_INTENT_ISSUED"
	OrderFilled          EventType = "ORDER_FILLED"
	OrderPartiallyFilled EventType = "ORDER_PARTIALLY_FILLED"
	OrderFailed          EventType = "ORDER_FAILED"
	OrderCancelled       EventType = "ORDER_CANCELLED"

	// Fund events
	FundStateChanged EventType = "FUND_STATE_CHANGED"
	EmergencyStop    EventType = "EMERGENCY_STOP"
	TickCompleted    EventType = "TICK_COMPLETED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"
)

// Category groups event types into independently subscribable streams.
type Category string

const (
	CategoryRisk      Category = "risk"
	CategoryPortfolio Category = "portfolio"
	CategoryExecution Category = "execution"
	CategoryFund      Category = "fund"

	// CategoryAll receives every event regardless of category.
	CategoryAll Category = "*"
)

// Categories lists the concrete categories in a stable order.
func Categories() []Category {
	return []Category{CategoryRisk, CategoryPortfolio, CategoryExecution, CategoryFund}
}

var typeCategories = map[EventType]Category{
	RiskMetricsCalculated: CategoryRisk,
	RiskLimitViolation:    CategoryRisk,
	RiskLimitWarning:      CategoryRisk,
	RiskLimitsConfigured:  CategoryRisk,
	HedgingRecommended:    CategoryRisk,
	StressTestCompleted:   CategoryRisk,
	PortfolioStateUpdated: CategoryPortfolio,
	CashFlowApplied:       CategoryPortfolio,
	RebalanceTriggered:    CategoryPortfolio,
	RebalanceCompleted:    CategoryPortfolio,
	OrderCreated:          CategoryExecution,
	OrderIntentIssued:     CategoryExecution,
	OrderFilled:           CategoryExecution,
	OrderPartiallyFilled:  CategoryExecution,
	OrderFailed:           CategoryExecution,
	OrderCancelled:        CategoryExecution,
	FundStateChanged:      CategoryFund,
	EmergencyStop:         CategoryFund,
	TickCompleted:         CategoryFund,
	ErrorOccurred:         CategoryFund,
}

// Category returns the stream an event type is published on.
func (t EventType) Category() Category {
	if c, ok := typeCategories[t]; ok {
		return c
	}
	return CategoryFund
}

// Severity classifies how urgently consumers should react.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event represents a fund event delivered to subscribers
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Category  Category               `json:"category"`
	Severity  Severity               `json:"severity"`
	Source    string                 `json:"source"`
	Message   string                 `json:"message"`
}
