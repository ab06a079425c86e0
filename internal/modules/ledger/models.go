package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderRecord is a persisted order with its fills.
type OrderRecord struct {
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ID             string          `json:"id"`
	FundID         string          `json:"fund_id"`
	Asset          string          `json:"asset"`
	Side           string          `json:"side"`
	Strategy       string          `json:"strategy"`
	Status         string          `json:"status"`
	Error          string          `json:"error,omitempty"`
	Fills          []FillRecord    `json:"fills"`
	Quantity       decimal.Decimal `json:"quantity"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	AveragePrice   decimal.Decimal `json:"average_price"`
	TotalFees      decimal.Decimal `json:"total_fees"`
}

// FillRecord is a persisted fill.
type FillRecord struct {
	ExecutedAt time.Time       `json:"executed_at"`
	Venue      string          `json:"venue"`
	Slice      int             `json:"slice"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Fee        decimal.Decimal `json:"fee"`
	GasCost    decimal.Decimal `json:"gas_cost"`
}

// TickRecord is a persisted tick summary. Report holds the full tick.
type TickRecord struct {
	StartedAt       time.Time `json:"started_at"`
	FundID          string    `json:"fund_id"`
	State           string    `json:"state"`
	ID              int64     `json:"id"`
	Sequence        uint64    `json:"sequence"`
	SnapshotVersion uint64    `json:"snapshot_version"`
	Violations      int       `json:"violations"`
	Warnings        int       `json:"warnings"`
	VaR99           float64   `json:"var99"`
	CurrentDrawdown float64   `json:"current_drawdown"`
	Rebalanced      bool      `json:"rebalanced"`
	EmergencyStop   bool      `json:"emergency_stop"`
}

// FeeSummary totals fees over filled and partial orders.
type FeeSummary struct {
	Orders    int             `json:"orders"`
	TotalFees decimal.Decimal `json:"total_fees"`
}
