// Package domain provides the types shared by the risk, portfolio, execution
// and fund modules.
package domain

import (
	"strings"
	"time"
)

// CashAsset is the synthetic allocation key holding the uninvested share of
// the portfolio.
const CashAsset = "cash"

// NormalizeAsset returns the canonical key for an asset symbol: trimmed and
// upper-cased, except the cash key which stays CashAsset in any case.
func NormalizeAsset(asset string) string {
	asset = strings.TrimSpace(asset)
	if strings.EqualFold(asset, CashAsset) {
		return CashAsset
	}
	return strings.ToUpper(asset)
}

// Currency represents a currency code
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// Side is the direction of an order
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether the side is buy or sell.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Sign returns +1 for buys and -1 for sells.
func (s Side) Sign() float64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// ParseSide accepts the side in any letter case.
func ParseSide(v string) (Side, bool) {
	s := Side(strings.ToLower(strings.TrimSpace(v)))
	return s, s.Valid()
}

// Position represents a portfolio position
type Position struct {
	OpenedAt             time.Time `json:"opened_at"`
	Asset                string    `json:"asset"`
	Quantity             float64   `json:"quantity"`
	AverageCost          float64   `json:"average_cost"`
	CurrentPrice         float64   `json:"current_price"`
	MarketValue          float64   `json:"market_value"`
	UnrealizedPnL        float64   `json:"unrealized_pnl"`
	UnrealizedPnLPercent float64   `json:"unrealized_pnl_percent"`
	Weight               float64   `json:"weight"`
}

// Revalue recomputes the derived fields from quantity, prices and the
// portfolio total. A non-positive total leaves the weight at zero.
func (p *Position) Revalue(totalValue float64) {
	p.MarketValue = p.Quantity * p.CurrentPrice

	costBasis := p.Quantity * p.AverageCost
	p.UnrealizedPnL = p.MarketValue - costBasis
	p.UnrealizedPnLPercent = 0
	if costBasis != 0 {
		p.UnrealizedPnLPercent = p.UnrealizedPnL / costBasis
	}

	p.Weight = 0
	if totalValue > 0 {
		p.Weight = p.MarketValue / totalValue
	}
}

// OrderIntent is the abstract instruction handed to the custody layer. It has
// to be authorized and signed outside this core before any settlement.
type OrderIntent struct {
	CreatedAt time.Time `json:"created_at"`
	OrderID   string    `json:"order_id"`
	Asset     string    `json:"asset"`
	Side      Side      `json:"side"`
	Strategy  string    `json:"strategy"`
	Quantity  float64   `json:"quantity"`
}
