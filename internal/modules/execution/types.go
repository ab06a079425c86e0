// Package execution routes orders across liquidity venues and simulates
// their fills under immediate, TWAP, VWAP and smart-routing strategies.
package execution

import (
	"errors"
	"time"

	"github.com/aristath/fundcore/internal/domain"
)

var (
	// ErrOrderNotFound is returned for unknown order ids.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotCancellable is returned when cancelling a filled or cancelled order.
	ErrOrderNotCancellable = errors.New("order cannot be cancelled")
	// ErrOrderNotExecutable is returned when executing an order that is no longer pending.
	ErrOrderNotExecutable = errors.New("order is not pending")
	// ErrNoPrice is returned when neither the request nor the price source has a price.
	ErrNoPrice = errors.New("no price available")
)

// Strategy is how an order is worked.
type Strategy string

const (
	StrategyImmediate    Strategy = "immediate"
	StrategyTWAP         Strategy = "twap"
	StrategyVWAP         Strategy = "vwap"
	StrategySmartRouting Strategy = "smart_routing"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyImmediate, StrategyTWAP, StrategyVWAP, StrategySmartRouting:
		return true
	}
	return false
}

// Status of an order: pending, open, then one of the terminal outcomes.
type Status string

const (
	StatusPending   Status = "pending"
	StatusOpen      Status = "open"
	StatusFilled    Status = "filled"
	StatusPartial   Status = "partial"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusFailed
}

// Request asks the router to create, route or estimate an order. Zero
// LimitPrice is a market order; zero ReferencePrice reads the price source.
type Request struct {
	Asset             string      `json:"asset" validate:"required"`
	Side              domain.Side `json:"side" validate:"oneof=buy sell"`
	Strategy          Strategy    `json:"strategy,omitempty"`
	Quantity          float64     `json:"quantity" validate:"gt=0"`
	LimitPrice        float64     `json:"limit_price,omitempty" validate:"gte=0"`
	SlippageTolerance float64     `json:"slippage_tolerance,omitempty" validate:"gte=0,lte=1"`
	ReferencePrice    float64     `json:"reference_price,omitempty" validate:"gte=0"`
}

// Fill is one execution against a venue.
type Fill struct {
	Timestamp time.Time `json:"timestamp"`
	Venue     string    `json:"venue"`
	Slice     int       `json:"slice"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Fee       float64   `json:"fee"`
	GasCost   float64   `json:"gas_cost"`
}

// Order is a snapshot of an order record. Only the Router mutates the
// underlying record.
type Order struct {
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	ID                string      `json:"id"`
	Asset             string      `json:"asset"`
	Side              domain.Side `json:"side"`
	Strategy          Strategy    `json:"strategy"`
	Status            Status      `json:"status"`
	Error             string      `json:"error,omitempty"`
	Fills             []Fill      `json:"fills"`
	Quantity          float64     `json:"quantity"`
	LimitPrice        float64     `json:"limit_price,omitempty"`
	SlippageTolerance float64     `json:"slippage_tolerance"`
	ReferencePrice    float64     `json:"reference_price,omitempty"`
	FilledQuantity    float64     `json:"filled_quantity"`
	AveragePrice      float64     `json:"average_price"`
	TotalFees         float64     `json:"total_fees"`
	GasCost           float64     `json:"gas_cost"`
}

// Remaining is the unfilled quantity.
func (o Order) Remaining() float64 {
	if r := o.Quantity - o.FilledQuantity; r > 0 {
		return r
	}
	return 0
}

func (o Order) clone() Order {
	o.Fills = append([]Fill(nil), o.Fills...)
	if o.Fills == nil {
		o.Fills = []Fill{}
	}
	return o
}

// Venue is a simulated liquidity venue. Liquidity is the notional it can
// absorb per execution cycle.
type Venue struct {
	Name      string  `json:"name" mapstructure:"name" validate:"required"`
	Fee       float64 `json:"fee" mapstructure:"fee" validate:"gte=0,lt=1"`
	Liquidity float64 `json:"liquidity" mapstructure:"liquidity" validate:"gt=0"`
	GasCost   float64 `json:"gas_cost" mapstructure:"gas_cost" validate:"gte=0"`
}

// RouteSegment is the part of an order sent to one venue.
type RouteSegment struct {
	Venue         string  `json:"venue"`
	Quantity      float64 `json:"quantity"`
	ExpectedPrice float64 `json:"expected_price"`
	Impact        float64 `json:"impact"`
	Liquidity     float64 `json:"liquidity"`
	Fee           float64 `json:"fee"`
	GasCost       float64 `json:"gas_cost"`
}

// Route is the venue plan for an order.
type Route struct {
	Asset         string         `json:"asset"`
	Side          domain.Side    `json:"side"`
	Segments      []RouteSegment `json:"segments"`
	Quantity      float64        `json:"quantity"`
	BasePrice     float64        `json:"base_price"`
	Notional      float64        `json:"notional"`
	ExpectedPrice float64        `json:"expected_price"`
	Split         bool           `json:"split"`
}

// Primary is the first segment.
func (r Route) Primary() RouteSegment {
	if len(r.Segments) == 0 {
		return RouteSegment{}
	}
	return r.Segments[0]
}

// Report is the outcome of executing one order.
type Report struct {
	Order    Order    `json:"order"`
	Route    Route    `json:"route"`
	Warnings []string `json:"warnings"`
	Slippage float64  `json:"slippage"`
	Success  bool     `json:"success"`
}

// BatchResult aggregates sequential execution of several orders.
type BatchResult struct {
	Reports   []Report `json:"reports"`
	Errors    []string `json:"errors"`
	TotalFees float64  `json:"total_fees"`
	Succeeded int      `json:"succeeded"`
	Partial   int      `json:"partial"`
	Failed    int      `json:"failed"`
}

// Estimate is a read-only projection of executing a request now.
type Estimate struct {
	Route         Route    `json:"route"`
	Warnings      []string `json:"warnings"`
	ExpectedPrice float64  `json:"expected_price"`
	PriceImpact   float64  `json:"price_impact"`
	Slippage      float64  `json:"slippage"`
	Fees          float64  `json:"fees"`
	GasCost       float64  `json:"gas_cost"`
	TotalCost     float64  `json:"total_cost"`
}
