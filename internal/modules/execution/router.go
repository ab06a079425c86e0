package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Router owns the order table of one fund. Orders are created pending and
// only the router moves them through their lifecycle.
type Router struct {
	mu       sync.Mutex
	cfg      Config
	prices   domain.PriceSource
	orders   map[string]*Order
	ids      []string
	consumed map[string]float64
	emitter  events.Emitter
	now      func() time.Time
	log      zerolog.Logger
}

// NewRouter creates a router that prices orders from prices.
func NewRouter(cfg Config, prices domain.PriceSource, log zerolog.Logger) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if prices == nil {
		prices = domain.PriceMap{}
	}
	return &Router{
		cfg:      cfg,
		prices:   prices,
		orders:   make(map[string]*Order),
		consumed: make(map[string]float64),
		emitter:  events.Nop{},
		now:      time.Now,
		log:      log.With().Str("service", "execution").Logger(),
	}, nil
}

// SetEmitter routes order events to emitter.
func (r *Router) SetEmitter(emitter events.Emitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if emitter == nil {
		emitter = events.Nop{}
	}
	r.emitter = emitter
}

// Config returns the router configuration.
func (r *Router) Config() Config {
	return r.cfg
}

func (r *Router) normalizeRequest(req Request) (Request, error) {
	req.Asset = domain.NormalizeAsset(req.Asset)
	if req.Strategy == "" {
		req.Strategy = r.cfg.DefaultStrategy
	}
	if !req.Strategy.Valid() {
		return req, fmt.Errorf("invalid order request: unknown strategy %q", req.Strategy)
	}
	if err := validate.Struct(req); err != nil {
		return req, fmt.Errorf("invalid order request: %w", err)
	}
	if req.SlippageTolerance == 0 {
		req.SlippageTolerance = r.cfg.SlippageTolerance
	}
	return req, nil
}

func (r *Router) resolvePrice(asset string, reference float64) (float64, bool) {
	if reference > 0 {
		return reference, true
	}
	p, ok := r.prices.Price(asset)
	return p, ok && p > 0
}

// CreateOrder validates req and stores a pending order.
func (r *Router) CreateOrder(req Request) (Order, error) {
	req, err := r.normalizeRequest(req)
	if err != nil {
		return Order{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	o := &Order{
		CreatedAt:         now,
		UpdatedAt:         now,
		ID:                uuid.NewString(),
		Asset:             req.Asset,
		Side:              req.Side,
		Strategy:          req.Strategy,
		Status:            StatusPending,
		Fills:             []Fill{},
		Quantity:          req.Quantity,
		LimitPrice:        req.LimitPrice,
		SlippageTolerance: req.SlippageTolerance,
		ReferencePrice:    req.ReferencePrice,
	}
	r.orders[o.ID] = o
	r.ids = append(r.ids, o.ID)

	r.log.Info().
		Str("order_id", o.ID).
		Str("asset", o.Asset).
		Str("side", string(o.Side)).
		Str("strategy", string(o.Strategy)).
		Float64("quantity", o.Quantity).
		Msg("Order created")

	r.emitOrder(o, "Order created")
	r.emitter.Emit(events.OrderIntentIssued, events.SeverityInfo, "execution", "Order intent issued", &events.OrderIntentData{
		OrderID:  o.ID,
		Asset:    o.Asset,
		Side:     string(o.Side),
		Strategy: string(o.Strategy),
		Quantity: o.Quantity,
	})
	return o.clone(), nil
}

// GetOrder returns a snapshot of the order.
func (r *Router) GetOrder(id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
	}
	return o.clone(), nil
}

// Orders returns snapshots of every order in creation order.
func (r *Router) Orders() []Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Order, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.orders[id].clone())
	}
	return out
}

// CancelOrder cancels an order that is neither filled nor already cancelled.
// A failed order can be cancelled to close it out.
// A partial order keeps its fills and gives up the remainder.
func (r *Router) CancelOrder(id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
	}
	if o.Status == StatusFilled || o.Status == StatusCancelled {
		return o.clone(), fmt.Errorf("order %s is %s: %w", id, o.Status, ErrOrderNotCancellable)
	}
	o.Status = StatusCancelled
	o.UpdatedAt = r.now()

	r.log.Info().Str("order_id", id).Msg("Order cancelled")
	r.emitOrder(o, "Order cancelled")
	return o.clone(), nil
}

// Execute works one pending order. Venue liquidity starts fresh.
func (r *Router) Execute(ctx context.Context, id string) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetCycle()
	return r.executeLocked(ctx, id)
}

// BeginCycle starts a fresh liquidity cycle for ExecuteInCycle calls.
func (r *Router) BeginCycle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetCycle()
}

// ExecuteInCycle works one pending order against the liquidity already
// consumed since the last BeginCycle, Execute or ExecuteBatch.
func (r *Router) ExecuteInCycle(ctx context.Context, id string) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.executeLocked(ctx, id)
}

// ExecuteBatch works orders sequentially in one liquidity cycle, so later
// orders see the liquidity earlier ones consumed. A failing order does not
// stop the batch.
func (r *Router) ExecuteBatch(ctx context.Context, ids []string) BatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetCycle()

	result := BatchResult{Reports: []Report{}, Errors: []string{}}
	for _, id := range ids {
		rep, err := r.executeLocked(ctx, id)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Reports = append(result.Reports, rep)
		result.TotalFees += rep.Order.TotalFees
		switch rep.Order.Status {
		case StatusFilled:
			result.Succeeded++
		case StatusPartial:
			result.Partial++
		default:
			result.Failed++
			if rep.Order.Error != "" {
				result.Errors = append(result.Errors, fmt.Sprintf("order %s: %s", id, rep.Order.Error))
			}
		}
	}

	r.log.Info().
		Int("orders", len(ids)).
		Int("succeeded", result.Succeeded).
		Int("partial", result.Partial).
		Int("failed", result.Failed).
		Msg("Batch executed")
	return result
}

func (r *Router) resetCycle() {
	r.consumed = make(map[string]float64)
}

func (r *Router) executeLocked(ctx context.Context, id string) (Report, error) {
	o, ok := r.orders[id]
	if !ok {
		return Report{}, fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
	}
	if o.Status != StatusPending {
		return Report{}, fmt.Errorf("order %s is %s: %w", id, o.Status, ErrOrderNotExecutable)
	}
	if err := ctx.Err(); err != nil {
		return Report{}, fmt.Errorf("failed to execute order %s: %w", id, err)
	}

	o.Status = StatusOpen
	o.UpdatedAt = r.now()

	price, ok := r.resolvePrice(o.Asset, o.ReferencePrice)
	if !ok {
		o.Error = fmt.Sprintf("no price available for %s", o.Asset)
		o.Status = StatusFailed
		r.log.Warn().Str("order_id", id).Str("asset", o.Asset).Msg("Order failed: no price")
		r.emitOrder(o, "Order failed")
		return Report{Order: o.clone(), Warnings: []string{}}, nil
	}

	baseline := make(map[string]float64, len(r.consumed))
	for k, v := range r.consumed {
		baseline[k] = v
	}
	route := r.planRoute(o.Asset, o.Side, o.Quantity, price, baseline)

	var notes []string
	switch o.Strategy {
	case StrategyTWAP:
		notes = r.runSliced(o, route, price, baseline, equalSlices(r.cfg.TWAPSlices))
	case StrategyVWAP:
		notes = r.runSliced(o, route, price, baseline, profileSlices(r.cfg.VWAPProfile))
	default:
		notes = r.runImmediate(o, route)
	}

	r.settle(o, notes)
	rep := Report{Order: o.clone(), Route: route, Warnings: []string{}}
	if o.FilledQuantity > 0 {
		rep.Slippage = (o.AveragePrice - price) / price
		if o.Side == domain.SideSell {
			rep.Slippage = -rep.Slippage
		}
		if rep.Slippage > o.SlippageTolerance {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("slippage %.4f exceeds tolerance %.4f", rep.Slippage, o.SlippageTolerance))
		}
	}
	rep.Warnings = append(rep.Warnings, notes...)
	rep.Success = o.Status == StatusFilled

	level := r.log.Info()
	if o.Status != StatusFilled {
		level = r.log.Warn()
	}
	level.
		Str("order_id", id).
		Str("status", string(o.Status)).
		Float64("filled", o.FilledQuantity).
		Float64("average_price", o.AveragePrice).
		Float64("fees", o.TotalFees).
		Msg("Order executed")

	r.emitOrder(o, "Order "+string(o.Status))
	return rep, nil
}

// settle derives status and averages from the accumulated fills.
func (r *Router) settle(o *Order, notes []string) {
	var qty, notional, fees, gas float64
	for _, f := range o.Fills {
		qty += f.Quantity
		notional += f.Quantity * f.Price
		fees += f.Fee + f.GasCost
		gas += f.GasCost
	}
	o.FilledQuantity = qty
	o.TotalFees = fees
	o.GasCost = gas
	if qty > 0 {
		o.AveragePrice = notional / qty
	}

	switch {
	case qty >= FillRatio*o.Quantity:
		o.Status = StatusFilled
	case qty > 0:
		o.Status = StatusPartial
	default:
		o.Status = StatusFailed
		if len(notes) > 0 {
			o.Error = notes[0]
		} else {
			o.Error = "nothing filled"
		}
	}
	o.UpdatedAt = r.now()
}

func (r *Router) emitOrder(o *Order, message string) {
	severity := events.SeverityInfo
	if o.Status == StatusFailed {
		severity = events.SeverityWarning
	}
	data := &events.OrderData{
		OrderID:      o.ID,
		Asset:        o.Asset,
		Side:         string(o.Side),
		Strategy:     string(o.Strategy),
		Status:       string(o.Status),
		Quantity:     o.Quantity,
		FilledQty:    o.FilledQuantity,
		AveragePrice: o.AveragePrice,
		TotalFees:    o.TotalFees,
	}
	r.emitter.Emit(data.EventType(), severity, "execution", message, data)
}
