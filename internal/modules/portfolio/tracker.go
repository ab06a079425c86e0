package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/internal/events"
	"github.com/rs/zerolog"
)

// Executor carries out one rebalance order. Implementations must not call
// back into the Tracker.
type Executor interface {
	ExecuteRebalanceOrder(ctx context.Context, order RebalanceOrder) (Fill, error)
}

// CycleExecutor is an Executor whose orders within one rebalance share venue
// liquidity. BeginCycle is called once before the first order of each
// rebalance.
type CycleExecutor interface {
	Executor
	BeginCycle()
}

// Tracker is the single owner of a fund's portfolio state.
type Tracker struct {
	mu            sync.Mutex
	cfg           Config
	target        map[string]float64
	positions     map[string]domain.Position
	allocation    map[string]float64
	prices        map[string]float64
	priceHistory  map[string][]float64
	returns       []float64
	performance   Performance
	cash          float64
	totalValue    float64
	updatedAt     time.Time
	lastRebalance time.Time
	nextRebalance time.Time
	executor      Executor
	emitter       events.Emitter
	now           func() time.Time
	log           zerolog.Logger
}

// NewTracker creates an empty tracker: no positions, no cash, allocation
// entirely in cash.
func NewTracker(cfg Config, log zerolog.Logger) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{
		cfg:          cfg,
		target:       normalizeTarget(cfg.TargetAllocation),
		positions:    make(map[string]domain.Position),
		allocation:   map[string]float64{domain.CashAsset: 1},
		prices:       make(map[string]float64),
		priceHistory: make(map[string][]float64),
		emitter:      events.Nop{},
		now:          time.Now,
		log:          log.With().Str("service", "portfolio").Logger(),
	}, nil
}

// SetExecutor routes ExecuteRebalance through e. A nil executor restores the
// optimistic simulated path.
func (t *Tracker) SetExecutor(e Executor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.executor = e
}

// SetEmitter routes tracker events to e.
func (t *Tracker) SetEmitter(e events.Emitter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e == nil {
		e = events.Nop{}
	}
	t.emitter = e
}

// State returns a deep copy of the portfolio.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

func (t *Tracker) snapshot() State {
	positions := make([]domain.Position, 0, len(t.positions))
	for _, p := range t.positions {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Asset < positions[j].Asset })

	return State{
		UpdatedAt:     t.updatedAt,
		LastRebalance: t.lastRebalance,
		NextRebalance: t.nextRebalance,
		Positions:     positions,
		Allocation:    copyTarget(t.allocation),
		Target:        copyTarget(t.target),
		Performance:   t.performance,
		TotalValue:    t.totalValue,
		Cash:          t.cash,
	}
}

// Returns returns a copy of the rolling return buffer.
func (t *Tracker) Returns() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]float64(nil), t.returns...)
}

// Target returns the target allocation.
func (t *Tracker) Target() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyTarget(t.target)
}

// SetTargetAllocation replaces the target weights.
func (t *Tracker) SetTargetAllocation(targets map[string]float64) error {
	if err := ValidateTarget(targets); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.target = normalizeTarget(targets)
	t.log.Info().Int("assets", len(targets)).Msg("Target allocation updated")
	return nil
}

// UpdateState merges a partial update. Any change to positions, prices, cash
// or total value recomputes weights and appends one return observation.
func (t *Tracker) UpdateState(update StateUpdate) error {
	update = normalizeUpdate(update)
	if err := validateUpdate(update); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	valueChanged := false
	if update.Positions != nil {
		t.positions = make(map[string]domain.Position, len(update.Positions))
		for _, p := range update.Positions {
			if p.OpenedAt.IsZero() {
				p.OpenedAt = t.now().UTC()
			}
			t.positions[p.Asset] = p
			t.markPrice(p.Asset, p.CurrentPrice)
		}
		valueChanged = true
	}
	for asset, price := range update.Prices {
		t.markPrice(asset, price)
		if p, ok := t.positions[asset]; ok {
			p.CurrentPrice = price
			t.positions[asset] = p
			valueChanged = true
		}
	}
	if update.Cash != nil {
		t.cash = *update.Cash
		valueChanged = true
	}
	if update.TotalValue != nil {
		valueChanged = true
	}
	if update.LastRebalance != nil {
		t.lastRebalance = *update.LastRebalance
	}
	if update.NextRebalance != nil {
		t.nextRebalance = *update.NextRebalance
	}

	if valueChanged {
		t.recompute(update.TotalValue, true)
	}
	t.updatedAt = t.now().UTC()

	t.emitter.Emit(events.PortfolioStateUpdated, events.SeverityInfo, "portfolio", "Portfolio state updated", &events.PortfolioStateData{
		TotalValue: t.totalValue,
		Cash:       t.cash,
		Positions:  len(t.positions),
	})
	return nil
}

// ApplyCashFlow folds an investor inflow (positive) or outflow (negative)
// into cash. Cash flows change value without being investment returns, so no
// return observation is recorded.
func (t *Tracker) ApplyCashFlow(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("invalid cash flow amount %v", amount)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cash+amount < 0 {
		return fmt.Errorf("cash flow of %.2f exceeds available cash %.2f", amount, t.cash)
	}
	t.cash += amount
	t.recompute(nil, false)
	t.updatedAt = t.now().UTC()

	t.log.Info().Float64("amount", amount).Float64("cash", t.cash).Msg("Cash flow applied")
	t.emitter.Emit(events.CashFlowApplied, events.SeverityInfo, "portfolio", "Cash flow applied", &events.CashFlowData{
		Amount:     amount,
		Cash:       t.cash,
		TotalValue: t.totalValue,
	})
	return nil
}

// ApplyFills books realised executions. Fills are validated up front; if any
// is invalid none are applied.
func (t *Tracker) ApplyFills(fills []Fill) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	fills = append([]Fill(nil), fills...)
	for i := range fills {
		fills[i].Asset = domain.NormalizeAsset(fills[i].Asset)
		if err := t.checkFill(fills[i]); err != nil {
			return fmt.Errorf("fill %d: %w", i, err)
		}
	}
	for _, f := range fills {
		t.bookFill(f)
	}
	if len(fills) > 0 {
		t.recompute(nil, true)
		t.updatedAt = t.now().UTC()
	}
	return nil
}

// Price implements domain.PriceSource with the last marked price.
func (t *Tracker) Price(asset string) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.prices[domain.NormalizeAsset(asset)]
	return p, ok && p > 0
}

func (t *Tracker) checkFill(f Fill) error {
	switch {
	case f.Asset == "" || f.Asset == domain.CashAsset:
		return fmt.Errorf("invalid asset %q", f.Asset)
	case !f.Side.Valid():
		return fmt.Errorf("invalid side %q", f.Side)
	case !(f.Quantity > 0) || math.IsInf(f.Quantity, 0):
		return fmt.Errorf("invalid quantity %v", f.Quantity)
	case !(f.Price > 0) || math.IsInf(f.Price, 0):
		return fmt.Errorf("invalid price %v", f.Price)
	case f.Fees < 0 || math.IsNaN(f.Fees):
		return fmt.Errorf("invalid fees %v", f.Fees)
	}
	if f.Side == domain.SideSell {
		held := t.positions[f.Asset].Quantity
		if f.Quantity > held+1e-9 {
			return fmt.Errorf("sell of %.6f %s exceeds held %.6f", f.Quantity, f.Asset, held)
		}
	}
	return nil
}

func (t *Tracker) bookFill(f Fill) {
	p, ok := t.positions[f.Asset]
	if !ok {
		p = domain.Position{Asset: f.Asset, OpenedAt: t.now().UTC()}
	}

	switch f.Side {
	case domain.SideBuy:
		qty := p.Quantity + f.Quantity
		p.AverageCost = (p.Quantity*p.AverageCost + f.Notional()) / qty
		p.Quantity = qty
		t.cash -= f.Notional() + f.Fees
	case domain.SideSell:
		p.Quantity -= f.Quantity
		t.cash += f.Notional() - f.Fees
	}
	p.CurrentPrice = f.Price
	t.markPrice(f.Asset, f.Price)

	if p.Quantity <= 1e-9 {
		delete(t.positions, f.Asset)
		return
	}
	t.positions[f.Asset] = p
}

func (t *Tracker) markPrice(asset string, price float64) {
	if !(price > 0) {
		return
	}
	t.prices[asset] = price
	h := append(t.priceHistory[asset], price)
	if limit := t.cfg.ReturnHistory + 1; len(h) > limit {
		h = append([]float64(nil), h[len(h)-limit:]...)
	}
	t.priceHistory[asset] = h
}

// recompute revalues positions and rebuilds the allocation so that asset
// weights plus cash sum to 1.
func (t *Tracker) recompute(explicitTotal *float64, recordReturn bool) {
	invested := 0.0
	for _, p := range t.positions {
		invested += p.Quantity * p.CurrentPrice
	}

	previous := t.totalValue
	total := t.cash + invested
	if explicitTotal != nil {
		total = *explicitTotal
	}

	allocation := make(map[string]float64, len(t.positions)+1)
	assetWeights := 0.0
	for asset, p := range t.positions {
		p.Revalue(total)
		t.positions[asset] = p
		allocation[asset] = p.Weight
		assetWeights += p.Weight
	}
	allocation[domain.CashAsset] = 1 - assetWeights
	t.allocation = allocation
	t.totalValue = total

	if recordReturn && previous > 0 && total != previous {
		r := total/previous - 1
		if !math.IsNaN(r) && !math.IsInf(r, 0) {
			t.returns = append(t.returns, r)
			if n := t.cfg.ReturnHistory; len(t.returns) > n {
				t.returns = append([]float64(nil), t.returns[len(t.returns)-n:]...)
			}
		}
	}
	t.performance = computePerformance(t.returns, t.cfg)
}

// normalizeUpdate copies the position and price keys of update under
// canonical asset names. Callers' slices and maps are left untouched.
func normalizeUpdate(update StateUpdate) StateUpdate {
	if update.Positions != nil {
		positions := make([]domain.Position, len(update.Positions))
		for i, p := range update.Positions {
			p.Asset = domain.NormalizeAsset(p.Asset)
			positions[i] = p
		}
		update.Positions = positions
	}
	if update.Prices != nil {
		prices := make(map[string]float64, len(update.Prices))
		for asset, price := range update.Prices {
			prices[domain.NormalizeAsset(asset)] = price
		}
		update.Prices = prices
	}
	return update
}

func validateUpdate(update StateUpdate) error {
	if update.TotalValue != nil && !isFinite(*update.TotalValue) {
		return fmt.Errorf("invalid total value %v", *update.TotalValue)
	}
	if update.Cash != nil && !isFinite(*update.Cash) {
		return fmt.Errorf("invalid cash %v", *update.Cash)
	}

	seen := make(map[string]bool, len(update.Positions))
	for _, p := range update.Positions {
		switch {
		case p.Asset == "" || p.Asset == domain.CashAsset:
			return fmt.Errorf("invalid position asset %q", p.Asset)
		case seen[p.Asset]:
			return fmt.Errorf("duplicate position %s", p.Asset)
		case !isFinite(p.Quantity) || !isFinite(p.CurrentPrice) || p.CurrentPrice < 0:
			return fmt.Errorf("invalid quantity or price for %s", p.Asset)
		}
		seen[p.Asset] = true
	}
	for asset, price := range update.Prices {
		if !isFinite(price) || price < 0 {
			return fmt.Errorf("invalid price %v for %s", price, asset)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
