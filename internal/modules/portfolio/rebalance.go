package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/internal/events"
)

// CheckRebalanceNeeded measures drift for every target entry and every held
// asset without a target (target 0).
func (t *Tracker) CheckRebalanceNeeded() RebalanceCheck {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.checkRebalance()
}

func (t *Tracker) checkRebalance() RebalanceCheck {
	check := RebalanceCheck{
		Timestamp: t.now().UTC(),
		Drifts:    []AssetDrift{},
		Threshold: t.cfg.RebalanceThreshold,
	}

	for _, asset := range t.driftUniverse() {
		current := t.allocation[asset]
		target := t.target[asset]
		d := AssetDrift{Asset: asset, Current: current, Target: target, Drift: math.Abs(current - target)}
		check.Drifts = append(check.Drifts, d)
		check.TotalDrift += d.Drift
	}

	sort.SliceStable(check.Drifts, func(i, j int) bool {
		if check.Drifts[i].Drift != check.Drifts[j].Drift {
			return check.Drifts[i].Drift > check.Drifts[j].Drift
		}
		return check.Drifts[i].Asset < check.Drifts[j].Asset
	})

	check.Needed = check.TotalDrift > check.Threshold
	return check
}

// driftUniverse is the sorted union of target entries and held assets.
func (t *Tracker) driftUniverse() []string {
	seen := make(map[string]bool, len(t.target)+len(t.positions))
	assets := make([]string, 0, len(t.target)+len(t.positions))
	for asset := range t.target {
		if !seen[asset] {
			seen[asset] = true
			assets = append(assets, asset)
		}
	}
	for asset := range t.positions {
		if !seen[asset] {
			seen[asset] = true
			assets = append(assets, asset)
		}
	}
	sort.Strings(assets)
	return assets
}

// CalculateRebalanceOrders derives the trades that move every asset to its
// target weight. Orders come sorted by priority (most urgent first), sells
// before buys within a priority, then by size.
func (t *Tracker) CalculateRebalanceOrders() []RebalanceOrder {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rebalanceOrders()
}

func (t *Tracker) rebalanceOrders() []RebalanceOrder {
	orders := []RebalanceOrder{}
	if t.totalValue <= 0 {
		return orders
	}

	for _, asset := range t.driftUniverse() {
		if asset == domain.CashAsset {
			continue
		}
		current := t.allocation[asset]
		target := t.target[asset]
		diff := target - current
		if math.Abs(diff) < t.cfg.MinTradeWeight || math.Abs(diff) == 0 {
			continue
		}

		price := t.priceOf(asset)
		notional := math.Abs(diff) * t.totalValue
		quantity := notional / price

		side := domain.SideBuy
		if diff < 0 {
			side = domain.SideSell
			if held := t.positions[asset].Quantity; quantity > held {
				quantity = held
			}
		}

		priority := 2
		if math.Abs(diff) > t.cfg.PriorityDriftThreshold {
			priority = 1
		}

		orders = append(orders, RebalanceOrder{
			Asset:          asset,
			Side:           side,
			Quantity:       quantity,
			Price:          price,
			EstimatedValue: notional,
			CurrentWeight:  current,
			TargetWeight:   target,
			Priority:       priority,
		})
	}

	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Side != b.Side {
			return a.Side == domain.SideSell
		}
		if a.EstimatedValue != b.EstimatedValue {
			return a.EstimatedValue > b.EstimatedValue
		}
		return a.Asset < b.Asset
	})
	return orders
}

// priceOf returns the held or last marked price, defaulting to 1.
func (t *Tracker) priceOf(asset string) float64 {
	if p, ok := t.positions[asset]; ok && p.CurrentPrice > 0 {
		return p.CurrentPrice
	}
	if p, ok := t.prices[asset]; ok && p > 0 {
		return p
	}
	return 1
}

// ExecuteRebalance computes and executes the rebalance orders in priority
// order. Each order either goes through the configured Executor or, without
// one, is assumed to reach its target at the configured fee. Failed orders
// are counted and never stop the remaining ones; the rebalance timestamps
// are always advanced.
func (t *Tracker) ExecuteRebalance(ctx context.Context) RebalanceResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := RebalanceResult{
		StartedAt: t.now().UTC(),
		Fills:     []Fill{},
		Errors:    []string{},
	}
	result.Orders = t.rebalanceOrders()

	if len(result.Orders) > 0 {
		check := t.checkRebalance()
		t.emitter.Emit(events.RebalanceTriggered, events.SeverityInfo, "portfolio", "Rebalance started", &events.RebalanceData{
			TotalDrift: check.TotalDrift,
			Orders:     len(result.Orders),
		})
		if ce, ok := t.executor.(CycleExecutor); ok {
			ce.BeginCycle()
		}
	}

	for _, order := range result.Orders {
		if err := ctx.Err(); err != nil {
			result.OrdersFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", order.Side, order.Asset, err))
			continue
		}

		fill, err := t.executeOrder(ctx, order)
		if err == nil {
			err = t.checkFill(fill)
		}
		if err != nil {
			result.OrdersFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", order.Side, order.Asset, err))
			t.log.Warn().Err(err).Str("asset", order.Asset).Msg("Rebalance order failed")
			continue
		}

		t.bookFill(fill)
		result.OrdersExecuted++
		result.TotalFees += fill.Fees
		result.Fills = append(result.Fills, fill)
		if fill.Partial {
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: partially filled %.6f of %.6f",
				order.Side, order.Asset, fill.Quantity, order.Quantity))
		}
	}

	if len(result.Fills) > 0 {
		t.recompute(nil, true)
	}

	now := t.now().UTC()
	t.lastRebalance = now
	t.nextRebalance = t.cfg.RebalanceFrequency.Next(now)
	t.updatedAt = now

	result.CompletedAt = now
	result.Duration = result.CompletedAt.Sub(result.StartedAt)
	if result.Duration < 0 {
		result.Duration = 0
	}
	result.Success = result.OrdersFailed == 0

	t.log.Info().
		Int("orders", len(result.Orders)).
		Int("executed", result.OrdersExecuted).
		Int("failed", result.OrdersFailed).
		Float64("fees", result.TotalFees).
		Msg("Rebalance completed")

	severity := events.SeverityInfo
	if !result.Success {
		severity = events.SeverityWarning
	}
	t.emitter.Emit(events.RebalanceCompleted, severity, "portfolio", "Rebalance completed", &events.RebalanceData{
		Orders:         len(result.Orders),
		OrdersExecuted: result.OrdersExecuted,
		OrdersFailed:   result.OrdersFailed,
		TotalFees:      result.TotalFees,
		DurationMs:     result.Duration.Milliseconds(),
		Errors:         result.Errors,
		Completed:      true,
	})

	return result
}

func (t *Tracker) executeOrder(ctx context.Context, order RebalanceOrder) (fill Fill, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panicked: %v", r)
		}
	}()

	if t.executor != nil {
		return t.executor.ExecuteRebalanceOrder(ctx, order)
	}

	return Fill{
		Asset:    order.Asset,
		Side:     order.Side,
		Quantity: order.Quantity,
		Price:    order.Price,
		Fees:     order.Quantity * order.Price * t.cfg.FeeRate,
	}, nil
}
