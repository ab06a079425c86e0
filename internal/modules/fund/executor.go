package fund

import (
	"context"
	"fmt"

	"github.com/aristath/fundcore/internal/modules/execution"
	"github.com/aristath/fundcore/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

var _ portfolio.CycleExecutor = (*RouterExecutor)(nil)

// RouterExecutor executes rebalance orders through the execution router,
// priced at the order's reference price.
type RouterExecutor struct {
	router   *execution.Router
	strategy execution.Strategy
	recorder Recorder
	log      zerolog.Logger
}

// NewRouterExecutor adapts router to portfolio.Executor. An empty strategy
// uses the router default; a nil recorder skips order persistence.
func NewRouterExecutor(router *execution.Router, strategy execution.Strategy, recorder Recorder, log zerolog.Logger) *RouterExecutor {
	return &RouterExecutor{
		router:   router,
		strategy: strategy,
		recorder: recorder,
		log:      log.With().Str("component", "router_executor").Logger(),
	}
}

// BeginCycle implements portfolio.CycleExecutor. Orders of one rebalance
// then draw on the same venue liquidity.
func (e *RouterExecutor) BeginCycle() {
	e.router.BeginCycle()
}

// ExecuteRebalanceOrder implements portfolio.Executor.
func (e *RouterExecutor) ExecuteRebalanceOrder(ctx context.Context, order portfolio.RebalanceOrder) (portfolio.Fill, error) {
	o, err := e.router.CreateOrder(execution.Request{
		Asset:          order.Asset,
		Side:           order.Side,
		Strategy:       e.strategy,
		Quantity:       order.Quantity,
		ReferencePrice: order.Price,
	})
	if err != nil {
		return portfolio.Fill{}, fmt.Errorf("failed to create order: %w", err)
	}

	rep, err := e.router.ExecuteInCycle(ctx, o.ID)
	if err != nil {
		return portfolio.Fill{}, fmt.Errorf("failed to execute order %s: %w", o.ID, err)
	}
	if e.recorder != nil {
		if err := e.recorder.RecordOrder(ctx, rep.Order); err != nil {
			e.log.Warn().Err(err).Str("order_id", o.ID).Msg("Failed to record order")
		}
	}

	switch rep.Order.Status {
	case execution.StatusFilled, execution.StatusPartial:
	default:
		return portfolio.Fill{}, fmt.Errorf("order %s %s: %s", o.ID, rep.Order.Status, rep.Order.Error)
	}

	return portfolio.Fill{
		OrderID:  rep.Order.ID,
		Asset:    rep.Order.Asset,
		Side:     rep.Order.Side,
		Quantity: rep.Order.FilledQuantity,
		Price:    rep.Order.AveragePrice,
		Fees:     rep.Order.TotalFees,
		Partial:  rep.Order.Status == execution.StatusPartial,
	}, nil
}
