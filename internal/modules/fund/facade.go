package fund

import (
	"context"

	"github.com/aristath/fundcore/internal/modules/execution"
	"github.com/aristath/fundcore/internal/modules/portfolio"
	"github.com/aristath/fundcore/internal/modules/risk"
)

// The calls below mutate fund state and share the tick's lock. All of them
// fail with ErrFundClosed once the fund is closed.

// CheckRisk scores the current portfolio and checks it against the limits.
func (s *Supervisor) CheckRisk() (risk.MetricsSnapshot, risk.LimitCheckResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return risk.MetricsSnapshot{}, risk.LimitCheckResult{}, ErrFundClosed
	}
	m, check := s.assessLocked()
	return m, check, nil
}

// RunStressTests runs every scenario against the current positions.
func (s *Supervisor) RunStressTests() ([]risk.StressTestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil, ErrFundClosed
	}
	return s.risk.RunAllStressTests(s.portfolio.State().Positions), nil
}

// RunStressTest runs one scenario by id. The bool is false for unknown ids.
func (s *Supervisor) RunStressTest(id string) (risk.StressTestResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return risk.StressTestResult{}, false, ErrFundClosed
	}
	scenario, ok := s.risk.Scenario(id)
	if !ok {
		return risk.StressTestResult{}, false, nil
	}
	return s.risk.RunStressTest(scenario, s.portfolio.State().Positions), true, nil
}

// HedgingCheck evaluates the hedging strategies on fresh metrics.
func (s *Supervisor) HedgingCheck() (*risk.HedgingRecommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil, ErrFundClosed
	}
	m, _ := s.assessLocked()
	return s.risk.CheckHedgingNeeded(m), nil
}

// ConfigureLimits replaces the risk limits.
func (s *Supervisor) ConfigureLimits(limits risk.Limits) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrFundClosed
	}
	return s.risk.Configure(limits)
}

// Rebalance runs a manual rebalance regardless of drift. It is allowed while
// paused.
func (s *Supervisor) Rebalance(ctx context.Context) (portfolio.RebalanceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return portfolio.RebalanceResult{}, ErrFundClosed
	}
	s.log.Info().Msg("Manual rebalance requested")
	return s.portfolio.ExecuteRebalance(ctx), nil
}

// PreviewRebalance returns the drift check and the orders a rebalance would
// place now.
func (s *Supervisor) PreviewRebalance() (portfolio.RebalanceCheck, []portfolio.RebalanceOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portfolio.CheckRebalanceNeeded(), s.portfolio.CalculateRebalanceOrders()
}

// ApplyCashFlow folds an investor inflow (positive) or outflow (negative)
// into the portfolio.
func (s *Supervisor) ApplyCashFlow(amount float64) (portfolio.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return portfolio.State{}, ErrFundClosed
	}
	if err := s.portfolio.ApplyCashFlow(amount); err != nil {
		return portfolio.State{}, err
	}
	return s.portfolio.State(), nil
}

// UpdateState merges an external state update. Price marks also reach the
// router's price book.
func (s *Supervisor) UpdateState(update portfolio.StateUpdate) (portfolio.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return portfolio.State{}, ErrFundClosed
	}
	if err := s.portfolio.UpdateState(update); err != nil {
		return portfolio.State{}, err
	}
	if s.prices != nil {
		s.prices.SetAll(update.Prices)
		for _, p := range update.Positions {
			s.prices.Set(p.Asset, p.CurrentPrice)
		}
	}
	return s.portfolio.State(), nil
}

// SetTargetAllocation replaces the target weights.
func (s *Supervisor) SetTargetAllocation(targets map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrFundClosed
	}
	return s.portfolio.SetTargetAllocation(targets)
}

// Optimize computes an allocation without applying it.
func (s *Supervisor) Optimize(constraints portfolio.AllocationConstraints) (portfolio.OptimalAllocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portfolio.OptimizeAllocation(constraints)
}

// AcknowledgeAlert marks a risk alert as acknowledged.
func (s *Supervisor) AcknowledgeAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.risk.AcknowledgeAlert(id)
}

// CreateOrder creates a standalone order.
func (s *Supervisor) CreateOrder(req execution.Request) (execution.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return execution.Order{}, ErrFundClosed
	}
	return s.router.CreateOrder(req)
}

// ExecuteOrder executes a standalone order. Its fills are booked into the
// portfolio.
func (s *Supervisor) ExecuteOrder(ctx context.Context, id string) (execution.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return execution.Report{}, ErrFundClosed
	}

	rep, err := s.router.Execute(ctx, id)
	if err != nil {
		return rep, err
	}
	if s.recorder != nil {
		if err := s.recorder.RecordOrder(ctx, rep.Order); err != nil {
			s.log.Warn().Err(err).Str("order_id", id).Msg("Failed to record order")
		}
	}
	if rep.Order.FilledQuantity > 0 {
		fill := portfolio.Fill{
			OrderID:  rep.Order.ID,
			Asset:    rep.Order.Asset,
			Side:     rep.Order.Side,
			Quantity: rep.Order.FilledQuantity,
			Price:    rep.Order.AveragePrice,
			Fees:     rep.Order.TotalFees,
			Partial:  rep.Order.Status == execution.StatusPartial,
		}
		if err := s.portfolio.ApplyFills([]portfolio.Fill{fill}); err != nil {
			s.log.Warn().Err(err).Str("order_id", id).Msg("Failed to book order fills")
			rep.Warnings = append(rep.Warnings, "fills not booked: "+err.Error())
		}
	}
	return rep, nil
}

// CancelOrder cancels a standalone order.
func (s *Supervisor) CancelOrder(id string) (execution.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return execution.Order{}, ErrFundClosed
	}
	o, err := s.router.CancelOrder(id)
	if err == nil && s.recorder != nil {
		if rerr := s.recorder.RecordOrder(context.Background(), o); rerr != nil {
			s.log.Warn().Err(rerr).Str("order_id", id).Msg("Failed to record order")
		}
	}
	return o, err
}
