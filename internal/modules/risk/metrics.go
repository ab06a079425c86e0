package risk

import (
	"math"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/internal/events"
	"github.com/aristath/fundcore/pkg/formulas"
)

// PeriodsPerYear annualizes the daily return buffer.
const PeriodsPerYear = 365

// WeeklyPeriods is the number of daily returns compounded into the weekly return.
const WeeklyPeriods = 7

// CalculateMetrics scores a position set and stores the snapshot under the
// engine's fund id. Empty or malformed input yields a zeroed snapshot.
func (e *Engine) CalculateMetrics(positions []domain.Position, portfolioValue float64) MetricsSnapshot {
	e.mu.Lock()
	snapshot := e.calculateMetrics(positions, portfolioValue)
	emitter := e.emitter
	e.mu.Unlock()

	stored := e.store.Put(e.fundID, snapshot)

	e.log.Debug().
		Uint64("version", stored.Version).
		Float64("var99", snapshot.VaR99).
		Float64("drawdown", snapshot.CurrentDrawdown).
		Float64("leverage", snapshot.Leverage).
		Msg("Risk metrics calculated")

	emitter.Emit(events.RiskMetricsCalculated, events.SeverityInfo, "risk", "Risk metrics calculated", &events.RiskMetricsData{
		FundID:        e.fundID,
		Version:       stored.Version,
		VaR95:         snapshot.VaR95,
		VaR99:         snapshot.VaR99,
		CVaR:          snapshot.CVaR,
		Drawdown:      snapshot.CurrentDrawdown,
		Leverage:      snapshot.Leverage,
		Concentration: snapshot.Concentration,
		Liquidity:     snapshot.Liquidity,
	})

	return snapshot
}

func (e *Engine) calculateMetrics(positions []domain.Position, portfolioValue float64) MetricsSnapshot {
	snapshot := MetricsSnapshot{
		Timestamp: e.now().UTC(),
		Method:    e.cfg.VaRMethod.Normalize(),
		Samples:   len(e.returns),
	}

	value := resolveValue(positions, portfolioValue)
	if len(positions) == 0 || value <= 0 {
		snapshot.PortfolioValue = math.Max(value, 0)
		snapshot.Empty = true
		return snapshot
	}
	snapshot.PortfolioValue = value
	snapshot.Positions = len(positions)

	varResult := e.calculateVaR(positions, value)
	snapshot.VaR95 = varResult.VaR95 / value
	snapshot.VaR99 = varResult.VaR99 / value
	snapshot.CVaR = varResult.CVaR / value

	gross, invested, liquid := 0.0, 0.0, 0.0
	for _, p := range positions {
		mv := marketValue(p)
		abs := math.Abs(mv)
		gross += abs
		invested += mv

		weight := mv / value
		snapshot.Beta += weight * e.betaOf(p.Asset)
		if w := abs / value; w > snapshot.Concentration {
			snapshot.Concentration = w
		}
		if abs < e.cfg.LiquiditySizeThreshold {
			liquid += abs
		}
	}

	cash := math.Max(value-invested, 0)
	snapshot.Leverage = gross / value
	snapshot.Liquidity = clamp01((cash + liquid) / value)

	snapshot.Sharpe = formulas.ValueOrZero(formulas.CalculateSharpeRatio(e.returns, e.cfg.RiskFreeAnnual, PeriodsPerYear))
	snapshot.Sortino = formulas.ValueOrZero(formulas.CalculateSortinoRatio(e.returns, e.cfg.RiskFreeAnnual, PeriodsPerYear))

	dd := formulas.DrawdownsFromReturns(e.returns)
	snapshot.MaxDrawdown = dd.MaxDrawdown
	snapshot.CurrentDrawdown = dd.CurrentDrawdown

	if n := len(e.returns); n > 0 {
		snapshot.DailyReturn = e.returns[n-1]
		start := n - WeeklyPeriods
		if start < 0 {
			start = 0
		}
		snapshot.WeeklyReturn = formulas.CompoundReturn(e.returns[start:])
	}

	return snapshot
}

func (e *Engine) betaOf(asset string) float64 {
	if b, ok := e.cfg.AssetBetas[asset]; ok {
		return b
	}
	return 1.0
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
