package portfolio

import "github.com/aristath/fundcore/pkg/formulas"

const periodsPerYear = 365

func computePerformance(returns []float64, cfg Config) Performance {
	dd := formulas.DrawdownsFromReturns(returns)
	return Performance{
		Sharpe:          formulas.ValueOrZero(formulas.CalculateSharpeRatio(returns, cfg.RiskFreeAnnual, periodsPerYear)),
		MaxDrawdown:     dd.MaxDrawdown,
		CurrentDrawdown: dd.CurrentDrawdown,
		Volatility:      formulas.RollingVolatility(returns, cfg.VolatilityWindow),
		TotalReturn:     formulas.CompoundReturn(returns),
		Observations:    len(returns),
	}
}
