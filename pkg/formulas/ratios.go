package formulas

import "math"

// CalculateSharpeRatio calculates the annualized Sharpe ratio of a periodic
// return series.
//
//	Sharpe = (mean(r) - rf/periodsPerYear) / stddev(r) × sqrt(periodsPerYear)
//
// Returns nil when there are fewer than two observations or no dispersion.
func CalculateSharpeRatio(returns []float64, riskFreeAnnual float64, periodsPerYear int) *float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeAnnual / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev * math.Sqrt(float64(periodsPerYear))
	return &sharpe
}

// CalculateSortinoRatio is the Sharpe ratio with downside deviation below the
// periodic risk-free rate in the denominator.
//
// Returns nil when there are fewer than two observations or no downside.
func CalculateSortinoRatio(returns []float64, riskFreeAnnual float64, periodsPerYear int) *float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return nil
	}

	periodicRiskFree := riskFreeAnnual / float64(periodsPerYear)
	downside := DownsideDeviation(returns, periodicRiskFree)
	if downside == 0 {
		return nil
	}

	sortino := (Mean(returns) - periodicRiskFree) / downside * math.Sqrt(float64(periodsPerYear))
	return &sortino
}

// ValueOrZero dereferences an optional ratio.
func ValueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
