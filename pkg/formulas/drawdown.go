package formulas

// DrawdownMetrics represents drawdown analysis results
type DrawdownMetrics struct {
	MaxDrawdown       float64 `json:"max_drawdown"`     // Positive fraction, 0.25 = 25% below peak
	CurrentDrawdown   float64 `json:"current_drawdown"` // Current distance from peak
	PeriodsInDrawdown int     `json:"periods_in_drawdown"`
	PeakValue         float64 `json:"peak_value"`
	CurrentValue      float64 `json:"current_value"`
}

// EquityCurve compounds returns into a value path starting at 1.0.
// The result has len(returns)+1 points.
func EquityCurve(returns []float64) []float64 {
	curve := make([]float64, len(returns)+1)
	curve[0] = 1.0
	for i, r := range returns {
		curve[i+1] = curve[i] * (1 + r)
	}
	return curve
}

// CalculateDrawdowns walks a value path and reports the deepest and the
// current decline from the running peak.
func CalculateDrawdowns(values []float64) DrawdownMetrics {
	var m DrawdownMetrics
	if len(values) == 0 {
		return m
	}

	peak := values[0]
	periods := 0
	for _, v := range values {
		if v >= peak {
			peak = v
			periods = 0
		} else {
			periods++
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > m.MaxDrawdown {
				m.MaxDrawdown = dd
			}
		}
	}

	last := values[len(values)-1]
	if peak > 0 {
		m.CurrentDrawdown = (peak - last) / peak
	}
	m.PeriodsInDrawdown = periods
	m.PeakValue = peak
	m.CurrentValue = last
	return m
}

// DrawdownsFromReturns is CalculateDrawdowns over the equity curve of returns.
func DrawdownsFromReturns(returns []float64) DrawdownMetrics {
	return CalculateDrawdowns(EquityCurve(returns))
}
