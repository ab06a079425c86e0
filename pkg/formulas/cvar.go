package formulas

import "math"

// CalculateCVaR calculates Conditional Value at Risk (CVaR) at the specified confidence level.
// CVaR is the mean of the worst (1 - confidence) share of returns.
//
// Args:
//   - returns: Historical returns (negative for losses)
//   - confidence: Confidence level (e.g., 0.99 for 99%)
//
// Returns:
//   - CVaR as a return (negative for losses)
func CalculateCVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	sorted := SortedCopy(returns)

	// The epsilon keeps 100 × (1 - 0.99) from rounding up to a tail of two.
	tailCount := int(math.Ceil(float64(len(sorted))*(1.0-confidence) - 1e-9))
	if tailCount < 1 {
		tailCount = 1
	}
	if tailCount > len(sorted) {
		tailCount = len(sorted)
	}

	return Mean(sorted[:tailCount])
}
