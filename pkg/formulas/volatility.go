package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// RollingVolatility returns the sample standard deviation of the trailing
// window of returns, matching StdDev. Short series use every observation
// available.
func RollingVolatility(returns []float64, window int) float64 {
	if len(returns) < 2 {
		return 0
	}
	if window < 2 || len(returns) < window {
		return StdDev(returns)
	}

	// talib divides by n; rescale to the n-1 sample estimate.
	series := talib.StdDev(returns, window, 1.0)
	n := float64(window)
	return series[len(series)-1] * math.Sqrt(n/(n-1))
}
