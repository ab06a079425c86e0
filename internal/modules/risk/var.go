package risk

import (
	"math"
	"math/rand/v2"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/pkg/formulas"
)

// MinHistoricalSamples is the buffer size below which historical VaR uses
// the flat fallback.
const MinHistoricalSamples = 30

// Flat fallback fractions used when the return history is too short.
const (
	FallbackVaR95 = 0.02
	FallbackVaR99 = 0.03
	FallbackCVaR  = 0.04
)

// DefaultVolatility is the daily volatility assumed without return history.
const DefaultVolatility = 0.02

// CVaRMultiplier converts parametric VaR99 into expected shortfall.
const CVaRMultiplier = 1.15

// CalculateVaR estimates Value-at-Risk in currency units using the configured
// method. A non-positive portfolioValue is derived from the positions.
func (e *Engine) CalculateVaR(positions []domain.Position, portfolioValue float64) VaRResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calculateVaR(positions, portfolioValue)
}

func (e *Engine) calculateVaR(positions []domain.Position, portfolioValue float64) VaRResult {
	method := e.cfg.VaRMethod.Normalize()
	horizon := e.cfg.TimeHorizonDays
	if horizon < 1 {
		horizon = 1
	}

	value := resolveValue(positions, portfolioValue)
	if value <= 0 {
		return VaRResult{Method: method, HorizonDays: horizon}
	}

	var result VaRResult
	switch method {
	case MethodParametric:
		result = parametricVaR(e.returns, value)
	case MethodMonteCarlo:
		result = monteCarloVaR(e.returns, value, e.cfg.Simulations, e.rng)
	default:
		result = historicalVaR(e.returns, value)
	}

	scale := math.Sqrt(float64(horizon))
	result.VaR95 *= scale
	result.VaR99 *= scale
	result.CVaR *= scale
	result.Method = method
	result.HorizonDays = horizon
	return result
}

// historicalVaR reads the loss quantiles straight off the return series.
func historicalVaR(returns []float64, value float64) VaRResult {
	if len(returns) < MinHistoricalSamples {
		return VaRResult{
			VaR95:    FallbackVaR95 * value,
			VaR99:    FallbackVaR99 * value,
			CVaR:     FallbackCVaR * value,
			Samples:  len(returns),
			Fallback: true,
		}
	}

	sorted := formulas.SortedCopy(returns)
	return VaRResult{
		VaR95:   lossOf(formulas.EmpiricalQuantile(sorted, 0.05)) * value,
		VaR99:   lossOf(formulas.EmpiricalQuantile(sorted, 0.01)) * value,
		CVaR:    lossOf(formulas.CalculateCVaR(returns, 0.99)) * value,
		Samples: len(returns),
	}
}

// parametricVaR assumes zero-mean normally distributed returns.
func parametricVaR(returns []float64, value float64) VaRResult {
	sigma := volatilityOf(returns)
	var99 := sigma * formulas.ZScore(0.99) * value
	return VaRResult{
		VaR95:   sigma * formulas.ZScore(0.95) * value,
		VaR99:   var99,
		CVaR:    CVaRMultiplier * var99,
		Samples: len(returns),
	}
}

// monteCarloVaR simulates normal returns at the historical volatility and
// applies the historical estimator to the simulated series.
func monteCarloVaR(returns []float64, value float64, simulations int, rng *rand.Rand) VaRResult {
	sigma := volatilityOf(returns)
	simulated := simulateNormal(rng, simulations, sigma)
	result := historicalVaR(simulated, value)
	result.Samples = len(simulated)
	return result
}

// simulateNormal draws n samples of N(0, sigma²) with the Box-Muller transform.
func simulateNormal(rng *rand.Rand, n int, sigma float64) []float64 {
	out := make([]float64, 0, n)
	for len(out) < n {
		u1 := 1 - rng.Float64() // (0, 1]
		u2 := rng.Float64()
		r := math.Sqrt(-2 * math.Log(u1))
		out = append(out, r*math.Cos(2*math.Pi*u2)*sigma)
		if len(out) < n {
			out = append(out, r*math.Sin(2*math.Pi*u2)*sigma)
		}
	}
	return out
}

func volatilityOf(returns []float64) float64 {
	if len(returns) < 2 {
		return DefaultVolatility
	}
	if sigma := formulas.StdDev(returns); sigma > 0 {
		return sigma
	}
	return DefaultVolatility
}

// lossOf turns a return quantile into a non-negative loss fraction.
func lossOf(r float64) float64 {
	if r >= 0 {
		return 0
	}
	return -r
}

func resolveValue(positions []domain.Position, portfolioValue float64) float64 {
	if isFinite(portfolioValue) && portfolioValue > 0 {
		return portfolioValue
	}
	total := 0.0
	for _, p := range positions {
		total += marketValue(p)
	}
	if !isFinite(total) {
		return 0
	}
	return total
}

func marketValue(p domain.Position) float64 {
	if mv := p.Quantity * p.CurrentPrice; mv != 0 && isFinite(mv) {
		return mv
	}
	if isFinite(p.MarketValue) {
		return p.MarketValue
	}
	return 0
}
