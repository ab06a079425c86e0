package risk

import (
	"math"
	"testing"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/pkg/formulas"
	"github.com/stretchr/testify/assert"
)

func linearReturns(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = -0.05 + 0.001*float64(i)
	}
	return out
}

func alternatingReturns(n int, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Pow(-1, float64(i))
	}
	return out
}

func TestCalculateVaR_HistoricalFallback(t *testing.T) {
	tests := []struct {
		name    string
		horizon int
		samples int
	}{
		{"empty history", 1, 0},
		{"29 samples", 1, 29},
		{"four day horizon", 4, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, func(c *Config) { c.TimeHorizonDays = tt.horizon })
			engine.SetReturnHistory(linearReturns(tt.samples))

			result := engine.CalculateVaR(nil, 1000)
			scale := math.Sqrt(float64(tt.horizon))

			assert.True(t, result.Fallback)
			assert.Equal(t, MethodHistorical, result.Method)
			assert.InDelta(t, 20*scale, result.VaR95, 1e-9)
			assert.InDelta(t, 30*scale, result.VaR99, 1e-9)
			assert.InDelta(t, 40*scale, result.CVaR, 1e-9)
		})
	}
}

func TestCalculateVaR_Historical(t *testing.T) {
	engine := newTestEngine(t, nil)
	engine.SetReturnHistory(linearReturns(100))

	result := engine.CalculateVaR(nil, 1000)

	assert.False(t, result.Fallback)
	assert.Equal(t, 100, result.Samples)
	assert.InDelta(t, 46, result.VaR95, 1.01)
	assert.InDelta(t, 50, result.VaR99, 1.01)
	assert.InDelta(t, 50, result.CVaR, 1e-9)
	assert.GreaterOrEqual(t, result.CVaR, result.VaR99)
	assert.GreaterOrEqual(t, result.VaR99, result.VaR95)
}

func TestCalculateVaR_HistoricalAllGains(t *testing.T) {
	engine := newTestEngine(t, nil)
	gains := make([]float64, 40)
	for i := range gains {
		gains[i] = 0.01
	}
	engine.SetReturnHistory(gains)

	result := engine.CalculateVaR(nil, 1000)
	assert.Equal(t, 0.0, result.VaR95)
	assert.Equal(t, 0.0, result.VaR99)
	assert.Equal(t, 0.0, result.CVaR)
}

func TestCalculateVaR_Parametric(t *testing.T) {
	engine := newTestEngine(t, func(c *Config) { c.VaRMethod = MethodParametric })
	returns := alternatingReturns(40, 0.01)
	engine.SetReturnHistory(returns)

	result := engine.CalculateVaR(nil, 1000)
	sigma := formulas.StdDev(returns)

	assert.Equal(t, MethodParametric, result.Method)
	assert.InDelta(t, sigma*formulas.ZScore(0.95)*1000, result.VaR95, 1e-9)
	assert.InDelta(t, sigma*formulas.ZScore(0.99)*1000, result.VaR99, 1e-9)
	assert.InDelta(t, 1.15*result.VaR99, result.CVaR, 1e-9)
}

func TestCalculateVaR_ParametricWithoutHistory(t *testing.T) {
	engine := newTestEngine(t, func(c *Config) {
		c.VaRMethod = MethodParametric
		c.TimeHorizonDays = 9
	})

	result := engine.CalculateVaR(nil, 1000)
	assert.InDelta(t, DefaultVolatility*formulas.ZScore(0.95)*1000*3, result.VaR95, 1e-9)
}

func TestCalculateVaR_MonteCarloBounds(t *testing.T) {
	mutate := func(c *Config) {
		c.VaRMethod = MethodMonteCarlo
		c.Simulations = 20000
	}
	engine := newTestEngine(t, mutate)
	returns := alternatingReturns(60, 0.01)
	engine.SetReturnHistory(returns)

	result := engine.CalculateVaR(nil, 1000)
	sigma := formulas.StdDev(returns)

	assert.Equal(t, MethodMonteCarlo, result.Method)
	assert.Equal(t, 20000, result.Samples)
	assert.False(t, result.Fallback)
	assert.InDelta(t, sigma*1.645*1000, result.VaR95, 1.5)
	assert.InDelta(t, sigma*2.326*1000, result.VaR99, 2.5)
	assert.Greater(t, result.CVaR, result.VaR99)

	// Same seed, same draws
	again := newTestEngine(t, mutate)
	again.SetReturnHistory(returns)
	assert.Equal(t, result, again.CalculateVaR(nil, 1000))
}

func TestCalculateVaR_UnknownMethodFallsBackToHistorical(t *testing.T) {
	engine := newTestEngine(t, func(c *Config) { c.VaRMethod = "garch" })
	engine.SetReturnHistory(linearReturns(100))

	result := engine.CalculateVaR(nil, 1000)
	reference := newTestEngine(t, nil)
	reference.SetReturnHistory(linearReturns(100))

	assert.Equal(t, MethodHistorical, result.Method)
	assert.Equal(t, reference.CalculateVaR(nil, 1000), result)
}

func TestCalculateVaR_ValueFromPositions(t *testing.T) {
	engine := newTestEngine(t, nil)

	result := engine.CalculateVaR(nil, 0)
	assert.Equal(t, 0.0, result.VaR99)

	// Falls back to the positions when no value is given
	result = engine.CalculateVaR([]domain.Position{position("A", 10, 50)}, math.NaN())
	assert.InDelta(t, 15, result.VaR99, 1e-9)
}
