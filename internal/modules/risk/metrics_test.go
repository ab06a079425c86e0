package risk

import (
	"testing"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateMetrics_Exposure(t *testing.T) {
	engine := newTestEngine(t, func(c *Config) {
		c.AssetBetas = map[string]float64{"A": 1.5}
		c.LiquiditySizeThreshold = 400
	})
	positions := []domain.Position{
		position("A", 10, 50),
		position("B", 5, 60),
	}

	m := engine.CalculateMetrics(positions, 1000)

	assert.False(t, m.Empty)
	assert.Equal(t, 2, m.Positions)
	assert.Equal(t, testNow, m.Timestamp)
	assert.InDelta(t, 0.5, m.Concentration, 1e-12)
	assert.InDelta(t, 0.8, m.Leverage, 1e-12)
	assert.InDelta(t, 1.05, m.Beta, 1e-12)
	// 200 cash plus the 300 position under the size threshold
	assert.InDelta(t, 0.5, m.Liquidity, 1e-12)
	// No history: flat fallback as a fraction of value
	assert.InDelta(t, 0.02, m.VaR95, 1e-12)
	assert.InDelta(t, 0.03, m.VaR99, 1e-12)
	assert.InDelta(t, 0.04, m.CVaR, 1e-12)
	assert.Equal(t, 0.0, m.Sharpe)
}

func TestCalculateMetrics_ReturnDerived(t *testing.T) {
	engine := newTestEngine(t, nil)
	engine.SetReturnHistory([]float64{0.1, -0.2, 0.05})

	m := engine.CalculateMetrics([]domain.Position{position("A", 1, 1000)}, 1000)

	assert.InDelta(t, 0.2, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, (1.1-0.924)/1.1, m.CurrentDrawdown, 1e-12)
	assert.InDelta(t, 0.05, m.DailyReturn, 1e-12)
	assert.InDelta(t, 1.1*0.8*1.05-1, m.WeeklyReturn, 1e-12)
	assert.NotEqual(t, 0.0, m.Sharpe)
	assert.NotEqual(t, 0.0, m.Sortino)
}

func TestCalculateMetrics_EmptyInputIsZeroed(t *testing.T) {
	engine := newTestEngine(t, nil)

	tests := []struct {
		name      string
		positions []domain.Position
		value     float64
	}{
		{"no positions", nil, 1000},
		{"zero value", []domain.Position{{Asset: "A"}}, 0},
		{"negative value", []domain.Position{{Asset: "A", MarketValue: -5}}, -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := engine.CalculateMetrics(tt.positions, tt.value)
			assert.True(t, m.Empty)
			assert.Equal(t, 0.0, m.VaR99)
			assert.Equal(t, 0.0, m.Leverage)
			assert.Equal(t, 0.0, m.Concentration)
		})
	}
}

func TestCalculateMetrics_StoresVersionedSnapshots(t *testing.T) {
	engine := newTestEngine(t, nil)
	positions := []domain.Position{position("A", 10, 50)}

	_, ok := engine.Latest()
	assert.False(t, ok)

	first := engine.CalculateMetrics(positions, 1000)
	second := engine.CalculateMetrics(positions, 2000)

	latest, ok := engine.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(2), latest.Version)
	assert.Equal(t, second, latest.Snapshot)

	history := engine.History(0)
	require.Len(t, history, 2)
	assert.Equal(t, first, history[1].Snapshot)
}
