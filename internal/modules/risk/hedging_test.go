package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHedgingNeeded_Urgency(t *testing.T) {
	tests := []struct {
		name    string
		var99   float64
		urgency Urgency
	}{
		{"well past threshold", 0.10, UrgencyHigh},
		{"moderately past", 0.09, UrgencyMedium},
		{"just past", 0.085, UrgencyLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, nil)
			rec := engine.CheckHedgingNeeded(MetricsSnapshot{VaR99: tt.var99, Positions: 1})

			require.NotNil(t, rec)
			assert.Equal(t, "var_protective_put", rec.StrategyID)
			assert.Equal(t, tt.urgency, rec.Urgency)
			assert.Equal(t, tt.var99, rec.Value)
		})
	}
}

func TestCheckHedgingNeeded_FirstMatchWins(t *testing.T) {
	engine := newTestEngine(t, nil)
	rec := engine.CheckHedgingNeeded(MetricsSnapshot{VaR99: 0.2, CurrentDrawdown: 0.3, Positions: 1})

	require.NotNil(t, rec)
	assert.Equal(t, "var_protective_put", rec.StrategyID)
}

func TestCheckHedgingNeeded_None(t *testing.T) {
	engine := newTestEngine(t, nil)

	assert.Nil(t, engine.CheckHedgingNeeded(MetricsSnapshot{VaR99: 0.01, Positions: 1}))
	assert.Nil(t, engine.CheckHedgingNeeded(MetricsSnapshot{VaR99: 0.5, Empty: true}))
}

func TestCheckHedgingNeeded_BelowConditionAndDisabled(t *testing.T) {
	engine := newTestEngine(t, func(c *Config) {
		c.HedgingStrategies = []HedgingStrategy{
			{ID: "off", Instrument: "put", Metric: "var99", Condition: ConditionAbove, Threshold: 0.01, Enabled: false},
			{ID: "liquidity", Instrument: "cash", Metric: "liquidity", Condition: ConditionBelow, Threshold: 0.3, HedgeRatio: 0.2, Enabled: true},
		}
	})

	rec := engine.CheckHedgingNeeded(MetricsSnapshot{VaR99: 0.5, Liquidity: 0.2, Positions: 1})
	require.NotNil(t, rec)
	assert.Equal(t, "liquidity", rec.StrategyID)
	assert.Equal(t, UrgencyHigh, rec.Urgency)
}

func TestTriggerRatio(t *testing.T) {
	tests := []struct {
		name      string
		cond      Condition
		value     float64
		threshold float64
		ratio     float64
		triggered bool
	}{
		{"above triggers", ConditionAbove, 0.12, 0.1, 1.2, true},
		{"above at threshold", ConditionAbove, 0.1, 0.1, 0, false},
		{"above zero threshold", ConditionAbove, 0.1, 0, math.Inf(1), true},
		{"below triggers", ConditionBelow, 0.1, 0.2, 2, true},
		{"below not triggered", ConditionBelow, 0.3, 0.2, 0, false},
		{"below zero value", ConditionBelow, 0, 0.2, math.Inf(1), true},
		{"unknown condition", "sideways", 1, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio, triggered := triggerRatio(tt.cond, tt.value, tt.threshold)
			assert.Equal(t, tt.triggered, triggered)
			if math.IsInf(tt.ratio, 1) {
				assert.True(t, math.IsInf(ratio, 1))
			} else {
				assert.InDelta(t, tt.ratio, ratio, 1e-9)
			}
		})
	}
}
