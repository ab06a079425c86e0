package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitNames(vs []LimitViolation) []string {
	names := make([]string, 0, len(vs))
	for _, v := range vs {
		names = append(names, v.Limit)
	}
	return names
}

func TestCheckLimits(t *testing.T) {
	tests := []struct {
		name       string
		metrics    MetricsSnapshot
		violations []string
		warnings   []string
		critical   bool
	}{
		{
			name:       "within limits",
			metrics:    MetricsSnapshot{VaR99: 0.02, CurrentDrawdown: 0.05, Leverage: 1, Concentration: 0.1, Liquidity: 0.9},
			violations: []string{},
			warnings:   []string{},
		},
		{
			name:       "var and concentration breached",
			metrics:    MetricsSnapshot{VaR99: 0.15, CurrentDrawdown: 0.17, Leverage: 1, Concentration: 0.35, Liquidity: 0.22},
			violations: []string{LimitVaR, LimitConcentration},
			warnings:   []string{LimitDrawdown, LimitLiquidity},
			critical:   true,
		},
		{
			name:       "daily and weekly loss",
			metrics:    MetricsSnapshot{DailyReturn: -0.06, WeeklyReturn: -0.12, Liquidity: 1},
			violations: []string{LimitDailyLoss, LimitWeeklyLoss},
			warnings:   []string{},
			critical:   true,
		},
		{
			name:       "leverage breached",
			metrics:    MetricsSnapshot{Leverage: 2.5, Liquidity: 1},
			violations: []string{LimitLeverage},
			warnings:   []string{},
			critical:   true,
		},
		{
			name:       "illiquid is a warning severity violation",
			metrics:    MetricsSnapshot{Liquidity: 0.1},
			violations: []string{LimitLiquidity},
			warnings:   []string{},
		},
		{
			name:       "empty snapshot passes",
			metrics:    MetricsSnapshot{Empty: true},
			violations: []string{},
			warnings:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, nil)
			result := engine.CheckLimits(tt.metrics)

			assert.Equal(t, tt.violations, limitNames(result.Violations))
			assert.Equal(t, tt.warnings, limitNames(result.Warnings))
			assert.Equal(t, len(tt.violations) == 0, result.Passed)
			assert.Equal(t, tt.critical, result.HasCritical())
			assert.Len(t, engine.Alerts(false), len(tt.violations))
		})
	}
}

func TestCheckLimits_ZeroLimitDisablesCheck(t *testing.T) {
	engine := newTestEngine(t, nil)
	require.NoError(t, engine.Configure(Limits{}))

	result := engine.CheckLimits(MetricsSnapshot{VaR99: 0.9, Leverage: 10, Concentration: 1})
	assert.True(t, result.Passed)
	assert.Empty(t, result.Warnings)
}

func TestAlerts_Acknowledge(t *testing.T) {
	engine := newTestEngine(t, nil)
	engine.CheckLimits(MetricsSnapshot{VaR99: 0.15, Concentration: 0.5, Liquidity: 1})

	alerts := engine.Alerts(false)
	require.Len(t, alerts, 2)
	assert.NotEmpty(t, alerts[0].ID)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)

	assert.True(t, engine.AcknowledgeAlert(alerts[0].ID))
	assert.True(t, engine.AcknowledgeAlert(alerts[0].ID))
	assert.False(t, engine.AcknowledgeAlert("missing"))

	assert.Len(t, engine.Alerts(false), 1)
	all := engine.Alerts(true)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].AcknowledgedAt)
	assert.Equal(t, testNow, *all[0].AcknowledgedAt)

	assert.Equal(t, 1, engine.ClearAcknowledged())
	assert.Len(t, engine.Alerts(true), 1)
}

func TestAlerts_Capped(t *testing.T) {
	engine := newTestEngine(t, func(c *Config) { c.MaxAlerts = 3 })
	for i := 0; i < 5; i++ {
		engine.CheckLimits(MetricsSnapshot{VaR99: 0.5, Liquidity: 1})
	}
	assert.Len(t, engine.Alerts(true), 3)
}
