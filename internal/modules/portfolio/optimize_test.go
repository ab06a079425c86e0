package portfolio

import (
	"testing"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeAllocation_EqualWeightCapped(t *testing.T) {
	tracker := newTestTracker(t, nil)

	result, err := tracker.OptimizeAllocation(AllocationConstraints{
		Method:         MethodEqualWeight,
		Assets:         []string{"A", "B", "C"},
		MaxSingleAsset: 0.3,
	})
	require.NoError(t, err)

	assert.Equal(t, MethodEqualWeight, result.Method)
	assert.InDelta(t, 0.3, result.Weights["A"], 1e-12)
	assert.InDelta(t, 0.3, result.Weights["B"], 1e-12)
	assert.InDelta(t, 0.3, result.Weights["C"], 1e-12)
	assert.InDelta(t, 0.1, result.Weights[domain.CashAsset], 1e-12)
	assert.InDelta(t, 1.0, allocationSum(result.Weights), 1e-9)
}

func TestOptimizeAllocation_RiskParityFavoursStableAssets(t *testing.T) {
	tracker := newTestTracker(t, nil)
	for i := 0; i < 12; i++ {
		step := float64(i % 2)
		require.NoError(t, tracker.UpdateState(StateUpdate{Prices: map[string]float64{
			"VOLATILE": 100 + 10*step,
			"STABLE":   100 + step,
		}}))
	}

	result, err := tracker.OptimizeAllocation(AllocationConstraints{
		Method: MethodRiskParity,
		Assets: []string{"VOLATILE", "STABLE", "UNKNOWN"},
	})
	require.NoError(t, err)

	assert.Greater(t, result.Weights["STABLE"], result.Weights["VOLATILE"])
	// No history: mean inverse volatility of the others
	assert.Greater(t, result.Weights["UNKNOWN"], result.Weights["VOLATILE"])
	assert.Less(t, result.Weights["UNKNOWN"], result.Weights["STABLE"])
	assert.InDelta(t, 1.0, allocationSum(result.Weights), 1e-9)
}

func TestOptimizeAllocation_PassThrough(t *testing.T) {
	tracker := newTestTracker(t, func(c *Config) {
		c.TargetAllocation = map[string]float64{"A": 0.5, "B": 0.3}
		c.OptimizationMethod = MethodMeanVariance
	})

	result, err := tracker.OptimizeAllocation(AllocationConstraints{MaxSingleAsset: 0.4})
	require.NoError(t, err)

	assert.Equal(t, MethodMeanVariance, result.Method)
	assert.InDelta(t, 0.4, result.Weights["A"], 1e-12)
	assert.InDelta(t, 0.3, result.Weights["B"], 1e-12)
	assert.InDelta(t, 0.3, result.Weights[domain.CashAsset], 1e-12)

	result, err = tracker.OptimizeAllocation(AllocationConstraints{Method: MethodBlackLitterman})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, result.Weights[domain.CashAsset], 1e-12)
}

func TestOptimizeAllocation_EmptyUniverseIsCash(t *testing.T) {
	tracker := newTestTracker(t, nil)

	result, err := tracker.OptimizeAllocation(AllocationConstraints{})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{domain.CashAsset: 1}, result.Weights)
}

func TestOptimizeAllocation_Errors(t *testing.T) {
	tracker := newTestTracker(t, nil)

	_, err := tracker.OptimizeAllocation(AllocationConstraints{Method: "kelly"})
	assert.Error(t, err)

	_, err = tracker.OptimizeAllocation(AllocationConstraints{MaxSingleAsset: 1.5})
	assert.Error(t, err)
}
