package execution

import (
	"context"
	"testing"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpactFor(t *testing.T) {
	tests := []struct {
		notional float64
		want     float64
	}{
		{0, 0.001},
		{999.99, 0.001},
		{1000, 0.003},
		{9999, 0.003},
		{10000, 0.01},
		{99999, 0.01},
		{100000, 0.03},
		{5e6, 0.03},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ImpactFor(tt.notional), "notional %v", tt.notional)
	}
}

func TestGetOptimalRoute(t *testing.T) {
	r := newTestRouter(t, nil)

	small, err := r.GetOptimalRoute(Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 50})
	require.NoError(t, err)
	assert.False(t, small.Split)
	require.Len(t, small.Segments, 1)
	seg := small.Primary()
	assert.Equal(t, "uniswap", seg.Venue)
	assert.InDelta(t, 0.003, seg.Impact, 1e-12)
	assert.InDelta(t, 100*1.003, seg.ExpectedPrice, 1e-9)
	assert.Equal(t, 5_000_000.0, seg.Liquidity)
	assert.Equal(t, 0.003, seg.Fee)

	large, err := r.GetOptimalRoute(Request{Asset: "BTC", Side: domain.SideSell, Quantity: 300})
	require.NoError(t, err)
	assert.True(t, large.Split)
	require.Len(t, large.Segments, 2)
	for _, s := range large.Segments {
		assert.InDelta(t, 150.0, s.Quantity, 1e-9)
		assert.InDelta(t, 0.01, s.Impact, 1e-12)
		assert.InDelta(t, 99.0, s.ExpectedPrice, 1e-9)
	}
	assert.InDelta(t, 30000.0, large.Notional, 1e-9)

	_, err = r.GetOptimalRoute(Request{Asset: "DOGE", Side: domain.SideBuy, Quantity: 1})
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestGetOptimalRoute_SingleVenueNeverSplits(t *testing.T) {
	r := newTestRouter(t, func(c *Config) { c.PreferredVenues = []string{"curve"} })
	route, err := r.GetOptimalRoute(Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 1000})
	require.NoError(t, err)
	assert.False(t, route.Split)
	assert.Equal(t, "curve", route.Primary().Venue)
}

func TestEstimateExecution(t *testing.T) {
	r := newTestRouter(t, nil)

	tests := []struct {
		name     string
		req      Request
		warnings int
	}{
		{"small order", Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 1}, 0},
		{"slippage above tolerance", Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 100}, 1},
		{"wide tolerance", Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 100, SlippageTolerance: 0.05}, 0},
		{"impact and slippage", Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 2000}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := r.EstimateExecution(tt.req)
			require.NoError(t, err)
			assert.Len(t, est.Warnings, tt.warnings)
			assert.InDelta(t, r.cfg.BaseSlippage+est.PriceImpact, est.Slippage, 1e-12)
			assert.Greater(t, est.TotalCost, est.Fees)
		})
	}
	assert.Empty(t, r.Orders())
}

func TestEstimateExecution_Costs(t *testing.T) {
	r := newTestRouter(t, nil)
	est, err := r.EstimateExecution(Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 100})
	require.NoError(t, err)

	fill := 101 * 1.011
	assert.InDelta(t, 101.0, est.ExpectedPrice, 1e-9)
	assert.InDelta(t, 0.01, est.PriceImpact, 1e-12)
	assert.InDelta(t, 100*fill*0.003, est.Fees, 1e-6)
	assert.Equal(t, 15.0, est.GasCost)
	assert.InDelta(t, est.Fees+15+100*(fill-100), est.TotalCost, 1e-6)
}

func TestEstimateExecution_MatchesExecution(t *testing.T) {
	r := newTestRouter(t, nil)
	req := Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 250, Strategy: StrategySmartRouting}

	est, err := r.EstimateExecution(req)
	require.NoError(t, err)
	o := mustCreate(t, r, req)
	rep, err := r.Execute(context.Background(), o.ID)
	require.NoError(t, err)

	assert.InDelta(t, est.Fees+est.GasCost, rep.Order.TotalFees, 1e-6)
	assert.Equal(t, est.Route.Segments, rep.Route.Segments)
}

func TestProfileSlices(t *testing.T) {
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, profileSlices([]float64{1, 3}), 1e-12)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, profileSlices([]float64{0, 0}), 1e-12)
	assert.InDeltaSlice(t, []float64{1}, equalSlices(0), 1e-12)
}
