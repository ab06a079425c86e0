package fund

import (
	"context"
	"testing"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/internal/modules/execution"
	"github.com/aristath/fundcore/internal/modules/portfolio"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutor(t *testing.T, liquidity float64, rec Recorder) *RouterExecutor {
	t.Helper()
	cfg := execution.DefaultConfig()
	cfg.Venues = []execution.Venue{{Name: "pool", Fee: 0.001, Liquidity: liquidity}}
	cfg.PreferredVenues = []string{"pool"}
	router, err := execution.NewRouter(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	return NewRouterExecutor(router, execution.StrategyImmediate, rec, zerolog.Nop())
}

func TestRouterExecutor_Filled(t *testing.T) {
	rec := &fakeRecorder{}
	e := newExecutor(t, 1_000_000, rec)

	fill, err := e.ExecuteRebalanceOrder(context.Background(), portfolio.RebalanceOrder{
		Asset: "A", Side: domain.SideSell, Quantity: 10, Price: 50,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, fill.OrderID)
	assert.Equal(t, "A", fill.Asset)
	assert.Equal(t, domain.SideSell, fill.Side)
	assert.InDelta(t, 10, fill.Quantity, 1e-9)
	assert.Less(t, fill.Price, 50.0)
	assert.Greater(t, fill.Fees, 0.0)
	assert.False(t, fill.Partial)
	assert.Len(t, rec.orders, 1)
}

func TestRouterExecutor_Partial(t *testing.T) {
	e := newExecutor(t, 100, nil)

	fill, err := e.ExecuteRebalanceOrder(context.Background(), portfolio.RebalanceOrder{
		Asset: "A", Side: domain.SideBuy, Quantity: 10, Price: 50,
	})
	require.NoError(t, err)
	assert.True(t, fill.Partial)
	assert.Less(t, fill.Quantity, 10.0)
}

func TestRouterExecutor_Errors(t *testing.T) {
	e := newExecutor(t, 1_000_000, nil)

	_, err := e.ExecuteRebalanceOrder(context.Background(), portfolio.RebalanceOrder{Asset: "A", Side: domain.SideBuy})
	assert.Error(t, err)

	// No reference price and no price source.
	_, err = e.ExecuteRebalanceOrder(context.Background(), portfolio.RebalanceOrder{Asset: "A", Side: domain.SideBuy, Quantity: 1})
	assert.ErrorContains(t, err, "failed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.ExecuteRebalanceOrder(ctx, portfolio.RebalanceOrder{Asset: "A", Side: domain.SideBuy, Quantity: 1, Price: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRouterExecutor_CycleCarriesLiquidity(t *testing.T) {
	e := newExecutor(t, 1_000_000, nil)
	order := portfolio.RebalanceOrder{Asset: "A", Side: domain.SideBuy, Quantity: 900, Price: 1}

	e.BeginCycle()
	first, err := e.ExecuteRebalanceOrder(context.Background(), order)
	require.NoError(t, err)
	second, err := e.ExecuteRebalanceOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Greater(t, second.Price, first.Price)

	e.BeginCycle()
	third, err := e.ExecuteRebalanceOrder(context.Background(), order)
	require.NoError(t, err)
	assert.InDelta(t, first.Price, third.Price, 1e-9)
}

func TestManualTicks(t *testing.T) {
	m := &ManualTicks{}
	assert.False(t, m.Fire())

	n := 0
	stopFirst, err := m.Start(func() { n++ })
	require.NoError(t, err)
	stopSecond, err := m.Start(func() { n += 10 })
	require.NoError(t, err)

	// A stale stop does not end the newer run.
	stopFirst()
	assert.True(t, m.Fire())
	assert.Equal(t, 10, n)

	stopSecond()
	assert.False(t, m.Running())
	assert.False(t, m.Fire())
}
