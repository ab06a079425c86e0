package execution

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingEmitter struct {
	mu    sync.Mutex
	types []events.EventType
}

func (r *recordingEmitter) Emit(t events.EventType, _ events.Severity, _, _ string, _ events.EventData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, t)
}

func (r *recordingEmitter) all() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.EventType(nil), r.types...)
}

func newTestRouter(t *testing.T, mutate func(*Config)) *Router {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	router, err := NewRouter(cfg, domain.PriceMap{"BTC": 100, "ETH": 40}, zerolog.Nop())
	require.NoError(t, err)
	router.now = func() time.Time { return testNow }
	return router
}

func mustCreate(t *testing.T, r *Router, req Request) Order {
	t.Helper()
	o, err := r.CreateOrder(req)
	require.NoError(t, err)
	return o
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown preferred venue", func(c *Config) { c.PreferredVenues = []string{"nowhere"} }},
		{"duplicate venue", func(c *Config) { c.Venues = append(c.Venues, c.Venues[0]) }},
		{"no venues", func(c *Config) { c.Venues = nil }},
		{"zero twap slices", func(c *Config) { c.TWAPSlices = 0 }},
		{"negative vwap weight", func(c *Config) { c.VWAPProfile = []float64{0.5, -0.5} }},
		{"unknown mode", func(c *Config) { c.Mode = "live" }},
		{"unknown default strategy", func(c *Config) { c.DefaultStrategy = "iceberg" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewRouter(cfg, nil, zerolog.Nop())
			assert.Error(t, err)
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestCreateOrder(t *testing.T) {
	r := newTestRouter(t, nil)
	rec := &recordingEmitter{}
	r.SetEmitter(rec)

	o := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 2})
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, StrategySmartRouting, o.Strategy)
	assert.Equal(t, 0.01, o.SlippageTolerance)
	assert.Equal(t, testNow, o.CreatedAt)
	assert.Empty(t, o.Fills)
	assert.Equal(t, []events.EventType{events.OrderCreated, events.OrderIntentIssued}, rec.all())

	got, err := r.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, o, got)
	assert.Len(t, r.Orders(), 1)
}

func TestCreateOrder_RejectsInvalidRequests(t *testing.T) {
	r := newTestRouter(t, nil)
	tests := []struct {
		name string
		req  Request
	}{
		{"missing asset", Request{Side: domain.SideBuy, Quantity: 1}},
		{"zero quantity", Request{Asset: "BTC", Side: domain.SideBuy}},
		{"negative quantity", Request{Asset: "BTC", Side: domain.SideBuy, Quantity: -1}},
		{"unknown side", Request{Asset: "BTC", Side: "hold", Quantity: 1}},
		{"unknown strategy", Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 1, Strategy: "iceberg"}},
		{"negative limit", Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 1, LimitPrice: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CreateOrder(tt.req)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, r.Orders())
}

func TestGetOrder_NotFound(t *testing.T) {
	r := newTestRouter(t, nil)
	_, err := r.GetOrder("missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = r.Execute(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = r.CancelOrder("missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrders_ReturnsCopies(t *testing.T) {
	r := newTestRouter(t, nil)
	o := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 1, Strategy: StrategyImmediate})
	_, err := r.Execute(context.Background(), o.ID)
	require.NoError(t, err)

	snap := r.Orders()[0]
	snap.Fills[0].Quantity = 999
	snap.Status = StatusCancelled

	got, err := r.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, got.Status)
	assert.InDelta(t, 1.0, got.Fills[0].Quantity, 1e-9)
}

func TestExecute_FullFillWithinSlippageBand(t *testing.T) {
	r := newTestRouter(t, nil)
	rec := &recordingEmitter{}
	r.SetEmitter(rec)
	o := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 100, Strategy: StrategyImmediate})

	rep, err := r.Execute(context.Background(), o.ID)
	require.NoError(t, err)

	slippage := r.cfg.BaseSlippage + rep.Route.Impact()
	assert.Equal(t, StatusFilled, rep.Order.Status)
	assert.True(t, rep.Success)
	assert.GreaterOrEqual(t, rep.Order.FilledQuantity, 99.0)
	assert.InDelta(t, rep.Route.ExpectedPrice, rep.Order.AveragePrice, rep.Route.ExpectedPrice*slippage+1e-9)

	// 10k notional sits in the 1% impact tier on a single venue.
	require.Len(t, rep.Route.Segments, 1)
	assert.False(t, rep.Route.Split)
	assert.Equal(t, "uniswap", rep.Route.Primary().Venue)
	assert.InDelta(t, 101.0, rep.Route.ExpectedPrice, 1e-9)
	assert.InDelta(t, 101*1.011, rep.Order.AveragePrice, 1e-9)
	assert.InDelta(t, 100*101*1.011*0.003+15, rep.Order.TotalFees, 1e-6)
	assert.InDelta(t, 15.0, rep.Order.GasCost, 1e-9)
	assert.Contains(t, rep.Warnings[0], "exceeds tolerance")

	assert.Contains(t, rec.all(), events.OrderFilled)
}

func TestExecute_SellMovesPriceDown(t *testing.T) {
	r := newTestRouter(t, nil)
	o := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideSell, Quantity: 1, Strategy: StrategyImmediate})

	rep, err := r.Execute(context.Background(), o.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusFilled, rep.Order.Status)
	assert.InDelta(t, 100*0.999*0.998, rep.Order.AveragePrice, 1e-9)
	assert.InDelta(t, 0.002999, rep.Slippage, 1e-4)
	assert.Empty(t, rep.Warnings)
}

func TestExecute_SplitsLargeOrdersAcrossVenues(t *testing.T) {
	r := newTestRouter(t, nil)
	o := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 200})

	rep, err := r.Execute(context.Background(), o.ID)
	require.NoError(t, err)

	assert.True(t, rep.Route.Split)
	require.Len(t, rep.Order.Fills, 2)
	assert.Equal(t, "uniswap", rep.Order.Fills[0].Venue)
	assert.Equal(t, "sushiswap", rep.Order.Fills[1].Venue)
	for _, f := range rep.Order.Fills {
		assert.InDelta(t, 100.0, f.Quantity, 1e-9)
		assert.InDelta(t, 101*1.011, f.Price, 1e-9)
	}
	assert.InDelta(t, 2*100*101*1.011*0.003+15+12, rep.Order.TotalFees, 1e-6)
	assert.Equal(t, StatusFilled, rep.Order.Status)
}

func TestExecute_TWAP(t *testing.T) {
	r := newTestRouter(t, nil)
	o := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 100, Strategy: StrategyTWAP})

	rep, err := r.Execute(context.Background(), o.ID)
	require.NoError(t, err)

	require.Len(t, rep.Order.Fills, 5)
	for i, f := range rep.Order.Fills {
		assert.Equal(t, i+1, f.Slice)
		assert.Equal(t, "uniswap", f.Venue)
		assert.InDelta(t, 20.0, f.Quantity, 1e-9)
		// 2k per slice is the 0.3% tier.
		assert.InDelta(t, 100*1.003*1.004, f.Price, 1e-9)
	}
	assert.Equal(t, StatusFilled, rep.Order.Status)
	assert.InDelta(t, 5*15.0, rep.Order.GasCost, 1e-9)
}

func TestExecute_VWAPFollowsVolumeProfile(t *testing.T) {
	r := newTestRouter(t, nil)
	o := mustCreate(t, r, Request{Asset: "ETH", Side: domain.SideBuy, Quantity: 100, Strategy: StrategyVWAP})

	rep, err := r.Execute(context.Background(), o.ID)
	require.NoError(t, err)

	want := []float64{30, 15, 10, 15, 30}
	require.Len(t, rep.Order.Fills, len(want))
	for i, f := range rep.Order.Fills {
		assert.InDelta(t, want[i], f.Quantity, 1e-9)
	}
	// Large slices land in a higher impact tier than small ones.
	assert.InDelta(t, 40*1.003*1.004, rep.Order.Fills[0].Price, 1e-9)
	assert.InDelta(t, 40*1.001*1.002, rep.Order.Fills[1].Price, 1e-9)
	assert.Equal(t, StatusFilled, rep.Order.Status)
}

func TestExecute_LimitPrice(t *testing.T) {
	r := newTestRouter(t, nil)

	buy := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 1, LimitPrice: 100, Strategy: StrategyImmediate})
	rep, err := r.Execute(context.Background(), buy.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rep.Order.Status)
	assert.Contains(t, rep.Order.Error, "limit price")
	assert.Empty(t, rep.Order.Fills)
	assert.False(t, rep.Success)

	sell := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideSell, Quantity: 1, LimitPrice: 99, Strategy: StrategyImmediate})
	rep, err = r.Execute(context.Background(), sell.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, rep.Order.Status)
	assert.GreaterOrEqual(t, rep.Order.AveragePrice, 99.0)
}

func TestExecute_MissingPriceFailsOrder(t *testing.T) {
	r := newTestRouter(t, nil)
	o := mustCreate(t, r, Request{Asset: "DOGE", Side: domain.SideBuy, Quantity: 1})

	rep, err := r.Execute(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rep.Order.Status)
	assert.Contains(t, rep.Order.Error, "no price")

	withRef := mustCreate(t, r, Request{Asset: "DOGE", Side: domain.SideBuy, Quantity: 1, ReferencePrice: 0.1})
	rep, err = r.Execute(context.Background(), withRef.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, rep.Order.Status)
}

func TestExecute_OnlyPendingOrders(t *testing.T) {
	r := newTestRouter(t, nil)
	o := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 1})
	_, err := r.Execute(context.Background(), o.ID)
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrOrderNotExecutable)
}

func TestExecute_CancelledContext(t *testing.T) {
	r := newTestRouter(t, nil)
	o := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Execute(ctx, o.ID)
	assert.ErrorIs(t, err, context.Canceled)

	got, err := r.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func singleVenue(liquidity float64) func(*Config) {
	return func(c *Config) {
		c.Venues = []Venue{{Name: "pool", Fee: 0.001, Liquidity: liquidity, GasCost: 1}}
		c.PreferredVenues = []string{"pool"}
		c.DefaultStrategy = StrategyImmediate
	}
}

func TestExecuteBatch_CarriesLiquidityConsumption(t *testing.T) {
	r := newTestRouter(t, singleVenue(1000))
	first := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 5})
	second := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 10})

	result := r.ExecuteBatch(context.Background(), []string{first.ID, second.ID, "missing"})

	require.Len(t, result.Reports, 2)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Partial)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not found")

	firstRep, secondRep := result.Reports[0], result.Reports[1]
	assert.Equal(t, StatusFilled, firstRep.Order.Status)
	assert.Equal(t, StatusPartial, secondRep.Order.Status)
	// The second order is priced on its own notional plus what the first consumed.
	assert.InDelta(t, 0.003, secondRep.Route.Primary().Impact, 1e-12)
	assert.InDelta(t, 1000-firstRep.Order.FilledQuantity*firstRep.Order.AveragePrice, secondRep.Route.Primary().Liquidity, 1e-9)
	consumed := firstRep.Order.FilledQuantity*firstRep.Order.AveragePrice +
		secondRep.Order.FilledQuantity*secondRep.Order.AveragePrice
	assert.InDelta(t, 1000.0, consumed, 1e-6)
	assert.InDelta(t, firstRep.Order.TotalFees+secondRep.Order.TotalFees, result.TotalFees, 1e-9)
}

func TestExecute_FreshLiquidityPerCall(t *testing.T) {
	r := newTestRouter(t, singleVenue(1000))
	first := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 5})
	second := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 5})

	rep, err := r.Execute(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, rep.Order.Status)

	rep, err = r.Execute(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, rep.Order.Status)
}

func TestExecuteInCycle_SharesLiquidityUntilNextCycle(t *testing.T) {
	r := newTestRouter(t, singleVenue(100000))
	ids := make([]string, 3)
	for i := range ids {
		ids[i] = mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 5}).ID
	}

	r.BeginCycle()
	first, err := r.ExecuteInCycle(context.Background(), ids[0])
	require.NoError(t, err)
	second, err := r.ExecuteInCycle(context.Background(), ids[1])
	require.NoError(t, err)

	assert.InDelta(t, 0.001, first.Route.Primary().Impact, 1e-12)
	assert.InDelta(t, 0.003, second.Route.Primary().Impact, 1e-12)
	assert.Greater(t, second.Order.AveragePrice, first.Order.AveragePrice)

	r.BeginCycle()
	third, err := r.ExecuteInCycle(context.Background(), ids[2])
	require.NoError(t, err)
	assert.InDelta(t, 0.001, third.Route.Primary().Impact, 1e-12)
	assert.InDelta(t, first.Order.AveragePrice, third.Order.AveragePrice, 1e-9)
}

func TestExecute_ExhaustedLiquidityFails(t *testing.T) {
	r := newTestRouter(t, singleVenue(100))
	first := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 2})
	second := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 1})

	result := r.ExecuteBatch(context.Background(), []string{first.ID, second.ID})

	assert.Equal(t, 1, result.Partial)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, StatusFailed, result.Reports[1].Order.Status)
	assert.Contains(t, result.Reports[1].Order.Error, "liquidity exhausted")
}

func TestCancelOrder(t *testing.T) {
	r := newTestRouter(t, nil)
	rec := &recordingEmitter{}
	r.SetEmitter(rec)

	o := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 1})
	got, err := r.CancelOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Contains(t, rec.all(), events.OrderCancelled)

	_, err = r.CancelOrder(o.ID)
	assert.ErrorIs(t, err, ErrOrderNotCancellable)
	_, err = r.Execute(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrOrderNotExecutable)

	filled := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 1})
	_, err = r.Execute(context.Background(), filled.ID)
	require.NoError(t, err)
	_, err = r.CancelOrder(filled.ID)
	assert.ErrorIs(t, err, ErrOrderNotCancellable)

	failed := mustCreate(t, r, Request{Asset: "DOGE", Side: domain.SideBuy, Quantity: 1})
	rep, err := r.Execute(context.Background(), failed.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, rep.Order.Status)
	got, err = r.CancelOrder(failed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Contains(t, got.Error, "no price")
}

func TestCancelOrder_PartialKeepsFills(t *testing.T) {
	r := newTestRouter(t, singleVenue(500))
	o := mustCreate(t, r, Request{Asset: "BTC", Side: domain.SideBuy, Quantity: 10})
	rep, err := r.Execute(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPartial, rep.Order.Status)

	got, err := r.CancelOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Len(t, got.Fills, 1)
	assert.Greater(t, got.Remaining(), 0.0)
}
