package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackerWith(t *testing.T, target map[string]float64, cash float64, positions ...domain.Position) *Tracker {
	t.Helper()
	tracker := newTestTracker(t, func(c *Config) { c.TargetAllocation = target })
	require.NoError(t, tracker.UpdateState(StateUpdate{Cash: ptr(cash), Positions: positions}))
	return tracker
}

func TestCheckRebalanceNeeded_OnTarget(t *testing.T) {
	tracker := trackerWith(t, map[string]float64{"A": 0.5, "B": 0.5}, 0, pos("A", 500, 1), pos("B", 500, 1))

	check := tracker.CheckRebalanceNeeded()
	assert.False(t, check.Needed)
	assert.Equal(t, 0.0, check.TotalDrift)
	assert.Len(t, check.Drifts, 2)
}

func TestCheckRebalanceNeeded_ReportsEachAsset(t *testing.T) {
	tracker := trackerWith(t, map[string]float64{"A": 0.6, "B": 0.4}, 100, pos("A", 300, 1), pos("B", 500, 1), pos("X", 100, 1))

	check := tracker.CheckRebalanceNeeded()
	require.True(t, check.Needed)
	assert.InDelta(t, 0.3+0.1+0.1, check.TotalDrift, 1e-12)

	require.Len(t, check.Drifts, 3)
	assert.Equal(t, "A", check.Drifts[0].Asset)
	assert.InDelta(t, 0.3, check.Drifts[0].Drift, 1e-12)
	// X is held without a target
	assert.Equal(t, "X", check.Drifts[2].Asset)
	assert.Equal(t, 0.0, check.Drifts[2].Target)
}

func TestCalculateRebalanceOrders_SingleBuy(t *testing.T) {
	tracker := trackerWith(t, map[string]float64{"A": 0.6}, 600, pos("A", 400, 1))

	orders := tracker.CalculateRebalanceOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, "A", orders[0].Asset)
	assert.Equal(t, domain.SideBuy, orders[0].Side)
	assert.InDelta(t, 200, orders[0].Quantity, 1e-9)
	assert.InDelta(t, 200, orders[0].EstimatedValue, 1e-9)
	assert.Equal(t, 1, orders[0].Priority)
}

func TestCalculateRebalanceOrders_PriorityOrdering(t *testing.T) {
	target := map[string]float64{"A": 0.5, "B": 0.2, "C": 0.3, "D": 0.0}
	tracker := trackerWith(t, target, 140,
		pos("A", 300, 1), // +0.20
		pos("B", 220, 1), // -0.02
		pos("C", 240, 1), // +0.06
		pos("D", 100, 1), // -0.10
	)

	orders := tracker.CalculateRebalanceOrders()
	require.Len(t, orders, 4)

	got := make([]string, len(orders))
	for i, o := range orders {
		got[i] = o.Asset
	}
	assert.Equal(t, []string{"D", "A", "C", "B"}, got)
	assert.Equal(t, []int{1, 1, 1, 2}, []int{orders[0].Priority, orders[1].Priority, orders[2].Priority, orders[3].Priority})
	assert.Equal(t, domain.SideSell, orders[0].Side)
	assert.InDelta(t, 100, orders[0].Quantity, 1e-9)
}

func TestCalculateRebalanceOrders_SkipsTinyDrift(t *testing.T) {
	tracker := trackerWith(t, map[string]float64{"A": 0.5004}, 500, pos("A", 500, 1))
	assert.Empty(t, tracker.CalculateRebalanceOrders())
}

func TestCalculateRebalanceOrders_PricesUnheldAssets(t *testing.T) {
	tracker := trackerWith(t, map[string]float64{"A": 0.5, "B": 0.5}, 1000)
	require.NoError(t, tracker.UpdateState(StateUpdate{Prices: map[string]float64{"A": 50}}))

	orders := tracker.CalculateRebalanceOrders()
	require.Len(t, orders, 2)
	byAsset := map[string]RebalanceOrder{orders[0].Asset: orders[0], orders[1].Asset: orders[1]}
	assert.InDelta(t, 10, byAsset["A"].Quantity, 1e-9)
	// Unknown price defaults to 1
	assert.InDelta(t, 500, byAsset["B"].Quantity, 1e-9)
}

func TestExecuteRebalance_NoOrders(t *testing.T) {
	tracker := newTestTracker(t, nil)

	result := tracker.ExecuteRebalance(context.Background())
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.OrdersExecuted)
	assert.Equal(t, 0, result.OrdersFailed)
	assert.GreaterOrEqual(t, int64(result.Duration), int64(0))

	state := tracker.State()
	assert.Equal(t, testNow, state.LastRebalance)
	assert.Equal(t, testNow.AddDate(0, 0, 1), state.NextRebalance)
}

func TestExecuteRebalance_Optimistic(t *testing.T) {
	tracker := trackerWith(t, map[string]float64{"A": 0.6}, 600, pos("A", 400, 1))

	result := tracker.ExecuteRebalance(context.Background())
	require.True(t, result.Success)
	assert.Equal(t, 1, result.OrdersExecuted)
	assert.InDelta(t, 0.6, result.TotalFees, 1e-9)

	state := tracker.State()
	a, _ := state.Position("A")
	assert.InDelta(t, 600, a.Quantity, 1e-9)
	assert.InDelta(t, 399.4, state.Cash, 1e-9)
	assert.InDelta(t, 0.6, state.Allocation["A"], 0.001)
	assert.InDelta(t, 1.0, allocationSum(state.Allocation), 1e-9)
	assert.False(t, tracker.CheckRebalanceNeeded().Needed)
}

type fakeExecutor struct {
	calls []string
}

func (f *fakeExecutor) ExecuteRebalanceOrder(_ context.Context, o RebalanceOrder) (Fill, error) {
	f.calls = append(f.calls, o.Asset)
	switch o.Asset {
	case "B":
		return Fill{}, errors.New("venue rejected order")
	case "C":
		panic("venue crashed")
	case "D":
		return Fill{Asset: o.Asset, Side: o.Side, Quantity: o.Quantity / 2, Price: o.Price, Partial: true}, nil
	default:
		return Fill{Asset: o.Asset, Side: o.Side, Quantity: o.Quantity, Price: o.Price, Fees: 1}, nil
	}
}

type cycleExecutor struct {
	fakeExecutor
	cycles int
	seen   []int
}

func (c *cycleExecutor) BeginCycle() { c.cycles++ }

func (c *cycleExecutor) ExecuteRebalanceOrder(ctx context.Context, o RebalanceOrder) (Fill, error) {
	c.seen = append(c.seen, c.cycles)
	return c.fakeExecutor.ExecuteRebalanceOrder(ctx, o)
}

func TestExecuteRebalance_OneCyclePerRebalance(t *testing.T) {
	tracker := trackerWith(t, map[string]float64{"A": 0.5, "E": 0.5}, 1000)
	executor := &cycleExecutor{}
	tracker.SetExecutor(executor)

	result := tracker.ExecuteRebalance(context.Background())
	require.True(t, result.Success)
	assert.Equal(t, 1, executor.cycles)
	assert.Equal(t, []int{1, 1}, executor.seen)

	idle := trackerWith(t, map[string]float64{"A": 1}, 0, pos("A", 10, 1))
	idleExecutor := &cycleExecutor{}
	idle.SetExecutor(idleExecutor)
	idle.ExecuteRebalance(context.Background())
	assert.Zero(t, idleExecutor.cycles, "nothing to trade starts no cycle")
}

func TestExecuteRebalance_PartialFailure(t *testing.T) {
	target := map[string]float64{"A": 0.25, "B": 0.25, "C": 0.25, "D": 0.25}
	tracker := trackerWith(t, target, 1000)
	executor := &fakeExecutor{}
	tracker.SetExecutor(executor)

	result := tracker.ExecuteRebalance(context.Background())

	assert.Len(t, executor.calls, 4, "a failing order must not stop the rest")
	assert.Equal(t, 2, result.OrdersExecuted)
	assert.Equal(t, 2, result.OrdersFailed)
	assert.False(t, result.Success)
	assert.Len(t, result.Errors, 3)
	assert.Equal(t, 1.0, result.TotalFees)
	assert.Equal(t, testNow, tracker.State().LastRebalance)

	state := tracker.State()
	assert.InDelta(t, 1.0, allocationSum(state.Allocation), 1e-9)
	d, ok := state.Position("D")
	require.True(t, ok)
	assert.InDelta(t, 125, d.Quantity, 1e-9)
}

func TestExecuteRebalance_CancelledContext(t *testing.T) {
	tracker := trackerWith(t, map[string]float64{"A": 0.5, "B": 0.5}, 1000)
	executor := &fakeExecutor{}
	tracker.SetExecutor(executor)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := tracker.ExecuteRebalance(ctx)
	assert.Empty(t, executor.calls)
	assert.Equal(t, 2, result.OrdersFailed)
	assert.False(t, result.Success)
	assert.Equal(t, testNow, tracker.State().LastRebalance)
}
