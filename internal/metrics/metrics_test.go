package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/fundcore/internal/events"
	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/aristath/fundcore/internal/modules/portfolio"
	"github.com/aristath/fundcore/internal/modules/risk"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveState(t *testing.T) {
	m := New()
	m.ObserveState("fund-1", fund.StateActive)
	m.ObserveState("fund-1", fund.StatePaused)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("fund-1", "paused")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("fund-1", "active")))
}

func TestObserveTick(t *testing.T) {
	m := New()

	m.ObserveTick(fund.TickReport{FundID: "fund-1", Skipped: true})
	m.ObserveTick(fund.TickReport{
		FundID:   "fund-1",
		Duration: 20 * time.Millisecond,
		Metrics:  risk.MetricsSnapshot{VaR99: 0.04, CurrentDrawdown: 0.1, PortfolioValue: 1000},
		Limits: risk.LimitCheckResult{Violations: []risk.LimitViolation{
			{Limit: risk.LimitConcentration}, {Limit: risk.LimitVaR},
		}},
		Rebalance: &portfolio.RebalanceResult{OrdersExecuted: 3, OrdersFailed: 1, TotalFees: 1.5},
	})
	m.ObserveTick(fund.TickReport{
		FundID:        "fund-1",
		EmergencyStop: true,
		Metrics:       risk.MetricsSnapshot{CurrentDrawdown: 0.4},
		Limits:        risk.LimitCheckResult{Violations: []risk.LimitViolation{{Limit: risk.LimitDrawdown}}},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks.WithLabelValues("fund-1", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks.WithLabelValues("fund-1", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks.WithLabelValues("fund-1", "emergency_stop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emergencyStops.WithLabelValues("fund-1")))
	assert.Equal(t, 0.4, testutil.ToFloat64(m.currentDrawdown.WithLabelValues("fund-1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.violations.WithLabelValues("fund-1", risk.LimitDrawdown)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rebalanceOrders.WithLabelValues("fund-1", "executed")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.rebalanceFees.WithLabelValues("fund-1")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.tickDuration))
}

func TestAttachAndHandler(t *testing.T) {
	m := New()
	bus := events.NewBus(8, zerolog.Nop())
	m.Attach(bus)

	manager := events.NewManager(bus, zerolog.Nop())
	manager.Emit(events.EmergencyStop, events.SeverityCritical, "fund", "Emergency stop", &events.EmergencyStopData{})
	bus.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("fund", string(events.EmergencyStop), "critical")))

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fund_events_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
