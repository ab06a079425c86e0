// Package metrics exposes fund supervision as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/aristath/fundcore/internal/events"
	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fund"

var states = []fund.State{fund.StateInitializing, fund.StateActive, fund.StatePaused, fund.StateClosed}

// Metrics implements fund.Observer.
type Metrics struct {
	registry *prometheus.Registry

	state           *prometheus.GaugeVec
	ticks           *prometheus.CounterVec
	tickDuration    *prometheus.HistogramVec
	var99           *prometheus.GaugeVec
	currentDrawdown *prometheus.GaugeVec
	portfolioValue  *prometheus.GaugeVec
	violations      *prometheus.CounterVec
	rebalanceOrders *prometheus.CounterVec
	rebalanceFees   *prometheus.CounterVec
	emergencyStops  *prometheus.CounterVec
	events          *prometheus.CounterVec
}

var _ fund.Observer = (*Metrics)(nil)

// New registers the fund metrics, plus Go and process collectors, on a
// private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "1 for the fund's current lifecycle state, 0 otherwise",
		}, []string{"fund_id", "state"}),
		ticks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "ticks_total",
			Help:      "Supervisory ticks by outcome",
		}, []string{"fund_id", "outcome"}),
		tickDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "tick_duration_seconds",
			Help:      "Duration of supervisory ticks",
			Buckets:   prometheus.DefBuckets,
		}, []string{"fund_id"}),
		var99: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "var99_ratio",
			Help:      "99% value at risk as a fraction of portfolio value",
		}, []string{"fund_id"}),
		currentDrawdown: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "current_drawdown_ratio",
			Help:      "Current decline from the running peak",
		}, []string{"fund_id"}),
		portfolioValue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "value",
			Help:      "Portfolio value at the last tick",
		}, []string{"fund_id"}),
		violations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "limit_violations_total",
			Help:      "Risk limit violations observed by ticks",
		}, []string{"fund_id", "limit"}),
		rebalanceOrders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "rebalance_orders_total",
			Help:      "Rebalance orders by result",
		}, []string{"fund_id", "result"}),
		rebalanceFees: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "rebalance_fees_total",
			Help:      "Fees paid by rebalances",
		}, []string{"fund_id"}),
		emergencyStops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "emergency_stops_total",
			Help:      "Emergency stops triggered",
		}, []string{"fund_id"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events published on the bus",
		}, []string{"category", "type", "severity"}),
	}
}

// Registry returns the registry holding the fund metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveState implements fund.Observer.
func (m *Metrics) ObserveState(fundID string, state fund.State) {
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(fundID, string(s)).Set(v)
	}
}

// ObserveTick implements fund.Observer.
func (m *Metrics) ObserveTick(report fund.TickReport) {
	id := report.FundID
	switch {
	case report.Skipped:
		m.ticks.WithLabelValues(id, "skipped").Inc()
		return
	case report.EmergencyStop:
		m.ticks.WithLabelValues(id, "emergency_stop").Inc()
		m.emergencyStops.WithLabelValues(id).Inc()
	default:
		m.ticks.WithLabelValues(id, "completed").Inc()
	}

	m.tickDuration.WithLabelValues(id).Observe(report.Duration.Seconds())
	m.var99.WithLabelValues(id).Set(report.Metrics.VaR99)
	m.currentDrawdown.WithLabelValues(id).Set(report.Metrics.CurrentDrawdown)
	m.portfolioValue.WithLabelValues(id).Set(report.Metrics.PortfolioValue)
	for _, v := range report.Limits.Violations {
		m.violations.WithLabelValues(id, v.Limit).Inc()
	}

	if r := report.Rebalance; r != nil {
		m.rebalanceOrders.WithLabelValues(id, "executed").Add(float64(r.OrdersExecuted))
		m.rebalanceOrders.WithLabelValues(id, "failed").Add(float64(r.OrdersFailed))
		m.rebalanceFees.WithLabelValues(id).Add(r.TotalFees)
	}
}

// Attach counts every event published on bus.
func (m *Metrics) Attach(bus *events.Bus) *events.Subscription {
	return bus.Subscribe(events.CategoryAll, "metrics", func(e events.Event) {
		m.events.WithLabelValues(string(e.Category), string(e.Type), string(e.Severity)).Inc()
	})
}
