package risk

import (
	"fmt"
	"math"

	"github.com/aristath/fundcore/internal/events"
)

// DefaultHedgingStrategies returns the built-in hedging triggers.
func DefaultHedgingStrategies() []HedgingStrategy {
	return []HedgingStrategy{
		{
			ID:         "var_protective_put",
			Name:       "Protective put on elevated VaR",
			Instrument: "index_put",
			Metric:     "var99",
			Condition:  ConditionAbove,
			Threshold:  0.08,
			HedgeRatio: 0.5,
			Enabled:    true,
		},
		{
			ID:         "drawdown_short_future",
			Name:       "Short index future during drawdown",
			Instrument: "index_future_short",
			Metric:     "current_drawdown",
			Condition:  ConditionAbove,
			Threshold:  0.15,
			HedgeRatio: 0.3,
			Enabled:    true,
		},
		{
			ID:         "concentration_collar",
			Name:       "Collar on concentrated position",
			Instrument: "collar",
			Metric:     "concentration",
			Condition:  ConditionAbove,
			Threshold:  0.4,
			HedgeRatio: 0.25,
			Enabled:    true,
		},
	}
}

// CheckHedgingNeeded returns the first enabled strategy whose trigger fires,
// or nil. Urgency grows with the distance past the threshold.
func (e *Engine) CheckHedgingNeeded(metrics MetricsSnapshot) *HedgingRecommendation {
	if metrics.Empty {
		return nil
	}

	e.mu.Lock()
	strategies := e.cfg.HedgingStrategies
	emitter := e.emitter
	now := e.now().UTC()
	e.mu.Unlock()

	for _, s := range strategies {
		if !s.Enabled {
			continue
		}
		value, ok := metrics.Metric(s.Metric)
		if !ok {
			continue
		}

		ratio, triggered := triggerRatio(s.Condition, value, s.Threshold)
		if !triggered {
			continue
		}

		rec := &HedgingRecommendation{
			Timestamp:  now,
			StrategyID: s.ID,
			Instrument: s.Instrument,
			Metric:     s.Metric,
			Urgency:    urgencyFor(ratio),
			Value:      value,
			Threshold:  s.Threshold,
			HedgeRatio: s.HedgeRatio,
			Reason:     fmt.Sprintf("%s %.4f is %s threshold %.4f", s.Metric, value, s.Condition, s.Threshold),
		}

		e.log.Info().
			Str("strategy", s.ID).
			Str("urgency", string(rec.Urgency)).
			Msg("Hedging recommended")

		emitter.Emit(events.HedgingRecommended, events.SeverityWarning, "risk", rec.Reason, &events.HedgingData{
			StrategyID: rec.StrategyID,
			Instrument: rec.Instrument,
			Metric:     rec.Metric,
			Value:      rec.Value,
			Threshold:  rec.Threshold,
			Urgency:    string(rec.Urgency),
			HedgeRatio: rec.HedgeRatio,
		})
		return rec
	}
	return nil
}

// triggerRatio reports whether the condition holds and how far past the
// threshold the value sits, as a multiple.
func triggerRatio(cond Condition, value, threshold float64) (float64, bool) {
	switch cond {
	case ConditionAbove:
		if value <= threshold {
			return 0, false
		}
		if threshold <= 0 {
			return math.Inf(1), true
		}
		return value / threshold, true
	case ConditionBelow:
		if value >= threshold {
			return 0, false
		}
		if value <= 0 {
			return math.Inf(1), true
		}
		return threshold / value, true
	default:
		return 0, false
	}
}

func urgencyFor(ratio float64) Urgency {
	switch {
	case ratio > 1.2:
		return UrgencyHigh
	case ratio > 1.1:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}
