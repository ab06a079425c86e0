package risk

import (
	"fmt"

	"github.com/aristath/fundcore/internal/events"
	"github.com/google/uuid"
)

type limitCheck struct {
	name     string
	value    float64
	limit    float64
	severity Severity
	label    string
}

// CheckLimits compares a snapshot with the active limits. Breaches become
// violations and are recorded as alerts; values past AlertPercent of a limit
// become warnings.
func (e *Engine) CheckLimits(metrics MetricsSnapshot) LimitCheckResult {
	e.mu.Lock()
	result := e.checkLimits(metrics)
	e.recordAlerts(result.Violations)
	emitter := e.emitter
	e.mu.Unlock()

	for _, v := range result.Violations {
		emitter.Emit(events.RiskLimitViolation, eventSeverity(v.Severity), "risk", v.Message, &events.LimitBreachData{
			Limit:     v.Limit,
			Value:     v.Value,
			Threshold: v.Threshold,
			Severity:  string(v.Severity),
		})
	}
	for _, w := range result.Warnings {
		emitter.Emit(events.RiskLimitWarning, events.SeverityWarning, "risk", w.Message, &events.LimitBreachData{
			Limit:     w.Limit,
			Value:     w.Value,
			Threshold: w.Threshold,
			Severity:  string(w.Severity),
			Warning:   true,
		})
	}

	if len(result.Violations) > 0 {
		e.log.Warn().
			Int("violations", len(result.Violations)).
			Int("warnings", len(result.Warnings)).
			Msg("Risk limits breached")
	}

	return result
}

func (e *Engine) checkLimits(m MetricsSnapshot) LimitCheckResult {
	l := e.limits
	result := LimitCheckResult{
		Timestamp:  e.now().UTC(),
		Violations: []LimitViolation{},
		Warnings:   []LimitViolation{},
	}

	upper := []limitCheck{
		{LimitVaR, m.VaR99, l.MaxVaR, SeverityCritical, "VaR99"},
		{LimitDrawdown, m.CurrentDrawdown, l.MaxDrawdown, SeverityCritical, "Drawdown"},
		{LimitDailyLoss, -m.DailyReturn, l.MaxDailyLoss, SeverityCritical, "Daily loss"},
		{LimitWeeklyLoss, -m.WeeklyReturn, l.MaxWeeklyLoss, SeverityCritical, "Weekly loss"},
		{LimitLeverage, m.Leverage, l.MaxLeverage, SeverityCritical, "Leverage"},
		{LimitConcentration, m.Concentration, l.MaxConcentration, SeverityWarning, "Concentration"},
	}

	for _, c := range upper {
		if c.limit <= 0 {
			continue
		}
		switch {
		case c.value > c.limit:
			result.Violations = append(result.Violations, LimitViolation{
				Limit:     c.name,
				Severity:  c.severity,
				Value:     c.value,
				Threshold: c.limit,
				Message:   fmt.Sprintf("%s %.4f exceeds limit %.4f", c.label, c.value, c.limit),
			})
		case c.value >= e.cfg.AlertPercent*c.limit:
			result.Warnings = append(result.Warnings, LimitViolation{
				Limit:     c.name,
				Severity:  SeverityWarning,
				Value:     c.value,
				Threshold: c.limit,
				Message:   fmt.Sprintf("%s %.4f approaching limit %.4f", c.label, c.value, c.limit),
			})
		}
	}

	// Liquidity is a floor, and an empty portfolio holds nothing illiquid.
	if l.MinLiquidity > 0 && !m.Empty {
		switch {
		case m.Liquidity < l.MinLiquidity:
			result.Violations = append(result.Violations, LimitViolation{
				Limit:     LimitLiquidity,
				Severity:  SeverityWarning,
				Value:     m.Liquidity,
				Threshold: l.MinLiquidity,
				Message:   fmt.Sprintf("Liquidity %.4f below minimum %.4f", m.Liquidity, l.MinLiquidity),
			})
		case m.Liquidity < l.MinLiquidity/e.cfg.AlertPercent:
			result.Warnings = append(result.Warnings, LimitViolation{
				Limit:     LimitLiquidity,
				Severity:  SeverityWarning,
				Value:     m.Liquidity,
				Threshold: l.MinLiquidity,
				Message:   fmt.Sprintf("Liquidity %.4f approaching minimum %.4f", m.Liquidity, l.MinLiquidity),
			})
		}
	}

	result.Passed = len(result.Violations) == 0
	return result
}

func (e *Engine) recordAlerts(violations []LimitViolation) {
	for _, v := range violations {
		e.alerts = append(e.alerts, Alert{
			ID:        uuid.New().String(),
			CreatedAt: e.now().UTC(),
			Limit:     v.Limit,
			Severity:  v.Severity,
			Message:   v.Message,
			Value:     v.Value,
			Threshold: v.Threshold,
		})
	}
	if limit := e.cfg.MaxAlerts; limit > 0 && len(e.alerts) > limit {
		e.alerts = append([]Alert(nil), e.alerts[len(e.alerts)-limit:]...)
	}
}

// Alerts returns recorded alerts, oldest first.
func (e *Engine) Alerts(includeAcknowledged bool) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		if a.Acknowledged && !includeAcknowledged {
			continue
		}
		out = append(out, copyAlert(a))
	}
	return out
}

// AcknowledgeAlert marks an alert as handled. It reports false if the id is unknown.
func (e *Engine) AcknowledgeAlert(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.alerts {
		if e.alerts[i].ID != id {
			continue
		}
		if !e.alerts[i].Acknowledged {
			now := e.now().UTC()
			e.alerts[i].Acknowledged = true
			e.alerts[i].AcknowledgedAt = &now
		}
		return true
	}
	return false
}

// ClearAcknowledged drops acknowledged alerts and returns how many were removed.
func (e *Engine) ClearAcknowledged() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.alerts[:0]
	for _, a := range e.alerts {
		if !a.Acknowledged {
			kept = append(kept, a)
		}
	}
	removed := len(e.alerts) - len(kept)
	e.alerts = kept
	return removed
}

func copyAlert(a Alert) Alert {
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		a.AcknowledgedAt = &t
	}
	return a
}

func eventSeverity(s Severity) events.Severity {
	if s == SeverityCritical {
		return events.SeverityCritical
	}
	return events.SeverityWarning
}
