// Package fund supervises one fund: it drives the periodic risk and
// rebalancing tick, owns the fund lifecycle and serializes every call that
// mutates portfolio, risk or order state.
package fund

import (
	"errors"
	"time"

	"github.com/aristath/fundcore/internal/modules/portfolio"
	"github.com/aristath/fundcore/internal/modules/risk"
)

// ErrFundClosed is returned by every mutating call once the fund is closed.
var ErrFundClosed = errors.New("fund is closed")

// EmergencyStopReason is the pause reason recorded by the drawdown breaker.
const EmergencyStopReason = "Emergency stop: Critical drawdown breach"

// State of the fund lifecycle.
type State string

const (
	StateInitializing State = "initializing"
	StateActive       State = "active"
	StatePaused       State = "paused"
	StateClosed       State = "closed"
)

// TickReport is the outcome of one supervisory tick.
type TickReport struct {
	StartedAt       time.Time                   `json:"started_at"`
	Hedging         *risk.HedgingRecommendation `json:"hedging,omitempty"`
	Rebalance       *portfolio.RebalanceResult  `json:"rebalance,omitempty"`
	FundID          string                      `json:"fund_id"`
	State           State                       `json:"state"`
	PauseReason     string                      `json:"pause_reason,omitempty"`
	Metrics         risk.MetricsSnapshot        `json:"metrics"`
	Limits          risk.LimitCheckResult       `json:"limits"`
	Drift           portfolio.RebalanceCheck    `json:"drift"`
	Duration        time.Duration               `json:"duration"`
	Sequence        uint64                      `json:"sequence"`
	SnapshotVersion uint64                      `json:"snapshot_version"`
	Skipped         bool                        `json:"skipped"`
	EmergencyStop   bool                        `json:"emergency_stop"`
}

// Status is a point-in-time view of the supervisor.
type Status struct {
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	LastTick    *TickReport `json:"last_tick,omitempty"`
	FundID      string      `json:"fund_id"`
	State       State       `json:"state"`
	PauseReason string      `json:"pause_reason,omitempty"`
	Ticks       uint64      `json:"ticks"`
	Ticking     bool        `json:"ticking"`
}
