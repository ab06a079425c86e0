package fund

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/internal/events"
	"github.com/aristath/fundcore/internal/modules/execution"
	"github.com/aristath/fundcore/internal/modules/portfolio"
	"github.com/aristath/fundcore/internal/modules/risk"
	"github.com/rs/zerolog"
)

// Deps are the components a Supervisor coordinates. Risk, Portfolio and
// Router are required.
type Deps struct {
	Risk      *risk.Engine
	Portfolio *portfolio.Tracker
	Router    *execution.Router
	Prices    *domain.PriceBook
	Ticks     TickSource
	Recorder  Recorder
	Observer  Observer
	Emitter   events.Emitter
}

// Supervisor is the single owner of a fund's mutable state. A single mutex
// serializes the tick and every facade call.
type Supervisor struct {
	mu          sync.Mutex
	cfg         Config
	state       State
	pauseReason string
	risk        *risk.Engine
	portfolio   *portfolio.Tracker
	router      *execution.Router
	prices      *domain.PriceBook
	ticks       TickSource
	stopTicks   func()
	tickCtx     context.Context
	recorder    Recorder
	observer    Observer
	emitter     events.Emitter
	sequence    uint64
	startedAt   *time.Time
	lastTick    *TickReport
	now         func() time.Time
	log         zerolog.Logger
}

// NewSupervisor wires the fund components together. Rebalance orders are
// routed through deps.Router.
func NewSupervisor(cfg Config, deps Deps, log zerolog.Logger) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Risk == nil || deps.Portfolio == nil || deps.Router == nil {
		return nil, errors.New("fund supervisor requires risk, portfolio and router")
	}
	if deps.Ticks == nil {
		deps.Ticks = &ManualTicks{}
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Emitter == nil {
		deps.Emitter = events.Nop{}
	}

	s := &Supervisor{
		cfg:       cfg,
		state:     StateInitializing,
		risk:      deps.Risk,
		portfolio: deps.Portfolio,
		router:    deps.Router,
		prices:    deps.Prices,
		ticks:     deps.Ticks,
		tickCtx:   context.Background(),
		recorder:  deps.Recorder,
		observer:  deps.Observer,
		emitter:   deps.Emitter,
		now:       time.Now,
		log:       log.With().Str("service", "fund").Str("fund_id", cfg.FundID).Logger(),
	}

	s.risk.SetEmitter(deps.Emitter)
	s.portfolio.SetEmitter(deps.Emitter)
	s.router.SetEmitter(deps.Emitter)
	s.portfolio.SetExecutor(NewRouterExecutor(deps.Router, "", deps.Recorder, log))
	return s, nil
}

// FundID returns the supervised fund id.
func (s *Supervisor) FundID() string {
	return s.cfg.FundID
}

// Risk exposes the engine for read-only queries.
func (s *Supervisor) Risk() *risk.Engine {
	return s.risk
}

// Portfolio exposes the tracker for read-only queries.
func (s *Supervisor) Portfolio() *portfolio.Tracker {
	return s.portfolio
}

// Router exposes the router for read-only queries.
func (s *Supervisor) Router() *execution.Router {
	return s.router
}

// Start activates the fund and its tick source. Ticks run with ctx.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrFundClosed
	case StateActive, StatePaused:
		return nil
	}

	s.tickCtx = ctx
	if err := s.startTicks(); err != nil {
		return err
	}
	now := s.now().UTC()
	s.startedAt = &now
	s.transition(StateActive, "started")
	return nil
}

// Pause suspends ticking. Pausing a fund that is not active is a no-op.
func (s *Supervisor) Pause(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pauseLocked(reason)
}

func (s *Supervisor) pauseLocked(reason string) error {
	switch s.state {
	case StateClosed:
		return ErrFundClosed
	case StateActive:
	default:
		return nil
	}
	if reason == "" {
		reason = "manual pause"
	}
	s.haltTicks()
	s.pauseReason = reason
	s.transition(StatePaused, reason)
	return nil
}

// Resume reactivates a paused fund and restarts ticking.
func (s *Supervisor) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrFundClosed
	case StatePaused:
	default:
		return nil
	}
	if err := s.startTicks(); err != nil {
		return err
	}
	s.pauseReason = ""
	s.transition(StateActive, "resumed")
	return nil
}

// Stop closes the fund for good.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	s.haltTicks()
	s.transition(StateClosed, "stopped")
	return nil
}

// State returns the lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the supervisor view.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		FundID:      s.cfg.FundID,
		State:       s.state,
		PauseReason: s.pauseReason,
		Ticks:       s.sequence,
		Ticking:     s.stopTicks != nil,
	}
	if s.startedAt != nil {
		t := *s.startedAt
		st.StartedAt = &t
	}
	if s.lastTick != nil {
		last := *s.lastTick
		st.LastTick = &last
	}
	return st
}

func (s *Supervisor) startTicks() error {
	if s.stopTicks != nil {
		return nil
	}
	stop, err := s.ticks.Start(s.onTick)
	if err != nil {
		return fmt.Errorf("failed to start tick source: %w", err)
	}
	s.stopTicks = stop
	return nil
}

func (s *Supervisor) haltTicks() {
	if s.stopTicks != nil {
		s.stopTicks()
		s.stopTicks = nil
	}
}

func (s *Supervisor) onTick() {
	s.mu.Lock()
	ctx := s.tickCtx
	s.mu.Unlock()

	if _, err := s.Tick(ctx); err != nil {
		s.log.Error().Err(err).Msg("Tick failed")
	}
}

func (s *Supervisor) transition(to State, reason string) {
	from := s.state
	if from == to {
		return
	}
	s.state = to

	severity := events.SeverityInfo
	if to == StatePaused {
		severity = events.SeverityWarning
	}
	s.log.Info().Str("from", string(from)).Str("to", string(to)).Str("reason", reason).Msg("Fund state changed")
	s.emitter.Emit(events.FundStateChanged, severity, "fund", fmt.Sprintf("Fund %s", to), &events.FundStateData{
		FundID: s.cfg.FundID,
		From:   string(from),
		To:     string(to),
		Reason: reason,
	})
	s.observer.ObserveState(s.cfg.FundID, to)
}

// Tick runs one supervisory cycle. Ticks on a fund that is not active are
// reported as skipped.
func (s *Supervisor) Tick(ctx context.Context) (TickReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return TickReport{}, ErrFundClosed
	}

	start := s.now()
	s.sequence++
	report := TickReport{
		StartedAt: start.UTC(),
		FundID:    s.cfg.FundID,
		Sequence:  s.sequence,
		State:     s.state,
	}
	if s.state != StateActive {
		report.Skipped = true
		report.PauseReason = s.pauseReason
		return report, nil
	}

	metrics, check := s.assessLocked()
	report.Metrics = metrics
	report.Limits = check
	if latest, ok := s.risk.Latest(); ok {
		report.SnapshotVersion = latest.Version
	}
	report.Hedging = s.risk.CheckHedgingNeeded(metrics)

	if s.emergencyBreach(metrics, check) {
		s.tripEmergencyStop(metrics)
		report.EmergencyStop = true
	} else {
		report.Drift = s.portfolio.CheckRebalanceNeeded()
		violated := len(check.Violations) > 0
		if report.Drift.Needed || (violated && s.cfg.RebalanceOnViolation) {
			result := s.portfolio.ExecuteRebalance(ctx)
			report.Rebalance = &result
		}
		if violated && s.cfg.PauseOnViolation && check.HasCritical() {
			_ = s.pauseLocked("Risk limit violation: " + strings.Join(violationNames(check), ", "))
		}
	}

	report.State = s.state
	report.PauseReason = s.pauseReason
	report.Duration = s.now().Sub(start)
	if report.Duration < 0 {
		report.Duration = 0
	}
	s.finishTick(ctx, &report)
	return report, nil
}

// assessLocked feeds the tracker's return history to the engine and scores
// the current state.
func (s *Supervisor) assessLocked() (risk.MetricsSnapshot, risk.LimitCheckResult) {
	state := s.portfolio.State()
	s.risk.SetReturnHistory(s.portfolio.Returns())
	metrics := s.risk.CalculateMetrics(state.Positions, state.TotalValue)
	return metrics, s.risk.CheckLimits(metrics)
}

func (s *Supervisor) emergencyBreach(m risk.MetricsSnapshot, check risk.LimitCheckResult) bool {
	if !s.cfg.EmergencyStopEnabled || len(check.Violations) == 0 {
		return false
	}
	maxDrawdown := s.risk.Limits().MaxDrawdown
	return maxDrawdown > 0 && m.CurrentDrawdown > s.cfg.EmergencyMultiplier*maxDrawdown
}

func (s *Supervisor) tripEmergencyStop(m risk.MetricsSnapshot) {
	maxDrawdown := s.risk.Limits().MaxDrawdown
	s.log.Error().
		Float64("drawdown", m.CurrentDrawdown).
		Float64("max_drawdown", maxDrawdown).
		Msg(EmergencyStopReason)
	s.emitter.Emit(events.EmergencyStop, events.SeverityCritical, "fund", EmergencyStopReason, &events.EmergencyStopData{
		FundID:      s.cfg.FundID,
		Drawdown:    m.CurrentDrawdown,
		MaxDrawdown: maxDrawdown,
		Multiplier:  s.cfg.EmergencyMultiplier,
	})
	_ = s.pauseLocked(EmergencyStopReason)
}

func (s *Supervisor) finishTick(ctx context.Context, report *TickReport) {
	last := *report
	s.lastTick = &last

	if s.recorder != nil {
		if err := s.recorder.RecordTick(ctx, *report); err != nil {
			s.log.Warn().Err(err).Uint64("sequence", report.Sequence).Msg("Failed to record tick")
		}
	}
	s.observer.ObserveTick(*report)

	s.log.Debug().
		Uint64("sequence", report.Sequence).
		Int("violations", len(report.Limits.Violations)).
		Int("warnings", len(report.Limits.Warnings)).
		Bool("rebalanced", report.Rebalance != nil).
		Dur("duration", report.Duration).
		Msg("Tick completed")
	s.emitter.Emit(events.TickCompleted, events.SeverityInfo, "fund", "Tick completed", &events.TickData{
		FundID:          s.cfg.FundID,
		Sequence:        report.Sequence,
		Violations:      len(report.Limits.Violations),
		Warnings:        len(report.Limits.Warnings),
		RebalanceNeeded: report.Drift.Needed,
		Rebalanced:      report.Rebalance != nil,
		DurationMs:      report.Duration.Milliseconds(),
	})
}

func violationNames(check risk.LimitCheckResult) []string {
	names := make([]string, 0, len(check.Violations))
	for _, v := range check.Violations {
		names = append(names, v.Limit)
	}
	return names
}
