package risk

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aristath/fundcore/internal/events"
	"github.com/rs/zerolog"
)

// Engine computes risk metrics for a single fund and evaluates them against
// its limits. Snapshots go to the shared SnapshotStore; the engine keeps no
// mutable "latest" copy of its own.
type Engine struct {
	mu      sync.Mutex
	fundID  string
	cfg     Config
	limits  Limits
	returns []float64
	alerts  []Alert
	custom  []StressScenario
	store   *SnapshotStore
	rng     *rand.Rand
	emitter events.Emitter
	now     func() time.Time
	log     zerolog.Logger
}

// NewEngine creates a risk engine with default limits. A nil store gets a
// private one.
func NewEngine(fundID string, cfg Config, store *SnapshotStore, log zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, s := range cfg.StressScenarios {
		if _, ok := catalogScenario(s.ID); ok {
			return nil, fmt.Errorf("invalid risk config: scenario %s shadows a built-in scenario", s.ID)
		}
	}
	if store == nil {
		store = NewSnapshotStore(DefaultSnapshotHistory)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &Engine{
		fundID:  fundID,
		cfg:     cfg,
		limits:  DefaultLimits(),
		custom:  append([]StressScenario(nil), cfg.StressScenarios...),
		store:   store,
		rng:     newRand(seed),
		emitter: events.Nop{},
		now:     time.Now,
		log:     log.With().Str("service", "risk").Str("fund_id", fundID).Logger(),
	}, nil
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SetEmitter routes engine events to e.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if emitter == nil {
		emitter = events.Nop{}
	}
	e.emitter = emitter
}

// SetRand replaces the random source used by Monte Carlo VaR and stress tests.
func (e *Engine) SetRand(r *rand.Rand) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng = r
}

// FundID returns the fund this engine scores.
func (e *Engine) FundID() string {
	return e.fundID
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Configure replaces the limits wholesale. Invalid limits leave the current
// ones in place.
func (e *Engine) Configure(limits Limits) error {
	if err := limits.Validate(); err != nil {
		e.log.Warn().Err(err).Msg("Rejected risk limits")
		return err
	}

	e.mu.Lock()
	e.limits = limits
	emitter := e.emitter
	e.mu.Unlock()

	e.log.Info().
		Float64("max_drawdown", limits.MaxDrawdown).
		Float64("max_var", limits.MaxVaR).
		Float64("max_leverage", limits.MaxLeverage).
		Msg("Risk limits configured")

	emitter.Emit(events.RiskLimitsConfigured, events.SeverityInfo, "risk", "Risk limits configured", &events.LimitsConfiguredData{
		MaxDrawdown:      limits.MaxDrawdown,
		MaxLeverage:      limits.MaxLeverage,
		MaxConcentration: limits.MaxConcentration,
		MaxVaR:           limits.MaxVaR,
		MinLiquidity:     limits.MinLiquidity,
	})
	return nil
}

// Limits returns the active limits by value.
func (e *Engine) Limits() Limits {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.limits
}

// SetReturnHistory replaces the rolling return buffer. Non-finite values are
// dropped and only the most recent LookbackDays entries are kept.
func (e *Engine) SetReturnHistory(returns []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf := make([]float64, 0, len(returns))
	for _, r := range returns {
		if isFinite(r) {
			buf = append(buf, r)
		}
	}
	e.returns = e.trim(buf)
}

// RecordReturn appends one periodic return to the buffer.
func (e *Engine) RecordReturn(r float64) {
	if !isFinite(r) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.returns = e.trim(append(e.returns, r))
}

// Returns returns a copy of the return buffer.
func (e *Engine) Returns() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]float64(nil), e.returns...)
}

// Latest returns the newest stored snapshot for this fund.
func (e *Engine) Latest() (Versioned, bool) {
	return e.store.Latest(e.fundID)
}

// History returns stored snapshots for this fund, newest first.
func (e *Engine) History(limit int) []Versioned {
	return e.store.History(e.fundID, limit)
}

func (e *Engine) trim(buf []float64) []float64 {
	if n := e.cfg.LookbackDays; n > 0 && len(buf) > n {
		return append([]float64(nil), buf[len(buf)-n:]...)
	}
	return buf
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
