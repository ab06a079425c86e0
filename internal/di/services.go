// Package di provides dependency injection for service implementations.
package di

import (
	"fmt"

	"github.com/aristath/fundcore/internal/config"
	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/internal/events"
	"github.com/aristath/fundcore/internal/metrics"
	"github.com/aristath/fundcore/internal/modules/execution"
	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/aristath/fundcore/internal/modules/portfolio"
	"github.com/aristath/fundcore/internal/modules/risk"
	"github.com/aristath/fundcore/internal/scheduler"
	"github.com/rs/zerolog"
)

// EventBufferSize is the per-subscriber queue depth of the event bus.
const EventBufferSize = 1024

// InitializeServices builds the fund components and the supervisor that
// owns them. Event subscribers (ledger, metrics) are attached before the
// first event can be emitted.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}
	fc := cfg.Fund
	fundID := fc.Supervisor.FundID

	container.EventBus = events.NewBus(EventBufferSize, log)
	container.EventManager = events.NewManager(container.EventBus, log)
	container.Ledger.Attach(container.EventBus)

	container.Metrics = metrics.New()
	container.Metrics.Attach(container.EventBus)

	container.Snapshots = risk.NewSnapshotStore(risk.DefaultSnapshotHistory)
	engine, err := risk.NewEngine(fundID, fc.Risk, container.Snapshots, log)
	if err != nil {
		return fmt.Errorf("failed to create risk engine: %w", err)
	}
	if err := engine.Configure(fc.Limits); err != nil {
		return fmt.Errorf("failed to configure risk limits: %w", err)
	}
	container.Risk = engine

	tracker, err := portfolio.NewTracker(fc.Portfolio, log)
	if err != nil {
		return fmt.Errorf("failed to create portfolio tracker: %w", err)
	}
	container.Portfolio = tracker

	container.Prices = domain.NewPriceBook(nil)
	router, err := execution.NewRouter(fc.Execution, container.Prices, log)
	if err != nil {
		return fmt.Errorf("failed to create execution router: %w", err)
	}
	container.Router = router

	ticks, err := scheduler.NewCronTicks(fc.Supervisor.TickSchedule, log)
	if err != nil {
		return fmt.Errorf("failed to create tick source: %w", err)
	}
	container.Ticks = ticks

	supervisor, err := fund.NewSupervisor(fc.Supervisor, fund.Deps{
		Risk:      engine,
		Portfolio: tracker,
		Router:    router,
		Prices:    container.Prices,
		Ticks:     ticks,
		Recorder:  container.Ledger,
		Observer:  container.Metrics,
		Emitter:   container.EventManager,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create fund supervisor: %w", err)
	}
	container.Supervisor = supervisor

	log.Info().
		Str("fund_id", fundID).
		Str("tick_schedule", fc.Supervisor.TickSchedule).
		Msg("Services initialized")
	return nil
}
