// Package di provides dependency injection type definitions.
package di

import (
	"github.com/aristath/fundcore/internal/database"
	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/internal/events"
	"github.com/aristath/fundcore/internal/metrics"
	"github.com/aristath/fundcore/internal/modules/execution"
	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/aristath/fundcore/internal/modules/ledger"
	"github.com/aristath/fundcore/internal/modules/portfolio"
	"github.com/aristath/fundcore/internal/modules/risk"
	"github.com/aristath/fundcore/internal/reliability"
	"github.com/aristath/fundcore/internal/scheduler"
)

// Container holds all dependencies for one fund process.
//
// It is created by Wire() and passed to the HTTP server and main. The
// supervisor is the only writer of fund state; the component fields are
// exposed for read-only queries and wiring.
type Container struct {
	// Databases
	LedgerDB *database.DB

	// Repositories
	Ledger *ledger.Repository

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Fund components
	Prices     *domain.PriceBook
	Snapshots  *risk.SnapshotStore
	Risk       *risk.Engine
	Portfolio  *portfolio.Tracker
	Router     *execution.Router
	Ticks      fund.TickSource
	Supervisor *fund.Supervisor

	// Observability
	Metrics *metrics.Metrics

	// Background jobs
	Scheduler *scheduler.Scheduler
	Backup    *reliability.BackupService // nil unless backups are enabled
}

// Databases returns the open databases keyed by name.
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB)
	if c.LedgerDB != nil {
		dbs[c.LedgerDB.Name()] = c.LedgerDB
	}
	return dbs
}

// Close stops the scheduler, drains the event bus and closes the databases.
// The supervisor must be stopped first.
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.EventBus != nil {
		c.EventBus.Close()
	}
	if c.LedgerDB != nil {
		return c.LedgerDB.Close()
	}
	return nil
}
