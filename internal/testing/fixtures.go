package testing

import (
	"testing"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/internal/modules/execution"
	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/aristath/fundcore/internal/modules/portfolio"
	"github.com/aristath/fundcore/internal/modules/risk"
	"github.com/rs/zerolog"
)

// FundFixture is a fully wired supervisor driven by manual ticks.
type FundFixture struct {
	Supervisor *fund.Supervisor
	Ticks      *fund.ManualTicks
	Prices     *domain.PriceBook
	Emitter    *RecordingEmitter
	Recorder   *MemoryRecorder
}

// NewFundFixture builds fund "fund-1" with default configs, a fixed risk
// seed and the given target allocation.
func NewFundFixture(t *testing.T, target map[string]float64) *FundFixture {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	rcfg := risk.DefaultConfig()
	rcfg.Seed = 7
	engine, err := risk.NewEngine("fund-1", rcfg, nil, log)
	if err != nil {
		t.Fatalf("Failed to create risk engine: %v", err)
	}

	pcfg := portfolio.DefaultConfig()
	pcfg.TargetAllocation = target
	tracker, err := portfolio.NewTracker(pcfg, log)
	if err != nil {
		t.Fatalf("Failed to create tracker: %v", err)
	}

	prices := domain.NewPriceBook(nil)
	router, err := execution.NewRouter(execution.DefaultConfig(), prices, log)
	if err != nil {
		t.Fatalf("Failed to create router: %v", err)
	}

	f := &FundFixture{
		Ticks:    &fund.ManualTicks{},
		Prices:   prices,
		Emitter:  &RecordingEmitter{},
		Recorder: &MemoryRecorder{},
	}
	f.Supervisor, err = fund.NewSupervisor(fund.DefaultConfig("fund-1"), fund.Deps{
		Risk:      engine,
		Portfolio: tracker,
		Router:    router,
		Prices:    prices,
		Ticks:     f.Ticks,
		Recorder:  f.Recorder,
		Emitter:   f.Emitter,
	}, log)
	if err != nil {
		t.Fatalf("Failed to create supervisor: %v", err)
	}
	return f
}

// Seed installs cash and positions through the supervisor.
func (f *FundFixture) Seed(t *testing.T, cash float64, positions ...domain.Position) {
	t.Helper()
	if _, err := f.Supervisor.UpdateState(portfolio.StateUpdate{Cash: &cash, Positions: positions}); err != nil {
		t.Fatalf("Failed to seed portfolio: %v", err)
	}
}

// Position builds a position bought and marked at price.
func Position(asset string, qty, price float64) domain.Position {
	return domain.Position{Asset: asset, Quantity: qty, AverageCost: price, CurrentPrice: price}
}
