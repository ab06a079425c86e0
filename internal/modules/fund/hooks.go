package fund

import (
	"context"

	"github.com/aristath/fundcore/internal/modules/execution"
)

// Recorder persists the fund's audit trail.
type Recorder interface {
	RecordTick(ctx context.Context, report TickReport) error
	RecordOrder(ctx context.Context, order execution.Order) error
}

// Observer receives tick outcomes and lifecycle changes for metrics.
type Observer interface {
	ObserveTick(report TickReport)
	ObserveState(fundID string, state State)
}

type nopObserver struct{}

func (nopObserver) ObserveTick(TickReport) {}
func (nopObserver) ObserveState(string, State) {}
