package testing

import (
	"context"
	"sync"

	"github.com/aristath/fundcore/internal/events"
	"github.com/aristath/fundcore/internal/modules/execution"
	"github.com/aristath/fundcore/internal/modules/fund"
)

// RecordingEmitter is an events.Emitter that remembers every event type.
type RecordingEmitter struct {
	mu    sync.Mutex
	types []events.EventType
}

// Emit implements events.Emitter
func (r *RecordingEmitter) Emit(t events.EventType, _ events.Severity, _, _ string, _ events.EventData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, t)
}

// Count returns how many events of type t were emitted.
func (r *RecordingEmitter) Count(t events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.types {
		if got == t {
			n++
		}
	}
	return n
}

// MemoryRecorder is a fund.Recorder kept in memory.
type MemoryRecorder struct {
	mu     sync.Mutex
	ticks  []fund.TickReport
	orders []execution.Order
}

// RecordTick implements fund.Recorder
func (m *MemoryRecorder) RecordTick(_ context.Context, report fund.TickReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks = append(m.ticks, report)
	return nil
}

// RecordOrder implements fund.Recorder
func (m *MemoryRecorder) RecordOrder(_ context.Context, order execution.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, order)
	return nil
}

// Ticks returns the recorded tick reports.
func (m *MemoryRecorder) Ticks() []fund.TickReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fund.TickReport(nil), m.ticks...)
}

// Orders returns the recorded order snapshots.
func (m *MemoryRecorder) Orders() []execution.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]execution.Order(nil), m.orders...)
}
