package fund

import "sync"

// TickSource drives the supervisory tick. Start begins calling tick on the
// source's schedule; the returned stop function ends that and must not wait
// for an in-flight tick.
type TickSource interface {
	Start(tick func()) (stop func(), err error)
}

// ManualTicks is a TickSource fired explicitly, for tests and one-shot runs.
type ManualTicks struct {
	mu     sync.Mutex
	tick   func()
	starts int
}

// Start implements TickSource.
func (m *ManualTicks) Start(tick func()) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick = tick
	m.starts++
	gen := m.starts
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.starts == gen {
			m.tick = nil
		}
	}, nil
}

// Fire runs one tick if started. It reports whether a tick ran.
func (m *ManualTicks) Fire() bool {
	m.mu.Lock()
	tick := m.tick
	m.mu.Unlock()
	if tick == nil {
		return false
	}
	tick()
	return true
}

// Running reports whether the source is started.
func (m *ManualTicks) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tick != nil
}

// Starts counts how often the source was started.
func (m *ManualTicks) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}
