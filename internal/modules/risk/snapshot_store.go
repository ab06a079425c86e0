package risk

import "sync"

// DefaultSnapshotHistory is how many snapshots are retained per fund.
const DefaultSnapshotHistory = 100

// Versioned is a stored snapshot with its per-fund version.
type Versioned struct {
	FundID   string          `json:"fund_id"`
	Version  uint64          `json:"version"`
	Snapshot MetricsSnapshot `json:"snapshot"`
}

// SnapshotStore keeps versioned risk snapshots keyed by fund id. Values are
// returned by copy and never mutated after Put.
type SnapshotStore struct {
	mu       sync.RWMutex
	history  map[string][]Versioned
	versions map[string]uint64
	capacity int
}

// NewSnapshotStore creates a store retaining up to capacity snapshots per fund.
func NewSnapshotStore(capacity int) *SnapshotStore {
	if capacity <= 0 {
		capacity = DefaultSnapshotHistory
	}
	return &SnapshotStore{
		history:  make(map[string][]Versioned),
		versions: make(map[string]uint64),
		capacity: capacity,
	}
}

// Put stores a snapshot and returns it with its assigned version.
func (s *SnapshotStore) Put(fundID string, snapshot MetricsSnapshot) Versioned {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.versions[fundID]++
	v := Versioned{FundID: fundID, Version: s.versions[fundID], Snapshot: snapshot}

	h := append(s.history[fundID], v)
	if len(h) > s.capacity {
		h = append([]Versioned(nil), h[len(h)-s.capacity:]...)
	}
	s.history[fundID] = h
	return v
}

// Latest returns the most recent snapshot for a fund.
func (s *SnapshotStore) Latest(fundID string) (Versioned, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[fundID]
	if len(h) == 0 {
		return Versioned{}, false
	}
	return h[len(h)-1], true
}

// Get returns a specific version if it is still retained.
func (s *SnapshotStore) Get(fundID string, version uint64) (Versioned, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.history[fundID] {
		if v.Version == version {
			return v, true
		}
	}
	return Versioned{}, false
}

// History returns up to limit snapshots, newest first. limit <= 0 returns all.
func (s *SnapshotStore) History(fundID string, limit int) []Versioned {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[fundID]
	if limit <= 0 || limit > len(h) {
		limit = len(h)
	}
	out := make([]Versioned, 0, limit)
	for i := len(h) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h[i])
	}
	return out
}
