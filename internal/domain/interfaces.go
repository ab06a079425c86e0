package domain

import (
	"sync"
	"time"
)

// Clock abstracts wall-clock time so schedules can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }

// PriceSource resolves the latest known price for an asset.
type PriceSource interface {
	Price(asset string) (float64, bool)
}

// PriceMap is a static PriceSource.
type PriceMap map[string]float64

// Price implements PriceSource.
func (m PriceMap) Price(asset string) (float64, bool) {
	p, ok := m[asset]
	return p, ok && p > 0
}

// PriceBook is a concurrency-safe PriceSource updated by price marks. Asset
// keys are normalized with NormalizeAsset.
type PriceBook struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewPriceBook creates a price book seeded with initial prices.
func NewPriceBook(initial map[string]float64) *PriceBook {
	b := &PriceBook{prices: make(map[string]float64, len(initial))}
	b.SetAll(initial)
	return b
}

// Price implements PriceSource.
func (b *PriceBook) Price(asset string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[NormalizeAsset(asset)]
	return p, ok
}

// Set records the latest price. Non-positive prices are ignored.
func (b *PriceBook) Set(asset string, price float64) {
	if !(price > 0) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[NormalizeAsset(asset)] = price
}

// SetAll records several prices at once.
func (b *PriceBook) SetAll(prices map[string]float64) {
	for asset, price := range prices {
		b.Set(asset, price)
	}
}

// Snapshot returns a copy of every known price.
func (b *PriceBook) Snapshot() map[string]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]float64, len(b.prices))
	for asset, price := range b.prices {
		out[asset] = price
	}
	return out
}
