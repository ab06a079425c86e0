package execution

import (
	"fmt"

	"github.com/aristath/fundcore/internal/domain"
)

// Price impact steps by notional.
const (
	impactTier1 = 1_000
	impactTier2 = 10_000
	impactTier3 = 100_000
)

// ImpactFor returns the simulated price impact for trading notional on a
// single venue.
func ImpactFor(notional float64) float64 {
	switch {
	case notional < impactTier1:
		return 0.001
	case notional < impactTier2:
		return 0.003
	case notional < impactTier3:
		return 0.01
	default:
		return 0.03
	}
}

// adjust moves price against the trader by rate: up for buys, down for sells.
func adjust(price, rate float64, side domain.Side) float64 {
	if side == domain.SideSell {
		return price * (1 - rate)
	}
	return price * (1 + rate)
}

// GetOptimalRoute plans a route for req against fresh venue liquidity.
func (r *Router) GetOptimalRoute(req Request) (Route, error) {
	req, err := r.normalizeRequest(req)
	if err != nil {
		return Route{}, err
	}
	price, ok := r.resolvePrice(req.Asset, req.ReferencePrice)
	if !ok {
		return Route{}, fmt.Errorf("failed to route %s: %w", req.Asset, ErrNoPrice)
	}
	return r.planRoute(req.Asset, req.Side, req.Quantity, price, nil), nil
}

// planRoute splits evenly across the preferred venues when the notional is
// above the split threshold, else sends everything to the first one.
// consumed holds the notional each venue has already absorbed this cycle.
func (r *Router) planRoute(asset string, side domain.Side, quantity, price float64, consumed map[string]float64) Route {
	notional := quantity * price
	venues := r.cfg.PreferredVenues
	split := notional > r.cfg.SplitThreshold && len(venues) > 1
	if !split {
		venues = venues[:1]
	}

	route := Route{
		Asset:     asset,
		Side:      side,
		Quantity:  quantity,
		BasePrice: price,
		Notional:  notional,
		Split:     split,
		Segments:  make([]RouteSegment, 0, len(venues)),
	}

	share := quantity / float64(len(venues))
	var weighted float64
	for _, name := range venues {
		v := r.cfg.venue(name)
		used := consumed[name]
		impact := ImpactFor(share*price + used)
		expected := adjust(price, impact, side)
		remaining := v.Liquidity - used
		if remaining < 0 {
			remaining = 0
		}
		route.Segments = append(route.Segments, RouteSegment{
			Venue:         name,
			Quantity:      share,
			ExpectedPrice: expected,
			Impact:        impact,
			Liquidity:     remaining,
			Fee:           v.Fee,
			GasCost:       v.GasCost,
		})
		weighted += share * expected
	}
	if quantity > 0 {
		route.ExpectedPrice = weighted / quantity
	}
	return route
}

// Impact is the quantity-weighted impact over the route's segments.
func (r Route) Impact() float64 {
	if r.Quantity <= 0 {
		return 0
	}
	var sum float64
	for _, s := range r.Segments {
		sum += s.Quantity * s.Impact
	}
	return sum / r.Quantity
}
