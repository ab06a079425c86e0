package execution

import (
	"fmt"

	"github.com/aristath/fundcore/internal/domain"
)

// runImmediate fills every route segment once. smart_routing takes the same
// path; the route itself carries the venue split.
func (r *Router) runImmediate(o *Order, route Route) []string {
	var notes []string
	for _, seg := range route.Segments {
		note := r.fillOn(o, seg.Venue, seg.Quantity, seg.ExpectedPrice, seg.Impact, 0)
		if note != "" {
			notes = append(notes, note)
		}
	}
	return notes
}

// runSliced fills weighted slices of the order against the primary venue.
// Each slice is priced on its own notional plus whatever the venue absorbed
// before this order.
func (r *Router) runSliced(o *Order, route Route, price float64, baseline map[string]float64, weights []float64) []string {
	venue := route.Primary().Venue
	var notes []string
	for i, w := range weights {
		qty := o.Quantity * w
		if qty <= 0 {
			continue
		}
		impact := ImpactFor(qty*price + baseline[venue])
		expected := adjust(price, impact, o.Side)
		note := r.fillOn(o, venue, qty, expected, impact, i+1)
		if note != "" {
			notes = append(notes, note)
		}
	}
	return notes
}

// fillOn books one fill of qty at expected moved by base slippage plus
// impact. The fill is skipped when it would cross the limit price and trimmed
// to the venue's remaining liquidity this cycle.
func (r *Router) fillOn(o *Order, venue string, qty, expected, impact float64, slice int) string {
	v := r.cfg.venue(venue)
	price := adjust(expected, r.cfg.BaseSlippage+impact, o.Side)

	if o.LimitPrice > 0 {
		crossed := price > o.LimitPrice
		if o.Side == domain.SideSell {
			crossed = price < o.LimitPrice
		}
		if crossed {
			return fmt.Sprintf("limit price %.4f not met on %s (fill %.4f)", o.LimitPrice, venue, price)
		}
	}

	remaining := v.Liquidity - r.consumed[venue]
	if remaining <= liquidityEpsilon {
		return fmt.Sprintf("venue %s liquidity exhausted", venue)
	}
	var note string
	if qty*price > remaining {
		qty = remaining / price
		note = fmt.Sprintf("venue %s liquidity limited fill to %.4f", venue, qty)
	}

	notional := qty * price
	o.Fills = append(o.Fills, Fill{
		Timestamp: r.now(),
		Venue:     venue,
		Slice:     slice,
		Quantity:  qty,
		Price:     price,
		Fee:       notional * v.Fee,
		GasCost:   v.GasCost,
	})
	r.consumed[venue] += notional
	return note
}

// liquidityEpsilon absorbs rounding left over when a fill is trimmed to
// exactly the remaining liquidity.
const liquidityEpsilon = 1e-9

func equalSlices(n int) []float64 {
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}

// profileSlices normalizes a volume profile into slice weights.
func profileSlices(profile []float64) []float64 {
	var total float64
	for _, p := range profile {
		if p > 0 {
			total += p
		}
	}
	if total <= 0 {
		return equalSlices(len(profile))
	}
	out := make([]float64, len(profile))
	for i, p := range profile {
		if p > 0 {
			out[i] = p / total
		}
	}
	return out
}
