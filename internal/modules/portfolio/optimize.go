package portfolio

import (
	"fmt"
	"sort"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/pkg/formulas"
)

// OptimizeAllocation builds a weight set with the configured (or requested)
// method. The result always sums to 1; weights above MaxSingleAsset are cut
// and the excess is parked in cash. Mean-variance and Black-Litterman pass the
// target allocation through.
func (t *Tracker) OptimizeAllocation(constraints AllocationConstraints) (OptimalAllocation, error) {
	if err := validate.Struct(constraints); err != nil {
		return OptimalAllocation{}, fmt.Errorf("invalid allocation constraints: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	method := constraints.Method
	if method == "" {
		method = t.cfg.OptimizationMethod
	}

	assets := constraints.Assets
	if len(assets) == 0 {
		assets = t.driftUniverse()
	}
	assets = withoutCash(assets)

	var raw map[string]float64
	switch method {
	case MethodEqualWeight:
		raw = equalWeights(assets)
	case MethodRiskParity:
		raw = t.riskParityWeights(assets)
	case MethodMeanVariance, MethodBlackLitterman:
		raw = copyTarget(t.target)
		if _, ok := raw[domain.CashAsset]; !ok {
			raw[domain.CashAsset] = impliedCash(t.target)
		}
	default:
		return OptimalAllocation{}, fmt.Errorf("unknown optimization method %q", method)
	}

	weights := capWeights(normalize(raw), constraints.MaxSingleAsset)

	t.log.Debug().
		Str("method", string(method)).
		Int("assets", len(weights)-1).
		Msg("Allocation optimized")

	return OptimalAllocation{
		Timestamp: t.now().UTC(),
		Method:    method,
		Weights:   weights,
	}, nil
}

func equalWeights(assets []string) map[string]float64 {
	out := make(map[string]float64, len(assets))
	for _, a := range assets {
		out[a] = 1 / float64(len(assets))
	}
	return out
}

// riskParityWeights weights each asset by inverse volatility of its marked
// price series. Assets without enough history get the mean inverse volatility
// of the rest, or equal weight when nothing is known.
func (t *Tracker) riskParityWeights(assets []string) map[string]float64 {
	inverse := make(map[string]float64, len(assets))
	known := 0.0
	for _, a := range assets {
		returns := formulas.CalculateReturns(t.priceHistory[a])
		vol := formulas.RollingVolatility(returns, t.cfg.VolatilityWindow)
		if vol > 0 {
			inverse[a] = 1 / vol
			known += inverse[a]
		}
	}
	if len(inverse) == 0 {
		return equalWeights(assets)
	}

	fill := known / float64(len(inverse))
	out := make(map[string]float64, len(assets))
	for _, a := range assets {
		if w, ok := inverse[a]; ok {
			out[a] = w
		} else {
			out[a] = fill
		}
	}
	return out
}

// normalize scales weights to sum to 1; an empty or zero set is all cash.
func normalize(raw map[string]float64) map[string]float64 {
	sum := 0.0
	for _, w := range raw {
		if w > 0 {
			sum += w
		}
	}
	out := make(map[string]float64, len(raw)+1)
	if sum <= 0 {
		out[domain.CashAsset] = 1
		return out
	}
	for a, w := range raw {
		if w > 0 {
			out[a] = w / sum
		}
	}
	if _, ok := out[domain.CashAsset]; !ok {
		out[domain.CashAsset] = 0
	}
	return out
}

// capWeights limits every non-cash weight to limit and moves the excess to
// cash. limit <= 0 leaves weights untouched.
func capWeights(weights map[string]float64, limit float64) map[string]float64 {
	if limit <= 0 {
		return weights
	}
	excess := 0.0
	for a, w := range weights {
		if a != domain.CashAsset && w > limit {
			excess += w - limit
			weights[a] = limit
		}
	}
	weights[domain.CashAsset] += excess
	return weights
}

func withoutCash(assets []string) []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		if a != domain.CashAsset && a != "" {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}
