package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/fundcore/internal/domain"
	"github.com/aristath/fundcore/internal/events"
	"github.com/aristath/fundcore/pkg/formulas"
)

// Randomized beta band applied to every position in a stress test.
const (
	StressBetaMin   = 0.8
	StressBetaRange = 0.4
)

// CorrelationBreakdownFactor amplifies moves when correlations converge.
const CorrelationBreakdownFactor = 1.2

var scenarioCatalog = []StressScenario{
	{ID: "financial_crisis_2008", Name: "2008 Financial Crisis", MarketMove: -0.50, VolatilityMultiplier: 3.0, DurationDays: 365, CorrelationBreakdown: true, LiquidityCrisis: true},
	{ID: "covid_crash_2020", Name: "COVID-19 Crash", MarketMove: -0.35, VolatilityMultiplier: 2.5, DurationDays: 30, CorrelationBreakdown: true, LiquidityCrisis: true},
	{ID: "flash_crash", Name: "Flash Crash", MarketMove: -0.10, VolatilityMultiplier: 5.0, DurationDays: 1, LiquidityCrisis: true},
	{ID: "rate_shock", Name: "Interest Rate Shock", MarketMove: -0.15, VolatilityMultiplier: 1.5, DurationDays: 90},
	{ID: "crypto_winter", Name: "Crypto Winter", MarketMove: -0.70, VolatilityMultiplier: 2.0, DurationDays: 365, CorrelationBreakdown: true, LiquidityCrisis: true},
	{ID: "mild_correction", Name: "Mild Correction", MarketMove: -0.10, VolatilityMultiplier: 1.2, DurationDays: 30},
}

func catalogScenario(id string) (StressScenario, bool) {
	for _, s := range scenarioCatalog {
		if s.ID == id {
			return s, true
		}
	}
	return StressScenario{}, false
}

// Scenarios returns the built-in catalog followed by custom scenarios.
func (e *Engine) Scenarios() []StressScenario {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenarios()
}

func (e *Engine) scenarios() []StressScenario {
	out := make([]StressScenario, 0, len(scenarioCatalog)+len(e.custom))
	out = append(out, scenarioCatalog...)
	return append(out, e.custom...)
}

// Scenario looks up a scenario by id.
func (e *Engine) Scenario(id string) (StressScenario, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.scenarios() {
		if s.ID == id {
			return s, true
		}
	}
	return StressScenario{}, false
}

// AddScenario registers a custom scenario, replacing a custom one with the
// same id. Built-in ids cannot be overridden.
func (e *Engine) AddScenario(s StressScenario) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid stress scenario: %w", err)
	}
	if _, ok := catalogScenario(s.ID); ok {
		return fmt.Errorf("invalid stress scenario: %s is a built-in scenario", s.ID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.custom {
		if e.custom[i].ID == s.ID {
			e.custom[i] = s
			return nil
		}
	}
	e.custom = append(e.custom, s)
	return nil
}

// RunStressTest applies a scenario to each position with a randomized beta
// in [0.8, 1.2), amplified when the scenario breaks correlations.
func (e *Engine) RunStressTest(scenario StressScenario, positions []domain.Position) StressTestResult {
	e.mu.Lock()
	result := e.runStressTest(scenario, positions)
	emitter := e.emitter
	e.mu.Unlock()

	emitter.Emit(events.StressTestCompleted, events.SeverityInfo, "risk", "Stress test completed", &events.StressTestData{
		ScenarioID:           scenario.ID,
		PortfolioLoss:        result.PortfolioLoss,
		PortfolioLossPercent: result.PortfolioLossPercent,
		WorstPosition:        result.WorstPosition,
	})
	return result
}

// RunAllStressTests runs every known scenario over the positions.
func (e *Engine) RunAllStressTests(positions []domain.Position) []StressTestResult {
	scenarios := e.Scenarios()
	results := make([]StressTestResult, 0, len(scenarios))
	for _, s := range scenarios {
		results = append(results, e.RunStressTest(s, positions))
	}
	return results
}

func (e *Engine) runStressTest(scenario StressScenario, positions []domain.Position) StressTestResult {
	result := StressTestResult{
		Timestamp:       e.now().UTC(),
		Scenario:        scenario,
		PositionImpacts: []PositionImpact{},
		Recommendations: []string{},
	}

	worstLoss := math.Inf(-1)
	for _, p := range positions {
		mv := marketValue(p)
		if mv == 0 {
			continue
		}

		beta := StressBetaMin + e.rng.Float64()*StressBetaRange
		move := scenario.MarketMove * beta
		if scenario.CorrelationBreakdown {
			move *= CorrelationBreakdownFactor
		}
		move = math.Max(move, -1)

		stressed := mv * (1 + move)
		impact := PositionImpact{
			Asset:         p.Asset,
			MarketValue:   mv,
			StressedValue: stressed,
			Loss:          mv - stressed,
			Beta:          beta,
		}
		result.PositionImpacts = append(result.PositionImpacts, impact)
		result.PortfolioValue += mv
		result.StressedValue += stressed
		result.PortfolioLoss += impact.Loss

		if impact.Loss > worstLoss {
			worstLoss = impact.Loss
			result.WorstPosition = p.Asset
		}
	}

	sort.SliceStable(result.PositionImpacts, func(i, j int) bool {
		return result.PositionImpacts[i].Loss > result.PositionImpacts[j].Loss
	})

	if result.PortfolioValue <= 0 {
		return result
	}
	result.PortfolioLossPercent = result.PortfolioLoss / result.PortfolioValue

	multiplier := scenario.VolatilityMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	sigma := volatilityOf(e.returns) * multiplier
	result.StressedVaR99 = sigma * formulas.ZScore(0.99) * math.Max(result.StressedValue, 0)

	result.Recommendations = e.stressRecommendations(scenario, result)
	return result
}

func (e *Engine) stressRecommendations(scenario StressScenario, result StressTestResult) []string {
	recs := []string{}

	if limit := e.limits.MaxDrawdown; limit > 0 && result.PortfolioLossPercent > limit {
		recs = append(recs, fmt.Sprintf("Reduce overall exposure: stressed loss %.1f%% exceeds max drawdown %.1f%%",
			result.PortfolioLossPercent*100, limit*100))
	}
	if result.WorstPosition != "" && result.PortfolioLoss > 0 {
		recs = append(recs, fmt.Sprintf("Hedge %s, the largest contributor to stressed loss", result.WorstPosition))
	}
	if scenario.LiquidityCrisis {
		recs = append(recs, "Raise cash reserves to meet redemptions during a liquidity crisis")
	}
	if scenario.CorrelationBreakdown && len(result.PositionImpacts) > 1 {
		recs = append(recs, "Diversify into assets that stay uncorrelated under stress")
	}
	return recs
}
