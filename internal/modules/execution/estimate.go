package execution

import (
	"fmt"
	"math"
)

// EstimateExecution projects the cost of executing req now against fresh
// venue liquidity. No order is created.
func (r *Router) EstimateExecution(req Request) (Estimate, error) {
	req, err := r.normalizeRequest(req)
	if err != nil {
		return Estimate{}, err
	}
	price, ok := r.resolvePrice(req.Asset, req.ReferencePrice)
	if !ok {
		return Estimate{}, fmt.Errorf("failed to estimate %s: %w", req.Asset, ErrNoPrice)
	}

	route := r.planRoute(req.Asset, req.Side, req.Quantity, price, nil)
	est := Estimate{
		Route:         route,
		Warnings:      []string{},
		ExpectedPrice: route.ExpectedPrice,
		PriceImpact:   route.Impact(),
	}
	est.Slippage = r.cfg.BaseSlippage + est.PriceImpact

	var slipCost float64
	for _, seg := range route.Segments {
		fill := adjust(seg.ExpectedPrice, r.cfg.BaseSlippage+seg.Impact, req.Side)
		est.Fees += seg.Quantity * fill * seg.Fee
		est.GasCost += seg.GasCost
		slipCost += seg.Quantity * math.Abs(fill-price)
	}
	est.TotalCost = est.Fees + est.GasCost + slipCost

	if est.PriceImpact > ImpactWarning {
		est.Warnings = append(est.Warnings, fmt.Sprintf("price impact %.2f%% exceeds %.2f%%", est.PriceImpact*100, ImpactWarning*100))
	}
	if est.Slippage > req.SlippageTolerance {
		est.Warnings = append(est.Warnings, fmt.Sprintf("slippage %.2f%% exceeds tolerance %.2f%%", est.Slippage*100, req.SlippageTolerance*100))
	}
	return est, nil
}
