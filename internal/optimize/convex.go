package optimize

import (
	"agora/internal/common"
	"agora/internal/market"
)

// Convex is the generic fallback family: callers plug in arbitrary
// output and marginal-output callbacks for any convex function without
// a known closed form. Allocation always goes through the range scan.
type Convex struct {
	OutputFn   func(Bundle) float64
	MarginalFn func(Bundle, common.Instrument) float64
}

func (f Convex) Output(inputs Bundle) float64 {
	if f.OutputFn == nil {
		return 0
	}
	return f.OutputFn(inputs)
}

func (f Convex) MarginalOutput(inputs Bundle, with common.Instrument) float64 {
	if f.MarginalFn == nil {
		return 0
	}
	return f.MarginalFn(inputs, with)
}

func (f Convex) OptimalInputs(
	prices map[common.Instrument]market.PriceFunction,
	budget float64,
	opts *Options,
) Result {
	return rangeScan(f, prices, budget, opts)
}
