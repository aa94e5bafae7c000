package optimize

import (
	"math"

	"agora/internal/common"
	"agora/internal/market"
)

// scanSteps is the default granularity of the range scan: with no
// explicit Options.Step, each input's step is sized so the budget
// spans about this many allocations at its initial marginal price.
const scanSteps = 200

// scanMaxIterations bounds the scan against degenerate curves (free
// liquidity never draining the budget).
const scanMaxIterations = 1000000

// rangeScan is the shared iterative allocator used when price-curve
// nonlinearity must be honored. Each step it ranks every input by
// marginal output divided by its current marginal price (queried at
// the quantity already allocated to it), allocates one step of the
// best, deducts the exact segment-aware cost, and repeats until a
// terminal condition. Ties go to the lexicographically smaller
// instrument, which keeps the scan deterministic.
func rangeScan(
	f Function,
	prices map[common.Instrument]market.PriceFunction,
	budget float64,
	opts *Options,
) Result {
	if opts == nil {
		opts = &Options{}
	}
	instruments := sortedInstruments(prices)
	inputs := zeroBundle(instruments)

	steps := make(map[common.Instrument]float64, len(instruments))
	for _, ins := range instruments {
		steps[ins] = stepFor(prices[ins], budget, opts.Step)
	}

	remaining := budget
	var spent float64
	cause := TermBudgetSpent

	for iter := 0; iter < scanMaxIterations; iter++ {
		if common.LesserOrEqual(remaining, 0) {
			cause = TermBudgetPlanned
			break
		}
		if opts.MaxOutput > 0 && common.GreaterOrEqual(f.Output(inputs), opts.MaxOutput) {
			cause = TermMaxOutputReached
			break
		}

		best, bestRatio, sawPrice := pickBest(f, prices, inputs, opts)
		if best == nil {
			if !sawPrice {
				cause = TermInputUnavailable
			} else {
				cause = TermZeroMarginalOutput
			}
			break
		}
		if opts.MarginalThreshold > 0 && common.Lesser(bestRatio, opts.MarginalThreshold) {
			cause = TermMarginalThreshold
			break
		}

		ins := *best
		qty := steps[ins]
		if limit, ok := opts.Capital[ins]; ok {
			qty = math.Min(qty, limit-inputs[ins])
		}
		pf := prices[ins]
		cost := pf.Cost(inputs[ins]+qty) - pf.Cost(inputs[ins])
		if common.Greater(cost, remaining) {
			// Shrink the final step to the leftover budget.
			scale := remaining / cost
			qty *= scale
			cost = pf.Cost(inputs[ins]+qty) - pf.Cost(inputs[ins])
			if common.LesserOrEqual(qty, 0) {
				cause = TermBudgetSpent
				break
			}
		}

		inputs[ins] += qty
		spent += cost
		remaining -= cost
	}

	return Result{Inputs: inputs, Spent: spent, Cause: cause}
}

// pickBest returns the input with the highest marginal-output-per-price
// ratio, or nil if none is eligible. sawPrice distinguishes "no
// liquidity anywhere" from "liquidity but zero marginal output".
func pickBest(
	f Function,
	prices map[common.Instrument]market.PriceFunction,
	inputs Bundle,
	opts *Options,
) (*common.Instrument, float64, bool) {
	var best *common.Instrument
	var bestRatio float64
	sawPrice := false

	for _, ins := range sortedInstruments(prices) {
		if limit, ok := opts.Capital[ins]; ok && common.GreaterOrEqual(inputs[ins], limit) {
			continue
		}
		price := prices[ins].MarginalPrice(inputs[ins])
		if common.IsUndefined(price) {
			continue
		}
		sawPrice = true

		marginal := f.MarginalOutput(inputs, ins)
		if !math.IsInf(marginal, 1) && common.LesserOrEqual(marginal, 0) {
			continue
		}

		var ratio float64
		if price == 0 {
			ratio = math.Inf(1)
		} else {
			ratio = marginal / price
		}
		// Strictly-greater keeps the first (lexicographically
		// smallest) instrument on ties.
		if best == nil || common.Greater(ratio, bestRatio) {
			ins := ins
			best = &ins
			bestRatio = ratio
		}
	}
	return best, bestRatio, sawPrice
}

// stepFor sizes one input's allocation step. An explicit option wins;
// otherwise the budget is split into scanSteps money slices converted
// at the input's initial marginal price.
func stepFor(pf market.PriceFunction, budget, explicit float64) float64 {
	if explicit > 0 {
		return explicit
	}
	price := pf.MarginalPrice(0)
	if common.IsUndefined(price) || price <= 0 {
		return budget / scanSteps
	}
	return budget / (scanSteps * price)
}
