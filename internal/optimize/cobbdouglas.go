package optimize

import (
	"math"

	"agora/internal/common"
	"agora/internal/market"
)

// CobbDouglas is scale · Π x_i^α_i. With exponents summing to one the
// function is homogeneous of degree one and the budget-constrained
// optimum has the classic expenditure-share closed form: each input
// receives the share of the budget given by its exponent.
type CobbDouglas struct {
	Scale     float64
	Exponents map[common.Instrument]float64
}

func (f CobbDouglas) Output(inputs Bundle) float64 {
	out := f.Scale
	for ins, exp := range f.Exponents {
		x := inputs[ins]
		if x <= 0 {
			return 0
		}
		out *= math.Pow(x, exp)
	}
	return out
}

// MarginalOutput is α_i · f(x)/x_i. Inputs are floored at the numeric
// tolerance so the derivative stays finite and positive at the origin,
// which lets the range scan leave an all-zero bundle.
func (f CobbDouglas) MarginalOutput(inputs Bundle, with common.Instrument) float64 {
	exp, ok := f.Exponents[with]
	if !ok {
		return 0
	}
	out := f.Scale
	for ins, e := range f.Exponents {
		out *= math.Pow(flooredInput(inputs[ins]), e)
	}
	return exp * out / flooredInput(inputs[with])
}

// OptimalInputs uses the closed form x_i = α_i·B/p_i whenever every
// price function is flat (or linearization is forced), normalizing the
// exponents so expenditure shares sum to one. Multi-segment prices,
// capital caps, output ceilings and ratio floors go through the range
// scan instead.
func (f CobbDouglas) OptimalInputs(
	prices map[common.Instrument]market.PriceFunction,
	budget float64,
	opts *Options,
) Result {
	if opts == nil {
		opts = &Options{}
	}
	instruments := sortedInstruments(prices)
	inputs := zeroBundle(instruments)

	// The function is complementary: every weighted input must be
	// buyable or output stays at zero no matter the allocation.
	for _, ins := range instruments {
		if f.Exponents[ins] > 0 && common.IsUndefined(prices[ins].MarginalPrice(0)) {
			return Result{Inputs: inputs, Cause: TermInputUnavailable}
		}
	}
	if constrained(opts) || (!allFlat(prices) && !opts.Linearize) {
		return rangeScan(f, prices, budget, opts)
	}

	var expSum float64
	for _, ins := range instruments {
		expSum += f.Exponents[ins]
	}
	if expSum <= 0 || budget <= 0 {
		return Result{Inputs: inputs, Cause: TermBudgetPlanned}
	}

	var spent float64
	for _, ins := range instruments {
		price := prices[ins].MarginalPrice(0)
		if price <= 0 {
			continue
		}
		share := f.Exponents[ins] / expSum
		inputs[ins] = share * budget / price
		spent += share * budget
	}
	return Result{Inputs: inputs, Spent: spent, Cause: TermBudgetPlanned}
}

// flooredInput clamps a quantity to the numeric tolerance from below.
func flooredInput(x float64) float64 {
	if x < common.Epsilon {
		return common.Epsilon
	}
	return x
}
