package optimize

import (
	"math"

	"agora/internal/common"
	"agora/internal/market"
)

// CES is scale · (Σ w_i · x_i^-ρ)^(-h/ρ): constant elasticity of
// substitution with substitution parameter ρ > 0 (elasticity
// 1/(1+ρ)) and homogeneity degree h.
type CES struct {
	Scale        float64
	Weights      map[common.Instrument]float64
	Substitution float64 // ρ
	Homogeneity  float64 // h
}

func (f CES) Output(inputs Bundle) float64 {
	var sum float64
	for ins, w := range f.Weights {
		x := inputs[ins]
		if x <= 0 {
			// x^-ρ diverges, the aggregate collapses to zero output.
			return 0
		}
		sum += w * math.Pow(x, -f.Substitution)
	}
	if sum <= 0 {
		return 0
	}
	return f.Scale * math.Pow(sum, -f.Homogeneity/f.Substitution)
}

// MarginalOutput is h·scale·(Σ)^(-h/ρ-1)·w_i·x_i^(-ρ-1), with inputs
// floored at the numeric tolerance so the scan can start from zero.
func (f CES) MarginalOutput(inputs Bundle, with common.Instrument) float64 {
	w, ok := f.Weights[with]
	if !ok {
		return 0
	}
	var sum float64
	for ins, wi := range f.Weights {
		sum += wi * math.Pow(flooredInput(inputs[ins]), -f.Substitution)
	}
	if sum <= 0 {
		return 0
	}
	outer := math.Pow(sum, -f.Homogeneity/f.Substitution-1)
	return f.Homogeneity * f.Scale * outer * w * math.Pow(flooredInput(inputs[with]), -f.Substitution-1)
}

// OptimalInputs solves the Lagrangian first-order conditions in closed
// form over flat prices:
//
//	x_i = B · (w_i/p_i)^e / Σ_j p_j·(w_j/p_j)^e,  e = 1/(1+ρ)
//
// Multi-segment price functions go through the range scan, as does
// any allocation carrying a capital cap, output ceiling or ratio
// floor; linearization only bypasses the price-curve condition.
func (f CES) OptimalInputs(
	prices map[common.Instrument]market.PriceFunction,
	budget float64,
	opts *Options,
) Result {
	if opts == nil {
		opts = &Options{}
	}
	instruments := sortedInstruments(prices)
	inputs := zeroBundle(instruments)

	// With finite substitution every weighted input is essential.
	for _, ins := range instruments {
		if f.Weights[ins] > 0 && common.IsUndefined(prices[ins].MarginalPrice(0)) {
			return Result{Inputs: inputs, Cause: TermInputUnavailable}
		}
	}
	if constrained(opts) || (!allFlat(prices) && !opts.Linearize) {
		return rangeScan(f, prices, budget, opts)
	}

	if budget <= 0 {
		return Result{Inputs: inputs, Cause: TermBudgetPlanned}
	}

	e := 1 / (1 + f.Substitution)
	terms := make(map[common.Instrument]float64, len(instruments))
	var denom float64
	for _, ins := range instruments {
		price := prices[ins].MarginalPrice(0)
		w := f.Weights[ins]
		if w <= 0 || price <= 0 {
			continue
		}
		term := math.Pow(w/price, e)
		terms[ins] = term
		denom += price * term
	}
	if denom <= 0 {
		return Result{Inputs: inputs, Cause: TermZeroMarginalOutput}
	}

	var spent float64
	for _, ins := range instruments {
		term, ok := terms[ins]
		if !ok {
			continue
		}
		price := prices[ins].MarginalPrice(0)
		inputs[ins] = budget * term / denom
		spent += inputs[ins] * price
	}
	return Result{Inputs: inputs, Spent: spent, Cause: TermBudgetPlanned}
}
