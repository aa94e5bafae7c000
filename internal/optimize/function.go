// Package optimize holds the production/utility function families and
// the budget-constrained input allocators built on top of the market
// package's price functions.
package optimize

import (
	"sort"

	"agora/internal/common"
	"agora/internal/market"
)

// Bundle maps each input instrument to a quantity.
type Bundle map[common.Instrument]float64

// Clone copies a bundle.
func (b Bundle) Clone() Bundle {
	out := make(Bundle, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// TerminationCause says why an allocation stopped. These are ordinary
// outcomes of the loop, never errors: running out of budget or
// liquidity is a steady-state condition of the simulation.
type TerminationCause int

const (
	// TermBudgetPlanned: the budget was allocated down to zero.
	TermBudgetPlanned TerminationCause = iota
	// TermBudgetSpent: the remainder cannot cover one more step at the
	// cheapest available marginal price.
	TermBudgetSpent
	// TermInputUnavailable: no input has a defined marginal price left.
	TermInputUnavailable
	// TermZeroMarginalOutput: every remaining input's marginal output
	// is zero.
	TermZeroMarginalOutput
	// TermMarginalThreshold: the best output-per-price ratio fell under
	// the configured floor.
	TermMarginalThreshold
	// TermMaxOutputReached: the configured output ceiling was hit.
	TermMaxOutputReached
)

func (c TerminationCause) String() string {
	switch c {
	case TermBudgetPlanned:
		return "budget planned"
	case TermBudgetSpent:
		return "budget spent"
	case TermInputUnavailable:
		return "input unavailable"
	case TermZeroMarginalOutput:
		return "zero marginal output"
	case TermMarginalThreshold:
		return "marginal threshold"
	case TermMaxOutputReached:
		return "max output reached"
	}
	return "unknown"
}

// Result of an allocation. Inputs always covers every priced
// instrument, possibly with zero quantities.
type Result struct {
	Inputs Bundle
	Spent  float64
	Cause  TerminationCause
}

// Options tune an allocation. The zero value means: no capital caps,
// no output ceiling, no ratio floor, honor price-curve nonlinearity,
// default step size.
type Options struct {
	// Capital caps the quantity that may be allocated per input
	// (existing inventory, storage limits).
	Capital map[common.Instrument]float64
	// MaxOutput stops the allocation once output reaches it; <= 0
	// means no ceiling.
	MaxOutput float64
	// MarginalThreshold stops once the best marginal-output-per-price
	// ratio drops below it; <= 0 means no floor.
	MarginalThreshold float64
	// Linearize forces the closed form even over multi-segment price
	// functions, treating each at its initial marginal price. Capital,
	// MaxOutput and MarginalThreshold still force the scan.
	Linearize bool
	// Step is the quantity allocated per scan iteration; <= 0 picks a
	// per-input default from the budget and initial prices.
	Step float64
}

// Function is one utility/production function family. Implementations
// are CobbDouglas, CES and the generic Convex fallback.
type Function interface {
	// Output evaluates the function on an input bundle.
	Output(inputs Bundle) float64
	// MarginalOutput is the partial derivative with respect to one
	// input at the given bundle.
	MarginalOutput(inputs Bundle, with common.Instrument) float64
	// OptimalInputs finds the bundle maximizing output subject to
	// spending at most budget against the given price functions.
	OptimalInputs(prices map[common.Instrument]market.PriceFunction, budget float64, opts *Options) Result
}

// sortedInstruments returns the priced instruments in their
// deterministic lexicographic order.
func sortedInstruments(prices map[common.Instrument]market.PriceFunction) []common.Instrument {
	out := make([]common.Instrument, 0, len(prices))
	for ins := range prices {
		out = append(out, ins)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// zeroBundle seeds a bundle with every priced instrument at zero.
func zeroBundle(instruments []common.Instrument) Bundle {
	b := make(Bundle, len(instruments))
	for _, ins := range instruments {
		b[ins] = 0
	}
	return b
}

// constrained reports whether any allocation limit beyond the budget
// is set. The closed forms only solve the pure budget problem, so a
// capital cap, output ceiling or ratio floor always routes through
// the range scan, flat prices or not.
func constrained(opts *Options) bool {
	return len(opts.Capital) > 0 || opts.MaxOutput > 0 || opts.MarginalThreshold > 0
}

// allFlat reports whether every price function is a single constant
// segment, the condition under which the closed forms are exact.
func allFlat(prices map[common.Instrument]market.PriceFunction) bool {
	for _, pf := range prices {
		if !pf.Flat() {
			return false
		}
	}
	return true
}
