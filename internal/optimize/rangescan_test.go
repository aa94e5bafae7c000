package optimize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"agora/internal/common"
	"agora/internal/market"
	"agora/internal/optimize"
)

// linear builds a generic convex function with constant per-input
// marginal outputs, which makes scan behavior easy to predict.
func linear(marginals map[common.Instrument]float64) optimize.Convex {
	return optimize.Convex{
		OutputFn: func(b optimize.Bundle) float64 {
			var out float64
			for ins, m := range marginals {
				out += m * b[ins]
			}
			return out
		},
		MarginalFn: func(_ optimize.Bundle, ins common.Instrument) float64 {
			return marginals[ins]
		},
	}
}

func TestRangeScan_Deterministic(t *testing.T) {
	f := optimize.CobbDouglas{
		Scale:     1,
		Exponents: map[common.Instrument]float64{kilowatt: 0.3, wheat: 0.7},
	}
	prices := map[common.Instrument]market.PriceFunction{
		kilowatt: tieredPrices(t, kilowatt, 4, 1.0, 3.0),
		wheat:    tieredPrices(t, wheat, 6, 2.0, 5.0),
	}

	first := f.OptimalInputs(prices, 30, nil)
	second := f.OptimalInputs(prices, 30, nil)

	assert.Equal(t, first.Inputs, second.Inputs)
	assert.Equal(t, first.Cause, second.Cause)
	assert.InDelta(t, first.Spent, second.Spent, common.Epsilon)
}

func TestRangeScan_TieBreaksLexicographically(t *testing.T) {
	// Identical marginals and identical flat prices: every step ties,
	// so the lexicographically smaller instrument takes the whole
	// budget.
	f := linear(map[common.Instrument]float64{kilowatt: 1, wheat: 1})
	prices := flatPrices(t, map[common.Instrument]float64{kilowatt: 2.0, wheat: 2.0})

	result := f.OptimalInputs(prices, 10, nil)

	assert.InDelta(t, 5.0, result.Inputs[kilowatt], 0.1)
	assert.Zero(t, result.Inputs[wheat])
	assert.Equal(t, optimize.TermBudgetPlanned, result.Cause)
}

func TestRangeScan_FollowsTheCheaperTranche(t *testing.T) {
	// Equal marginal outputs; good A has 5 cheap units then turns dear,
	// good B is flat in between. The scan must drain A's cheap tranche,
	// switch to B, and never come back to A's dear tail.
	f := linear(map[common.Instrument]float64{kilowatt: 1, wheat: 1})
	prices := map[common.Instrument]market.PriceFunction{
		kilowatt: tieredPrices(t, kilowatt, 5, 1.0, 10.0),
		wheat:    flatPrices(t, map[common.Instrument]float64{wheat: 2.0})[wheat],
	}

	result := f.OptimalInputs(prices, 25, nil)

	assert.InDelta(t, 5.0, result.Inputs[kilowatt], 0.2)
	assert.InDelta(t, 10.0, result.Inputs[wheat], 0.2)
	assert.Equal(t, optimize.TermBudgetPlanned, result.Cause)
}

func TestRangeScan_MaxOutputStops(t *testing.T) {
	f := linear(map[common.Instrument]float64{kilowatt: 1})
	prices := flatPrices(t, map[common.Instrument]float64{kilowatt: 1.0})

	result := f.OptimalInputs(prices, 100, &optimize.Options{MaxOutput: 10})

	assert.Equal(t, optimize.TermMaxOutputReached, result.Cause)
	assert.InDelta(t, 10.0, result.Inputs[kilowatt], 1.0)
	assert.Less(t, result.Spent, 100.0)
}

func TestRangeScan_CapitalConstraintSaturates(t *testing.T) {
	f := linear(map[common.Instrument]float64{kilowatt: 5, wheat: 1})
	prices := flatPrices(t, map[common.Instrument]float64{kilowatt: 1.0, wheat: 1.0})

	result := f.OptimalInputs(prices, 10, &optimize.Options{
		Capital: map[common.Instrument]float64{kilowatt: 3},
	})

	// Kilowatt is five times as productive but capped at 3; the rest of
	// the budget flows to wheat.
	assert.InDelta(t, 3.0, result.Inputs[kilowatt], 0.1)
	assert.InDelta(t, 7.0, result.Inputs[wheat], 0.1)
	assert.Equal(t, optimize.TermBudgetPlanned, result.Cause)
}

func TestRangeScan_ZeroMarginalOutputStops(t *testing.T) {
	f := linear(map[common.Instrument]float64{kilowatt: 0})
	prices := flatPrices(t, map[common.Instrument]float64{kilowatt: 1.0})

	result := f.OptimalInputs(prices, 10, nil)

	assert.Equal(t, optimize.TermZeroMarginalOutput, result.Cause)
	assert.Zero(t, result.Spent)
}

func TestRangeScan_NoLiquidityAnywhereStops(t *testing.T) {
	f := linear(map[common.Instrument]float64{kilowatt: 1})
	prices := map[common.Instrument]market.PriceFunction{
		kilowatt: {},
	}

	result := f.OptimalInputs(prices, 10, nil)

	assert.Equal(t, optimize.TermInputUnavailable, result.Cause)
	assert.Zero(t, result.Spent)
}

func TestRangeScan_MarginalThresholdStops(t *testing.T) {
	f := linear(map[common.Instrument]float64{kilowatt: 1})
	prices := flatPrices(t, map[common.Instrument]float64{kilowatt: 2.0})

	// Output per money is 0.5, under the floor of 1.
	result := f.OptimalInputs(prices, 10, &optimize.Options{MarginalThreshold: 1.0})

	assert.Equal(t, optimize.TermMarginalThreshold, result.Cause)
	assert.Zero(t, result.Spent)
}

func TestRangeScan_ExplicitStepHonored(t *testing.T) {
	f := linear(map[common.Instrument]float64{kilowatt: 1})
	prices := flatPrices(t, map[common.Instrument]float64{kilowatt: 1.0})

	result := f.OptimalInputs(prices, 10, &optimize.Options{Step: 2.5})

	assert.InDelta(t, 10.0, result.Inputs[kilowatt], common.Epsilon)
	assert.InDelta(t, 10.0, result.Spent, common.Epsilon)
	assert.Equal(t, optimize.TermBudgetPlanned, result.Cause)
}
