package common

import "math"

// Epsilon is the absolute tolerance applied to every price and quantity
// comparison in the engine. Matching and allocation decisions must not
// flip on floating-point jitter, so all ordering goes through these
// helpers rather than raw operators.
const Epsilon = 1e-6

// Equal reports a ~= b under the absolute tolerance. Two NaNs compare
// equal here (the one deliberate deviation from IEEE semantics, so that
// "undefined" prices can be recognised); a single NaN compares unequal
// to everything. Infinities compare exactly.
func Equal(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= Epsilon
}

// Greater reports a > b beyond the tolerance. NaN is never greater than
// anything, nor is anything greater than NaN.
func Greater(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return a > b && !Equal(a, b)
}

func GreaterOrEqual(a, b float64) bool {
	return Equal(a, b) || Greater(a, b)
}

func Lesser(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return a < b && !Equal(a, b)
}

func LesserOrEqual(a, b float64) bool {
	return Equal(a, b) || Lesser(a, b)
}

// Undefined is the "no liquidity" price sentinel. It is an ordinary
// result, not an error; callers test it with IsUndefined.
func Undefined() float64 {
	return math.NaN()
}

func IsUndefined(v float64) bool {
	return math.IsNaN(v)
}
