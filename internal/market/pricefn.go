package market

import (
	"math"

	"agora/internal/common"
)

// Segment covers cumulative quantity [Left, Right) with average price
// p(x) = C0 + CM1/x. C0 is the marginal price of the underlying order;
// CM1 folds the savings from cheaper earlier offers in so that the
// cumulative cost C0·x + CM1 is continuous across boundaries.
type Segment struct {
	Left  float64
	Right float64 // +Inf on the last segment
	C0    float64
	CM1   float64
}

// PriceFunction is a piecewise rational cost curve derived from one
// book snapshot. It is a pure value object: it never mutates the book
// and goes stale as soon as any order is added, removed or filled.
type PriceFunction struct {
	segments []Segment
}

// constantPriceFunction covers [0, +Inf) at a single price. Used for
// empty books, where the registry supplies the last-known price.
func constantPriceFunction(price float64) PriceFunction {
	return PriceFunction{segments: []Segment{
		{Left: 0, Right: math.Inf(1), C0: price, CM1: 0},
	}}
}

type quote struct {
	price  float64
	amount float64
}

// buildPriceFunction folds an ascending-price quote snapshot into
// segments. Each quote contributes one segment whose C0 is its limit
// price; CM1 is cumulative cost so far minus what the preceding
// quantity would have cost at this quote's price.
func buildPriceFunction(quotes []quote, fallback float64) PriceFunction {
	if len(quotes) == 0 {
		return constantPriceFunction(fallback)
	}
	segments := make([]Segment, 0, len(quotes))
	var cumAmount, cumCost float64
	for i, q := range quotes {
		seg := Segment{
			Left:  cumAmount,
			Right: cumAmount + q.amount,
			C0:    q.price,
			CM1:   cumCost - q.price*cumAmount,
		}
		if i == len(quotes)-1 {
			seg.Right = math.Inf(1)
		}
		segments = append(segments, seg)
		cumAmount += q.amount
		cumCost += q.amount * q.price
	}
	return PriceFunction{segments: segments}
}

// segmentAt locates the segment covering cumulative quantity x.
func (f PriceFunction) segmentAt(x float64) Segment {
	for _, seg := range f.segments {
		if x < seg.Right {
			return seg
		}
	}
	return f.segments[len(f.segments)-1]
}

// MarginalPrice is the price of the next unit after x have been bought.
func (f PriceFunction) MarginalPrice(x float64) float64 {
	if len(f.segments) == 0 {
		return common.Undefined()
	}
	return f.segmentAt(x).C0
}

// AveragePrice is the mean unit price over the first x units.
func (f PriceFunction) AveragePrice(x float64) float64 {
	if len(f.segments) == 0 {
		return common.Undefined()
	}
	if x <= 0 {
		return f.segments[0].C0
	}
	seg := f.segmentAt(x)
	return seg.C0 + seg.CM1/x
}

// Cost is the total spent buying the first x units: x·p(x).
func (f PriceFunction) Cost(x float64) float64 {
	if len(f.segments) == 0 || x <= 0 {
		return 0
	}
	seg := f.segmentAt(x)
	return seg.C0*x + seg.CM1
}

// Flat reports whether the curve is a single constant-price segment, in
// which case the closed-form optimizers apply directly.
func (f PriceFunction) Flat() bool {
	return len(f.segments) == 1
}

// Segments returns a copy of the segment sequence.
func (f PriceFunction) Segments() []Segment {
	out := make([]Segment, len(f.segments))
	copy(out, f.segments)
	return out
}
