package market

import (
	"errors"
	"fmt"
	"math"

	"agora/internal/common"
)

var (
	ErrInvalidOrder     = errors.New("invalid order")
	ErrUnknownOrder     = errors.New("unknown order")
	ErrUnboundedRequest = errors.New("unbounded request")
)

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// OfferSpec is what an agent submits when posting a standing offer.
type OfferSpec struct {
	Instrument common.Instrument //
	Currency   common.Currency   //
	Side       Side              // Sell offers rest on the ask side
	Owner      string            // Holding that goods move in/out of
	Account    string            // Payment account: credited on ask fills, debited on bid fills
	Price      float64           // Limit price per unit
	Amount     float64           // Offered quantity
}

func (s OfferSpec) validate() error {
	if s.Amount <= 0 {
		return fmt.Errorf("%w: non-positive amount %v", ErrInvalidOrder, s.Amount)
	}
	if math.IsNaN(s.Price) || math.IsInf(s.Price, 0) || s.Price < 0 {
		return fmt.Errorf("%w: bad price %v", ErrInvalidOrder, s.Price)
	}
	if s.Owner == "" || s.Account == "" {
		return fmt.Errorf("%w: missing owner or account", ErrInvalidOrder)
	}
	if !s.Instrument.Divisible() && s.Amount != math.Trunc(s.Amount) {
		return fmt.Errorf("%w: fractional amount %v of indivisible %s",
			ErrInvalidOrder, s.Amount, s.Instrument)
	}
	return nil
}

// Order is a standing offer resting in a book. The book owns it
// exclusively; callers hold only the ID.
type Order struct {
	ID         string            // Book-assigned uuid handle
	Seq        uint64            // Insertion sequence, tie-break within a price level
	Instrument common.Instrument //
	Currency   common.Currency   //
	Side       Side              //
	Owner      string            //
	Account    string            // Payment account identifier, resolved by the settlement layer
	Price      float64           // Limit price per unit
	Amount     float64           // Remaining quantity
	Divisible  bool              // Whole-unit fills only when false
}

func (o *Order) String() string {
	return fmt.Sprintf("%s %s %v@%v (%s, seq %d)",
		o.Side, o.Instrument, o.Amount, o.Price, o.Owner, o.Seq)
}
