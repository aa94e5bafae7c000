package market

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"agora/internal/common"
)

// OrderFill records what one matched order contributed to a call.
type OrderFill struct {
	OrderID      string
	Counterparty string
	Amount       float64
	Price        float64 // unit price of the matched order
}

// Fill is the result of a Buy or Sell call. Amount may fall short of
// the requested maximum when the book lacked liquidity within the
// limits; that is an ordinary outcome, not an error.
type Fill struct {
	Amount     float64
	TotalPrice float64
	Fills      []OrderFill
}

type plannedFill struct {
	order  *Order
	amount float64
}

// unbounded reports whether a limit carries the "no limit" sentinel.
// Negative values and +Inf both mean unbounded.
func unbounded(limit float64) bool {
	return limit < 0 || math.IsInf(limit, 1)
}

// Buy fills up to maxAmount units of the pair from the cheapest
// standing asks, spending at most maxTotal, never lifting an order
// priced above maxUnitPrice. At least one limit must be bounded.
//
// Matching walks asks in ascending price, FIFO within a level.
// Indivisible instruments are taken in whole units; an order that
// cannot yield one whole unit within the remaining limits is skipped
// and the walk continues, never re-sorting later candidates. Each
// matched order settles individually; if any settlement fails the
// whole call rolls back and the book is restored to its pre-call
// state.
func (r *Registry) Buy(
	instrument common.Instrument,
	currency common.Currency,
	maxAmount, maxTotal, maxUnitPrice float64,
	buyer, buyerAccount string,
) (Fill, error) {
	if unbounded(maxAmount) && unbounded(maxTotal) && unbounded(maxUnitPrice) {
		return Fill{}, fmt.Errorf("%w: buy %s", ErrUnboundedRequest, instrument)
	}

	key := common.MarketKey{Currency: currency, Instrument: instrument}
	book, ok := r.books[key]
	if !ok {
		return Fill{}, nil
	}

	planned := planFills(book.ordersOn(Sell), maxAmount, maxTotal, maxUnitPrice, false)
	fill, err := r.execute(book, planned, buyer, buyerAccount, Buy)
	if err != nil {
		return Fill{}, err
	}
	if fill.Amount > 0 {
		r.lastPrice[key] = fill.TotalPrice / fill.Amount
	}
	log.Debug().
		Stringer("market", key).
		Float64("amount", fill.Amount).
		Float64("total", fill.TotalPrice).
		Int("orders", len(fill.Fills)).
		Str("buyer", buyer).
		Msg("buy filled")
	return fill, nil
}

// Sell fills up to maxAmount units against the dearest standing bids,
// collecting at most maxTotal in proceeds, never hitting a bid priced
// below minUnitPrice. Same rules as Buy with the price ordering
// reversed.
func (r *Registry) Sell(
	instrument common.Instrument,
	currency common.Currency,
	maxAmount, maxTotal, minUnitPrice float64,
	seller, sellerAccount string,
) (Fill, error) {
	if unbounded(maxAmount) && unbounded(maxTotal) && unbounded(minUnitPrice) {
		return Fill{}, fmt.Errorf("%w: sell %s", ErrUnboundedRequest, instrument)
	}

	key := common.MarketKey{Currency: currency, Instrument: instrument}
	book, ok := r.books[key]
	if !ok {
		return Fill{}, nil
	}

	planned := planFills(book.ordersOn(Buy), maxAmount, maxTotal, minUnitPrice, true)
	fill, err := r.execute(book, planned, seller, sellerAccount, Sell)
	if err != nil {
		return Fill{}, err
	}
	if fill.Amount > 0 {
		r.lastPrice[key] = fill.TotalPrice / fill.Amount
	}
	log.Debug().
		Stringer("market", key).
		Float64("amount", fill.Amount).
		Float64("total", fill.TotalPrice).
		Int("orders", len(fill.Fills)).
		Str("seller", seller).
		Msg("sell filled")
	return fill, nil
}

// planFills selects the fulfillment set from a pre-sorted candidate
// walk without touching the book. floor (true on the sell side) flips
// the unit-price limit from a cap to a floor.
func planFills(candidates []*Order, maxAmount, maxTotal, unitPrice float64, floor bool) []plannedFill {
	var planned []plannedFill
	var taken, spent float64
	for _, o := range candidates {
		if !unbounded(unitPrice) {
			// Candidates arrive best-price-first, so the first
			// ineligible price ends the walk.
			if !floor && common.Greater(o.Price, unitPrice) {
				break
			}
			if floor && common.Lesser(o.Price, unitPrice) {
				break
			}
		}
		if !unbounded(maxAmount) && common.GreaterOrEqual(taken, maxAmount) {
			break
		}
		if !unbounded(maxTotal) && common.GreaterOrEqual(spent, maxTotal) {
			break
		}

		take := o.Amount
		if !unbounded(maxAmount) {
			take = math.Min(take, maxAmount-taken)
		}
		if !unbounded(maxTotal) && o.Price > 0 {
			take = math.Min(take, (maxTotal-spent)/o.Price)
		}
		if !o.Divisible {
			take = math.Floor(take + common.Epsilon)
			if take < 1 {
				// Whole-unit order that no longer fits: skip it and
				// keep walking in price-time order.
				continue
			}
		}
		if common.LesserOrEqual(take, 0) {
			break
		}

		planned = append(planned, plannedFill{order: o, amount: take})
		taken += take
		spent += take * o.Price
	}
	return planned
}

// execute settles the planned set in order, decrementing matched
// orders as it goes. On any settlement failure it unwinds every fill
// already applied in this call and returns the failure, joined with
// any failed counter-transfers of the unwind. side is the taker's
// side: Buy means taker receives the instrument.
func (r *Registry) execute(book *OrderBook, planned []plannedFill, taker, takerAccount string, side Side) (Fill, error) {
	var fill Fill
	for i, pf := range planned {
		if err := r.settle(pf, taker, takerAccount, side); err != nil {
			if uerr := r.unwind(book, planned[:i], taker, takerAccount, side); uerr != nil {
				return Fill{}, errors.Join(err, uerr)
			}
			return Fill{}, err
		}
		pf.order.Amount -= pf.amount
		if pf.order.Amount <= common.Epsilon {
			book.remove(pf.order)
			delete(r.bookOf, pf.order.ID)
		}
		fill.Fills = append(fill.Fills, OrderFill{
			OrderID:      pf.order.ID,
			Counterparty: pf.order.Owner,
			Amount:       pf.amount,
			Price:        pf.order.Price,
		})
		fill.Amount += pf.amount
		fill.TotalPrice += pf.amount * pf.order.Price
	}
	return fill, nil
}

// settle moves money and then the instrument for one matched order,
// reversing the money leg if the instrument leg fails.
func (r *Registry) settle(pf plannedFill, taker, takerAccount string, side Side) error {
	cost := pf.amount * pf.order.Price
	o := pf.order
	if side == Buy {
		if err := r.settlement.TransferMoney(takerAccount, o.Account, o.Currency, cost); err != nil {
			return err
		}
		if err := r.settlement.TransferHolding(o.Owner, taker, o.Instrument, pf.amount); err != nil {
			if rerr := r.reverseMoney(o.Account, takerAccount, o.Currency, cost); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		}
		return nil
	}
	if err := r.settlement.TransferMoney(o.Account, takerAccount, o.Currency, cost); err != nil {
		return err
	}
	if err := r.settlement.TransferHolding(taker, o.Owner, o.Instrument, pf.amount); err != nil {
		if rerr := r.reverseMoney(takerAccount, o.Account, o.Currency, cost); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return nil
}

// unwind restores the book and counter-transfers every settled fill of
// an aborted call, newest first. A conforming settlement accepts the
// counter-transfer of a transfer it just completed; one that refuses
// leaves the ledger diverged from the restored book, so every refusal
// is joined into the returned error as well as logged. The book
// restore itself is unconditional.
func (r *Registry) unwind(book *OrderBook, settled []plannedFill, taker, takerAccount string, side Side) error {
	var errs []error
	for i := len(settled) - 1; i >= 0; i-- {
		pf := settled[i]
		o := pf.order
		cost := pf.amount * o.Price
		if side == Buy {
			if err := r.reverseMoney(o.Account, takerAccount, o.Currency, cost); err != nil {
				errs = append(errs, err)
			}
			if err := r.reverseHolding(taker, o.Owner, o.Instrument, pf.amount); err != nil {
				errs = append(errs, err)
			}
		} else {
			if err := r.reverseMoney(takerAccount, o.Account, o.Currency, cost); err != nil {
				errs = append(errs, err)
			}
			if err := r.reverseHolding(o.Owner, taker, o.Instrument, pf.amount); err != nil {
				errs = append(errs, err)
			}
		}
		// A removed order still carries its residual dust, so adding
		// the fill back restores the exact pre-call amount.
		o.Amount += pf.amount
		if _, resting := book.lookup(o.ID); !resting {
			book.reinsert(o)
			r.bookOf[o.ID] = book
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) reverseMoney(from, to string, currency common.Currency, amount float64) error {
	if err := r.settlement.TransferMoney(from, to, currency, amount); err != nil {
		log.Error().Err(err).
			Str("from", from).
			Str("to", to).
			Float64("amount", amount).
			Msg("rollback money transfer failed")
		return fmt.Errorf("reversing money %s->%s: %w", from, to, err)
	}
	return nil
}

func (r *Registry) reverseHolding(from, to string, instrument common.Instrument, amount float64) error {
	if err := r.settlement.TransferHolding(from, to, instrument, amount); err != nil {
		log.Error().Err(err).
			Str("from", from).
			Str("to", to).
			Stringer("instrument", instrument).
			Msg("rollback holding transfer failed")
		return fmt.Errorf("reversing holding %s->%s: %w", from, to, err)
	}
	return nil
}
