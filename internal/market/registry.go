package market

import (
	"fmt"

	"github.com/google/uuid"

	"agora/internal/common"
)

const defaultFallbackPrice = 1.0

// Registry owns every order book of a simulation run, one per
// (currency, instrument) pair, plus the last settled unit price per
// pair. It is created by whichever component composes the run and dies
// with it; nothing in the engine reaches it through package state.
type Registry struct {
	settlement Settlement
	books      map[common.MarketKey]*OrderBook
	bookOf     map[string]*OrderBook // order ID -> owning book
	lastPrice  map[common.MarketKey]float64
	fallback   float64
	seq        uint64
}

type RegistryOption func(*Registry)

// WithFallbackPrice sets the constant price assumed for instruments
// that have never traded and have no standing offers.
func WithFallbackPrice(price float64) RegistryOption {
	return func(r *Registry) { r.fallback = price }
}

func NewRegistry(settlement Settlement, opts ...RegistryOption) *Registry {
	r := &Registry{
		settlement: settlement,
		books:      make(map[common.MarketKey]*OrderBook),
		bookOf:     make(map[string]*OrderBook),
		lastPrice:  make(map[common.MarketKey]float64),
		fallback:   defaultFallbackPrice,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) book(key common.MarketKey) *OrderBook {
	book, ok := r.books[key]
	if !ok {
		book = newOrderBook(key)
		r.books[key] = book
	}
	return book
}

// Place validates and rests a standing offer, returning its handle.
func (r *Registry) Place(spec OfferSpec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}
	r.seq++
	order := &Order{
		ID:         uuid.NewString(),
		Seq:        r.seq,
		Instrument: spec.Instrument,
		Currency:   spec.Currency,
		Side:       spec.Side,
		Owner:      spec.Owner,
		Account:    spec.Account,
		Price:      spec.Price,
		Amount:     spec.Amount,
		Divisible:  spec.Instrument.Divisible(),
	}
	book := r.book(common.MarketKey{Currency: spec.Currency, Instrument: spec.Instrument})
	book.insert(order)
	r.bookOf[order.ID] = book
	return order.ID, nil
}

// Cancel removes one standing offer by handle.
func (r *Registry) Cancel(id string) error {
	book, ok := r.bookOf[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}
	order, ok := book.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}
	book.remove(order)
	delete(r.bookOf, id)
	return nil
}

// CancelAll removes every standing offer of an owner across all books.
func (r *Registry) CancelAll(owner string) {
	for _, book := range r.books {
		r.cancelOwned(book, owner)
	}
}

// CancelAllFor removes an owner's offers in one book only.
func (r *Registry) CancelAllFor(owner string, currency common.Currency, instrument common.Instrument) {
	key := common.MarketKey{Currency: currency, Instrument: instrument}
	if book, ok := r.books[key]; ok {
		r.cancelOwned(book, owner)
	}
}

func (r *Registry) cancelOwned(book *OrderBook, owner string) {
	var doomed []*Order
	for _, o := range book.byID {
		if o.Owner == owner {
			doomed = append(doomed, o)
		}
	}
	for _, o := range doomed {
		book.remove(o)
		delete(r.bookOf, o.ID)
	}
}

// MarginalPrice returns the cheapest standing ask price for the pair,
// or the undefined sentinel when there is no liquidity. Callers treat
// the sentinel as "no offers", never as a failure.
func (r *Registry) MarginalPrice(currency common.Currency, instrument common.Instrument) float64 {
	key := common.MarketKey{Currency: currency, Instrument: instrument}
	book, ok := r.books[key]
	if !ok {
		return common.Undefined()
	}
	return book.marginalPrice()
}

// LastPrice is the unit price of the pair's most recent settlement,
// falling back to the configured constant before any trade.
func (r *Registry) LastPrice(currency common.Currency, instrument common.Instrument) float64 {
	key := common.MarketKey{Currency: currency, Instrument: instrument}
	if p, ok := r.lastPrice[key]; ok {
		return p
	}
	return r.fallback
}

// PriceFunction derives the pair's cost curve from a snapshot of the
// current ask queue. The result is a value; it does not track later
// book mutations.
func (r *Registry) PriceFunction(currency common.Currency, instrument common.Instrument) PriceFunction {
	key := common.MarketKey{Currency: currency, Instrument: instrument}
	book, ok := r.books[key]
	if !ok {
		return constantPriceFunction(r.LastPrice(currency, instrument))
	}
	var quotes []quote
	book.walk(Sell, func(o *Order) bool {
		quotes = append(quotes, quote{price: o.Price, amount: o.Amount})
		return true
	})
	return buildPriceFunction(quotes, r.LastPrice(currency, instrument))
}

// Depth flattens one side of a pair's book, cheapest ask or dearest bid
// first. Used by tests and tick logging.
func (r *Registry) Depth(currency common.Currency, instrument common.Instrument, side Side) []FlatLevel {
	key := common.MarketKey{Currency: currency, Instrument: instrument}
	book, ok := r.books[key]
	if !ok {
		return nil
	}
	return book.Levels(side)
}
