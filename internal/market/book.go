package market

import (
	"sort"

	"github.com/tidwall/btree"

	"agora/internal/common"
)

// priceLevel groups the resting orders at one price, FIFO by insertion
// sequence.
type priceLevel struct {
	price  float64
	orders []*Order
}

type priceLevels = btree.BTreeG[*priceLevel]

// OrderBook holds the standing offers for one (currency, instrument)
// pair. Asks iterate cheapest-first, bids dearest-first, ties within a
// level by insertion sequence. The book is the exclusive owner of its
// orders; callers keep only order IDs.
//
// The book is not internally synchronized. The simulation drives one
// mutation at a time; concurrent callers must serialize externally.
type OrderBook struct {
	key common.MarketKey

	bids *priceLevels
	asks *priceLevels

	byID map[string]*Order
}

func newOrderBook(key common.MarketKey) *OrderBook {
	// Bids sorted greatest first, asks least first, mirroring the walk
	// direction of the matching engine.
	bids := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price > b.price
	})
	asks := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price < b.price
	})
	return &OrderBook{
		key:  key,
		bids: bids,
		asks: asks,
		byID: make(map[string]*Order),
	}
}

func (book *OrderBook) side(s Side) *priceLevels {
	if s == Buy {
		return book.bids
	}
	return book.asks
}

// insert rests an order in the book. Orders arrive with strictly
// increasing Seq, so appending preserves FIFO within the level.
func (book *OrderBook) insert(order *Order) {
	levels := book.side(order.Side)
	level, ok := levels.GetMut(&priceLevel{price: order.Price})
	if ok {
		level.orders = append(level.orders, order)
	} else {
		levels.Set(&priceLevel{
			price:  order.Price,
			orders: []*Order{order},
		})
	}
	book.byID[order.ID] = order
}

// reinsert puts a previously removed order back, restoring its position
// within the level by Seq. Used by the matching engine's rollback.
func (book *OrderBook) reinsert(order *Order) {
	levels := book.side(order.Side)
	level, ok := levels.GetMut(&priceLevel{price: order.Price})
	if !ok {
		levels.Set(&priceLevel{
			price:  order.Price,
			orders: []*Order{order},
		})
		book.byID[order.ID] = order
		return
	}
	at := sort.Search(len(level.orders), func(i int) bool {
		return level.orders[i].Seq > order.Seq
	})
	level.orders = append(level.orders, nil)
	copy(level.orders[at+1:], level.orders[at:])
	level.orders[at] = order
	book.byID[order.ID] = order
}

// remove drops an order from the book, deleting its level when empty.
func (book *OrderBook) remove(order *Order) {
	levels := book.side(order.Side)
	level, ok := levels.GetMut(&priceLevel{price: order.Price})
	if !ok {
		return
	}
	for i, o := range level.orders {
		if o.ID == order.ID {
			level.orders = append(level.orders[:i], level.orders[i+1:]...)
			break
		}
	}
	if len(level.orders) == 0 {
		levels.Delete(level)
	}
	delete(book.byID, order.ID)
}

func (book *OrderBook) lookup(id string) (*Order, bool) {
	o, ok := book.byID[id]
	return o, ok
}

// walk yields the side's orders in matching order: asks ascending by
// price, bids descending, FIFO within a level.
func (book *OrderBook) walk(s Side, fn func(*Order) bool) {
	book.side(s).Scan(func(level *priceLevel) bool {
		for _, o := range level.orders {
			if !fn(o) {
				return false
			}
		}
		return true
	})
}

// ordersOn returns a snapshot slice of the side's orders in matching
// order. The slice is fresh; the pointed-to orders are live.
func (book *OrderBook) ordersOn(s Side) []*Order {
	var out []*Order
	book.walk(s, func(o *Order) bool {
		out = append(out, o)
		return true
	})
	return out
}

// marginalPrice is the price of the cheapest standing ask, or the
// undefined sentinel when the side is empty.
func (book *OrderBook) marginalPrice() float64 {
	level, ok := book.asks.Min()
	if !ok {
		return common.Undefined()
	}
	return level.price
}

// FlatLevel is a flattened view of one price level, used by tests and
// depth logging.
type FlatLevel struct {
	Price   float64
	Amounts []float64
}

// Levels flattens one side of the book in its iteration order.
func (book *OrderBook) Levels(s Side) []FlatLevel {
	var out []FlatLevel
	book.side(s).Scan(func(level *priceLevel) bool {
		flat := FlatLevel{Price: level.price}
		for _, o := range level.orders {
			flat.Amounts = append(flat.Amounts, o.Amount)
		}
		out = append(out, flat)
		return true
	})
	return out
}
