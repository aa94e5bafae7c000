package common

import "fmt"

type InstrumentKind int

const (
	// Goods are commodities measured in continuous quantities and may be
	// split across partial fills.
	KindGood InstrumentKind = iota
	// Properties are fungible issued securities (shares, bonds) that
	// trade in whole units only.
	KindProperty
)

func (k InstrumentKind) String() string {
	switch k {
	case KindGood:
		return "good"
	case KindProperty:
		return "property"
	}
	return "unknown"
}

// Instrument identifies what is traded. It is immutable, comparable and
// used as a map key throughout the engine.
type Instrument struct {
	Kind InstrumentKind
	Name string
}

func Good(name string) Instrument {
	return Instrument{Kind: KindGood, Name: name}
}

func Property(name string) Instrument {
	return Instrument{Kind: KindProperty, Name: name}
}

// Divisible reports whether partial units of the instrument may change
// hands. Properties always trade whole.
func (i Instrument) Divisible() bool {
	return i.Kind == KindGood
}

// Less gives the lexicographic total order (kind, then name) used to
// break ties deterministically in the allocation scan.
func (i Instrument) Less(other Instrument) bool {
	if i.Kind != other.Kind {
		return i.Kind < other.Kind
	}
	return i.Name < other.Name
}

func (i Instrument) String() string {
	return fmt.Sprintf("%s/%s", i.Kind, i.Name)
}

type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
)

// MarketKey addresses one order book: a (currency, instrument) pair.
type MarketKey struct {
	Currency   Currency
	Instrument Instrument
}

func (k MarketKey) String() string {
	return fmt.Sprintf("%s:%s", k.Currency, k.Instrument)
}
