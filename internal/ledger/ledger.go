// Package ledger is the in-memory realization of the settlement
// primitive: payment accounts with decimal balances and per-owner
// instrument holdings. It is intentionally minimal (no double entry,
// no persistence), just enough to let the simulation settle trades.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"agora/internal/common"
	"agora/internal/market"
)

// moneyScale rounds float trade amounts before they touch decimal
// balances, so settlement math cannot drift below a transfer by raw
// float error.
const moneyScale = 9

type accountKey struct {
	id       string
	currency common.Currency
}

// Ledger implements market.Settlement.
type Ledger struct {
	balances map[accountKey]decimal.Decimal
	holdings map[string]map[common.Instrument]float64
}

func New() *Ledger {
	return &Ledger{
		balances: make(map[accountKey]decimal.Decimal),
		holdings: make(map[string]map[common.Instrument]float64),
	}
}

// OpenAccount creates (or tops up) a payment account.
func (l *Ledger) OpenAccount(id string, currency common.Currency, initial float64) {
	key := accountKey{id: id, currency: currency}
	l.balances[key] = l.balances[key].Add(money(initial))
}

// Balance reports an account balance; zero for unknown accounts.
func (l *Ledger) Balance(id string, currency common.Currency) float64 {
	f, _ := l.balances[accountKey{id: id, currency: currency}].Float64()
	return f
}

// Credit adds goods to an owner's holding.
func (l *Ledger) Credit(owner string, instrument common.Instrument, amount float64) {
	l.holding(owner)[instrument] += amount
}

// Holding reports an owner's quantity of an instrument.
func (l *Ledger) Holding(owner string, instrument common.Instrument) float64 {
	return l.holdings[owner][instrument]
}

func (l *Ledger) holding(owner string) map[common.Instrument]float64 {
	h, ok := l.holdings[owner]
	if !ok {
		h = make(map[common.Instrument]float64)
		l.holdings[owner] = h
	}
	return h
}

// TransferMoney moves amount between two open accounts. Unknown
// accounts are unauthorized; a short balance is insufficient funds.
func (l *Ledger) TransferMoney(from, to string, currency common.Currency, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative transfer %v", market.ErrUnauthorized, amount)
	}
	fromKey := accountKey{id: from, currency: currency}
	toKey := accountKey{id: to, currency: currency}
	if _, ok := l.balances[fromKey]; !ok {
		return fmt.Errorf("%w: account %s (%s)", market.ErrUnauthorized, from, currency)
	}
	if _, ok := l.balances[toKey]; !ok {
		return fmt.Errorf("%w: account %s (%s)", market.ErrUnauthorized, to, currency)
	}
	d := money(amount)
	if l.balances[fromKey].LessThan(d) {
		return fmt.Errorf("%w: %s has %s, needs %s (%s)",
			market.ErrInsufficientFunds, from, l.balances[fromKey], d, currency)
	}
	l.balances[fromKey] = l.balances[fromKey].Sub(d)
	l.balances[toKey] = l.balances[toKey].Add(d)
	return nil
}

// TransferHolding moves a quantity of an instrument between owners.
func (l *Ledger) TransferHolding(from, to string, instrument common.Instrument, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative transfer %v", market.ErrInsufficientInventory, amount)
	}
	have := l.holdings[from][instrument]
	if common.Lesser(have, amount) {
		return fmt.Errorf("%w: %s has %v of %s, needs %v",
			market.ErrInsufficientInventory, from, have, instrument, amount)
	}
	l.holding(from)[instrument] = have - amount
	l.holding(to)[instrument] += amount
	return nil
}

func money(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(moneyScale)
}
