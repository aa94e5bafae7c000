package market_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/common"
	"agora/internal/market"
)

// --- Setup & Helpers --------------------------------------------------------

var (
	wheat    = common.Good("WHEAT")
	kilowatt = common.Good("KILOWATT")
	share    = common.Property("MILL-SHARE")
)

// stubSettlement records transfers and can be told to fail chosen
// money transfers of a call sequence.
type stubSettlement struct {
	failMoneyCalls []int // 1-based call numbers; empty never fails
	moneyCalls     int
	transfers      []string
}

func (s *stubSettlement) TransferMoney(from, to string, currency common.Currency, amount float64) error {
	s.moneyCalls++
	for _, n := range s.failMoneyCalls {
		if s.moneyCalls == n {
			return fmt.Errorf("%w: stubbed", market.ErrInsufficientFunds)
		}
	}
	s.transfers = append(s.transfers, fmt.Sprintf("money %s->%s %.2f %s", from, to, amount, currency))
	return nil
}

func (s *stubSettlement) TransferHolding(from, to string, instrument common.Instrument, amount float64) error {
	s.transfers = append(s.transfers, fmt.Sprintf("holding %s->%s %.2f %s", from, to, amount, instrument))
	return nil
}

func newTestRegistry() (*market.Registry, *stubSettlement) {
	stub := &stubSettlement{}
	return market.NewRegistry(stub), stub
}

func ask(instrument common.Instrument, owner string, amount, price float64) market.OfferSpec {
	return market.OfferSpec{
		Instrument: instrument,
		Currency:   common.EUR,
		Side:       market.Sell,
		Owner:      owner,
		Account:    owner,
		Price:      price,
		Amount:     amount,
	}
}

func bid(instrument common.Instrument, owner string, amount, price float64) market.OfferSpec {
	spec := ask(instrument, owner, amount, price)
	spec.Side = market.Buy
	return spec
}

func level(price float64, amounts ...float64) market.FlatLevel {
	return market.FlatLevel{Price: price, Amounts: amounts}
}

// --- Tests ------------------------------------------------------------------

func TestPlace_AscendingIterationWithFIFOTies(t *testing.T) {
	reg, _ := newTestRegistry()

	// Deliberately shuffled placement order.
	_, err := reg.Place(ask(wheat, "b", 20, 5.0))
	require.NoError(t, err)
	_, err = reg.Place(ask(wheat, "a", 10, 4.0))
	require.NoError(t, err)
	_, err = reg.Place(ask(wheat, "c", 30, 4.0))
	require.NoError(t, err)
	_, err = reg.Place(ask(wheat, "d", 5, 3.0))
	require.NoError(t, err)

	// Ascending by price; the two 4.0 offers keep placement order.
	assert.Equal(t, []market.FlatLevel{
		level(3.0, 5),
		level(4.0, 10, 30),
		level(5.0, 20),
	}, reg.Depth(common.EUR, wheat, market.Sell))
}

func TestPlace_RejectsMalformedOffers(t *testing.T) {
	reg, _ := newTestRegistry()

	cases := []struct {
		name string
		spec market.OfferSpec
	}{
		{"zero amount", ask(wheat, "a", 0, 1.0)},
		{"negative amount", ask(wheat, "a", -5, 1.0)},
		{"negative price", ask(wheat, "a", 10, -1.0)},
		{"nan price", ask(wheat, "a", 10, math.NaN())},
		{"inf price", ask(wheat, "a", 10, math.Inf(1))},
		{"fractional indivisible", ask(share, "a", 1.5, 10.0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Place(tc.spec)
			assert.ErrorIs(t, err, market.ErrInvalidOrder)
		})
	}
	// Nothing rested.
	assert.Empty(t, reg.Depth(common.EUR, wheat, market.Sell))
}

func TestMarginalPrice_UndefinedSentinel(t *testing.T) {
	reg, _ := newTestRegistry()

	assert.True(t, common.IsUndefined(reg.MarginalPrice(common.EUR, wheat)))

	id, err := reg.Place(ask(wheat, "a", 10, 4.0))
	require.NoError(t, err)
	assert.InDelta(t, 4.0, reg.MarginalPrice(common.EUR, wheat), common.Epsilon)

	require.NoError(t, reg.Cancel(id))
	assert.True(t, common.IsUndefined(reg.MarginalPrice(common.EUR, wheat)),
		"removing the last order must restore the sentinel")
}

func TestCancel_UnknownOrder(t *testing.T) {
	reg, _ := newTestRegistry()
	assert.ErrorIs(t, reg.Cancel("no-such-handle"), market.ErrUnknownOrder)
}

func TestCancelAll_AcrossBooks(t *testing.T) {
	reg, _ := newTestRegistry()

	_, err := reg.Place(ask(wheat, "a", 10, 4.0))
	require.NoError(t, err)
	_, err = reg.Place(ask(kilowatt, "a", 10, 1.0))
	require.NoError(t, err)
	_, err = reg.Place(ask(wheat, "b", 10, 5.0))
	require.NoError(t, err)

	reg.CancelAll("a")

	assert.Equal(t, []market.FlatLevel{level(5.0, 10)}, reg.Depth(common.EUR, wheat, market.Sell))
	assert.Empty(t, reg.Depth(common.EUR, kilowatt, market.Sell))
}

func TestCancelAllFor_SingleBookOnly(t *testing.T) {
	reg, _ := newTestRegistry()

	_, err := reg.Place(ask(wheat, "a", 10, 4.0))
	require.NoError(t, err)
	_, err = reg.Place(ask(kilowatt, "a", 10, 1.0))
	require.NoError(t, err)

	reg.CancelAllFor("a", common.EUR, wheat)

	assert.Empty(t, reg.Depth(common.EUR, wheat, market.Sell))
	assert.Equal(t, []market.FlatLevel{level(1.0, 10)}, reg.Depth(common.EUR, kilowatt, market.Sell))
}

func TestBids_DescendingIteration(t *testing.T) {
	reg, _ := newTestRegistry()

	_, err := reg.Place(bid(wheat, "a", 10, 4.0))
	require.NoError(t, err)
	_, err = reg.Place(bid(wheat, "b", 10, 6.0))
	require.NoError(t, err)
	_, err = reg.Place(bid(wheat, "c", 10, 5.0))
	require.NoError(t, err)

	assert.Equal(t, []market.FlatLevel{
		level(6.0, 10),
		level(5.0, 10),
		level(4.0, 10),
	}, reg.Depth(common.EUR, wheat, market.Buy))
}
