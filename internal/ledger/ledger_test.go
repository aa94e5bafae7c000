package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/common"
	"agora/internal/ledger"
	"agora/internal/market"
)

var wheat = common.Good("WHEAT")

func TestTransferMoney_MovesBalance(t *testing.T) {
	led := ledger.New()
	led.OpenAccount("a", common.EUR, 100)
	led.OpenAccount("b", common.EUR, 0)

	require.NoError(t, led.TransferMoney("a", "b", common.EUR, 30))

	assert.InDelta(t, 70.0, led.Balance("a", common.EUR), 1e-9)
	assert.InDelta(t, 30.0, led.Balance("b", common.EUR), 1e-9)
}

func TestTransferMoney_InsufficientFunds(t *testing.T) {
	led := ledger.New()
	led.OpenAccount("a", common.EUR, 10)
	led.OpenAccount("b", common.EUR, 0)

	err := led.TransferMoney("a", "b", common.EUR, 10.5)
	assert.ErrorIs(t, err, market.ErrInsufficientFunds)
	assert.InDelta(t, 10.0, led.Balance("a", common.EUR), 1e-9, "failed transfer must not move money")
}

func TestTransferMoney_UnknownAccountUnauthorized(t *testing.T) {
	led := ledger.New()
	led.OpenAccount("a", common.EUR, 10)

	assert.ErrorIs(t, led.TransferMoney("ghost", "a", common.EUR, 1), market.ErrUnauthorized)
	assert.ErrorIs(t, led.TransferMoney("a", "ghost", common.EUR, 1), market.ErrUnauthorized)
}

func TestTransferMoney_CurrenciesAreSeparate(t *testing.T) {
	led := ledger.New()
	led.OpenAccount("a", common.EUR, 10)
	led.OpenAccount("a", common.USD, 5)
	led.OpenAccount("b", common.USD, 0)

	require.NoError(t, led.TransferMoney("a", "b", common.USD, 5))
	assert.InDelta(t, 10.0, led.Balance("a", common.EUR), 1e-9)
	assert.Zero(t, led.Balance("a", common.USD))
}

func TestTransferHolding_MovesGoods(t *testing.T) {
	led := ledger.New()
	led.Credit("farm", wheat, 50)

	require.NoError(t, led.TransferHolding("farm", "hh", wheat, 20))

	assert.InDelta(t, 30.0, led.Holding("farm", wheat), 1e-9)
	assert.InDelta(t, 20.0, led.Holding("hh", wheat), 1e-9)
}

func TestTransferHolding_InsufficientInventory(t *testing.T) {
	led := ledger.New()
	led.Credit("farm", wheat, 5)

	err := led.TransferHolding("farm", "hh", wheat, 6)
	assert.ErrorIs(t, err, market.ErrInsufficientInventory)
	assert.InDelta(t, 5.0, led.Holding("farm", wheat), 1e-9)
	assert.Zero(t, led.Holding("hh", wheat))
}

func TestTransferMoney_RoundsFloatDust(t *testing.T) {
	led := ledger.New()
	led.OpenAccount("a", common.EUR, 0.3)
	led.OpenAccount("b", common.EUR, 0)

	// 0.1+0.2 overshoots 0.3 in raw float64; the settlement boundary
	// rounds it away instead of failing.
	require.NoError(t, led.TransferMoney("a", "b", common.EUR, 0.1+0.2))
	assert.Zero(t, led.Balance("a", common.EUR))
}
