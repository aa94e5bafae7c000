package market

import (
	"errors"

	"agora/internal/common"
)

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrUnauthorized          = errors.New("unauthorized account")
	ErrInsufficientInventory = errors.New("insufficient inventory")
)

// Settlement is the external primitive that actually moves value. The
// matching engine calls it once per matched order and reverses the same
// calls on rollback; it never inspects balances itself.
//
// Implementations report ErrInsufficientFunds / ErrUnauthorized /
// ErrInsufficientInventory (possibly wrapped) so the engine can surface
// them unchanged.
type Settlement interface {
	// TransferMoney moves amount of currency between payment accounts.
	TransferMoney(from, to string, currency common.Currency, amount float64) error

	// TransferHolding moves a quantity of an instrument between owners.
	TransferHolding(from, to string, instrument common.Instrument, amount float64) error
}
