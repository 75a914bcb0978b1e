package reserve

import (
	"fmt"
	"math/big"
)

// FreeReserveLedger tracks the per-reserve tax surplus accumulated by mints
// and drained by administrative withdrawals.
type FreeReserveLedger struct {
	store *Store
}

// NewFreeReserveLedger constructs a free-reserve ledger over the shared store.
func NewFreeReserveLedger(store *Store) *FreeReserveLedger {
	return &FreeReserveLedger{store: store}
}

// Balance returns the accumulated surplus for an asset, zero when unset.
func (l *FreeReserveLedger) Balance(asset [20]byte) (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, fmt.Errorf("reserve: free reserve ledger not initialised")
	}
	return l.store.FreeReserve(asset)
}

// Credit adds amount to the asset's surplus. Zero credits are a no-op.
func (l *FreeReserveLedger) Credit(asset [20]byte, amount *big.Int) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("reserve: free reserve ledger not initialised")
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("reserve: free reserve credit must be positive")
	}
	balance, err := l.Balance(asset)
	if err != nil {
		return err
	}
	return l.store.PutFreeReserve(asset, new(big.Int).Add(balance, amount))
}

// Debit subtracts amount from the asset's surplus, failing with
// ErrInsufficientFreeReserve when the surplus cannot cover it.
func (l *FreeReserveLedger) Debit(asset [20]byte, amount *big.Int) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("reserve: free reserve ledger not initialised")
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("reserve: free reserve debit must not be negative")
	}
	balance, err := l.Balance(asset)
	if err != nil {
		return err
	}
	if amount.Cmp(balance) > 0 {
		return ErrInsufficientFreeReserve
	}
	return l.store.PutFreeReserve(asset, new(big.Int).Sub(balance, amount))
}

// Zero resets the asset's surplus unconditionally, regardless of whether the
// zeroed value matches what was actually withdrawn. Full drains rely on this
// as a blunt instrument; it is not reconciled against Credit.
func (l *FreeReserveLedger) Zero(asset [20]byte) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("reserve: free reserve ledger not initialised")
	}
	return l.store.PutFreeReserve(asset, big.NewInt(0))
}
