package token

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrInsufficientBalance is returned when a transfer or burn exceeds the
// holder's balance.
var ErrInsufficientBalance = errors.New("token: insufficient balance")

// Storage is the key-value surface the ledger persists through.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Ledger is a minimal fungible-token ledger keyed by symbol. Balances and
// supply are tracked per symbol so one store can host the pegged unit and
// every collateral asset side by side.
type Ledger struct {
	store  Storage
	symbol string
}

// NewLedger constructs a ledger for symbol over the shared store.
func NewLedger(store Storage, symbol string) *Ledger {
	return &Ledger{store: store, symbol: strings.TrimSpace(symbol)}
}

// AssetSymbol derives the ledger symbol for a collateral asset identity.
func AssetSymbol(asset [20]byte) string {
	return "asset/" + hex.EncodeToString(asset[:])
}

// Symbol returns the ledger's symbol.
func (l *Ledger) Symbol() string {
	if l == nil {
		return ""
	}
	return l.symbol
}

// BalanceOf returns the holder's balance, zero when unset.
func (l *Ledger) BalanceOf(account [20]byte) (*big.Int, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	return l.load(l.balanceKey(account))
}

// Supply returns the total amount ever minted minus the amount burned.
func (l *Ledger) Supply() (*big.Int, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	return l.load(l.supplyKey())
}

// Mint credits amount to account and grows the supply.
func (l *Ledger) Mint(account [20]byte, amount *big.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	amt, err := positiveAmount(amount)
	if err != nil {
		return err
	}
	balance, err := l.load(l.balanceKey(account))
	if err != nil {
		return err
	}
	supply, err := l.load(l.supplyKey())
	if err != nil {
		return err
	}
	if err := l.put(l.balanceKey(account), new(big.Int).Add(balance, amt)); err != nil {
		return err
	}
	return l.put(l.supplyKey(), new(big.Int).Add(supply, amt))
}

// BurnFrom debits amount from account and shrinks the supply.
func (l *Ledger) BurnFrom(account [20]byte, amount *big.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	amt, err := positiveAmount(amount)
	if err != nil {
		return err
	}
	balance, err := l.load(l.balanceKey(account))
	if err != nil {
		return err
	}
	if amt.Cmp(balance) > 0 {
		return ErrInsufficientBalance
	}
	supply, err := l.load(l.supplyKey())
	if err != nil {
		return err
	}
	if err := l.put(l.balanceKey(account), new(big.Int).Sub(balance, amt)); err != nil {
		return err
	}
	return l.put(l.supplyKey(), new(big.Int).Sub(supply, amt))
}

// Transfer moves amount between holders. The sender is explicit; callers are
// responsible for having authenticated it.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	amt, err := positiveAmount(amount)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	fromBalance, err := l.load(l.balanceKey(from))
	if err != nil {
		return err
	}
	if amt.Cmp(fromBalance) > 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := l.load(l.balanceKey(to))
	if err != nil {
		return err
	}
	if err := l.put(l.balanceKey(from), new(big.Int).Sub(fromBalance, amt)); err != nil {
		return err
	}
	return l.put(l.balanceKey(to), new(big.Int).Add(toBalance, amt))
}

func (l *Ledger) ready() error {
	if l == nil || l.store == nil {
		return fmt.Errorf("token: ledger not initialised")
	}
	if l.symbol == "" {
		return fmt.Errorf("token: symbol must not be empty")
	}
	return nil
}

func (l *Ledger) balanceKey(account [20]byte) []byte {
	return []byte("token/" + l.symbol + "/balance/" + hex.EncodeToString(account[:]))
}

func (l *Ledger) supplyKey() []byte {
	return []byte("token/" + l.symbol + "/supply")
}

func (l *Ledger) load(key []byte) (*big.Int, error) {
	var stored string
	ok, err := l.store.KVGet(key, &stored)
	if err != nil {
		return nil, err
	}
	if !ok || stored == "" {
		return big.NewInt(0), nil
	}
	value, valid := new(big.Int).SetString(stored, 10)
	if !valid {
		return nil, fmt.Errorf("token: corrupted amount for %s", string(key))
	}
	return value, nil
}

func (l *Ledger) put(key []byte, value *big.Int) error {
	return l.store.KVPut(key, value.String())
}

func positiveAmount(amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("token: amount must be positive")
	}
	return new(big.Int).Set(amount), nil
}
