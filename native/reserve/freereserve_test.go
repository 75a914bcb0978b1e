package reserve

import (
	"errors"
	"math/big"
	"testing"

	"pegvault/state"
	"pegvault/storage"
)

func newTestFreeReserve(t *testing.T) *FreeReserveLedger {
	t.Helper()
	return NewFreeReserveLedger(NewStore(state.NewManager(storage.NewMemDB())))
}

func TestFreeReserveCreditAndDebit(t *testing.T) {
	l := newTestFreeReserve(t)
	asset := testAddr(0x31)

	balance, err := l.Balance(asset)
	if err != nil || balance.Sign() != 0 {
		t.Fatalf("initial balance = %s err=%v, want 0", balance, err)
	}

	if err := l.Credit(asset, big.NewInt(20)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Credit(asset, big.NewInt(0)); err != nil {
		t.Fatalf("zero credit: %v", err)
	}
	if err := l.Credit(asset, nil); err != nil {
		t.Fatalf("nil credit: %v", err)
	}
	balance, err = l.Balance(asset)
	if err != nil || balance.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("balance = %s err=%v, want 20", balance, err)
	}

	if err := l.Debit(asset, big.NewInt(25)); !errors.Is(err, ErrInsufficientFreeReserve) {
		t.Fatalf("over-debit: %v, want ErrInsufficientFreeReserve", err)
	}
	if err := l.Debit(asset, big.NewInt(20)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	balance, err = l.Balance(asset)
	if err != nil || balance.Sign() != 0 {
		t.Fatalf("balance after debit = %s err=%v, want 0", balance, err)
	}
}

func TestFreeReserveRejectsNegativeCredit(t *testing.T) {
	l := newTestFreeReserve(t)
	if err := l.Credit(testAddr(0x31), big.NewInt(-1)); err == nil {
		t.Fatal("negative credit accepted")
	}
}

func TestFreeReserveZero(t *testing.T) {
	l := newTestFreeReserve(t)
	asset := testAddr(0x31)
	if err := l.Credit(asset, big.NewInt(123)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Zero(asset); err != nil {
		t.Fatalf("zero: %v", err)
	}
	balance, err := l.Balance(asset)
	if err != nil || balance.Sign() != 0 {
		t.Fatalf("balance after zero = %s err=%v, want 0", balance, err)
	}
}
