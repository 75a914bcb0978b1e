package reserve

import (
	"fmt"
	"math/big"
)

// VestingLedger tracks the single pending time-locked issuance entry per
// account. Entries are created lazily on first mint and never deleted, only
// reset.
type VestingLedger struct {
	store *Store
}

// NewVestingLedger constructs a vesting ledger over the shared store.
func NewVestingLedger(store *Store) *VestingLedger {
	return &VestingLedger{store: store}
}

// Pending returns the account's vesting entry, if one has ever been written.
func (l *VestingLedger) Pending(account [20]byte) (*Vesting, bool, error) {
	if l == nil || l.store == nil {
		return nil, false, fmt.Errorf("reserve: vesting ledger not initialised")
	}
	return l.store.Vesting(account)
}

// Claimable returns the amount redeemable at the given height: the pending
// amount once the unlock height has passed, zero otherwise.
func (l *VestingLedger) Claimable(account [20]byte, height uint64) (*big.Int, error) {
	entry, ok, err := l.Pending(account)
	if err != nil {
		return nil, err
	}
	if !ok || entry.Amount == nil || entry.Amount.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	if height < entry.UnlockHeight {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(entry.Amount), nil
}

// Put overwrites the account's vesting entry.
func (l *VestingLedger) Put(account [20]byte, entry *Vesting) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("reserve: vesting ledger not initialised")
	}
	return l.store.PutVesting(account, entry)
}

// ClearAmount zeroes the pending amount while keeping the unlock height, so
// repeated redemptions after the first return nothing.
func (l *VestingLedger) ClearAmount(account [20]byte) error {
	entry, ok, err := l.Pending(account)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	entry.Amount = big.NewInt(0)
	return l.Put(account, entry)
}

// accrual describes the outcome of folding a mint into the vesting ledger:
// the amount released from a matured prior entry (zero when the prior entry
// was still locked and therefore forfeited) and the replacement schedule.
type accrual struct {
	Released *big.Int
	Next     *Vesting
}

// computeAccrual derives the vesting transition for a mint of incoming stable
// units at the given height. A prior entry that has already unlocked is
// released into the mint's output; one that has not is forfeited outright.
// Either way the schedule is replaced.
func computeAccrual(rsv *Reserve, prev *Vesting, incoming *big.Int, height uint64) accrual {
	released := big.NewInt(0)
	if prev != nil && prev.Amount != nil && prev.Amount.Sign() > 0 && height >= prev.UnlockHeight {
		released = new(big.Int).Set(prev.Amount)
	}
	next := &Vesting{
		UnlockHeight: height + rsv.VestingPeriod,
		Amount:       bpsShare(incoming, rsv.MintInterestBps),
	}
	return accrual{Released: released, Next: next}
}
