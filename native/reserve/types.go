package reserve

import (
	"fmt"
	"math/big"
	"strings"
)

// BpsDenominator is the divisor applied to all basis-point rates.
const BpsDenominator = 10_000

// Reserve describes a registered collateral asset and the parameters applied
// to mints and burns settled against it. The asset address doubles as the
// reserve identity. A reserve whose RateSource name is blank has never been
// registered; every lookup treats that as absence.
type Reserve struct {
	Asset           [20]byte
	MintInterestBps uint32
	BurnTaxBps      uint32
	VestingPeriod   uint64
	RateSource      string
	Disabled        bool
	Whitelisted     bool
}

// Registered reports whether the record denotes a live reserve. The rate
// source name is the existence marker, independent of any other field.
func (r *Reserve) Registered() bool {
	return r != nil && strings.TrimSpace(r.RateSource) != ""
}

// Copy returns a deep copy so callers cannot mutate shared records.
func (r *Reserve) Copy() *Reserve {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// Vesting is the single pending time-locked issuance entry an account may
// hold. A new mint always replaces the schedule; the pending amount is either
// released (when already unlocked) or forfeited.
type Vesting struct {
	UnlockHeight uint64
	Amount       *big.Int
}

// Copy returns a deep copy of the entry.
func (v *Vesting) Copy() *Vesting {
	if v == nil {
		return nil
	}
	clone := *v
	if v.Amount != nil {
		clone.Amount = new(big.Int).Set(v.Amount)
	}
	return &clone
}

// Params holds the engine-global administrative parameters.
type Params struct {
	Owner        [20]byte
	Beneficiary  [20]byte
	GlobalTaxBps uint32
}

// Copy returns a copy of the parameter block.
func (p *Params) Copy() *Params {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// MintEstimate is the read-only projection of a mint: what collateral would
// be pulled, what would be issued immediately, and what would vest.
type MintEstimate struct {
	RequiredCollateral *big.Int
	TotalMinted        *big.Int
	ReleasedVesting    *big.Int
	VestingAmount      *big.Int
	UnlockHeight       uint64
}

// Withdrawal kinds recorded on receipts.
const (
	WithdrawalKindBounded = "bounded"
	WithdrawalKindDrain   = "drain"
	WithdrawalKindSalvage = "salvage"
)

// WithdrawalReceipt records an administrative extraction of collateral from
// custody, whether bounded by the free-reserve ledger or a full drain.
type WithdrawalReceipt struct {
	ReceiptID        string
	Asset            [20]byte
	To               [20]byte
	StableAmount     *big.Int
	CollateralAmount *big.Int
	Kind             string
	CreatedAt        int64
}

// Copy returns a deep copy of the receipt.
func (r *WithdrawalReceipt) Copy() *WithdrawalReceipt {
	if r == nil {
		return nil
	}
	clone := *r
	if r.StableAmount != nil {
		clone.StableAmount = new(big.Int).Set(r.StableAmount)
	}
	if r.CollateralAmount != nil {
		clone.CollateralAmount = new(big.Int).Set(r.CollateralAmount)
	}
	return &clone
}

// bpsShare computes amount * bps / 10000 with flooring division.
func bpsShare(amount *big.Int, bps uint32) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(bps)))
	return share.Quo(share, big.NewInt(BpsDenominator))
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensurePositiveAmount(amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return nil, fmt.Errorf("amount required")
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return new(big.Int).Set(amount), nil
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}
