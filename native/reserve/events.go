package reserve

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"pegvault/core/types"
)

const (
	EventTypeReserveRegistered    = "reserve.registered"
	EventTypeMinted               = "reserve.minted"
	EventTypeBurned               = "reserve.burned"
	EventTypeVestingRedeemed      = "reserve.vesting.redeemed"
	EventTypeFreeReserveWithdrawn = "reserve.freereserve.withdrawn"
	EventTypeDrained              = "reserve.drained"
	EventTypeSalvaged             = "reserve.salvaged"
	EventTypeParamsUpdated        = "reserve.params.updated"
	EventTypeOwnershipTransferred = "reserve.ownership.transferred"
)

type reserveEvent struct {
	evt *types.Event
}

func (e reserveEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e reserveEvent) Event() *types.Event { return e.evt }

// NewRegisteredEvent returns the canonical payload for a reserve
// registration or full parameter replacement.
func NewRegisteredEvent(rsv *Reserve, index int) *types.Event {
	attrs := make(map[string]string)
	if rsv != nil {
		attrs["asset"] = hex.EncodeToString(rsv.Asset[:])
		attrs["index"] = strconv.Itoa(index)
		attrs["mintInterestBps"] = strconv.FormatUint(uint64(rsv.MintInterestBps), 10)
		attrs["burnTaxBps"] = strconv.FormatUint(uint64(rsv.BurnTaxBps), 10)
		attrs["vestingPeriod"] = strconv.FormatUint(rsv.VestingPeriod, 10)
		attrs["rateSource"] = rsv.RateSource
		attrs["disabled"] = strconv.FormatBool(rsv.Disabled)
		attrs["whitelisted"] = strconv.FormatBool(rsv.Whitelisted)
	}
	return &types.Event{Type: EventTypeReserveRegistered, Attributes: attrs}
}

// NewMintedEvent returns the canonical payload for a completed mint. The
// amount is the total issued, including any released vesting.
func NewMintedEvent(asset, account [20]byte, totalMinted *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeMinted,
		Attributes: map[string]string{
			"asset":   hex.EncodeToString(asset[:]),
			"account": hex.EncodeToString(account[:]),
			"amount":  formatAmount(totalMinted),
		},
	}
}

// NewBurnedEvent returns the canonical payload for a completed burn. The
// amount is the gross amount requested, not the net after tax.
func NewBurnedEvent(asset, caller [20]byte, grossAmount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeBurned,
		Attributes: map[string]string{
			"asset":  hex.EncodeToString(asset[:]),
			"caller": hex.EncodeToString(caller[:]),
			"amount": formatAmount(grossAmount),
		},
	}
}

// NewVestingRedeemedEvent returns the canonical payload for a vesting release,
// whether claimed explicitly or folded into a later mint.
func NewVestingRedeemedEvent(account [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeVestingRedeemed,
		Attributes: map[string]string{
			"account": hex.EncodeToString(account[:]),
			"amount":  formatAmount(amount),
		},
	}
}

// NewWithdrawnEvent returns the canonical payload for a bounded free-reserve
// withdrawal.
func NewWithdrawnEvent(receipt *WithdrawalReceipt) *types.Event {
	return newWithdrawalEvent(EventTypeFreeReserveWithdrawn, receipt)
}

// NewDrainedEvent returns the canonical payload for a full custody drain.
func NewDrainedEvent(receipt *WithdrawalReceipt) *types.Event {
	return newWithdrawalEvent(EventTypeDrained, receipt)
}

// NewSalvagedEvent returns the canonical payload for a raw asset salvage.
func NewSalvagedEvent(receipt *WithdrawalReceipt) *types.Event {
	return newWithdrawalEvent(EventTypeSalvaged, receipt)
}

// NewParamsUpdatedEvent returns the canonical payload emitted when the
// beneficiary or global tax rate changes.
func NewParamsUpdatedEvent(params *Params) *types.Event {
	attrs := make(map[string]string)
	if params != nil {
		attrs["beneficiary"] = hex.EncodeToString(params.Beneficiary[:])
		attrs["globalTaxBps"] = strconv.FormatUint(uint64(params.GlobalTaxBps), 10)
	}
	return &types.Event{Type: EventTypeParamsUpdated, Attributes: attrs}
}

// NewOwnershipTransferredEvent returns the canonical payload for an admin
// identity transfer.
func NewOwnershipTransferredEvent(previous, next [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeOwnershipTransferred,
		Attributes: map[string]string{
			"previousOwner": hex.EncodeToString(previous[:]),
			"newOwner":      hex.EncodeToString(next[:]),
		},
	}
}

func newWithdrawalEvent(eventType string, receipt *WithdrawalReceipt) *types.Event {
	attrs := make(map[string]string)
	if receipt != nil {
		attrs["receiptId"] = receipt.ReceiptID
		attrs["asset"] = hex.EncodeToString(receipt.Asset[:])
		attrs["to"] = hex.EncodeToString(receipt.To[:])
		attrs["stableAmount"] = formatAmount(receipt.StableAmount)
		attrs["collateralAmount"] = formatAmount(receipt.CollateralAmount)
		attrs["createdAt"] = strconv.FormatInt(receipt.CreatedAt, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
