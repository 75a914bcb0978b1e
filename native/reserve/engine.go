package reserve

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pegvault/core/events"
	"pegvault/core/types"
	"pegvault/observability"
)

// RateSource converts a stable-unit amount into a collateral amount. It is a
// pure function of its input; implementations must not call back into the
// engine.
type RateSource interface {
	Quote(stableAmount *big.Int) (*big.Int, error)
}

// StableToken is the pegged-unit token the engine issues against collateral.
// The sender of a transfer is explicit; caller identity is an argument here,
// not ambient state.
type StableToken interface {
	Mint(account [20]byte, amount *big.Int) error
	BurnFrom(account [20]byte, amount *big.Int) error
	Transfer(from, to [20]byte, amount *big.Int) error
}

// CollateralAsset is the fungible-token surface of a reserve's collateral.
type CollateralAsset interface {
	Transfer(from, to [20]byte, amount *big.Int) error
	BalanceOf(account [20]byte) (*big.Int, error)
}

// CollateralResolver maps a reserve's asset identity to its token collaborator.
type CollateralResolver interface {
	Collateral(asset [20]byte) (CollateralAsset, error)
}

// CollateralResolverFunc adapts a function to the CollateralResolver interface.
type CollateralResolverFunc func(asset [20]byte) (CollateralAsset, error)

// Collateral implements CollateralResolver.
func (f CollateralResolverFunc) Collateral(asset [20]byte) (CollateralAsset, error) {
	return f(asset)
}

// Engine orchestrates mint and burn transitions against the reserve registry,
// vesting ledger, and free-reserve ledger. It is the only component that
// calls out to the rate-source and token collaborators.
//
// Every mutating operation runs as one transition: collaborator calls are
// sequenced before any ledger write, so a failed call leaves the ledgers
// untouched. A transient guard rejects reentrant or overlapping mutations
// outright instead of letting them observe a half-applied transition.
type Engine struct {
	store      *Store
	registry   *Registry
	vesting    *VestingLedger
	free       *FreeReserveLedger
	token      StableToken
	collateral CollateralResolver
	oracles    map[string]RateSource
	custody    [20]byte
	emitter    events.Emitter
	metrics    *observability.EngineMetrics
	height     func() uint64
	busy       atomic.Bool
	receiptID  func() string
}

// NewEngine constructs an engine whose ledgers share the provided store.
// Collaborators are attached via the setters; events default to a no-op
// emitter.
func NewEngine(store *Store) *Engine {
	return &Engine{
		store:     store,
		registry:  NewRegistry(store),
		vesting:   NewVestingLedger(store),
		free:      NewFreeReserveLedger(store),
		oracles:   make(map[string]RateSource),
		emitter:   events.NoopEmitter{},
		metrics:   observability.Engine(),
		height:    defaultHeight,
		receiptID: uuid.NewString,
	}
}

func defaultHeight() uint64 {
	now := time.Now().Unix()
	if now < 0 {
		return 0
	}
	return uint64(now)
}

// SetStableToken configures the pegged-unit token collaborator.
func (e *Engine) SetStableToken(token StableToken) { e.token = token }

// SetCollateralResolver configures the collateral lookup used per reserve.
func (e *Engine) SetCollateralResolver(resolver CollateralResolver) { e.collateral = resolver }

// SetCustody configures the address holding pulled collateral.
func (e *Engine) SetCustody(custody [20]byte) { e.custody = custody }

// Custody returns the configured custody address.
func (e *Engine) Custody() [20]byte { return e.custody }

// SetEmitter configures the event emitter. Passing nil resets the emitter to
// a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetHeightSource overrides the ledger height source. Passing nil restores
// the wall-clock default. Primarily intended for deterministic testing.
func (e *Engine) SetHeightSource(height func() uint64) {
	if height == nil {
		e.height = defaultHeight
		return
	}
	e.height = height
}

// SetReceiptIDSource overrides withdrawal receipt identifier generation.
func (e *Engine) SetReceiptIDSource(next func() string) {
	if next == nil {
		e.receiptID = uuid.NewString
		return
	}
	e.receiptID = next
}

// RegisterRateSource attaches a quoting collaborator under a name reserves
// can reference.
func (e *Engine) RegisterRateSource(name string, src RateSource) error {
	if e == nil {
		return fmt.Errorf("reserve: engine not initialised")
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || src == nil {
		return ErrInvalidRateSource
	}
	e.oracles[trimmed] = src
	return nil
}

// EnsureParams writes the parameter block when none has been persisted yet.
// Restarting a node with existing state leaves the stored parameters intact.
func (e *Engine) EnsureParams(params Params) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()
	_, ok, err := e.store.Params()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return e.store.PutParams(&params)
}

// Params returns the persisted parameter block.
func (e *Engine) Params() (*Params, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, fmt.Errorf("reserve: engine not initialised")
	}
	return e.store.Params()
}

// Owner returns the administrative owner address.
func (e *Engine) Owner() ([20]byte, error) {
	params, err := e.requireParams()
	if err != nil {
		return [20]byte{}, err
	}
	return params.Owner, nil
}

// RegisterReserve creates or fully replaces a reserve. Admin only. The rate
// source name must resolve to a registered quoting collaborator.
func (e *Engine) RegisterReserve(caller [20]byte, params Reserve) (rsv *Reserve, err error) {
	defer func() { e.metrics.ObserveOperation("register", err) }()
	if err = e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	if _, err = e.requireOwner(caller); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(params.RateSource)
	if name == "" {
		return nil, ErrInvalidRateSource
	}
	if _, ok := e.oracles[name]; !ok {
		return nil, ErrInvalidRateSource
	}
	rsv, index, err := e.registry.Register(params)
	if err != nil {
		return nil, err
	}
	e.emit(NewRegisteredEvent(rsv, index))
	return rsv, nil
}

// Reserves returns every live reserve in registration order.
func (e *Engine) Reserves() ([]*Reserve, error) {
	assets, err := e.registry.Assets()
	if err != nil {
		return nil, err
	}
	reserves := make([]*Reserve, 0, len(assets))
	for _, asset := range assets {
		rsv, ok, err := e.registry.Get(asset)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		reserves = append(reserves, rsv)
	}
	return reserves, nil
}

// ReserveOf returns the live reserve for an asset, if registered.
func (e *Engine) ReserveOf(asset [20]byte) (*Reserve, bool, error) {
	return e.registry.Get(asset)
}

// Whitelist returns the burn-eligible assets.
func (e *Engine) Whitelist() ([][20]byte, error) {
	return e.registry.Whitelist()
}

// VestingOf returns an account's pending vesting entry.
func (e *Engine) VestingOf(account [20]byte) (*Vesting, bool, error) {
	return e.vesting.Pending(account)
}

// FreeReserveOf returns the accumulated surplus for an asset.
func (e *Engine) FreeReserveOf(asset [20]byte) (*big.Int, error) {
	return e.free.Balance(asset)
}

// Mint issues stable units against a reserve. The caller funds the required
// collateral; the issued amount lands on account, folded together with any
// matured vesting. Part of the issuance vests and part of the stable amount
// is credited to the reserve's free-reserve surplus.
func (e *Engine) Mint(caller, asset, account [20]byte, amount *big.Int) (total *big.Int, err error) {
	defer func() { e.metrics.ObserveOperation("mint", err) }()
	if err = e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	rsv, err := e.registry.Guard(asset)
	if err != nil {
		return nil, err
	}
	amt, err := ensurePositiveAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("reserve: mint amount: %w", err)
	}
	src, err := e.rateSource(rsv)
	if err != nil {
		return nil, err
	}
	col, err := e.collateralFor(asset)
	if err != nil {
		return nil, err
	}
	if err = e.requireToken(); err != nil {
		return nil, err
	}
	required, err := src.Quote(amt)
	if err != nil {
		return nil, err
	}
	required = cloneBigInt(required)
	prev, _, err := e.vesting.Pending(account)
	if err != nil {
		return nil, err
	}
	height := e.height()
	acc := computeAccrual(rsv, prev, amt, height)
	total = new(big.Int).Add(amt, acc.Released)

	// Collaborator calls precede every ledger write; an abort here leaves the
	// ledgers untouched.
	if required.Sign() > 0 {
		if err = col.Transfer(caller, e.custody, required); err != nil {
			return nil, err
		}
	}
	if err = e.token.Mint(account, total); err != nil {
		return nil, err
	}

	if err = e.vesting.Put(account, acc.Next); err != nil {
		return nil, err
	}
	if err = e.free.Credit(asset, bpsShare(amt, rsv.BurnTaxBps)); err != nil {
		return nil, err
	}
	if acc.Released.Sign() > 0 {
		e.emit(NewVestingRedeemedEvent(account, acc.Released))
	}
	e.emit(NewMintedEvent(asset, account, total))
	e.metrics.AddAmount("mint", assetLabel(asset), total)
	e.observeFreeReserve(asset)
	return total, nil
}

// Burn redeems stable units against a whitelisted reserve. A global tax share
// of the gross amount moves to the beneficiary; the remainder is burned and
// exchanged into collateral paid out of custody.
func (e *Engine) Burn(caller, asset [20]byte, amount *big.Int) (toExchange *big.Int, err error) {
	defer func() { e.metrics.ObserveOperation("burn", err) }()
	if err = e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	rsv, err := e.registry.Guard(asset)
	if err != nil {
		return nil, err
	}
	if !rsv.Whitelisted {
		return nil, ErrNotWhitelisted
	}
	amt, err := ensurePositiveAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("reserve: burn amount: %w", err)
	}
	params, err := e.requireParams()
	if err != nil {
		return nil, err
	}
	tax := bpsShare(amt, params.GlobalTaxBps)
	net := new(big.Int).Sub(amt, tax)
	if net.Sign() < 0 {
		return nil, fmt.Errorf("reserve: tax exceeds burn amount")
	}
	src, err := e.rateSource(rsv)
	if err != nil {
		return nil, err
	}
	col, err := e.collateralFor(asset)
	if err != nil {
		return nil, err
	}
	if err = e.requireToken(); err != nil {
		return nil, err
	}
	toExchange, err = src.Quote(net)
	if err != nil {
		return nil, err
	}
	toExchange = cloneBigInt(toExchange)
	if net.Sign() > 0 {
		if err = e.token.BurnFrom(caller, net); err != nil {
			return nil, err
		}
	}
	if tax.Sign() > 0 {
		if err = e.token.Transfer(caller, params.Beneficiary, tax); err != nil {
			return nil, err
		}
	}
	if toExchange.Sign() > 0 {
		if err = col.Transfer(e.custody, caller, toExchange); err != nil {
			return nil, err
		}
	}
	// The emitted amount is the gross amount requested, not the net after tax.
	e.emit(NewBurnedEvent(asset, caller, amt))
	e.metrics.AddAmount("burn", assetLabel(asset), amt)
	return toExchange, nil
}

// MintEstimate projects a mint without mutating any ledger or emitting any
// event: the collateral that would be pulled, the total that would be issued
// (including matured vesting, which is left untouched), and the vesting entry
// that would be scheduled.
func (e *Engine) MintEstimate(asset, account [20]byte, amount *big.Int) (*MintEstimate, error) {
	rsv, err := e.registry.Guard(asset)
	if err != nil {
		return nil, err
	}
	amt, err := ensurePositiveAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("reserve: mint amount: %w", err)
	}
	src, err := e.rateSource(rsv)
	if err != nil {
		return nil, err
	}
	required, err := src.Quote(amt)
	if err != nil {
		return nil, err
	}
	prev, _, err := e.vesting.Pending(account)
	if err != nil {
		return nil, err
	}
	acc := computeAccrual(rsv, prev, amt, e.height())
	return &MintEstimate{
		RequiredCollateral: cloneBigInt(required),
		TotalMinted:        new(big.Int).Add(amt, acc.Released),
		ReleasedVesting:    acc.Released,
		VestingAmount:      acc.Next.Amount,
		UnlockHeight:       acc.Next.UnlockHeight,
	}, nil
}

// RedeemVesting releases an account's matured vesting amount. Callable by
// anyone on behalf of any account. Redeeming before the unlock height is a
// valid no-op returning zero, not a failure.
func (e *Engine) RedeemVesting(account [20]byte) (redeemed *big.Int, err error) {
	defer func() { e.metrics.ObserveOperation("redeem", err) }()
	if err = e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	if err = e.requireToken(); err != nil {
		return nil, err
	}
	claimable, err := e.vesting.Claimable(account, e.height())
	if err != nil {
		return nil, err
	}
	if claimable.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if err = e.token.Mint(account, claimable); err != nil {
		return nil, err
	}
	if err = e.vesting.ClearAmount(account); err != nil {
		return nil, err
	}
	e.emit(NewVestingRedeemedEvent(account, claimable))
	return claimable, nil
}

// WithdrawFreeReserve sends part of a reserve's accumulated surplus, priced
// into collateral, to the destination. Admin only.
func (e *Engine) WithdrawFreeReserve(caller, asset, to [20]byte, amount *big.Int) (receipt *WithdrawalReceipt, err error) {
	defer func() { e.metrics.ObserveOperation("withdraw", err) }()
	if err = e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	if _, err = e.requireOwner(caller); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("reserve: withdraw amount must not be negative")
	}
	return e.withdrawFreeReserve(asset, to, amount)
}

// WithdrawAllFreeReserve drains the reserve's entire accumulated surplus.
// Admin only.
func (e *Engine) WithdrawAllFreeReserve(caller, asset, to [20]byte) (receipt *WithdrawalReceipt, err error) {
	defer func() { e.metrics.ObserveOperation("withdraw", err) }()
	if err = e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	if _, err = e.requireOwner(caller); err != nil {
		return nil, err
	}
	balance, err := e.free.Balance(asset)
	if err != nil {
		return nil, err
	}
	return e.withdrawFreeReserve(asset, to, balance)
}

// DrainReserve transfers the custody's entire balance of the asset and zeroes
// the free-reserve entry afterwards, regardless of whether the two match.
// Admin only; an emergency extraction, not reconciled against credits.
func (e *Engine) DrainReserve(caller, asset, to [20]byte) (receipt *WithdrawalReceipt, err error) {
	defer func() { e.metrics.ObserveOperation("drain", err) }()
	if err = e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	if _, err = e.requireOwner(caller); err != nil {
		return nil, err
	}
	return e.drainReserve(asset, to)
}

// DrainAll drains every asset ever registered, in registration order. Admin
// only.
func (e *Engine) DrainAll(caller, to [20]byte) (receipts []*WithdrawalReceipt, err error) {
	defer func() { e.metrics.ObserveOperation("drain", err) }()
	if err = e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	if _, err = e.requireOwner(caller); err != nil {
		return nil, err
	}
	assets, err := e.registry.Assets()
	if err != nil {
		return nil, err
	}
	receipts = make([]*WithdrawalReceipt, 0, len(assets))
	for _, asset := range assets {
		receipt, err := e.drainReserve(asset, to)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}

// Salvage transfers an arbitrary asset out of custody without touching any
// ledger. Admin only; intended for tokens sent to custody by mistake.
func (e *Engine) Salvage(caller, asset, to [20]byte, amount *big.Int) (receipt *WithdrawalReceipt, err error) {
	defer func() { e.metrics.ObserveOperation("salvage", err) }()
	if err = e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	if _, err = e.requireOwner(caller); err != nil {
		return nil, err
	}
	amt, err := ensurePositiveAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("reserve: salvage amount: %w", err)
	}
	col, err := e.collateralFor(asset)
	if err != nil {
		return nil, err
	}
	if err = col.Transfer(e.custody, to, amt); err != nil {
		return nil, err
	}
	receipt = e.newReceipt(asset, to, big.NewInt(0), amt, WithdrawalKindSalvage)
	if err = e.store.PutWithdrawal(receipt); err != nil {
		return nil, err
	}
	e.emit(NewSalvagedEvent(receipt))
	return receipt, nil
}

// SetBeneficiary updates the address receiving the global burn tax. Admin only.
func (e *Engine) SetBeneficiary(caller, beneficiary [20]byte) (err error) {
	defer func() { e.metrics.ObserveOperation("params", err) }()
	if err = e.begin(); err != nil {
		return err
	}
	defer e.end()
	params, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	params.Beneficiary = beneficiary
	if err = e.store.PutParams(params); err != nil {
		return err
	}
	e.emit(NewParamsUpdatedEvent(params))
	return nil
}

// SetGlobalTaxBps updates the global burn tax rate. Admin only.
func (e *Engine) SetGlobalTaxBps(caller [20]byte, bps uint32) (err error) {
	defer func() { e.metrics.ObserveOperation("params", err) }()
	if err = e.begin(); err != nil {
		return err
	}
	defer e.end()
	params, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	params.GlobalTaxBps = bps
	if err = e.store.PutParams(params); err != nil {
		return err
	}
	e.emit(NewParamsUpdatedEvent(params))
	return nil
}

// TransferOwnership hands the administrative identity to a new address.
func (e *Engine) TransferOwnership(caller, newOwner [20]byte) (err error) {
	defer func() { e.metrics.ObserveOperation("params", err) }()
	if err = e.begin(); err != nil {
		return err
	}
	defer e.end()
	params, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	previous := params.Owner
	params.Owner = newOwner
	if err = e.store.PutParams(params); err != nil {
		return err
	}
	e.emit(NewOwnershipTransferredEvent(previous, newOwner))
	return nil
}

// Withdrawals pages through recorded withdrawal receipts.
func (e *Engine) Withdrawals(startTs, endTs int64, cursor string, limit int) ([]*WithdrawalReceipt, string, error) {
	if e == nil || e.store == nil {
		return nil, "", fmt.Errorf("reserve: engine not initialised")
	}
	return e.store.ListWithdrawals(startTs, endTs, cursor, limit)
}

// ExportWithdrawalsCSV renders the receipts in the window as a base64 CSV.
func (e *Engine) ExportWithdrawalsCSV(startTs, endTs int64) (string, int, *big.Int, error) {
	if e == nil || e.store == nil {
		return "", 0, nil, fmt.Errorf("reserve: engine not initialised")
	}
	return e.store.ExportWithdrawalsCSV(startTs, endTs)
}

func (e *Engine) withdrawFreeReserve(asset, to [20]byte, amount *big.Int) (*WithdrawalReceipt, error) {
	rsv, ok, err := e.registry.Get(asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrReserveNotFound
	}
	balance, err := e.free.Balance(asset)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(balance) > 0 {
		return nil, ErrInsufficientFreeReserve
	}
	src, err := e.rateSource(rsv)
	if err != nil {
		return nil, err
	}
	col, err := e.collateralFor(asset)
	if err != nil {
		return nil, err
	}
	collateralAmount, err := src.Quote(amount)
	if err != nil {
		return nil, err
	}
	collateralAmount = cloneBigInt(collateralAmount)
	if collateralAmount.Sign() > 0 {
		if err := col.Transfer(e.custody, to, collateralAmount); err != nil {
			return nil, err
		}
	}
	if err := e.free.Debit(asset, amount); err != nil {
		return nil, err
	}
	receipt := e.newReceipt(asset, to, amount, collateralAmount, WithdrawalKindBounded)
	if err := e.store.PutWithdrawal(receipt); err != nil {
		return nil, err
	}
	e.emit(NewWithdrawnEvent(receipt))
	e.observeFreeReserve(asset)
	return receipt, nil
}

func (e *Engine) drainReserve(asset, to [20]byte) (*WithdrawalReceipt, error) {
	// Drains honour the append-only list: an asset stays drainable for as
	// long as it has ever been registered.
	listed, err := e.registry.Exists(asset)
	if err != nil {
		return nil, err
	}
	if !listed {
		return nil, ErrReserveNotFound
	}
	col, err := e.collateralFor(asset)
	if err != nil {
		return nil, err
	}
	held, err := col.BalanceOf(e.custody)
	if err != nil {
		return nil, err
	}
	held = cloneBigInt(held)
	ledgerBefore, err := e.free.Balance(asset)
	if err != nil {
		return nil, err
	}
	if held.Sign() > 0 {
		if err := col.Transfer(e.custody, to, held); err != nil {
			return nil, err
		}
	}
	if err := e.free.Zero(asset); err != nil {
		return nil, err
	}
	receipt := e.newReceipt(asset, to, ledgerBefore, held, WithdrawalKindDrain)
	if err := e.store.PutWithdrawal(receipt); err != nil {
		return nil, err
	}
	e.emit(NewDrainedEvent(receipt))
	e.observeFreeReserve(asset)
	return receipt, nil
}

func (e *Engine) begin() error {
	if e == nil || e.store == nil {
		return fmt.Errorf("reserve: engine not initialised")
	}
	if !e.busy.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

func (e *Engine) end() { e.busy.Store(false) }

func (e *Engine) requireParams() (*Params, error) {
	params, ok, err := e.store.Params()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("reserve: params not initialised")
	}
	return params, nil
}

func (e *Engine) requireOwner(caller [20]byte) (*Params, error) {
	params, err := e.requireParams()
	if err != nil {
		return nil, err
	}
	if params.Owner != caller {
		return nil, ErrAccessDenied
	}
	return params, nil
}

func (e *Engine) requireToken() error {
	if e.token == nil {
		return fmt.Errorf("reserve: stable token not configured")
	}
	return nil
}

func (e *Engine) rateSource(rsv *Reserve) (RateSource, error) {
	src, ok := e.oracles[rsv.RateSource]
	if !ok || src == nil {
		return nil, ErrRateSourceUnavailable
	}
	return src, nil
}

func (e *Engine) collateralFor(asset [20]byte) (CollateralAsset, error) {
	if e.collateral == nil {
		return nil, fmt.Errorf("reserve: collateral resolver not configured")
	}
	col, err := e.collateral.Collateral(asset)
	if err != nil {
		return nil, err
	}
	if col == nil {
		return nil, fmt.Errorf("reserve: collateral %s unavailable", hex.EncodeToString(asset[:]))
	}
	return col, nil
}

func (e *Engine) newReceipt(asset, to [20]byte, stable, collateral *big.Int, kind string) *WithdrawalReceipt {
	return &WithdrawalReceipt{
		ReceiptID:        e.receiptID(),
		Asset:            asset,
		To:               to,
		StableAmount:     cloneBigInt(stable),
		CollateralAmount: cloneBigInt(collateral),
		Kind:             kind,
	}
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(reserveEvent{evt: evt})
}

func (e *Engine) observeFreeReserve(asset [20]byte) {
	balance, err := e.free.Balance(asset)
	if err != nil {
		return
	}
	e.metrics.SetFreeReserve(assetLabel(asset), balance)
}

func assetLabel(asset [20]byte) string {
	return hex.EncodeToString(asset[:])
}
