package reserve

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
)

// Storage abstracts the subset of state manager functionality required by the
// reserve ledgers.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

type storedReserve struct {
	Asset           [20]byte
	MintInterestBps uint32
	BurnTaxBps      uint32
	VestingPeriod   uint64
	RateSource      string
	Disabled        bool
	Whitelisted     bool
}

type storedVesting struct {
	UnlockHeight uint64
	Amount       string
}

type storedParams struct {
	Owner        [20]byte
	Beneficiary  [20]byte
	GlobalTaxBps uint32
}

type storedAssetList struct {
	Assets [][20]byte
}

type storedWithdrawal struct {
	ReceiptID        string
	Asset            [20]byte
	To               [20]byte
	StableAmount     string
	CollateralAmount string
	Kind             string
	CreatedAt        uint64
}

type withdrawalIndexEntry struct {
	ReceiptID string
	CreatedAt uint64
}

// Store persists the reserve registry, vesting ledger, free-reserve ledger,
// engine parameters, and withdrawal receipts.
type Store struct {
	store Storage
	clock func() time.Time
}

// NewStore constructs a Store backed by the provided storage.
func NewStore(store Storage) *Store {
	return &Store{store: store, clock: time.Now}
}

// SetClock overrides the time source for deterministic testing.
func (s *Store) SetClock(clock func() time.Time) {
	if s == nil || clock == nil {
		return
	}
	s.clock = clock
}

// Reserve loads the registered reserve for an asset, if any.
func (s *Store) Reserve(asset [20]byte) (*Reserve, bool, error) {
	if s == nil {
		return nil, false, fmt.Errorf("reserve: store not initialised")
	}
	var stored storedReserve
	ok, err := s.store.KVGet(reserveKey(asset), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &Reserve{
		Asset:           stored.Asset,
		MintInterestBps: stored.MintInterestBps,
		BurnTaxBps:      stored.BurnTaxBps,
		VestingPeriod:   stored.VestingPeriod,
		RateSource:      strings.TrimSpace(stored.RateSource),
		Disabled:        stored.Disabled,
		Whitelisted:     stored.Whitelisted,
	}, true, nil
}

// PutReserve overwrites the stored record for the reserve's asset.
func (s *Store) PutReserve(rsv *Reserve) error {
	if s == nil {
		return fmt.Errorf("reserve: store not initialised")
	}
	if rsv == nil {
		return fmt.Errorf("reserve: record must not be nil")
	}
	stored := storedReserve{
		Asset:           rsv.Asset,
		MintInterestBps: rsv.MintInterestBps,
		BurnTaxBps:      rsv.BurnTaxBps,
		VestingPeriod:   rsv.VestingPeriod,
		RateSource:      strings.TrimSpace(rsv.RateSource),
		Disabled:        rsv.Disabled,
		Whitelisted:     rsv.Whitelisted,
	}
	return s.store.KVPut(reserveKey(rsv.Asset), stored)
}

// Assets returns the append-only ordered list of assets ever registered.
func (s *Store) Assets() ([][20]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("reserve: store not initialised")
	}
	var raw [][]byte
	if err := s.store.KVGetList(reserveAssetIndexKey, &raw); err != nil {
		return nil, err
	}
	assets := make([][20]byte, 0, len(raw))
	for _, encoded := range raw {
		if len(encoded) == 0 {
			continue
		}
		var asset [20]byte
		if err := rlp.DecodeBytes(encoded, &asset); err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// AppendAsset appends the asset to the ordered registry list. The list never
// shrinks; callers must only append identities not already present.
func (s *Store) AppendAsset(asset [20]byte) error {
	if s == nil {
		return fmt.Errorf("reserve: store not initialised")
	}
	encoded, err := rlp.EncodeToBytes(asset)
	if err != nil {
		return err
	}
	return s.store.KVAppend(reserveAssetIndexKey, encoded)
}

// Whitelist returns the unordered list of burn-eligible assets.
func (s *Store) Whitelist() ([][20]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("reserve: store not initialised")
	}
	var stored storedAssetList
	ok, err := s.store.KVGet(reserveWhitelistKey, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return [][20]byte{}, nil
	}
	return append([][20]byte{}, stored.Assets...), nil
}

// PutWhitelist replaces the stored whitelist.
func (s *Store) PutWhitelist(assets [][20]byte) error {
	if s == nil {
		return fmt.Errorf("reserve: store not initialised")
	}
	return s.store.KVPut(reserveWhitelistKey, storedAssetList{Assets: assets})
}

// Vesting loads the pending vesting entry for an account.
func (s *Store) Vesting(account [20]byte) (*Vesting, bool, error) {
	if s == nil {
		return nil, false, fmt.Errorf("reserve: store not initialised")
	}
	var stored storedVesting
	ok, err := s.store.KVGet(vestingKey(account), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	amount, err := parseAmount(stored.Amount)
	if err != nil {
		return nil, false, fmt.Errorf("reserve: corrupted vesting amount for %s: %w", hex.EncodeToString(account[:]), err)
	}
	return &Vesting{UnlockHeight: stored.UnlockHeight, Amount: amount}, true, nil
}

// PutVesting overwrites the vesting entry for an account.
func (s *Store) PutVesting(account [20]byte, entry *Vesting) error {
	if s == nil {
		return fmt.Errorf("reserve: store not initialised")
	}
	if entry == nil {
		return fmt.Errorf("reserve: vesting entry must not be nil")
	}
	stored := storedVesting{
		UnlockHeight: entry.UnlockHeight,
		Amount:       cloneBigInt(entry.Amount).String(),
	}
	return s.store.KVPut(vestingKey(account), stored)
}

// FreeReserve returns the accumulated surplus for an asset, zero when unset.
func (s *Store) FreeReserve(asset [20]byte) (*big.Int, error) {
	if s == nil {
		return nil, fmt.Errorf("reserve: store not initialised")
	}
	var stored string
	ok, err := s.store.KVGet(freeReserveKey(asset), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	amount, err := parseAmount(stored)
	if err != nil {
		return nil, fmt.Errorf("reserve: corrupted free reserve for %s: %w", hex.EncodeToString(asset[:]), err)
	}
	return amount, nil
}

// PutFreeReserve overwrites the surplus entry for an asset.
func (s *Store) PutFreeReserve(asset [20]byte, amount *big.Int) error {
	if s == nil {
		return fmt.Errorf("reserve: store not initialised")
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("reserve: free reserve amount must not be negative")
	}
	return s.store.KVPut(freeReserveKey(asset), amount.String())
}

// Params loads the engine parameter block.
func (s *Store) Params() (*Params, bool, error) {
	if s == nil {
		return nil, false, fmt.Errorf("reserve: store not initialised")
	}
	var stored storedParams
	ok, err := s.store.KVGet(paramsKey, &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &Params{
		Owner:        stored.Owner,
		Beneficiary:  stored.Beneficiary,
		GlobalTaxBps: stored.GlobalTaxBps,
	}, true, nil
}

// PutParams overwrites the engine parameter block.
func (s *Store) PutParams(params *Params) error {
	if s == nil {
		return fmt.Errorf("reserve: store not initialised")
	}
	if params == nil {
		return fmt.Errorf("reserve: params must not be nil")
	}
	stored := storedParams{
		Owner:        params.Owner,
		Beneficiary:  params.Beneficiary,
		GlobalTaxBps: params.GlobalTaxBps,
	}
	return s.store.KVPut(paramsKey, stored)
}

// PutWithdrawal records a withdrawal receipt, enforcing unique identifiers.
func (s *Store) PutWithdrawal(receipt *WithdrawalReceipt) error {
	if s == nil {
		return fmt.Errorf("reserve: store not initialised")
	}
	if receipt == nil {
		return fmt.Errorf("reserve: receipt must not be nil")
	}
	receiptID := strings.TrimSpace(receipt.ReceiptID)
	if receiptID == "" {
		return fmt.Errorf("reserve: receipt id required")
	}
	key := withdrawalKey(receiptID)
	var existing storedWithdrawal
	ok, err := s.store.KVGet(key, &existing)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("reserve: receipt %s already recorded", receiptID)
	}
	createdAt := receipt.CreatedAt
	if createdAt <= 0 {
		now := s.clock().UTC().Unix()
		if now < 0 {
			createdAt = 0
		} else {
			createdAt = now
		}
	}
	stored := storedWithdrawal{
		ReceiptID:        receiptID,
		Asset:            receipt.Asset,
		To:               receipt.To,
		StableAmount:     cloneBigInt(receipt.StableAmount).String(),
		CollateralAmount: cloneBigInt(receipt.CollateralAmount).String(),
		Kind:             strings.TrimSpace(receipt.Kind),
		CreatedAt:        sanitizeUnix(createdAt),
	}
	if err := s.store.KVPut(key, stored); err != nil {
		return err
	}
	entry := withdrawalIndexEntry{ReceiptID: receiptID, CreatedAt: stored.CreatedAt}
	encoded, err := rlp.EncodeToBytes(entry)
	if err != nil {
		return err
	}
	return s.store.KVAppend(withdrawalIndexKey, encoded)
}

// Withdrawal retrieves a receipt by identifier.
func (s *Store) Withdrawal(receiptID string) (*WithdrawalReceipt, bool, error) {
	if s == nil {
		return nil, false, fmt.Errorf("reserve: store not initialised")
	}
	var stored storedWithdrawal
	ok, err := s.store.KVGet(withdrawalKey(receiptID), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	receipt, err := toWithdrawal(&stored)
	if err != nil {
		return nil, false, err
	}
	return receipt, true, nil
}

// ListWithdrawals returns a paginated list of receipts within the supplied
// timestamp range. Both bounds are inclusive. The cursor is the receipt ID of
// the last item from the previous page.
func (s *Store) ListWithdrawals(startTs, endTs int64, cursor string, limit int) ([]*WithdrawalReceipt, string, error) {
	if s == nil {
		return nil, "", fmt.Errorf("reserve: store not initialised")
	}
	entries, err := s.loadWithdrawalIndex()
	if err != nil {
		return nil, "", err
	}
	filtered := make([]withdrawalIndexEntry, 0, len(entries))
	for _, entry := range entries {
		createdAt, err := uint64ToInt64(entry.CreatedAt)
		if err != nil {
			return nil, "", fmt.Errorf("reserve: index entry overflow: %w", err)
		}
		if startTs != 0 && createdAt < startTs {
			continue
		}
		if endTs != 0 && createdAt > endTs {
			continue
		}
		filtered = append(filtered, entry)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].CreatedAt == filtered[j].CreatedAt {
			return filtered[i].ReceiptID < filtered[j].ReceiptID
		}
		return filtered[i].CreatedAt < filtered[j].CreatedAt
	})
	startIdx := 0
	cursorID := strings.TrimSpace(cursor)
	if cursorID != "" {
		for i, entry := range filtered {
			if entry.ReceiptID == cursorID {
				startIdx = i + 1
				break
			}
		}
	}
	nextCursor := ""
	pageSize := limit
	if pageSize <= 0 {
		pageSize = len(filtered) - startIdx
	}
	receipts := make([]*WithdrawalReceipt, 0, pageSize)
	for i := startIdx; i < len(filtered) && len(receipts) < pageSize; i++ {
		entry := filtered[i]
		receipt, ok, err := s.Withdrawal(entry.ReceiptID)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			continue
		}
		receipts = append(receipts, receipt)
		nextCursor = entry.ReceiptID
	}
	if startIdx+len(receipts) >= len(filtered) {
		nextCursor = ""
	}
	return receipts, nextCursor, nil
}

// ExportWithdrawalsCSV generates a deterministic CSV export covering the
// provided timestamp window. The CSV is returned as a base64 encoded string
// alongside the entry count and the total collateral amount moved.
func (s *Store) ExportWithdrawalsCSV(startTs, endTs int64) (string, int, *big.Int, error) {
	if s == nil {
		return "", 0, nil, fmt.Errorf("reserve: store not initialised")
	}
	receipts, _, err := s.ListWithdrawals(startTs, endTs, "", 0)
	if err != nil {
		return "", 0, nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	header := []string{"receiptId", "asset", "to", "stableAmount", "collateralAmount", "kind", "createdAt"}
	if err := writer.Write(header); err != nil {
		return "", 0, nil, err
	}
	total := big.NewInt(0)
	for _, receipt := range receipts {
		if receipt.CollateralAmount != nil {
			total = new(big.Int).Add(total, receipt.CollateralAmount)
		}
		row := []string{
			receipt.ReceiptID,
			hex.EncodeToString(receipt.Asset[:]),
			hex.EncodeToString(receipt.To[:]),
			receipt.StableAmount.String(),
			receipt.CollateralAmount.String(),
			receipt.Kind,
			strconv.FormatInt(receipt.CreatedAt, 10),
		}
		if err := writer.Write(row); err != nil {
			return "", 0, nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", 0, nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	return encoded, len(receipts), total, nil
}

func (s *Store) loadWithdrawalIndex() ([]withdrawalIndexEntry, error) {
	var raw [][]byte
	if err := s.store.KVGetList(withdrawalIndexKey, &raw); err != nil {
		return nil, err
	}
	entries := make([]withdrawalIndexEntry, 0, len(raw))
	for _, encoded := range raw {
		if len(encoded) == 0 {
			continue
		}
		var entry withdrawalIndexEntry
		if err := rlp.DecodeBytes(encoded, &entry); err != nil {
			return nil, err
		}
		if strings.TrimSpace(entry.ReceiptID) == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func toWithdrawal(stored *storedWithdrawal) (*WithdrawalReceipt, error) {
	if stored == nil {
		return nil, fmt.Errorf("reserve: stored receipt nil")
	}
	stableAmount, err := parseAmount(stored.StableAmount)
	if err != nil {
		return nil, err
	}
	collateralAmount, err := parseAmount(stored.CollateralAmount)
	if err != nil {
		return nil, err
	}
	createdAt, err := uint64ToInt64(stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reserve: created at overflow: %w", err)
	}
	return &WithdrawalReceipt{
		ReceiptID:        strings.TrimSpace(stored.ReceiptID),
		Asset:            stored.Asset,
		To:               stored.To,
		StableAmount:     stableAmount,
		CollateralAmount: collateralAmount,
		Kind:             strings.TrimSpace(stored.Kind),
		CreatedAt:        createdAt,
	}, nil
}

func uint64ToInt64(value uint64) (int64, error) {
	if value > math.MaxInt64 {
		return 0, fmt.Errorf("value %d exceeds int64 range", value)
	}
	return int64(value), nil
}

func sanitizeUnix(value int64) uint64 {
	if value < 0 {
		return 0
	}
	return uint64(value)
}
