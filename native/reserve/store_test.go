package reserve

import (
	"encoding/base64"
	"encoding/csv"
	"math/big"
	"strings"
	"testing"
	"time"

	"pegvault/state"
	"pegvault/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(state.NewManager(storage.NewMemDB()))
	store.SetClock(func() time.Time { return time.Unix(1_700_000_000, 0) })
	return store
}

func TestReserveRoundTrip(t *testing.T) {
	store := newTestStore(t)
	asset := testAddr(0x41)

	_, ok, err := store.Reserve(asset)
	if err != nil || ok {
		t.Fatalf("missing reserve: ok=%v err=%v", ok, err)
	}

	rsv := &Reserve{
		Asset:           asset,
		MintInterestBps: 500,
		BurnTaxBps:      200,
		VestingPeriod:   100,
		RateSource:      "  unit  ",
		Whitelisted:     true,
	}
	if err := store.PutReserve(rsv); err != nil {
		t.Fatalf("put reserve: %v", err)
	}
	loaded, ok, err := store.Reserve(asset)
	if err != nil || !ok {
		t.Fatalf("load reserve: ok=%v err=%v", ok, err)
	}
	if loaded.RateSource != "unit" {
		t.Fatalf("rate source = %q, want trimmed %q", loaded.RateSource, "unit")
	}
	if loaded.MintInterestBps != 500 || loaded.VestingPeriod != 100 || !loaded.Whitelisted {
		t.Fatalf("reserve fields lost: %+v", loaded)
	}
}

func TestVestingRoundTripLargeAmount(t *testing.T) {
	store := newTestStore(t)
	account := testAddr(0x42)

	amount, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	if err := store.PutVesting(account, &Vesting{UnlockHeight: 7, Amount: amount}); err != nil {
		t.Fatalf("put vesting: %v", err)
	}
	entry, ok, err := store.Vesting(account)
	if err != nil || !ok {
		t.Fatalf("load vesting: ok=%v err=%v", ok, err)
	}
	if entry.Amount.Cmp(amount) != 0 || entry.UnlockHeight != 7 {
		t.Fatalf("vesting = {%d, %s}", entry.UnlockHeight, entry.Amount)
	}
}

func TestParamsRoundTrip(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.Params()
	if err != nil || ok {
		t.Fatalf("missing params: ok=%v err=%v", ok, err)
	}
	params := &Params{Owner: testAddr(1), Beneficiary: testAddr(2), GlobalTaxBps: 150}
	if err := store.PutParams(params); err != nil {
		t.Fatalf("put params: %v", err)
	}
	loaded, ok, err := store.Params()
	if err != nil || !ok {
		t.Fatalf("load params: ok=%v err=%v", ok, err)
	}
	if loaded.Owner != params.Owner || loaded.GlobalTaxBps != 150 {
		t.Fatalf("params = %+v", loaded)
	}
}

func putTestWithdrawal(t *testing.T, store *Store, id string, collateral int64) {
	t.Helper()
	err := store.PutWithdrawal(&WithdrawalReceipt{
		ReceiptID:        id,
		Asset:            testAddr(0x41),
		To:               testAddr(0x42),
		StableAmount:     big.NewInt(collateral),
		CollateralAmount: big.NewInt(collateral),
		Kind:             WithdrawalKindBounded,
	})
	if err != nil {
		t.Fatalf("put withdrawal %s: %v", id, err)
	}
}

func TestPutWithdrawalRejectsDuplicateID(t *testing.T) {
	store := newTestStore(t)
	putTestWithdrawal(t, store, "w-1", 10)
	err := store.PutWithdrawal(&WithdrawalReceipt{
		ReceiptID:        "w-1",
		StableAmount:     big.NewInt(1),
		CollateralAmount: big.NewInt(1),
	})
	if err == nil {
		t.Fatal("duplicate receipt id accepted")
	}
}

func TestListWithdrawalsPagination(t *testing.T) {
	store := newTestStore(t)
	now := int64(1_700_000_000)
	for i, id := range []string{"w-1", "w-2", "w-3"} {
		ts := now + int64(i)
		store.SetClock(func() time.Time { return time.Unix(ts, 0) })
		putTestWithdrawal(t, store, id, int64(10*(i+1)))
	}

	page, cursor, err := store.ListWithdrawals(0, 0, "", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ReceiptID != "w-1" || page[1].ReceiptID != "w-2" {
		t.Fatalf("first page = %v", page)
	}
	if cursor != "w-2" {
		t.Fatalf("cursor = %q, want w-2", cursor)
	}

	page, cursor, err = store.ListWithdrawals(0, 0, cursor, 2)
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(page) != 1 || page[0].ReceiptID != "w-3" {
		t.Fatalf("second page = %v", page)
	}
	if cursor != "" {
		t.Fatalf("final cursor = %q, want empty", cursor)
	}

	// Inclusive timestamp bounds.
	page, _, err = store.ListWithdrawals(now+1, now+1, "", 0)
	if err != nil {
		t.Fatalf("list window: %v", err)
	}
	if len(page) != 1 || page[0].ReceiptID != "w-2" {
		t.Fatalf("window page = %v", page)
	}
}

func TestExportWithdrawalsCSV(t *testing.T) {
	store := newTestStore(t)
	putTestWithdrawal(t, store, "w-1", 10)
	putTestWithdrawal(t, store, "w-2", 15)

	encoded, count, total, err := store.ExportWithdrawalsCSV(0, 0)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if total.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("total collateral = %s, want 25", total)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode csv: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "receiptId" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][0] != "w-1" || rows[2][0] != "w-2" {
		t.Fatalf("row order = %v / %v", rows[1], rows[2])
	}
}
