package reserve

import (
	"errors"
	"testing"

	"pegvault/state"
	"pegvault/storage"
)

func newTestRegistry(t *testing.T) (*Registry, *Store) {
	t.Helper()
	store := NewStore(state.NewManager(storage.NewMemDB()))
	return NewRegistry(store), store
}

func whitelistContains(t *testing.T, r *Registry, asset [20]byte) bool {
	t.Helper()
	list, err := r.Whitelist()
	if err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	count := 0
	for _, candidate := range list {
		if candidate == asset {
			count++
		}
	}
	if count > 1 {
		t.Fatalf("asset %x appears %d times in whitelist", asset, count)
	}
	return count == 1
}

func TestWhitelistMirrorsRegistration(t *testing.T) {
	r, _ := newTestRegistry(t)
	asset := testAddr(0x11)

	params := Reserve{Asset: asset, RateSource: "unit", Whitelisted: false}

	// Create without whitelist.
	if _, _, err := r.Register(params); err != nil {
		t.Fatalf("register: %v", err)
	}
	if whitelistContains(t, r, asset) {
		t.Fatal("non-whitelisted reserve appears in whitelist")
	}

	// Toggle on.
	params.Whitelisted = true
	if _, _, err := r.Register(params); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !whitelistContains(t, r, asset) {
		t.Fatal("whitelisted reserve missing from whitelist")
	}

	// No-change update leaves a single entry.
	if _, _, err := r.Register(params); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !whitelistContains(t, r, asset) {
		t.Fatal("whitelist entry lost on no-change update")
	}

	// Toggle off.
	params.Whitelisted = false
	if _, _, err := r.Register(params); err != nil {
		t.Fatalf("register: %v", err)
	}
	if whitelistContains(t, r, asset) {
		t.Fatal("whitelist entry survived toggle-off")
	}

	// Create whitelisted from scratch.
	other := Reserve{Asset: testAddr(0x12), RateSource: "unit", Whitelisted: true}
	if _, _, err := r.Register(other); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !whitelistContains(t, r, other.Asset) {
		t.Fatal("freshly whitelisted reserve missing from whitelist")
	}
}

func TestWhitelistRemovalClearsDuplicates(t *testing.T) {
	r, store := newTestRegistry(t)
	asset := testAddr(0x11)
	other := testAddr(0x12)

	if _, _, err := r.Register(Reserve{Asset: asset, RateSource: "unit", Whitelisted: true}); err != nil {
		t.Fatalf("register: %v", err)
	}
	// Seed a duplicate directly; removal must clear every match.
	list, err := store.Whitelist()
	if err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := store.PutWhitelist(append(list, asset, other)); err != nil {
		t.Fatalf("seed whitelist: %v", err)
	}

	if _, _, err := r.Register(Reserve{Asset: asset, RateSource: "unit", Whitelisted: false}); err != nil {
		t.Fatalf("register: %v", err)
	}
	list, err = r.Whitelist()
	if err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if len(list) != 1 || list[0] != other {
		t.Fatalf("whitelist after removal = %v, want [%x]", list, other)
	}
}

func TestRegisterAssignsStableIndex(t *testing.T) {
	r, _ := newTestRegistry(t)
	a := testAddr(0x11)
	b := testAddr(0x12)

	_, idx, err := r.Register(Reserve{Asset: a, RateSource: "unit"})
	if err != nil || idx != 0 {
		t.Fatalf("first register: idx=%d err=%v", idx, err)
	}
	_, idx, err = r.Register(Reserve{Asset: b, RateSource: "unit"})
	if err != nil || idx != 1 {
		t.Fatalf("second register: idx=%d err=%v", idx, err)
	}
	// Re-registration keeps the original position.
	_, idx, err = r.Register(Reserve{Asset: a, RateSource: "other"})
	if err != nil || idx != 0 {
		t.Fatalf("re-register: idx=%d err=%v", idx, err)
	}
	assets, err := r.Assets()
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("assets = %d entries, want 2", len(assets))
	}
}

func TestRegisterRejectsBlankRateSource(t *testing.T) {
	r, _ := newTestRegistry(t)
	if _, _, err := r.Register(Reserve{Asset: testAddr(0x11), RateSource: "  "}); !errors.Is(err, ErrInvalidRateSource) {
		t.Fatalf("register: %v, want ErrInvalidRateSource", err)
	}
}

func TestGuard(t *testing.T) {
	r, _ := newTestRegistry(t)
	asset := testAddr(0x11)

	if _, err := r.Guard(asset); !errors.Is(err, ErrReserveNotFound) {
		t.Fatalf("guard unknown: %v, want ErrReserveNotFound", err)
	}

	if _, _, err := r.Register(Reserve{Asset: asset, RateSource: "unit", Disabled: true}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.Guard(asset); !errors.Is(err, ErrReserveDisabled) {
		t.Fatalf("guard disabled: %v, want ErrReserveDisabled", err)
	}

	if _, _, err := r.Register(Reserve{Asset: asset, RateSource: "unit"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	rsv, err := r.Guard(asset)
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	if rsv.Asset != asset {
		t.Fatalf("guard returned wrong reserve: %x", rsv.Asset)
	}
}

func TestExistsSurvivesUpdates(t *testing.T) {
	r, _ := newTestRegistry(t)
	asset := testAddr(0x11)

	ok, err := r.Exists(asset)
	if err != nil || ok {
		t.Fatalf("exists before register: ok=%v err=%v", ok, err)
	}
	if _, _, err := r.Register(Reserve{Asset: asset, RateSource: "unit"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := r.Register(Reserve{Asset: asset, RateSource: "other", Disabled: true}); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	ok, err = r.Exists(asset)
	if err != nil || !ok {
		t.Fatalf("exists after updates: ok=%v err=%v", ok, err)
	}
}
