package reserve

import (
	"fmt"
	"strings"
)

// Registry owns the set of registered reserves and keeps the burn whitelist
// consistent with the primary records.
type Registry struct {
	store *Store
}

// NewRegistry constructs a registry over the shared store.
func NewRegistry(store *Store) *Registry {
	return &Registry{store: store}
}

// Register creates or fully replaces the reserve for params.Asset. Every call
// re-specifies all parameters; there is no merge. The whitelist is synced
// against the pre-update snapshot before the record is overwritten. Returns
// the stored record and its position in the ordered registry list.
func (r *Registry) Register(params Reserve) (*Reserve, int, error) {
	if r == nil || r.store == nil {
		return nil, 0, fmt.Errorf("reserve: registry not initialised")
	}
	params.RateSource = strings.TrimSpace(params.RateSource)
	if params.RateSource == "" {
		return nil, 0, ErrInvalidRateSource
	}
	prev, _, err := r.store.Reserve(params.Asset)
	if err != nil {
		return nil, 0, err
	}
	if err := r.syncWhitelist(prev, params.Asset, params.Whitelisted); err != nil {
		return nil, 0, err
	}
	record := params.Copy()
	if err := r.store.PutReserve(record); err != nil {
		return nil, 0, err
	}
	index, listed, err := r.assetIndex(params.Asset)
	if err != nil {
		return nil, 0, err
	}
	if !listed {
		if err := r.store.AppendAsset(params.Asset); err != nil {
			return nil, 0, err
		}
	}
	return record, index, nil
}

// Get loads the reserve for an asset. Records with a blank rate source are
// reported as absent.
func (r *Registry) Get(asset [20]byte) (*Reserve, bool, error) {
	if r == nil || r.store == nil {
		return nil, false, fmt.Errorf("reserve: registry not initialised")
	}
	rsv, ok, err := r.store.Reserve(asset)
	if err != nil {
		return nil, false, err
	}
	if !ok || !rsv.Registered() {
		return nil, false, nil
	}
	return rsv, true, nil
}

// Exists reports whether the asset appears in the append-only ordered list.
// This is a weaker notion than Get: the list never shrinks, so membership
// survives later parameter changes. Lookups scan linearly; reserve counts are
// expected to stay small.
func (r *Registry) Exists(asset [20]byte) (bool, error) {
	if r == nil || r.store == nil {
		return false, fmt.Errorf("reserve: registry not initialised")
	}
	assets, err := r.store.Assets()
	if err != nil {
		return false, err
	}
	for _, candidate := range assets {
		if candidate == asset {
			return true, nil
		}
	}
	return false, nil
}

// Guard is the shared precondition for mint, burn, and estimate paths. It
// fails with ErrReserveNotFound when no live record exists and with
// ErrReserveDisabled when the reserve accepts no new activity. Whitelisting
// is deliberately not checked here; only burns require it.
func (r *Registry) Guard(asset [20]byte) (*Reserve, error) {
	rsv, ok, err := r.Get(asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrReserveNotFound
	}
	if rsv.Disabled {
		return nil, ErrReserveDisabled
	}
	return rsv, nil
}

// Assets returns the ordered list of assets ever registered.
func (r *Registry) Assets() ([][20]byte, error) {
	if r == nil || r.store == nil {
		return nil, fmt.Errorf("reserve: registry not initialised")
	}
	return r.store.Assets()
}

// Whitelist returns the burn-eligible assets. Order is not significant.
func (r *Registry) Whitelist() ([][20]byte, error) {
	if r == nil || r.store == nil {
		return nil, fmt.Errorf("reserve: registry not initialised")
	}
	return r.store.Whitelist()
}

// syncWhitelist reconciles whitelist membership with the incoming flag using
// the pre-update snapshot. Removal swap-removes every matching entry: the
// loop does not early-exit, so duplicates (which should not occur) are
// cleared as well.
func (r *Registry) syncWhitelist(prev *Reserve, asset [20]byte, whitelisted bool) error {
	if prev == nil || !prev.Registered() {
		if !whitelisted {
			return nil
		}
		list, err := r.store.Whitelist()
		if err != nil {
			return err
		}
		return r.store.PutWhitelist(append(list, asset))
	}
	if prev.Whitelisted == whitelisted {
		return nil
	}
	list, err := r.store.Whitelist()
	if err != nil {
		return err
	}
	if whitelisted {
		return r.store.PutWhitelist(append(list, asset))
	}
	for i := 0; i < len(list); {
		if list[i] == asset {
			list[i] = list[len(list)-1]
			list = list[:len(list)-1]
			continue
		}
		i++
	}
	return r.store.PutWhitelist(list)
}

func (r *Registry) assetIndex(asset [20]byte) (int, bool, error) {
	assets, err := r.store.Assets()
	if err != nil {
		return 0, false, err
	}
	for i, candidate := range assets {
		if candidate == asset {
			return i, true, nil
		}
	}
	return len(assets), false, nil
}
