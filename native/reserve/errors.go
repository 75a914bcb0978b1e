package reserve

import "errors"

var (
	// ErrAccessDenied indicates the caller is not the administrative owner.
	ErrAccessDenied = errors.New("reserve: access denied")
	// ErrReserveNotFound indicates the asset has no registered reserve.
	ErrReserveNotFound = errors.New("reserve: reserve not found")
	// ErrReserveDisabled indicates the reserve exists but accepts no new mints.
	ErrReserveDisabled = errors.New("reserve: reserve disabled")
	// ErrNotWhitelisted indicates the reserve is not eligible for burns.
	ErrNotWhitelisted = errors.New("reserve: reserve not whitelisted for burns")
	// ErrInsufficientFreeReserve indicates a withdrawal exceeds the accumulated surplus.
	ErrInsufficientFreeReserve = errors.New("reserve: insufficient free reserve")
	// ErrInvalidRateSource indicates a blank or unresolvable rate source name at registration.
	ErrInvalidRateSource = errors.New("reserve: invalid rate source")
	// ErrRateSourceUnavailable indicates a persisted rate source name no longer resolves.
	ErrRateSourceUnavailable = errors.New("reserve: rate source unavailable")
	// ErrReentrantCall indicates a mutating operation re-entered the engine
	// before the in-flight transition committed.
	ErrReentrantCall = errors.New("reserve: reentrant call")
)
