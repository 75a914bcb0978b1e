package oracle

import (
	"fmt"
	"math/big"
	"strings"
)

// Fixed quotes collateral at a constant stable-to-collateral ratio. The ratio
// is held as a rational so configuration can express prices like "3/2"
// without committing to a decimal precision; quotes floor toward zero.
type Fixed struct {
	name string
	rate *big.Rat
}

// NewFixed constructs a fixed-rate source. The rate must be positive.
func NewFixed(name string, rate *big.Rat) (*Fixed, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("oracle: name must not be empty")
	}
	if rate == nil || rate.Sign() <= 0 {
		return nil, fmt.Errorf("oracle: rate must be positive")
	}
	return &Fixed{name: trimmed, rate: new(big.Rat).Set(rate)}, nil
}

// ParseFixed constructs a fixed-rate source from a "numerator/denominator"
// string, with a bare integer meaning a whole-unit rate.
func ParseFixed(name, rate string) (*Fixed, error) {
	trimmed := strings.TrimSpace(rate)
	if trimmed == "" {
		return nil, fmt.Errorf("oracle: rate must not be empty")
	}
	parsed, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return nil, fmt.Errorf("oracle: invalid rate %q", rate)
	}
	return NewFixed(name, parsed)
}

// Name returns the identifier reserves reference this source by.
func (f *Fixed) Name() string {
	if f == nil {
		return ""
	}
	return f.name
}

// Quote converts a stable amount into collateral at the fixed rate, flooring
// toward zero. Nil or negative inputs are rejected.
func (f *Fixed) Quote(stableAmount *big.Int) (*big.Int, error) {
	if f == nil || f.rate == nil {
		return nil, fmt.Errorf("oracle: fixed source not initialised")
	}
	if stableAmount == nil || stableAmount.Sign() < 0 {
		return nil, fmt.Errorf("oracle: stable amount must not be negative")
	}
	product := new(big.Int).Mul(stableAmount, f.rate.Num())
	return product.Quo(product, f.rate.Denom()), nil
}
