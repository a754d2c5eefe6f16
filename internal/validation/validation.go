// Package validation checks client-supplied inputs before they reach the
// escrow core. Everything rejected here is rejected without touching state.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	// MaxNameLength bounds pool names.
	MaxNameLength = 128
	// MaxAmountPrecision is the finest supported value granularity.
	MaxAmountPrecision = 18
)

// maxAmount guards against absurd magnitudes that would overflow the
// decimal(36,18) storage columns.
var maxAmount = decimal.RequireFromString("1e18")

// ParseAmount parses a positive decimal amount from its string form.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("amount is required")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed amount %q", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, errors.New("amount must be positive")
	}
	if d.Exponent() < -MaxAmountPrecision {
		return decimal.Zero, fmt.Errorf("amount exceeds %d decimal places", MaxAmountPrecision)
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, errors.New("amount out of range")
	}
	return d, nil
}

// ValidateName checks a pool name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name longer than %d characters", MaxNameLength)
	}
	return nil
}

// ValidateAddress checks a hex account address.
func ValidateAddress(address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address %q", address)
	}
	return nil
}
