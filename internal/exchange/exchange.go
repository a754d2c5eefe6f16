// Package exchange defines the contract with the external venue that converts
// pooled value into the target asset.
package exchange

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInsufficientLiquidity is returned when the venue cannot fill the
// requested quantity within the caller's value bound.
var ErrInsufficientLiquidity = errors.New("exchange: insufficient liquidity within max value")

// SwapResult reports what the venue actually did. ValueSpent never exceeds
// the maxValueIn passed to Buy; a failed swap has no partial effect.
type SwapResult struct {
	AssetOut   decimal.Decimal
	ValueSpent decimal.Decimal
}

// Venue converts native value into the target asset. Implementations must be
// atomic: either the full requested quantity is bought within maxValueIn, or
// an error is returned and nothing moved.
type Venue interface {
	Buy(ctx context.Context, assetOut, maxValueIn decimal.Decimal) (SwapResult, error)
}

// Static is a fixed-price venue for local development and tests: every unit
// of the target asset costs Price units of native value.
type Static struct {
	Price decimal.Decimal
}

// NewStatic creates a fixed-price venue
func NewStatic(price decimal.Decimal) *Static {
	return &Static{Price: price}
}

// Buy fills the order at the fixed price or rejects it entirely
func (s *Static) Buy(ctx context.Context, assetOut, maxValueIn decimal.Decimal) (SwapResult, error) {
	if !assetOut.IsPositive() {
		return SwapResult{}, errors.New("exchange: asset quantity must be positive")
	}

	cost := assetOut.Mul(s.Price)
	if cost.GreaterThan(maxValueIn) {
		return SwapResult{}, ErrInsufficientLiquidity
	}
	return SwapResult{AssetOut: assetOut, ValueSpent: cost}, nil
}
