package exchange

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// TestStaticBuyFills tests a fill within the value bound
func TestStaticBuyFills(t *testing.T) {
	venue := NewStatic(decimal.RequireFromString("0.000001"))

	result, err := venue.Buy(context.Background(), decimal.NewFromInt(1000000), decimal.NewFromInt(2))
	assert.NoError(t, err)
	assert.True(t, result.AssetOut.Equal(decimal.NewFromInt(1000000)))
	assert.True(t, result.ValueSpent.Equal(decimal.NewFromInt(1)))
	assert.True(t, result.ValueSpent.LessThanOrEqual(decimal.NewFromInt(2)))
}

// TestStaticBuyRejectsOverBudget tests atomic rejection when the cost
// exceeds the bound
func TestStaticBuyRejectsOverBudget(t *testing.T) {
	venue := NewStatic(decimal.NewFromInt(2))

	_, err := venue.Buy(context.Background(), decimal.NewFromInt(10), decimal.NewFromInt(19))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

// TestStaticBuyRejectsNonPositive tests quantity validation
func TestStaticBuyRejectsNonPositive(t *testing.T) {
	venue := NewStatic(decimal.NewFromInt(1))

	_, err := venue.Buy(context.Background(), decimal.Zero, decimal.NewFromInt(1))
	assert.Error(t, err)
}
