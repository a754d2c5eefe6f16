package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetNative is the asset code for unconverted pool value.
const AssetNative = "native"

// Balance tracks how much of one asset an account holds in custody. The
// treasury moves value between balances; pool vaults, contributors, admins
// and the exchange venue are all plain accounts here.
type Balance struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	Account   string          `json:"account" gorm:"not null;size:42;index:idx_balances_account_asset,unique"`
	Asset     string          `json:"asset" gorm:"not null;size:42;index:idx_balances_account_asset,unique"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(36,18);not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName returns the table name for Balance model
func (Balance) TableName() string {
	return "balances"
}
