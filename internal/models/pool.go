package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PoolState is the stored lifecycle state of a pool.
type PoolState string

const (
	// PoolStateFunding accepts contributions up to the threshold.
	PoolStateFunding PoolState = "funding"
	// PoolStateDeployed means the pooled value has been swapped; claims are open.
	PoolStateDeployed PoolState = "deployed"
)

// Pool represents one funding round: contributors deposit value up to the
// threshold, the admin deploys the pooled value into the target asset, and
// contributors then claim their pro-rata share.
type Pool struct {
	// Address is the primary key; ID is only unique per admin when the
	// identifier counter is scoped per admin.
	Address         string          `json:"address" gorm:"primaryKey;size:42"`
	ID              uint64          `json:"id" gorm:"not null;index:idx_pools_admin_id,unique"`
	AdminAddress    string          `json:"admin_address" gorm:"not null;size:42;index:idx_pools_admin_id,unique"`
	Name            string          `json:"name" gorm:"not null;size:128"`
	Threshold       decimal.Decimal `json:"threshold" gorm:"type:decimal(36,18);not null"`
	AmountDeposited decimal.Decimal `json:"amount_deposited" gorm:"type:decimal(36,18);not null"`
	State           PoolState       `json:"state" gorm:"not null;size:16;default:funding"`
	ConvertedAmount decimal.Decimal `json:"converted_amount" gorm:"type:decimal(36,18)"`
	LeftoverValue   decimal.Decimal `json:"leftover_value" gorm:"type:decimal(36,18)"`
	AssetAddress    string          `json:"asset_address" gorm:"size:42"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Relationships
	Receipts []Receipt `json:"receipts,omitempty" gorm:"foreignKey:PoolAddress;references:Address"`
}

// TableName returns the table name for Pool model
func (Pool) TableName() string {
	return "pools"
}

// BeforeCreate hook to validate pool data
func (p *Pool) BeforeCreate(tx *gorm.DB) error {
	if !p.Threshold.IsPositive() {
		return gorm.ErrInvalidData
	}
	return nil
}

// RemainingCapacity returns how much value the pool can still accept.
func (p *Pool) RemainingCapacity() decimal.Decimal {
	return p.Threshold.Sub(p.AmountDeposited)
}

// IsFunding reports whether the pool still accepts contributions.
func (p *Pool) IsFunding() bool {
	return p.State == PoolStateFunding
}

// IsDeployed reports whether the pooled value has been converted.
func (p *Pool) IsDeployed() bool {
	return p.State == PoolStateDeployed
}
