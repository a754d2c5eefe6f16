package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Receipt records the cumulative contribution of one owner to one pool and
// whether their share has been claimed. There is exactly one receipt per
// (pool, owner) pair; repeat contributions accumulate on the same row.
type Receipt struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	Address         string          `json:"address" gorm:"uniqueIndex;not null;size:42"`
	PoolID          uint64          `json:"pool_id" gorm:"not null;index"`
	PoolAddress     string          `json:"pool_address" gorm:"not null;size:42;index:idx_receipts_pool_owner,unique"`
	OwnerAddress    string          `json:"owner_address" gorm:"not null;size:42;index:idx_receipts_pool_owner,unique"`
	AmountDeposited decimal.Decimal `json:"amount_deposited" gorm:"type:decimal(36,18);not null"`
	Claimed         bool            `json:"claimed" gorm:"not null;default:false"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Relationships
	Pool *Pool `json:"pool,omitempty" gorm:"foreignKey:PoolAddress;references:Address"`
}

// TableName returns the table name for Receipt model
func (Receipt) TableName() string {
	return "receipts"
}

// BeforeCreate hook to validate receipt data
func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if !r.AmountDeposited.IsPositive() {
		return gorm.ErrInvalidData
	}
	return nil
}
