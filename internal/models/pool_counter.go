package models

import (
	"time"
)

// PoolCounter issues strictly increasing pool identifiers. Depending on
// configuration there is either a single global counter or one per admin;
// ScopeKey holds the scope tag or the admin address accordingly.
type PoolCounter struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ScopeKey  string    `json:"scope_key" gorm:"uniqueIndex;not null;size:42"`
	NextID    uint64    `json:"next_id" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for PoolCounter model
func (PoolCounter) TableName() string {
	return "pool_counters"
}
