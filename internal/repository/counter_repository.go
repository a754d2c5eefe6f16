package repository

import (
	"errors"

	"github.com/surgefund/backend/internal/models"
	"gorm.io/gorm"
)

// CounterRepository defines the interface for pool identifier allocation
type CounterRepository interface {
	Create(counter *models.PoolCounter) error
	GetByScopeKey(scopeKey string) (*models.PoolCounter, error)
	Increment(scopeKey string) error
}

// counterRepository implements CounterRepository
type counterRepository struct {
	db *gorm.DB
}

// NewCounterRepository creates a new counter repository
func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db}
}

// Create creates a new pool counter
func (r *counterRepository) Create(counter *models.PoolCounter) error {
	if counter == nil {
		return errors.New("counter cannot be nil")
	}
	return r.db.Create(counter).Error
}

// GetByScopeKey retrieves the counter for a scope
func (r *counterRepository) GetByScopeKey(scopeKey string) (*models.PoolCounter, error) {
	if scopeKey == "" {
		return nil, errors.New("scope key cannot be empty")
	}

	var counter models.PoolCounter
	err := r.db.Where("scope_key = ?", scopeKey).First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &counter, nil
}

// Increment advances the counter by one in a single statement so concurrent
// allocations never observe the same value.
func (r *counterRepository) Increment(scopeKey string) error {
	if scopeKey == "" {
		return errors.New("scope key cannot be empty")
	}

	res := r.db.Model(&models.PoolCounter{}).
		Where("scope_key = ?", scopeKey).
		Update("next_id", gorm.Expr("next_id + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
