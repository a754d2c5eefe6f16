package repository

import (
	"errors"

	"github.com/surgefund/backend/internal/models"
	"gorm.io/gorm"
)

// PoolRepository defines the interface for pool record operations
type PoolRepository interface {
	Create(pool *models.Pool) error
	GetByAddress(address string) (*models.Pool, error)
	GetByAdminAndID(adminAddress string, id uint64) (*models.Pool, error)
	Update(pool *models.Pool) error
	List(limit, offset int) ([]*models.Pool, error)
	ListByAdmin(adminAddress string, limit, offset int) ([]*models.Pool, error)
	ListByState(state models.PoolState, limit, offset int) ([]*models.Pool, error)
}

// poolRepository implements PoolRepository
type poolRepository struct {
	db *gorm.DB
}

// NewPoolRepository creates a new pool repository
func NewPoolRepository(db *gorm.DB) PoolRepository {
	return &poolRepository{db: db}
}

// Create creates a new pool record
func (r *poolRepository) Create(pool *models.Pool) error {
	if pool == nil {
		return errors.New("pool cannot be nil")
	}
	return r.db.Create(pool).Error
}

// GetByAddress retrieves a pool by its derived address
func (r *poolRepository) GetByAddress(address string) (*models.Pool, error) {
	if address == "" {
		return nil, errors.New("address cannot be empty")
	}

	var pool models.Pool
	err := r.db.Where("address = ?", address).First(&pool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pool, nil
}

// GetByAdminAndID retrieves a pool by its logical key. The numeric id alone
// is not unique when the identifier counter is scoped per admin.
func (r *poolRepository) GetByAdminAndID(adminAddress string, id uint64) (*models.Pool, error) {
	if adminAddress == "" {
		return nil, errors.New("admin address cannot be empty")
	}
	if id == 0 {
		return nil, errors.New("id cannot be zero")
	}

	var pool models.Pool
	err := r.db.Where("admin_address = ? AND id = ?", adminAddress, id).First(&pool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pool, nil
}

// Update persists changes to a pool record
func (r *poolRepository) Update(pool *models.Pool) error {
	if pool == nil {
		return errors.New("pool cannot be nil")
	}
	return r.db.Save(pool).Error
}

// List retrieves pools with pagination
func (r *poolRepository) List(limit, offset int) ([]*models.Pool, error) {
	var pools []*models.Pool
	err := r.db.Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&pools).Error
	return pools, err
}

// ListByAdmin retrieves pools created by the given admin
func (r *poolRepository) ListByAdmin(adminAddress string, limit, offset int) ([]*models.Pool, error) {
	if adminAddress == "" {
		return nil, errors.New("admin address cannot be empty")
	}

	var pools []*models.Pool
	err := r.db.Where("admin_address = ?", adminAddress).
		Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&pools).Error
	return pools, err
}

// ListByState retrieves pools in the given lifecycle state
func (r *poolRepository) ListByState(state models.PoolState, limit, offset int) ([]*models.Pool, error) {
	var pools []*models.Pool
	err := r.db.Where("state = ?", state).
		Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&pools).Error
	return pools, err
}
