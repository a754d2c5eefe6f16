package repository

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/surgefund/backend/internal/models"
	"gorm.io/gorm"
)

// ReceiptRepository defines the interface for receipt ledger operations
type ReceiptRepository interface {
	Create(receipt *models.Receipt) error
	GetByAddress(address string) (*models.Receipt, error)
	GetByPoolAndOwner(poolAddress, ownerAddress string) (*models.Receipt, error)
	Update(receipt *models.Receipt) error
	ListByPool(poolAddress string, limit, offset int) ([]*models.Receipt, error)
	ListByOwner(ownerAddress string, limit, offset int) ([]*models.Receipt, error)
	SumDepositsByPool(poolAddress string) (decimal.Decimal, error)
	CountUnclaimedByPool(poolAddress string) (int64, error)
}

// receiptRepository implements ReceiptRepository
type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

// Create creates a new receipt
func (r *receiptRepository) Create(receipt *models.Receipt) error {
	if receipt == nil {
		return errors.New("receipt cannot be nil")
	}
	return r.db.Create(receipt).Error
}

// GetByAddress retrieves a receipt by its derived address
func (r *receiptRepository) GetByAddress(address string) (*models.Receipt, error) {
	if address == "" {
		return nil, errors.New("address cannot be empty")
	}

	var receipt models.Receipt
	err := r.db.Where("address = ?", address).First(&receipt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &receipt, nil
}

// GetByPoolAndOwner retrieves the receipt for one owner in one pool
func (r *receiptRepository) GetByPoolAndOwner(poolAddress, ownerAddress string) (*models.Receipt, error) {
	if poolAddress == "" {
		return nil, errors.New("pool address cannot be empty")
	}
	if ownerAddress == "" {
		return nil, errors.New("owner address cannot be empty")
	}

	var receipt models.Receipt
	err := r.db.Where("pool_address = ? AND owner_address = ?", poolAddress, ownerAddress).
		First(&receipt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &receipt, nil
}

// Update persists changes to a receipt
func (r *receiptRepository) Update(receipt *models.Receipt) error {
	if receipt == nil {
		return errors.New("receipt cannot be nil")
	}
	return r.db.Save(receipt).Error
}

// ListByPool retrieves receipts for a pool with pagination
func (r *receiptRepository) ListByPool(poolAddress string, limit, offset int) ([]*models.Receipt, error) {
	if poolAddress == "" {
		return nil, errors.New("pool address cannot be empty")
	}

	var receipts []*models.Receipt
	err := r.db.Where("pool_address = ?", poolAddress).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&receipts).Error
	return receipts, err
}

// ListByOwner retrieves receipts held by one owner across pools
func (r *receiptRepository) ListByOwner(ownerAddress string, limit, offset int) ([]*models.Receipt, error) {
	if ownerAddress == "" {
		return nil, errors.New("owner address cannot be empty")
	}

	var receipts []*models.Receipt
	err := r.db.Where("owner_address = ?", ownerAddress).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&receipts).Error
	return receipts, err
}

// SumDepositsByPool totals receipt deposits for a pool
func (r *receiptRepository) SumDepositsByPool(poolAddress string) (decimal.Decimal, error) {
	if poolAddress == "" {
		return decimal.Zero, errors.New("pool address cannot be empty")
	}

	var result struct {
		TotalDeposited decimal.Decimal
	}

	err := r.db.Model(&models.Receipt{}).
		Select("COALESCE(SUM(amount_deposited), 0) as total_deposited").
		Where("pool_address = ?", poolAddress).
		Scan(&result).Error

	if err != nil {
		return decimal.Zero, err
	}

	return result.TotalDeposited, nil
}

// CountUnclaimedByPool counts receipts in a pool that have not been claimed
func (r *receiptRepository) CountUnclaimedByPool(poolAddress string) (int64, error) {
	if poolAddress == "" {
		return 0, errors.New("pool address cannot be empty")
	}

	var count int64
	err := r.db.Model(&models.Receipt{}).
		Where("pool_address = ? AND claimed = ?", poolAddress, false).
		Count(&count).Error
	return count, err
}
