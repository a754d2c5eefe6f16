package repository

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/surgefund/backend/internal/addressing"
	"github.com/surgefund/backend/internal/models"
)

// ReceiptRepositoryTestSuite provides tests for the receipt ledger
type ReceiptRepositoryTestSuite struct {
	suite.Suite
	db       *gorm.DB
	repo     ReceiptRepository
	poolAddr string
}

// SetupSuite initializes the test suite
func (suite *ReceiptRepositoryTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: "file:receipttest?mode=memory&cache=shared"}, &gorm.Config{})
	suite.Require().NoError(err)

	err = db.AutoMigrate(&models.Pool{}, &models.Receipt{})
	suite.Require().NoError(err)

	suite.db = db
	suite.repo = NewReceiptRepository(db)
	suite.poolAddr = addressing.PoolAddress(testAdmin, 1)
}

// SetupTest runs before each test
func (suite *ReceiptRepositoryTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM receipts")
}

// TearDownSuite cleans up after all tests
func (suite *ReceiptRepositoryTestSuite) TearDownSuite() {
	if sqlDB, err := suite.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (suite *ReceiptRepositoryTestSuite) newReceipt(owner string, amount string) *models.Receipt {
	return &models.Receipt{
		Address:         addressing.ReceiptAddress(owner, suite.poolAddr),
		PoolID:          1,
		PoolAddress:     suite.poolAddr,
		OwnerAddress:    owner,
		AmountDeposited: decimal.RequireFromString(amount),
		Claimed:         false,
	}
}

// TestCreateReceipt tests receipt creation
func (suite *ReceiptRepositoryTestSuite) TestCreateReceipt() {
	receipt := suite.newReceipt("0x3333333333333333333333333333333333333333", "1.5")
	err := suite.repo.Create(receipt)
	suite.NoError(err)
	suite.NotZero(receipt.ID)
}

// TestCreateReceiptNil tests creating a nil receipt
func (suite *ReceiptRepositoryTestSuite) TestCreateReceiptNil() {
	err := suite.repo.Create(nil)
	suite.Error(err)
	suite.Contains(err.Error(), "receipt cannot be nil")
}

// TestCreateReceiptRejectsZeroAmount tests the model-level amount guard
func (suite *ReceiptRepositoryTestSuite) TestCreateReceiptRejectsZeroAmount() {
	receipt := suite.newReceipt("0x3333333333333333333333333333333333333333", "1")
	receipt.AmountDeposited = decimal.Zero
	suite.Error(suite.repo.Create(receipt))
}

// TestOneReceiptPerPoolAndOwner tests the composite uniqueness constraint
func (suite *ReceiptRepositoryTestSuite) TestOneReceiptPerPoolAndOwner() {
	owner := "0x3333333333333333333333333333333333333333"
	suite.NoError(suite.repo.Create(suite.newReceipt(owner, "1")))

	err := suite.repo.Create(suite.newReceipt(owner, "2"))
	suite.Error(err)
}

// TestGetByPoolAndOwner tests lookup by the logical key
func (suite *ReceiptRepositoryTestSuite) TestGetByPoolAndOwner() {
	owner := "0x3333333333333333333333333333333333333333"
	original := suite.newReceipt(owner, "1.5")
	suite.NoError(suite.repo.Create(original))

	receipt, err := suite.repo.GetByPoolAndOwner(suite.poolAddr, owner)
	suite.NoError(err)
	suite.NotNil(receipt)
	suite.True(receipt.AmountDeposited.Equal(decimal.RequireFromString("1.5")))
	suite.False(receipt.Claimed)
}

// TestGetByPoolAndOwnerNotFound tests lookup of a missing receipt
func (suite *ReceiptRepositoryTestSuite) TestGetByPoolAndOwnerNotFound() {
	receipt, err := suite.repo.GetByPoolAndOwner(suite.poolAddr, "0x4444444444444444444444444444444444444444")
	suite.NoError(err)
	suite.Nil(receipt)
}

// TestUpdateAccumulates tests accumulating a repeat contribution
func (suite *ReceiptRepositoryTestSuite) TestUpdateAccumulates() {
	owner := "0x3333333333333333333333333333333333333333"
	receipt := suite.newReceipt(owner, "1")
	suite.NoError(suite.repo.Create(receipt))

	receipt.AmountDeposited = receipt.AmountDeposited.Add(decimal.RequireFromString("0.5"))
	suite.NoError(suite.repo.Update(receipt))

	updated, err := suite.repo.GetByAddress(receipt.Address)
	suite.NoError(err)
	suite.True(updated.AmountDeposited.Equal(decimal.RequireFromString("1.5")))
}

// TestSumDepositsByPool tests the ledger invariant aggregate
func (suite *ReceiptRepositoryTestSuite) TestSumDepositsByPool() {
	for i := 0; i < 3; i++ {
		owner := fmt.Sprintf("0x%040d", i+1)
		suite.NoError(suite.repo.Create(suite.newReceipt(owner, "1.5")))
	}

	total, err := suite.repo.SumDepositsByPool(suite.poolAddr)
	suite.NoError(err)
	suite.True(total.Equal(decimal.RequireFromString("4.5")))
}

// TestSumDepositsByPoolEmpty tests the aggregate over no receipts
func (suite *ReceiptRepositoryTestSuite) TestSumDepositsByPoolEmpty() {
	total, err := suite.repo.SumDepositsByPool(suite.poolAddr)
	suite.NoError(err)
	suite.True(total.IsZero())
}

// TestCountUnclaimedByPool tests the derived settled condition input
func (suite *ReceiptRepositoryTestSuite) TestCountUnclaimedByPool() {
	a := suite.newReceipt("0x3333333333333333333333333333333333333333", "1")
	b := suite.newReceipt("0x4444444444444444444444444444444444444444", "2")
	suite.NoError(suite.repo.Create(a))
	suite.NoError(suite.repo.Create(b))

	count, err := suite.repo.CountUnclaimedByPool(suite.poolAddr)
	suite.NoError(err)
	suite.Equal(int64(2), count)

	a.Claimed = true
	suite.NoError(suite.repo.Update(a))

	count, err = suite.repo.CountUnclaimedByPool(suite.poolAddr)
	suite.NoError(err)
	suite.Equal(int64(1), count)
}

// TestListByPool tests pagination of a pool's receipts
func (suite *ReceiptRepositoryTestSuite) TestListByPool() {
	for i := 0; i < 4; i++ {
		owner := fmt.Sprintf("0x%040d", i+1)
		suite.NoError(suite.repo.Create(suite.newReceipt(owner, "1")))
	}

	receipts, err := suite.repo.ListByPool(suite.poolAddr, 3, 0)
	suite.NoError(err)
	suite.Len(receipts, 3)
}

// TestListByOwner tests listing receipts across pools for one owner
func (suite *ReceiptRepositoryTestSuite) TestListByOwner() {
	owner := "0x3333333333333333333333333333333333333333"
	suite.NoError(suite.repo.Create(suite.newReceipt(owner, "1")))

	other := suite.newReceipt(owner, "2")
	other.PoolID = 2
	other.PoolAddress = addressing.PoolAddress(testAdmin, 2)
	other.Address = addressing.ReceiptAddress(owner, other.PoolAddress)
	suite.NoError(suite.repo.Create(other))

	receipts, err := suite.repo.ListByOwner(owner, 10, 0)
	suite.NoError(err)
	suite.Len(receipts, 2)
}

// TestReceiptRepositoryTestSuite runs the test suite
func TestReceiptRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(ReceiptRepositoryTestSuite))
}
