package repository

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/surgefund/backend/internal/models"
)

// CounterRepositoryTestSuite provides tests for identifier allocation
type CounterRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo CounterRepository
}

// SetupSuite initializes the test suite
func (suite *CounterRepositoryTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: "file:countertest?mode=memory&cache=shared"}, &gorm.Config{})
	suite.Require().NoError(err)

	err = db.AutoMigrate(&models.PoolCounter{})
	suite.Require().NoError(err)

	suite.db = db
	suite.repo = NewCounterRepository(db)
}

// SetupTest runs before each test
func (suite *CounterRepositoryTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM pool_counters")
}

// TearDownSuite cleans up after all tests
func (suite *CounterRepositoryTestSuite) TearDownSuite() {
	if sqlDB, err := suite.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// TestCreateCounter tests counter creation
func (suite *CounterRepositoryTestSuite) TestCreateCounter() {
	counter := &models.PoolCounter{ScopeKey: "global", NextID: 1}
	err := suite.repo.Create(counter)
	suite.NoError(err)
	suite.NotZero(counter.ID)
}

// TestCreateCounterDuplicateScope tests the unique scope constraint
func (suite *CounterRepositoryTestSuite) TestCreateCounterDuplicateScope() {
	suite.NoError(suite.repo.Create(&models.PoolCounter{ScopeKey: "global", NextID: 1}))
	err := suite.repo.Create(&models.PoolCounter{ScopeKey: "global", NextID: 1})
	suite.Error(err)
}

// TestGetByScopeKey tests counter retrieval
func (suite *CounterRepositoryTestSuite) TestGetByScopeKey() {
	suite.NoError(suite.repo.Create(&models.PoolCounter{ScopeKey: "global", NextID: 1}))

	counter, err := suite.repo.GetByScopeKey("global")
	suite.NoError(err)
	suite.NotNil(counter)
	suite.Equal(uint64(1), counter.NextID)
}

// TestGetByScopeKeyNotFound tests missing counter retrieval
func (suite *CounterRepositoryTestSuite) TestGetByScopeKeyNotFound() {
	counter, err := suite.repo.GetByScopeKey("0x1111111111111111111111111111111111111111")
	suite.NoError(err)
	suite.Nil(counter)
}

// TestIncrement tests the single-statement advance
func (suite *CounterRepositoryTestSuite) TestIncrement() {
	suite.NoError(suite.repo.Create(&models.PoolCounter{ScopeKey: "global", NextID: 1}))

	for i := 0; i < 3; i++ {
		suite.NoError(suite.repo.Increment("global"))
	}

	counter, err := suite.repo.GetByScopeKey("global")
	suite.NoError(err)
	suite.Equal(uint64(4), counter.NextID)
}

// TestIncrementMissingCounter tests incrementing before initialization
func (suite *CounterRepositoryTestSuite) TestIncrementMissingCounter() {
	err := suite.repo.Increment("global")
	suite.ErrorIs(err, gorm.ErrRecordNotFound)
}

// TestCounterRepositoryTestSuite runs the test suite
func TestCounterRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(CounterRepositoryTestSuite))
}
