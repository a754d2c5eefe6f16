// Package service implements the escrow core: pool lifecycle, receipt
// bookkeeping, threshold enforcement, deploy authorization and pro-rata
// settlement. Every mutating operation runs as one database transaction,
// serialized per pool, so the ledger invariants hold after every commit.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/surgefund/backend/internal/addressing"
	"github.com/surgefund/backend/internal/config"
	"github.com/surgefund/backend/internal/exchange"
	"github.com/surgefund/backend/internal/models"
	"github.com/surgefund/backend/internal/repository"
	"github.com/surgefund/backend/internal/treasury"
)

// globalScopeKey addresses the shared counter when identifiers are not
// scoped per admin.
const globalScopeKey = "global"

// venueAccount is the custody account representing the external exchange.
const venueAccount = "0x000000000000000000000000000000000000000E"

// PoolService coordinates all escrow operations against the database.
type PoolService struct {
	db     *gorm.DB
	venue  exchange.Venue
	scope  config.CounterScope
	feeBps int64
	events EventPublisher

	counterMu sync.Mutex
	poolMu    sync.Mutex
	poolLocks map[string]*sync.Mutex
}

// NewPoolService creates the escrow service. events may be nil.
func NewPoolService(db *gorm.DB, venue exchange.Venue, scope config.CounterScope, feeBps int64, events EventPublisher) *PoolService {
	return &PoolService{
		db:        db,
		venue:     venue,
		scope:     scope,
		feeBps:    feeBps,
		events:    events,
		poolLocks: make(map[string]*sync.Mutex),
	}
}

// lockPool serializes mutations of a single pool. Contention is bounded to
// the contributors and claimants of that one pool.
func (s *PoolService) lockPool(address string) *sync.Mutex {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()
	mu, ok := s.poolLocks[address]
	if !ok {
		mu = &sync.Mutex{}
		s.poolLocks[address] = mu
	}
	return mu
}

// scopeKey resolves which counter row serves the given admin.
func (s *PoolService) scopeKey(admin string) string {
	if s.scope == config.CounterScopeAdmin {
		return addressing.Normalize(admin)
	}
	return globalScopeKey
}

// InitializeCounter creates the identifier counter for the caller's scope
// with the sequence starting at 1.
func (s *PoolService) InitializeCounter(ctx context.Context, caller string) (*models.PoolCounter, error) {
	if !addressing.IsValidAddress(caller) {
		return nil, ErrInvalidAddress
	}

	key := s.scopeKey(caller)
	s.counterMu.Lock()
	defer s.counterMu.Unlock()

	counter := &models.PoolCounter{ScopeKey: key, NextID: 1}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counters := repository.NewCounterRepository(tx)
		existing, err := counters.GetByScopeKey(key)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyInitialized
		}
		return counters.Create(counter)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithField("scope_key", key).Info("Pool counter initialized")
	return counter, nil
}

// NextPoolID atomically allocates the next identifier for the caller's
// scope, returning the pre-increment value. Allocated ids are never
// reclaimed, so pool ids may have gaps.
func (s *PoolService) NextPoolID(ctx context.Context, caller string) (uint64, error) {
	if !addressing.IsValidAddress(caller) {
		return 0, ErrInvalidAddress
	}

	key := s.scopeKey(caller)
	s.counterMu.Lock()
	defer s.counterMu.Unlock()

	var id uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counters := repository.NewCounterRepository(tx)
		counter, err := counters.GetByScopeKey(key)
		if err != nil {
			return err
		}
		if counter == nil {
			return ErrUninitialized
		}
		id = counter.NextID
		return counters.Increment(key)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// CreatePool allocates the next identifier and creates a funding pool at the
// address derived from (admin, id). The identifier is consumed even if pool
// creation subsequently fails.
func (s *PoolService) CreatePool(ctx context.Context, admin, name string, threshold decimal.Decimal) (*models.Pool, error) {
	if !addressing.IsValidAddress(admin) {
		return nil, ErrInvalidAddress
	}
	if !threshold.IsPositive() {
		return nil, ErrInvalidThreshold
	}

	id, err := s.NextPoolID(ctx, admin)
	if err != nil {
		return nil, err
	}

	adminAddr := addressing.Normalize(admin)
	pool := &models.Pool{
		ID:              id,
		Address:         addressing.PoolAddress(adminAddr, id),
		AdminAddress:    adminAddr,
		Name:            name,
		Threshold:       threshold,
		AmountDeposited: decimal.Zero,
		State:           models.PoolStateFunding,
		ConvertedAmount: decimal.Zero,
		LeftoverValue:   decimal.Zero,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pools := repository.NewPoolRepository(tx)
		existing, err := pools.GetByAddress(pool.Address)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyInitialized
		}
		return pools.Create(pool)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"pool_id":      pool.ID,
		"pool_address": pool.Address,
		"admin":        pool.AdminAddress,
		"threshold":    pool.Threshold,
	}).Info("Pool created")
	return pool, nil
}

// Contribute moves amount from the contributor into the pool vault and
// accumulates it on the contributor's receipt. The vault move, the receipt
// upsert and the pool total all commit in one transaction.
func (s *PoolService) Contribute(ctx context.Context, poolAddress, contributor string, amount decimal.Decimal) (*models.Receipt, error) {
	if !addressing.IsValidAddress(poolAddress) || !addressing.IsValidAddress(contributor) {
		return nil, ErrInvalidAddress
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	poolAddr := addressing.Normalize(poolAddress)
	owner := addressing.Normalize(contributor)

	mu := s.lockPool(poolAddr)
	mu.Lock()
	defer mu.Unlock()

	var (
		receipt *models.Receipt
		pool    *models.Pool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pools := repository.NewPoolRepository(tx)
		receipts := repository.NewReceiptRepository(tx)
		vault := treasury.NewLedger(tx)

		var err error
		pool, err = pools.GetByAddress(poolAddr)
		if err != nil {
			return err
		}
		if pool == nil {
			return ErrPoolNotFound
		}
		if !pool.IsFunding() {
			return ErrInvalidState
		}
		if pool.AmountDeposited.Add(amount).GreaterThan(pool.Threshold) {
			return ErrThresholdExceeded
		}

		if err := vault.Move(owner, addressing.VaultAddress(poolAddr), models.AssetNative, amount); err != nil {
			return fmt.Errorf("escrow transfer failed: %w", err)
		}

		receipt, err = receipts.GetByPoolAndOwner(poolAddr, owner)
		if err != nil {
			return err
		}
		if receipt == nil {
			receipt = &models.Receipt{
				Address:         addressing.ReceiptAddress(owner, poolAddr),
				PoolID:          pool.ID,
				PoolAddress:     poolAddr,
				OwnerAddress:    owner,
				AmountDeposited: amount,
				Claimed:         false,
			}
			if err := receipts.Create(receipt); err != nil {
				return err
			}
		} else {
			receipt.AmountDeposited = receipt.AmountDeposited.Add(amount)
			if err := receipts.Update(receipt); err != nil {
				return err
			}
		}

		pool.AmountDeposited = pool.AmountDeposited.Add(amount)
		return pools.Update(pool)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"pool_address": poolAddr,
		"contributor":  owner,
		"amount":       amount,
		"pool_total":   pool.AmountDeposited,
	}).Info("Contribution accepted")

	s.publish(Event{
		Type:            EventContribution,
		PoolAddress:     poolAddr,
		PoolID:          pool.ID,
		Actor:           owner,
		Amount:          amount,
		AmountDeposited: pool.AmountDeposited,
		State:           string(pool.State),
		Timestamp:       time.Now(),
	})
	return receipt, nil
}

// Deploy converts the pooled value into the target asset via the exchange
// venue. Only the pool admin may call it, exactly once. The protocol fee is
// taken off the top before the swap; whatever the venue does not spend stays
// in the vault as leftover value. A venue failure rolls the whole attempt
// back and the pool remains in funding.
func (s *PoolService) Deploy(ctx context.Context, poolAddress, caller, assetAddress string, assetOut, maxValueIn decimal.Decimal) (*models.Pool, error) {
	if !addressing.IsValidAddress(poolAddress) || !addressing.IsValidAddress(caller) || !addressing.IsValidAddress(assetAddress) {
		return nil, ErrInvalidAddress
	}
	if !assetOut.IsPositive() || !maxValueIn.IsPositive() {
		return nil, ErrInvalidAmount
	}

	poolAddr := addressing.Normalize(poolAddress)
	callerAddr := addressing.Normalize(caller)
	asset := addressing.Normalize(assetAddress)

	mu := s.lockPool(poolAddr)
	mu.Lock()
	defer mu.Unlock()

	var pool *models.Pool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pools := repository.NewPoolRepository(tx)
		vault := treasury.NewLedger(tx)

		var err error
		pool, err = pools.GetByAddress(poolAddr)
		if err != nil {
			return err
		}
		if pool == nil {
			return ErrPoolNotFound
		}
		if !addressing.Equal(pool.AdminAddress, callerAddr) {
			return ErrNotAuthorized
		}
		if !pool.IsFunding() {
			return ErrInvalidState
		}

		// The fee is truncated to the 18-place storage granularity so the
		// pool record and the balance rows stay exactly conserved.
		fee := pool.AmountDeposited.Mul(decimal.New(s.feeBps, -4)).RoundDown(18)
		budget := pool.AmountDeposited.Sub(fee)
		bound := decimal.Min(maxValueIn, budget)

		result, err := s.venue.Buy(ctx, assetOut, bound)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrExchangeFailed, err)
		}
		if result.ValueSpent.GreaterThan(bound) {
			return fmt.Errorf("%w: venue spent %s above bound %s", ErrExchangeFailed, result.ValueSpent, bound)
		}

		vaultAddr := addressing.VaultAddress(poolAddr)
		if fee.IsPositive() {
			if err := vault.Move(vaultAddr, pool.AdminAddress, models.AssetNative, fee); err != nil {
				return fmt.Errorf("fee transfer failed: %w", err)
			}
		}
		if result.ValueSpent.IsPositive() {
			if err := vault.Move(vaultAddr, venueAccount, models.AssetNative, result.ValueSpent); err != nil {
				return fmt.Errorf("swap settlement failed: %w", err)
			}
		}
		if err := vault.Deposit(vaultAddr, asset, result.AssetOut); err != nil {
			return fmt.Errorf("asset custody failed: %w", err)
		}

		pool.ConvertedAmount = result.AssetOut
		pool.LeftoverValue = pool.AmountDeposited.Sub(fee).Sub(result.ValueSpent)
		pool.AssetAddress = asset
		pool.State = models.PoolStateDeployed
		return pools.Update(pool)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"pool_address":     poolAddr,
		"converted_amount": pool.ConvertedAmount,
		"leftover_value":   pool.LeftoverValue,
		"asset":            asset,
	}).Info("Pool deployed")

	s.publish(Event{
		Type:            EventDeployed,
		PoolAddress:     poolAddr,
		PoolID:          pool.ID,
		Actor:           callerAddr,
		Amount:          pool.ConvertedAmount,
		AmountDeposited: pool.AmountDeposited,
		State:           string(pool.State),
		Timestamp:       time.Now(),
	})
	return pool, nil
}

// Claim settles one receipt: the owner receives their floor-rounded pro-rata
// share of the converted asset and of the leftover value, and the receipt is
// permanently marked claimed. Share arithmetic multiplies before dividing so
// no precision is lost; the residual dust from flooring stays in the vault.
func (s *PoolService) Claim(ctx context.Context, poolAddress, receiptAddress, claimant string) (assetAmount, valueAmount decimal.Decimal, err error) {
	if !addressing.IsValidAddress(poolAddress) || !addressing.IsValidAddress(receiptAddress) || !addressing.IsValidAddress(claimant) {
		return decimal.Zero, decimal.Zero, ErrInvalidAddress
	}

	poolAddr := addressing.Normalize(poolAddress)
	owner := addressing.Normalize(claimant)

	mu := s.lockPool(poolAddr)
	mu.Lock()
	defer mu.Unlock()

	var pool *models.Pool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pools := repository.NewPoolRepository(tx)
		receipts := repository.NewReceiptRepository(tx)
		vault := treasury.NewLedger(tx)

		var err error
		pool, err = pools.GetByAddress(poolAddr)
		if err != nil {
			return err
		}
		if pool == nil {
			return ErrPoolNotFound
		}
		if !pool.IsDeployed() {
			return ErrInvalidState
		}

		// The receipt address must re-derive from (claimant, pool); a
		// mismatch means the caller is claiming someone else's receipt.
		if !addressing.Equal(receiptAddress, addressing.ReceiptAddress(owner, poolAddr)) {
			return ErrNotAuthorized
		}

		receipt, err := receipts.GetByAddress(addressing.Normalize(receiptAddress))
		if err != nil {
			return err
		}
		if receipt == nil {
			return ErrReceiptNotFound
		}
		if !addressing.Equal(receipt.OwnerAddress, owner) || !addressing.Equal(receipt.PoolAddress, poolAddr) {
			return ErrNotAuthorized
		}
		if receipt.Claimed {
			return ErrAlreadyClaimed
		}

		assetAmount = proRataShare(pool.ConvertedAmount, receipt.AmountDeposited, pool.AmountDeposited, 0)
		valueAmount = proRataShare(pool.LeftoverValue, receipt.AmountDeposited, pool.AmountDeposited, 18)

		vaultAddr := addressing.VaultAddress(poolAddr)
		if assetAmount.IsPositive() {
			if err := vault.Move(vaultAddr, owner, pool.AssetAddress, assetAmount); err != nil {
				return fmt.Errorf("asset payout failed: %w", err)
			}
		}
		if valueAmount.IsPositive() {
			if err := vault.Move(vaultAddr, owner, models.AssetNative, valueAmount); err != nil {
				return fmt.Errorf("value payout failed: %w", err)
			}
		}

		receipt.Claimed = true
		return receipts.Update(receipt)
	})
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	logrus.WithFields(logrus.Fields{
		"pool_address": poolAddr,
		"claimant":     owner,
		"asset_amount": assetAmount,
		"value_amount": valueAmount,
	}).Info("Claim settled")

	s.publish(Event{
		Type:        EventClaimed,
		PoolAddress: poolAddr,
		PoolID:      pool.ID,
		Actor:       owner,
		Amount:      assetAmount,
		State:       string(pool.State),
		Timestamp:   time.Now(),
	})
	return assetAmount, valueAmount, nil
}

// proRataShare computes floor(total * part / whole) truncated at the given
// decimal precision. Multiplying before dividing keeps the ratio exact.
func proRataShare(total, part, whole decimal.Decimal, precision int32) decimal.Decimal {
	if whole.IsZero() || !total.IsPositive() {
		return decimal.Zero
	}
	q, _ := total.Mul(part).QuoRem(whole, precision)
	return q
}

// GetPool returns the pool at the given address, or ErrPoolNotFound.
func (s *PoolService) GetPool(ctx context.Context, poolAddress string) (*models.Pool, error) {
	if !addressing.IsValidAddress(poolAddress) {
		return nil, ErrInvalidAddress
	}
	pool, err := repository.NewPoolRepository(s.db.WithContext(ctx)).GetByAddress(addressing.Normalize(poolAddress))
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolNotFound
	}
	return pool, nil
}

// IsSettled reports whether a deployed pool has had every receipt claimed.
// Settled is derived, never stored, so there is no second source of truth.
func (s *PoolService) IsSettled(ctx context.Context, pool *models.Pool) (bool, error) {
	if pool == nil || !pool.IsDeployed() {
		return false, nil
	}
	unclaimed, err := repository.NewReceiptRepository(s.db.WithContext(ctx)).CountUnclaimedByPool(pool.Address)
	if err != nil {
		return false, err
	}
	return unclaimed == 0, nil
}

// ListPools returns pools ordered by id.
func (s *PoolService) ListPools(ctx context.Context, limit, offset int) ([]*models.Pool, error) {
	return repository.NewPoolRepository(s.db.WithContext(ctx)).List(limit, offset)
}

// GetReceipt returns the receipt at the given address, or ErrReceiptNotFound.
func (s *PoolService) GetReceipt(ctx context.Context, receiptAddress string) (*models.Receipt, error) {
	if !addressing.IsValidAddress(receiptAddress) {
		return nil, ErrInvalidAddress
	}
	receipt, err := repository.NewReceiptRepository(s.db.WithContext(ctx)).GetByAddress(addressing.Normalize(receiptAddress))
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, ErrReceiptNotFound
	}
	return receipt, nil
}

// ListReceipts returns the receipts of one pool ordered by creation time.
func (s *PoolService) ListReceipts(ctx context.Context, poolAddress string, limit, offset int) ([]*models.Receipt, error) {
	if !addressing.IsValidAddress(poolAddress) {
		return nil, ErrInvalidAddress
	}
	return repository.NewReceiptRepository(s.db.WithContext(ctx)).ListByPool(addressing.Normalize(poolAddress), limit, offset)
}

func (s *PoolService) publish(event Event) {
	if s.events != nil {
		s.events.PublishPoolEvent(event)
	}
}
