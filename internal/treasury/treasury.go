// Package treasury is the custody boundary: it moves value between accounts
// and answers balance queries. The escrow core decides what must move and
// when; it never touches balances directly.
package treasury

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/surgefund/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientFunds is returned when the source account cannot cover a move.
var ErrInsufficientFunds = errors.New("treasury: insufficient funds")

// Treasury defines the value transfer primitive the escrow core depends on.
type Treasury interface {
	// Move transfers amount of asset from one account to another. It fails
	// with ErrInsufficientFunds without touching either balance when the
	// source cannot cover the amount.
	Move(from, to, asset string, amount decimal.Decimal) error
	// Deposit credits an account from outside custody (faucet / on-ramp).
	Deposit(account, asset string, amount decimal.Decimal) error
	// Balance returns the current holding of an account in one asset.
	Balance(account, asset string) (decimal.Decimal, error)
}

// ledger implements Treasury on the balances table
type ledger struct {
	db *gorm.DB
}

// NewLedger creates a treasury backed by the given database handle. Pass a
// transaction handle to make moves atomic with the caller's other writes.
func NewLedger(db *gorm.DB) Treasury {
	return &ledger{db: db}
}

// Move transfers amount of asset between accounts
func (l *ledger) Move(from, to, asset string, amount decimal.Decimal) error {
	if from == "" || to == "" {
		return errors.New("accounts cannot be empty")
	}
	if asset == "" {
		return errors.New("asset cannot be empty")
	}
	if !amount.IsPositive() {
		return errors.New("amount must be positive")
	}

	if err := l.debit(from, asset, amount); err != nil {
		return err
	}
	return l.credit(to, asset, amount)
}

// debit subtracts amount with a compare-and-swap on the previous value, so
// concurrent moves out of one balance row can never both spend the same
// snapshot. The arithmetic stays in decimal space; the database only ever
// stores values computed here.
func (l *ledger) debit(account, asset string, amount decimal.Decimal) error {
	for {
		var src models.Balance
		err := l.db.Where("account = ? AND asset = ?", account, asset).First(&src).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInsufficientFunds
			}
			return err
		}
		if src.Amount.LessThan(amount) {
			return ErrInsufficientFunds
		}

		res := l.db.Model(&models.Balance{}).
			Where("id = ? AND amount = ?", src.ID, src.Amount).
			Update("amount", src.Amount.Sub(amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
		// Lost a race with another writer on this row; re-read and retry.
	}
}

// Deposit credits an account from outside custody
func (l *ledger) Deposit(account, asset string, amount decimal.Decimal) error {
	if account == "" {
		return errors.New("account cannot be empty")
	}
	if asset == "" {
		return errors.New("asset cannot be empty")
	}
	if !amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return l.credit(account, asset, amount)
}

// Balance returns the holding of an account in one asset
func (l *ledger) Balance(account, asset string) (decimal.Decimal, error) {
	if account == "" {
		return decimal.Zero, errors.New("account cannot be empty")
	}
	if asset == "" {
		return decimal.Zero, errors.New("asset cannot be empty")
	}

	var bal models.Balance
	err := l.db.Where("account = ? AND asset = ?", account, asset).First(&bal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return bal.Amount, nil
}

// credit adds amount under the same compare-and-swap discipline as debit;
// the first credit for an (account, asset) pair races through an insert
// guarded by the unique index.
func (l *ledger) credit(account, asset string, amount decimal.Decimal) error {
	for {
		var dst models.Balance
		err := l.db.Where("account = ? AND asset = ?", account, asset).First(&dst).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			dst = models.Balance{Account: account, Asset: asset, Amount: amount}
			res := l.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&dst)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				return nil
			}
			// The row appeared concurrently; fall through to the update path.
			continue
		}

		res := l.db.Model(&models.Balance{}).
			Where("id = ? AND amount = ?", dst.ID, dst.Amount).
			Update("amount", dst.Amount.Add(amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
	}
}
