// Package store is the gorm-backed data access layer behind the ledger
// engine and the budget alert evaluator.
package store

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"dompet/models"
	"dompet/pkg/alert"
	"dompet/pkg/ledger"
)

// Store implements ledger.Store and alert.Store over a *gorm.DB.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithAtomicUnit runs fn inside a database transaction. Any error from fn
// rolls back every write made through the Store passed to it.
func (s *Store) WithAtomicUnit(fn func(ledger.Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// FindAccount returns the account only if it is owned by userID. Foreign and
// missing accounts are indistinguishable to the caller.
func (s *Store) FindAccount(userID, accountID uint) (*models.Account, error) {
	var acct models.Account
	err := s.db.Where("id = ? AND user_id = ?", accountID, userID).First(&acct).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &acct, nil
}

func (s *Store) FindTransaction(userID, txID uint) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.Where("id = ? AND user_id = ?", txID, userID).First(&tx).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &tx, nil
}

func (s *Store) FindTransactionsByIDs(userID uint, ids []uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.Where("user_id = ? AND id IN ?", userID, ids).Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Store) InsertTransaction(tx *models.Transaction) error {
	return s.db.Create(tx).Error
}

func (s *Store) SaveTransaction(tx *models.Transaction) error {
	return s.db.Save(tx).Error
}

// DeleteTransactionRows removes the given owned rows. If a row vanished
// since the ownership check the count mismatch fails the whole unit.
func (s *Store) DeleteTransactionRows(userID uint, ids []uint) error {
	res := s.db.Where("user_id = ? AND id IN ?", userID, ids).Delete(&models.Transaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(ids)) {
		return ledger.ErrNotFound
	}
	return nil
}

// ApplyBalanceDelta increments the balance in place. The increment happens in
// SQL so concurrent writers serialize on the row instead of racing a
// read-modify-write in application code.
func (s *Store) ApplyBalanceDelta(accountID uint, delta decimal.Decimal) error {
	res := s.db.Model(&models.Account{}).Where("id = ?", accountID).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// ListBudgetEntries returns each budget joined with its owner and the owner's
// default account. Budgets without a default account are skipped.
func (s *Store) ListBudgetEntries() ([]alert.Entry, error) {
	var budgets []models.Budget
	if err := s.db.Find(&budgets).Error; err != nil {
		return nil, err
	}
	entries := make([]alert.Entry, 0, len(budgets))
	for _, b := range budgets {
		var acct models.Account
		if err := s.db.Where("user_id = ? AND is_default = ?", b.UserID, true).First(&acct).Error; err != nil {
			continue
		}
		var user models.User
		if err := s.db.First(&user, b.UserID).Error; err != nil {
			continue
		}
		entries = append(entries, alert.Entry{
			Budget:      b,
			UserName:    user.Name,
			Email:       user.Email,
			AccountName: acct.Name,
		})
	}
	return entries, nil
}

// SumMonthlyExpenses sums EXPENSE amounts for the user with from <= date <= to.
func (s *Store) SumMonthlyExpenses(userID uint, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ? AND date >= ? AND date <= ?",
			userID, models.TypeExpense, from, to).
		Select("COALESCE(SUM(amount), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (s *Store) MarkAlertSent(budgetID uint, at time.Time) error {
	return s.db.Model(&models.Budget{}).Where("id = ?", budgetID).
		Update("last_alert_sent", at).Error
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledger.ErrNotFound
	}
	return err
}
