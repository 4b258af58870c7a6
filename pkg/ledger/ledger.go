// Package ledger keeps account balances consistent with their transactions.
//
// Every mutation goes through the Engine, which applies the transaction row
// write and the signed balance increment inside a single atomic unit of the
// backing store. The invariant maintained is:
//
//	account.Balance == sum of signed(tx.Amount) over the account's transactions
//
// where signed() negates EXPENSE amounts and keeps INCOME amounts positive.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dompet/models"
)

// Store is the narrow data-access surface the engine needs. Implementations
// must make WithAtomicUnit all-or-nothing and ApplyBalanceDelta an in-place
// increment (balance = balance + delta), never a read-modify-write overwrite.
type Store interface {
	// WithAtomicUnit runs fn against a transactional view of the store.
	// If fn returns an error every write made inside it is rolled back.
	WithAtomicUnit(fn func(Store) error) error

	// FindAccount returns the account only if it belongs to userID.
	FindAccount(userID, accountID uint) (*models.Account, error)
	// FindTransaction returns the transaction only if it belongs to userID.
	FindTransaction(userID, txID uint) (*models.Transaction, error)
	// FindTransactionsByIDs returns the owned subset of ids.
	FindTransactionsByIDs(userID uint, ids []uint) ([]models.Transaction, error)

	InsertTransaction(tx *models.Transaction) error
	SaveTransaction(tx *models.Transaction) error
	DeleteTransactionRows(userID uint, ids []uint) error
	ApplyBalanceDelta(accountID uint, delta decimal.Decimal) error
}

// Notifier is called exactly once after each successful mutation with the
// ids of every account whose view data changed. Used by the presentation
// layer to drop cached dashboards; not part of the correctness contract.
type Notifier func(accountIDs ...uint)

// Engine applies transaction mutations while preserving balance consistency.
type Engine struct {
	store  Store
	notify Notifier
}

// NewEngine wires an engine to a store. notify may be nil.
func NewEngine(store Store, notify Notifier) *Engine {
	if notify == nil {
		notify = func(...uint) {}
	}
	return &Engine{store: store, notify: notify}
}

// Input carries the user-supplied fields of a transaction mutation.
type Input struct {
	AccountID         uint
	Type              models.TransactionType
	Amount            decimal.Decimal
	Description       string
	Category          string
	Date              time.Time
	IsRecurring       bool
	RecurringInterval *models.RecurringInterval
}

// UpdateResult reports where an updated transaction ended up. MovedFrom is
// set when the transaction changed accounts.
type UpdateResult struct {
	AccountID uint
	MovedFrom *uint
}

// Signed returns amount with the sign implied by typ: negative for EXPENSE,
// positive for INCOME.
func Signed(typ models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	if typ == models.TypeExpense {
		return amount.Neg()
	}
	return amount
}

func validate(in Input) error {
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if in.Type != models.TypeIncome && in.Type != models.TypeExpense {
		return fmt.Errorf("%w: unknown transaction type %q", ErrValidation, in.Type)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if in.IsRecurring {
		if in.RecurringInterval == nil || !models.ValidInterval(*in.RecurringInterval) {
			return fmt.Errorf("%w: recurring transaction needs a valid interval", ErrValidation)
		}
	}
	return nil
}

func nextRecurring(in Input) *time.Time {
	if !in.IsRecurring || in.RecurringInterval == nil {
		return nil
	}
	next := NextDate(in.Date, *in.RecurringInterval)
	return &next
}

// Create inserts a transaction and increments the owning account's balance by
// the signed amount, atomically. The account must belong to userID.
func (e *Engine) Create(userID uint, in Input) (*models.Transaction, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	if _, err := e.store.FindAccount(userID, in.AccountID); err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		UserID:            userID,
		AccountID:         in.AccountID,
		Type:              in.Type,
		Amount:            in.Amount,
		Description:       in.Description,
		Category:          in.Category,
		Date:              in.Date,
		IsRecurring:       in.IsRecurring,
		RecurringInterval: in.RecurringInterval,
		NextRecurringDate: nextRecurring(in),
	}
	if !in.IsRecurring {
		tx.RecurringInterval = nil
	}

	err := e.store.WithAtomicUnit(func(s Store) error {
		if err := s.InsertTransaction(tx); err != nil {
			return err
		}
		return s.ApplyBalanceDelta(in.AccountID, Signed(in.Type, in.Amount))
	})
	if err != nil {
		return nil, err
	}
	e.notify(in.AccountID)
	return tx, nil
}

// Update rewrites a transaction and reconciles balances. If the account is
// unchanged only the net difference of the signed amounts is applied; if the
// transaction moved, the old account is reverted and the new one charged,
// both inside the same atomic unit.
func (e *Engine) Update(userID, txID uint, in Input) (UpdateResult, error) {
	if err := validate(in); err != nil {
		return UpdateResult{}, err
	}
	old, err := e.store.FindTransaction(userID, txID)
	if err != nil {
		return UpdateResult{}, err
	}
	if _, err := e.store.FindAccount(userID, in.AccountID); err != nil {
		return UpdateResult{}, err
	}

	oldDelta := Signed(old.Type, old.Amount)
	newDelta := Signed(in.Type, in.Amount)
	oldAccountID := old.AccountID

	updated := *old
	updated.AccountID = in.AccountID
	updated.Type = in.Type
	updated.Amount = in.Amount
	updated.Description = in.Description
	updated.Category = in.Category
	updated.Date = in.Date
	updated.IsRecurring = in.IsRecurring
	updated.RecurringInterval = in.RecurringInterval
	updated.NextRecurringDate = nextRecurring(in)
	if !in.IsRecurring {
		updated.RecurringInterval = nil
	}

	err = e.store.WithAtomicUnit(func(s Store) error {
		if err := s.SaveTransaction(&updated); err != nil {
			return err
		}
		if oldAccountID == in.AccountID {
			return s.ApplyBalanceDelta(in.AccountID, newDelta.Sub(oldDelta))
		}
		if err := s.ApplyBalanceDelta(oldAccountID, oldDelta.Neg()); err != nil {
			return err
		}
		return s.ApplyBalanceDelta(in.AccountID, newDelta)
	})
	if err != nil {
		return UpdateResult{}, err
	}

	res := UpdateResult{AccountID: in.AccountID}
	if oldAccountID != in.AccountID {
		moved := oldAccountID
		res.MovedFrom = &moved
		e.notify(oldAccountID, in.AccountID)
	} else {
		e.notify(in.AccountID)
	}
	return res, nil
}

// Delete removes a transaction and reverts its signed amount from its
// account, atomically.
func (e *Engine) Delete(userID, txID uint) error {
	return e.BulkDelete(userID, []uint{txID})
}

// BulkDelete removes a set of owned transactions in one atomic unit,
// reverting each one's balance contribution. Reversal deltas are summed per
// account so each touched account gets a single increment. If any id is
// missing or foreign the whole batch fails with ErrNotFound.
func (e *Engine) BulkDelete(userID uint, ids []uint) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no transaction ids given", ErrValidation)
	}
	seen := make(map[uint]bool, len(ids))
	uniq := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	txs, err := e.store.FindTransactionsByIDs(userID, uniq)
	if err != nil {
		return err
	}
	if len(txs) != len(uniq) {
		return ErrNotFound
	}

	reversals := make(map[uint]decimal.Decimal)
	for _, tx := range txs {
		reversals[tx.AccountID] = reversals[tx.AccountID].Sub(Signed(tx.Type, tx.Amount))
	}

	err = e.store.WithAtomicUnit(func(s Store) error {
		if err := s.DeleteTransactionRows(userID, uniq); err != nil {
			return err
		}
		for accountID, delta := range reversals {
			if err := s.ApplyBalanceDelta(accountID, delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	affected := make([]uint, 0, len(reversals))
	for accountID := range reversals {
		affected = append(affected, accountID)
	}
	e.notify(affected...)
	return nil
}
