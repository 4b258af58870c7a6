package store

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dompet/models"
	"dompet/pkg/ledger"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Role{}, &models.User{}, &models.Account{},
		&models.Transaction{}, &models.Budget{},
	))
	return New(db), db
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedUser(t *testing.T, db *gorm.DB, username, email string) models.User {
	t.Helper()
	u := models.User{Username: username, Name: username, Email: email, HashedPassword: []byte("x")}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedAccount(t *testing.T, db *gorm.DB, userID uint, name string, balance string, isDefault bool) models.Account {
	t.Helper()
	a := models.Account{UserID: userID, Name: name, Type: models.AccountCurrent, Balance: dec(balance), IsDefault: isDefault}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func TestApplyBalanceDeltaIncrementsInPlace(t *testing.T) {
	st, db := newTestStore(t)
	u := seedUser(t, db, "budi", "budi@example.com")
	a := seedAccount(t, db, u.ID, "Everyday", "100.25", true)

	require.NoError(t, st.ApplyBalanceDelta(a.ID, dec("49.75")))
	require.NoError(t, st.ApplyBalanceDelta(a.ID, dec("-25")))

	var got models.Account
	require.NoError(t, db.First(&got, a.ID).Error)
	assert.True(t, got.Balance.Equal(dec("125")), "got %s", got.Balance)
}

func TestApplyBalanceDeltaUnknownAccount(t *testing.T) {
	st, _ := newTestStore(t)
	err := st.ApplyBalanceDelta(4242, dec("1"))
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestFindAccountEnforcesOwnership(t *testing.T) {
	st, db := newTestStore(t)
	owner := seedUser(t, db, "owner", "")
	other := seedUser(t, db, "other", "")
	a := seedAccount(t, db, owner.ID, "Everyday", "0", true)

	got, err := st.FindAccount(owner.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = st.FindAccount(other.ID, a.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestWithAtomicUnitRollsBackAllWrites(t *testing.T) {
	st, db := newTestStore(t)
	u := seedUser(t, db, "budi", "")
	a := seedAccount(t, db, u.ID, "Everyday", "100", true)

	boom := errors.New("boom")
	err := st.WithAtomicUnit(func(s ledger.Store) error {
		if err := s.InsertTransaction(&models.Transaction{
			UserID: u.ID, AccountID: a.ID, Type: models.TypeExpense,
			Amount: dec("40"), Date: time.Now().UTC(),
		}); err != nil {
			return err
		}
		if err := s.ApplyBalanceDelta(a.ID, dec("-40")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	db.Model(&models.Transaction{}).Count(&count)
	assert.Zero(t, count, "transaction row must be rolled back")

	var got models.Account
	require.NoError(t, db.First(&got, a.ID).Error)
	assert.True(t, got.Balance.Equal(dec("100")), "balance must be rolled back, got %s", got.Balance)
}

func TestDeleteTransactionRowsCountMismatch(t *testing.T) {
	st, db := newTestStore(t)
	u := seedUser(t, db, "budi", "")
	a := seedAccount(t, db, u.ID, "Everyday", "0", true)
	tx := models.Transaction{UserID: u.ID, AccountID: a.ID, Type: models.TypeIncome, Amount: dec("5"), Date: time.Now().UTC()}
	require.NoError(t, db.Create(&tx).Error)

	err := st.DeleteTransactionRows(u.ID, []uint{tx.ID, tx.ID + 1})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestSumMonthlyExpensesWindow(t *testing.T) {
	st, db := newTestStore(t)
	u := seedUser(t, db, "budi", "")
	a := seedAccount(t, db, u.ID, "Everyday", "0", true)

	may := func(day int) time.Time {
		return time.Date(2024, 5, day, 10, 0, 0, 0, time.UTC)
	}
	mk := func(typ models.TransactionType, amount string, date time.Time) {
		require.NoError(t, db.Create(&models.Transaction{
			UserID: u.ID, AccountID: a.ID, Type: typ, Amount: dec(amount), Date: date,
		}).Error)
	}
	mk(models.TypeExpense, "100.25", may(2))
	mk(models.TypeExpense, "49.75", may(14))
	mk(models.TypeIncome, "500", may(10))                                        // wrong type
	mk(models.TypeExpense, "33", time.Date(2024, 4, 30, 23, 0, 0, 0, time.UTC)) // before window
	mk(models.TypeExpense, "44", time.Date(2024, 6, 1, 0, 30, 0, 0, time.UTC))  // after window

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC)
	total, err := st.SumMonthlyExpenses(u.ID, from, to)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("150")), "got %s", total)
}

func TestSumMonthlyExpensesEmptyIsZero(t *testing.T) {
	st, db := newTestStore(t)
	u := seedUser(t, db, "budi", "")
	total, err := st.SumMonthlyExpenses(u.ID, time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestListBudgetEntriesRequiresDefaultAccount(t *testing.T) {
	st, db := newTestStore(t)

	withDefault := seedUser(t, db, "budi", "budi@example.com")
	seedAccount(t, db, withDefault.ID, "Everyday", "0", true)
	require.NoError(t, db.Create(&models.Budget{UserID: withDefault.ID, Amount: dec("1000")}).Error)

	noDefault := seedUser(t, db, "sari", "sari@example.com")
	seedAccount(t, db, noDefault.ID, "Side", "0", false)
	require.NoError(t, db.Create(&models.Budget{UserID: noDefault.ID, Amount: dec("500")}).Error)

	entries, err := st.ListBudgetEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, withDefault.ID, entries[0].Budget.UserID)
	assert.Equal(t, "budi@example.com", entries[0].Email)
	assert.Equal(t, "Everyday", entries[0].AccountName)
}

func TestMarkAlertSentPersists(t *testing.T) {
	st, db := newTestStore(t)
	u := seedUser(t, db, "budi", "")
	b := models.Budget{UserID: u.ID, Amount: dec("1000")}
	require.NoError(t, db.Create(&b).Error)

	at := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.MarkAlertSent(b.ID, at))

	var got models.Budget
	require.NoError(t, db.First(&got, b.ID).Error)
	require.NotNil(t, got.LastAlertSent)
	assert.True(t, got.LastAlertSent.Equal(at))
}
