// Package alert implements the periodic budget alert check.
//
// The evaluator is safe to run on an at-least-once schedule: an alert is
// dispatched at most once per calendar month per budget, gated by the
// budget's LastAlertSent month. The gate re-arms automatically when the
// month rolls over; no reset write is needed.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"dompet/models"
)

// Entry is a budget joined with its owner and the owner's default account.
// Budgets whose user has no default account are not listed.
type Entry struct {
	Budget      models.Budget
	UserName    string
	Email       string
	AccountName string
}

// Store is the data access the evaluator needs.
type Store interface {
	// ListBudgetEntries returns every budget whose user has a default account.
	ListBudgetEntries() ([]Entry, error)
	// SumMonthlyExpenses sums the user's EXPENSE amounts with from <= date <= to.
	SumMonthlyExpenses(userID uint, from, to time.Time) (decimal.Decimal, error)
	// MarkAlertSent persists the dispatch timestamp.
	MarkAlertSent(budgetID uint, at time.Time) error
}

// Mailer dispatches a single alert email.
type Mailer interface {
	Send(to, subject, body string) error
}

// DefaultThreshold is the percentage of the budget at which an alert fires.
var DefaultThreshold = decimal.NewFromInt(80)

// Evaluator runs the budget alert check over all budgets.
type Evaluator struct {
	store     Store
	mailer    Mailer
	threshold decimal.Decimal
	now       func() time.Time
}

// NewEvaluator builds an evaluator with the default 80% threshold.
// now may be nil and defaults to time.Now.
func NewEvaluator(store Store, mailer Mailer, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{store: store, mailer: mailer, threshold: DefaultThreshold, now: now}
}

// Run checks every budget once and returns how many alerts were dispatched.
// A failure on one budget (sum query or mail dispatch) is logged and does not
// stop the others; mail failures leave LastAlertSent untouched so the alert
// is retried on the next scheduled run within the same month.
func (e *Evaluator) Run(ctx context.Context) (int, error) {
	entries, err := e.store.ListBudgetEntries()
	if err != nil {
		return 0, fmt.Errorf("list budgets: %w", err)
	}

	now := e.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	sent := 0

	for _, entry := range entries {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		budget := entry.Budget
		total, err := e.store.SumMonthlyExpenses(budget.UserID, monthStart, now)
		if err != nil {
			slog.ErrorContext(ctx, "budget expense sum failed",
				"budget_id", budget.ID, "user_id", budget.UserID, "error", err)
			continue
		}

		pct := percentageUsed(total, budget.Amount)
		if pct.LessThan(e.threshold) || !needsNewAlert(budget.LastAlertSent, now) {
			continue
		}

		body := alertBody(entry.UserName, entry.AccountName, pct, budget.Amount, total)
		subject := fmt.Sprintf("Budget Alert for %s", entry.AccountName)
		if err := e.mailer.Send(entry.Email, subject, body); err != nil {
			slog.ErrorContext(ctx, "budget alert mail failed",
				"budget_id", budget.ID, "to", entry.Email, "error", err)
			continue
		}
		if err := e.store.MarkAlertSent(budget.ID, now); err != nil {
			slog.ErrorContext(ctx, "recording alert timestamp failed",
				"budget_id", budget.ID, "error", err)
			continue
		}
		sent++
		slog.InfoContext(ctx, "budget alert sent",
			"budget_id", budget.ID, "account", entry.AccountName,
			"percentage_used", pct.StringFixed(1))
	}
	return sent, nil
}

// percentageUsed returns total/amount*100. A zero or negative budget amount
// yields 0 so a misconfigured budget can never fire an alert.
func percentageUsed(total, amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	return total.Mul(decimal.NewFromInt(100)).Div(amount)
}

// needsNewAlert reports whether no alert has been sent in now's calendar month.
func needsNewAlert(last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	return last.Year() != now.Year() || last.Month() != now.Month()
}

func alertBody(userName, accountName string, pct, amount, total decimal.Decimal) string {
	return fmt.Sprintf(
		"Hi %s,\n\n"+
			"You have used %s%% of the monthly budget on account %q.\n\n"+
			"Budget:\t%s\nSpent:\t%s\nLeft:\t%s\n\n"+
			"This notice is sent at most once per month.\n",
		userName, pct.StringFixed(1), accountName,
		amount.StringFixed(2), total.StringFixed(2), amount.Sub(total).StringFixed(2))
}
