package ledger

import (
	"time"

	"dompet/models"
)

// NextDate computes the next occurrence of a recurring transaction.
//
// DAILY adds one day, WEEKLY seven. MONTHLY adds one calendar month and
// clamps the day to the last day of the target month (Jan 31 -> Feb 28, or
// Feb 29 in a leap year). YEARLY adds one year with the same clamp, so
// Feb 29 -> Feb 28 when the target year is not a leap year. Unknown
// intervals return the input unchanged; callers validate first.
func NextDate(t time.Time, interval models.RecurringInterval) time.Time {
	switch interval {
	case models.IntervalDaily:
		return t.AddDate(0, 0, 1)
	case models.IntervalWeekly:
		return t.AddDate(0, 0, 7)
	case models.IntervalMonthly:
		return addMonthsClamped(t, 1)
	case models.IntervalYearly:
		return addYearsClamped(t, 1)
	}
	return t
}

// addMonthsClamped advances by whole months without the day-overflow rollover
// of time.AddDate (which would turn Jan 31 + 1 month into Mar 2/3).
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := lastDayOfMonth(firstOfTarget); d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func addYearsClamped(t time.Time, years int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y+years, m, 1, 0, 0, 0, 0, t.Location())
	if last := lastDayOfMonth(firstOfTarget); d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// lastDayOfMonth returns the number of days in t's month.
func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
