package service

import (
	"time"

	"github.com/vendaro/vendaro/internal/subscription/domain"
)

func intervalMonths(interval domain.BillingInterval) int {
	switch interval {
	case domain.IntervalQuarterly:
		return 3
	case domain.IntervalYearly:
		return 12
	default:
		return 1
	}
}

// advanceBillingDate moves t forward by exactly one billing interval.
// Calendar-aware with end-of-month clamping: Jan 31 + one month is
// Feb 28 (29 in leap years), never Mar 2. time.AddDate would normalize
// the overflow into the next month, which drifts the anchor day.
func advanceBillingDate(t time.Time, interval domain.BillingInterval) time.Time {
	return addMonthsClamped(t, intervalMonths(interval))
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	anchor := time.Date(year, month+time.Month(months), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())

	if last := daysIn(anchor.Year(), anchor.Month()); day > last {
		day = last
	}
	return time.Date(anchor.Year(), anchor.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month; day 0 of the
// following month normalizes to its last day.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
