package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vendaro/vendaro/internal/subscription/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAdvanceBillingDate(t *testing.T) {
	cases := []struct {
		name     string
		from     time.Time
		interval domain.BillingInterval
		want     time.Time
	}{
		{"mid-month monthly", date(2025, time.March, 15), domain.IntervalMonthly, date(2025, time.April, 15)},
		{"jan 31 clamps to feb 28", date(2025, time.January, 31), domain.IntervalMonthly, date(2025, time.February, 28)},
		{"jan 31 leap year clamps to feb 29", date(2024, time.January, 31), domain.IntervalMonthly, date(2024, time.February, 29)},
		{"mar 31 clamps to apr 30", date(2025, time.March, 31), domain.IntervalMonthly, date(2025, time.April, 30)},
		{"dec rolls into next year", date(2025, time.December, 15), domain.IntervalMonthly, date(2026, time.January, 15)},
		{"quarterly jan 31 clamps to apr 30", date(2025, time.January, 31), domain.IntervalQuarterly, date(2025, time.April, 30)},
		{"quarterly nov crosses year", date(2025, time.November, 30), domain.IntervalQuarterly, date(2026, time.February, 28)},
		{"yearly keeps anchor day", date(2025, time.June, 1), domain.IntervalYearly, date(2026, time.June, 1)},
		{"yearly feb 29 clamps to feb 28", date(2024, time.February, 29), domain.IntervalYearly, date(2025, time.February, 28)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, advanceBillingDate(tc.from, tc.interval))
		})
	}
}

func TestAdvanceBillingDate_KeepsTimeOfDay(t *testing.T) {
	from := time.Date(2025, time.January, 31, 9, 30, 45, 0, time.UTC)
	got := advanceBillingDate(from, domain.IntervalMonthly)
	assert.Equal(t, time.Date(2025, time.February, 28, 9, 30, 45, 0, time.UTC), got)
}

func TestIntervalMonths(t *testing.T) {
	assert.Equal(t, 1, intervalMonths(domain.IntervalMonthly))
	assert.Equal(t, 3, intervalMonths(domain.IntervalQuarterly))
	assert.Equal(t, 12, intervalMonths(domain.IntervalYearly))
}
