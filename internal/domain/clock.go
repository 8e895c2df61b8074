package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the default time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock in UTC.
func Now() time.Time {
	return clock.Now().UTC()
}

// AsOfOrNow returns asOf, or the package clock's time when asOf is zero.
func AsOfOrNow(asOf time.Time) time.Time {
	if asOf.IsZero() {
		return Now()
	}
	return asOf.UTC()
}

// StartOfDay truncates t to UTC midnight.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayWindow returns the half-open range covering the lookbackDays calendar
// days that end with asOf's day: [midnight of the first day, next midnight).
func DayWindow(asOf time.Time, lookbackDays int) (from, to time.Time) {
	today := StartOfDay(asOf)
	return today.AddDate(0, 0, -(lookbackDays - 1)), today.AddDate(0, 0, 1)
}
