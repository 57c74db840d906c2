package billing

import "time"

// ExtensionDebounceWindow is how long after a subscription extension a
// further payment_succeeded delivery is treated as a retry of the same
// billing cycle and must not extend again.
const ExtensionDebounceWindow = 5 * time.Minute

// AddCalendarMonths advances t by whole calendar months, clamping the
// day to the last day of the target month instead of letting the date
// normalize over. Jan 31 + 1 month is Feb 28 (29 in leap years), not
// Mar 2/3.
func AddCalendarMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	targetMonth := time.Month(int(month) + months)
	firstOfTarget := time.Date(year, targetMonth, 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month. Day 0 of the
// following month normalizes back to its last day.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextPeriodEnd computes the period end after a successful renewal:
// one calendar month on top of the current period end, or on top of now
// when the current end already lies in the past or is unset. The result
// is always strictly after both inputs, so the stored period end never
// moves backwards.
func NextPeriodEnd(current *time.Time, now time.Time) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return AddCalendarMonths(base, 1)
}
