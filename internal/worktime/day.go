// Package worktime implements the pure working-time arithmetic: pairing
// clock stamps into intervals, statutory break deduction, legal window
// clipping, day accumulation and quota derivation. The package performs
// no I/O; all days are UTC midnights and all instants are UTC.
package worktime

import "time"

// DayOf truncates an instant to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Combine places a clock offset (duration since midnight) on a day.
func Combine(day time.Time, clock time.Duration) time.Time {
	return DayOf(day).Add(clock)
}

// ClockOf returns the offset of an instant into its day.
func ClockOf(t time.Time) time.Duration {
	return t.Sub(DayOf(t))
}

// AddDays shifts a day by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return DayOf(day).AddDate(0, 0, n)
}

// WeekStart returns the Monday of the ISO week containing day.
func WeekStart(day time.Time) time.Time {
	day = DayOf(day)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// IsWeekday reports whether day falls on Monday through Friday.
func IsWeekday(day time.Time) bool {
	wd := day.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
