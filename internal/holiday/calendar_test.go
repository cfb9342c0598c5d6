package holiday

import (
	"testing"
	"time"
)

func utcDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEasterSunday(t *testing.T) {
	t.Parallel()

	cases := []struct {
		year int
		want time.Time
	}{
		{2024, utcDay(2024, time.March, 31)},
		{2025, utcDay(2025, time.April, 20)},
		{2026, utcDay(2026, time.April, 5)},
	}
	for _, tc := range cases {
		if got := easterSunday(tc.year); !got.Equal(tc.want) {
			t.Fatalf("easter %d = %v, want %v", tc.year, got, tc.want)
		}
	}
}

func TestGermanyIsHoliday(t *testing.T) {
	t.Parallel()

	cal := NewGermany()

	holidays := []time.Time{
		utcDay(2025, time.January, 1),
		utcDay(2025, time.April, 18),  // Good Friday
		utcDay(2025, time.April, 21),  // Easter Monday
		utcDay(2025, time.May, 1),
		utcDay(2025, time.May, 29),    // Ascension
		utcDay(2025, time.June, 9),    // Whit Monday
		utcDay(2025, time.October, 3),
		utcDay(2025, time.December, 25),
		utcDay(2025, time.December, 26),
	}
	for _, d := range holidays {
		if !cal.IsHoliday(d) {
			t.Fatalf("%v should be a holiday", d)
		}
	}

	workdays := []time.Time{
		utcDay(2025, time.March, 3),
		utcDay(2025, time.December, 24),
		utcDay(2025, time.October, 4),
	}
	for _, d := range workdays {
		if cal.IsHoliday(d) {
			t.Fatalf("%v should not be a holiday", d)
		}
	}
}
