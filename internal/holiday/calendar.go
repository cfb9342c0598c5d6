// Package holiday provides statutory holiday lookups for compliance
// checks.
package holiday

import (
	"sync"
	"time"
)

// Calendar answers whether a day is a statutory holiday.
type Calendar interface {
	IsHoliday(day time.Time) bool
}

// Germany implements the nationwide German statutory holidays. Movable
// feasts are derived from the Easter date; years are cached.
type Germany struct {
	mu    sync.Mutex
	years map[int]map[time.Time]struct{}
}

// NewGermany constructs an empty, lazily populated calendar.
func NewGermany() *Germany {
	return &Germany{years: make(map[int]map[time.Time]struct{})}
}

// IsHoliday reports whether day (UTC midnight) is a nationwide holiday.
func (g *Germany) IsHoliday(day time.Time) bool {
	y, m, d := day.UTC().Date()
	day = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	g.mu.Lock()
	set, ok := g.years[y]
	if !ok {
		set = holidaysOf(y)
		g.years[y] = set
	}
	g.mu.Unlock()

	_, ok = set[day]
	return ok
}

func holidaysOf(year int) map[time.Time]struct{} {
	easter := easterSunday(year)
	days := []time.Time{
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		easter.AddDate(0, 0, -2), // Good Friday
		easter.AddDate(0, 0, 1),  // Easter Monday
		time.Date(year, time.May, 1, 0, 0, 0, 0, time.UTC),
		easter.AddDate(0, 0, 39), // Ascension
		easter.AddDate(0, 0, 50), // Whit Monday
		time.Date(year, time.October, 3, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 26, 0, 0, 0, 0, time.UTC),
	}
	set := make(map[time.Time]struct{}, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	return set
}

// easterSunday computes the Gregorian Easter date using Gauss's
// algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
