package worktime

import "time"

// DayTotals maps a day (UTC midnight) to the worked duration on it.
type DayTotals map[time.Time]time.Duration

// Accumulate pairs the given stamps and sums worked time per day.
// Break deduction is always applied; window clipping only when clip is
// set (settlement clips, presence-time rules do not). Minor status is
// evaluated per day against birthDate. The second return value lists
// the stamps consumed by a pair, in order.
func Accumulate(stamps []Stamp, birthDate time.Time, clip bool) (DayTotals, []Stamp) {
	totals := make(DayTotals)
	var consumed []Stamp
	it := Pairs(stamps)
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		minor := MinorOn(birthDate, p.Interval.Day)
		iv := p.Interval
		iv.ApplyBreaks(minor)
		if clip {
			iv.ClipToWindow(minor)
		}
		totals[iv.Day] += iv.Worked
		consumed = append(consumed, p.In, p.Out)
	}
	return totals, consumed
}

// RawTotals sums the undeducted span of every pair per day. Used for
// stamped-presence limits where breaks count as presence.
func RawTotals(stamps []Stamp) DayTotals {
	totals := make(DayTotals)
	it := Pairs(stamps)
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		totals[p.Interval.Day] += p.Interval.Worked
	}
	return totals
}
