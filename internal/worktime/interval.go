package worktime

import "time"

// Legal working window bounds as offsets into the day.
const (
	WindowStart      = 6 * time.Hour
	WindowEndAdult   = 22 * time.Hour
	WindowEndMinor   = 20 * time.Hour
	endOfDay         = 24 * time.Hour
	restPeriodAdult  = 11 * time.Hour
	restPeriodMinor  = 12 * time.Hour
	DailyMaxAdult    = 10 * time.Hour
	DailyMaxMinor    = 8 * time.Hour
	MaxStampedAdult  = 10*time.Hour + 45*time.Minute
	MaxStampedMinor  = 9 * time.Hour
	MinorWeeklyLimit = 40 * time.Hour
)

// WindowEnd returns the legal end of the working window.
func WindowEnd(minor bool) time.Duration {
	if minor {
		return WindowEndMinor
	}
	return WindowEndAdult
}

// RestPeriod returns the statutory rest between two working days.
func RestPeriod(minor bool) time.Duration {
	if minor {
		return restPeriodMinor
	}
	return restPeriodAdult
}

// DailyMax returns the statutory daily working-time ceiling.
func DailyMax(minor bool) time.Duration {
	if minor {
		return DailyMaxMinor
	}
	return DailyMaxAdult
}

// MaxStamped returns the raw stamped-presence ceiling used for the
// end-of-day warning, break time included.
func MaxStamped(minor bool) time.Duration {
	if minor {
		return MaxStampedMinor
	}
	return MaxStampedAdult
}

// Stamp is a single clock event. Day is the UTC midnight of the
// calendar day the stamp belongs to; At is the full instant on that
// day. Settled marks stamps already consumed by a settlement run.
type Stamp struct {
	ID      string
	Day     time.Time
	At      time.Time
	Settled bool
}

// Interval is the span between a clock-in and the following clock-out.
// Worked starts as the raw span and shrinks as deductions are applied;
// it never goes below zero.
type Interval struct {
	Day    time.Time
	Start  time.Time
	End    time.Time
	Worked time.Duration
}

// NewInterval forms an interval from a clock-in and clock-out stamp.
// Stamps on different days form no interval. A clock-out that is not
// after its clock-in yields a zero-duration interval.
func NewInterval(in, out Stamp) (Interval, bool) {
	if !in.Day.Equal(out.Day) {
		return Interval{}, false
	}
	iv := Interval{Day: in.Day, Start: in.At, End: out.At}
	if out.At.After(in.At) {
		iv.Worked = out.At.Sub(in.At)
	} else {
		iv.End = in.At
	}
	return iv, true
}

// ApplyBreaks deducts the statutory break once, thresholds judged
// against the pre-deduction duration.
func (iv *Interval) ApplyBreaks(minor bool) {
	d := iv.Worked
	switch {
	case minor && d >= 6*time.Hour:
		d -= time.Hour
	case minor && d >= 4*time.Hour+30*time.Minute:
		d -= 30 * time.Minute
	case !minor && d >= 9*time.Hour:
		d -= 45 * time.Minute
	case !minor && d >= 6*time.Hour:
		d -= 30 * time.Minute
	}
	if d < 0 {
		d = 0
	}
	iv.Worked = d
}

// ClipToWindow subtracts the portion of the interval lying outside the
// legal working window [WindowStart, WindowEnd).
func (iv *Interval) ClipToWindow(minor bool) {
	start := ClockOf(iv.Start)
	end := ClockOf(iv.End)
	outside := overlap(start, end, 0, WindowStart) + overlap(start, end, WindowEnd(minor), endOfDay)
	d := iv.Worked - outside
	if d < 0 {
		d = 0
	}
	iv.Worked = d
}

func overlap(aStart, aEnd, bStart, bEnd time.Duration) time.Duration {
	low := aStart
	if bStart > low {
		low = bStart
	}
	high := aEnd
	if bEnd < high {
		high = bEnd
	}
	if high <= low {
		return 0
	}
	return high - low
}
