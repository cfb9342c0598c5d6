package worktime

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyTarget derives the daily target time from contracted weekly
// hours, assuming a five-day week. A non-positive weekly value resolves
// to the fallback.
func DailyTarget(weeklyHours int, fallback time.Duration) time.Duration {
	if weeklyHours <= 0 {
		return fallback
	}
	return time.Duration(weeklyHours) * time.Hour / 5
}

// Hours converts a duration to decimal hours for ledger arithmetic.
func Hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Second)).Div(decimal.NewFromInt(3600))
}
