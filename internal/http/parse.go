package http

import (
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

func parseDate(value string) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return day, nil
}

func parseClock(value string) (time.Duration, error) {
	parsed, err := time.ParseInLocation(clockLayout, value, time.UTC)
	if err != nil {
		return 0, errInvalidClock
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}
