package worktime

import "time"

// AgeOn returns the completed age in years on the given day.
func AgeOn(birthDate, day time.Time) int {
	birthDate = DayOf(birthDate)
	day = DayOf(day)
	years := day.Year() - birthDate.Year()
	anniversary := time.Date(day.Year(), birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(anniversary) {
		years--
	}
	return years
}

// MinorOn reports whether the employee is under 18 on the given day.
func MinorOn(birthDate, day time.Time) bool {
	return AgeOn(birthDate, day) < 18
}
