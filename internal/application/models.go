package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/timeclock/internal/persistence"
)

// RegisterParams captures the data required to register an employee.
type RegisterParams struct {
	Name           string
	Password       string
	PasswordRepeat string
	BirthDate      time.Time
	WeeklyHours    int
	GreenThreshold decimal.Decimal
	RedThreshold   decimal.Decimal
	SupervisorName string
}

// AuthenticateResult captures the outcome of a successful login.
type AuthenticateResult struct {
	Employee persistence.Employee
	Session  persistence.Session
}

// TrafficLight classifies a flex balance against the employee's
// thresholds.
type TrafficLight string

const (
	TrafficGreen  TrafficLight = "green"
	TrafficYellow TrafficLight = "yellow"
	TrafficRed    TrafficLight = "red"
)

// Profile is an employee's own account view.
type Profile struct {
	Employee     persistence.Employee
	TrafficLight TrafficLight
}

// SubordinateOverview is the supervisor's view of one subordinate.
type SubordinateOverview struct {
	ID           string
	Name         string
	FlexBalance  decimal.Decimal
	TrafficLight TrafficLight
}

// FlexAverage is the result of averaging flex deltas over a day range.
type FlexAverage struct {
	From    time.Time
	To      time.Time
	Days    int
	Total   decimal.Decimal
	Average decimal.Decimal
}

// Rollups carries flex totals for the running month, quarter and year.
type Rollups struct {
	Month   decimal.Decimal
	Quarter decimal.Decimal
	Year    decimal.Decimal
}

// StampView is a stamp annotated with its legal-window position.
type StampView struct {
	Stamp         persistence.TimeStamp
	OutsideWindow bool
}

// DayOverview summarizes one calendar day of an employee.
type DayOverview struct {
	Day    time.Time
	Stamps []StampView
	Worked time.Duration
	Target time.Duration
	Delta  decimal.Decimal
}
