package testfixtures

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/timeclock/internal/persistence"
)

// EmployeeOption mutates an employee fixture.
type EmployeeOption func(*persistence.Employee)

// NewEmployeeFixture builds an adult employee with a 40h contract and
// default thresholds, anchored at ReferenceTime.
func NewEmployeeFixture(opts ...EmployeeOption) persistence.Employee {
	now := ReferenceTime()
	employee := persistence.Employee{
		ID:             "employee-1",
		Name:           "alice",
		PasswordHash:   "hash",
		BirthDate:      time.Date(1990, time.May, 10, 0, 0, 0, 0, time.UTC),
		WeeklyHours:    40,
		FlexBalance:    decimal.Zero,
		GreenThreshold: decimal.NewFromInt(5),
		RedThreshold:   decimal.NewFromInt(-10),
		LastLoginDay:   time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, opt := range opts {
		opt(&employee)
	}
	return employee
}

// WithEmployeeID overrides the fixture ID.
func WithEmployeeID(id string) EmployeeOption {
	return func(e *persistence.Employee) { e.ID = id }
}

// WithEmployeeName overrides the unique name.
func WithEmployeeName(name string) EmployeeOption {
	return func(e *persistence.Employee) { e.Name = name }
}

// WithBirthDate overrides the birth date.
func WithBirthDate(birthDate time.Time) EmployeeOption {
	return func(e *persistence.Employee) { e.BirthDate = birthDate }
}

// WithWeeklyHours overrides the contracted weekly hours.
func WithWeeklyHours(hours int) EmployeeOption {
	return func(e *persistence.Employee) { e.WeeklyHours = hours }
}

// WithFlexBalance overrides the flex balance.
func WithFlexBalance(balance decimal.Decimal) EmployeeOption {
	return func(e *persistence.Employee) { e.FlexBalance = balance }
}

// WithThresholds overrides the traffic-light thresholds.
func WithThresholds(green, red decimal.Decimal) EmployeeOption {
	return func(e *persistence.Employee) {
		e.GreenThreshold = green
		e.RedThreshold = red
	}
}

// WithSupervisor sets the supervisor reference.
func WithSupervisor(id string) EmployeeOption {
	return func(e *persistence.Employee) { e.SupervisorID = &id }
}

// WithLastLoginDay overrides the compliance window lower bound.
func WithLastLoginDay(day time.Time) EmployeeOption {
	return func(e *persistence.Employee) { e.LastLoginDay = day }
}

// WithPasswordHash overrides the stored credential.
func WithPasswordHash(hash string) EmployeeOption {
	return func(e *persistence.Employee) { e.PasswordHash = hash }
}

// NewStampFixture builds a stamp for the employee at the given clock
// time on day.
func NewStampFixture(id, employeeID string, day time.Time, clock time.Duration) persistence.TimeStamp {
	return persistence.TimeStamp{
		ID:         id,
		EmployeeID: employeeID,
		Day:        day,
		At:         day.Add(clock),
		CreatedAt:  ReferenceTime(),
	}
}

// NewAbsenceFixture builds an approved vacation absence.
func NewAbsenceFixture(id, employeeID string, day time.Time) persistence.Absence {
	return persistence.Absence{
		ID:         id,
		EmployeeID: employeeID,
		Day:        day,
		Type:       persistence.AbsenceVacation,
		Approved:   true,
		CreatedAt:  ReferenceTime(),
	}
}

// NewNotificationFixture builds a notification with the given key.
func NewNotificationFixture(id, employeeID string, code int, day time.Time) persistence.Notification {
	return persistence.Notification{
		ID:         id,
		EmployeeID: employeeID,
		Code:       code,
		Day:        day,
		Message:    "fixture",
		CreatedAt:  ReferenceTime(),
	}
}
