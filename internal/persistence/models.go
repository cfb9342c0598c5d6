package persistence

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee represents a tracked employee account. FlexBalance and the
// traffic-light thresholds are signed decimal hours. LastLoginDay is
// the lower bound of the next compliance window.
type Employee struct {
	ID             string
	Name           string
	PasswordHash   string
	BirthDate      time.Time
	WeeklyHours    int
	FlexBalance    decimal.Decimal
	GreenThreshold decimal.Decimal
	RedThreshold   decimal.Decimal
	SupervisorID   *string
	LastLoginDay   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WeeklyHoursEntry records a contracted weekly-hours value effective
// from a given day. At most one entry per employee and day.
type WeeklyHoursEntry struct {
	ID            string
	EmployeeID    string
	WeeklyHours   int
	EffectiveFrom time.Time
	CreatedAt     time.Time
}

// TimeStamp is a single clock event. Day is the UTC midnight of the
// calendar day; At the full instant on it. Settled stamps have been
// consumed by a settlement run.
type TimeStamp struct {
	ID         string
	EmployeeID string
	Day        time.Time
	At         time.Time
	Settled    bool
	CreatedAt  time.Time
}

// AbsenceType classifies a registered absence.
type AbsenceType string

const (
	AbsenceVacation AbsenceType = "vacation"
	AbsenceSick     AbsenceType = "sick"
	AbsenceTraining AbsenceType = "training"
	AbsenceOther    AbsenceType = "other"
)

// Absence marks a whole day as excused. At most one per employee and
// day.
type Absence struct {
	ID         string
	EmployeeID string
	Day        time.Time
	Type       AbsenceType
	Approved   bool
	CreatedAt  time.Time
}

// Notification is a recorded compliance finding or a scheduled popup
// warning. Unique per (employee, code, day). ShowAt is set for popups
// only.
type Notification struct {
	ID         string
	EmployeeID string
	Code       int
	Day        time.Time
	Message    string
	Popup      bool
	ShowAt     *time.Time
	CreatedAt  time.Time
}

// Session represents an authentication session persisted for an
// employee.
type Session struct {
	Token      string
	EmployeeID string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
