package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/timeclock/internal/persistence"
)

// Notification codes recorded by the compliance monitor. Codes 9 and 10
// are transient popup warnings; the rest are persistent findings.
const (
	CodeMissingDay       = 1
	CodeOddStampCount    = 2
	CodeRestPeriod       = 3
	CodeAverageExceeded  = 4
	CodeDailyMaxExceeded = 5
	CodeSundayHoliday    = 6
	CodeMinorWeeklyHours = 7
	CodeMinorWorkdays    = 8
	CodeWindowEndPopup   = 9
	CodeMaxHoursPopup    = 10
)

// notificationMessage renders the user-facing text for a code and the
// day the finding refers to.
func notificationMessage(code int, day time.Time) string {
	date := day.Format("2006-01-02")
	switch code {
	case CodeMissingDay:
		return fmt.Sprintf("No working time was recorded on %s; the daily target was deducted from your flex balance.", date)
	case CodeOddStampCount:
		return fmt.Sprintf("The clock records on %s are incomplete (odd number of stamps).", date)
	case CodeRestPeriod:
		return fmt.Sprintf("The statutory rest period before %s was not observed.", date)
	case CodeAverageExceeded:
		return "Your average working time over the last 24 weeks exceeds 8 hours per day."
	case CodeDailyMaxExceeded:
		return fmt.Sprintf("The maximum daily working time was exceeded on %s.", date)
	case CodeSundayHoliday:
		return fmt.Sprintf("Working time was recorded on the Sunday or public holiday %s.", date)
	case CodeMinorWeeklyHours:
		return fmt.Sprintf("The weekly working time limit of 40 hours for minors was exceeded in the week of %s.", date)
	case CodeMinorWorkdays:
		return fmt.Sprintf("More than 5 working days for a minor were recorded in the week of %s.", date)
	case CodeWindowEndPopup:
		return "The legal working window ends in 30 minutes."
	case CodeMaxHoursPopup:
		return "You will reach your maximum daily working time in 30 minutes."
	default:
		return fmt.Sprintf("Notification %d for %s.", code, date)
	}
}

// recordNotification inserts a finding unless one with the same
// (employee, code, day) key already exists. Duplicates are a no-op.
func recordNotification(ctx context.Context, store persistence.Store, idGenerator func() string, now time.Time, employeeID string, code int, day time.Time) error {
	notification := persistence.Notification{
		ID:         idGenerator(),
		EmployeeID: employeeID,
		Code:       code,
		Day:        day,
		Message:    notificationMessage(code, day),
		CreatedAt:  now,
	}
	err := store.Notifications().CreateNotification(ctx, notification)
	if errors.Is(err, persistence.ErrDuplicate) {
		return nil
	}
	return err
}

// recordPopup inserts a popup warning shown at showAt. Duplicates are a
// no-op.
func recordPopup(ctx context.Context, store persistence.Store, idGenerator func() string, now time.Time, employeeID string, code int, day time.Time, showAt time.Time) error {
	notification := persistence.Notification{
		ID:         idGenerator(),
		EmployeeID: employeeID,
		Code:       code,
		Day:        day,
		Message:    notificationMessage(code, day),
		Popup:      true,
		ShowAt:     &showAt,
		CreatedAt:  now,
	}
	err := store.Notifications().CreateNotification(ctx, notification)
	if errors.Is(err, persistence.ErrDuplicate) {
		return nil
	}
	return err
}
