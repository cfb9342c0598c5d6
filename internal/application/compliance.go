package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/timeclock/internal/holiday"
	"github.com/example/timeclock/internal/persistence"
	"github.com/example/timeclock/internal/worktime"
)

const popupLeadTime = 30 * time.Minute

// ComplianceMonitor evaluates the labor-law rules over an employee's
// recorded time and maintains the resulting notifications. Checks only
// judge days up to yesterday; today is still in motion.
type ComplianceMonitor struct {
	store       persistence.Store
	holidays    holiday.Calendar
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewComplianceMonitor constructs a monitor. now and idGenerator must
// be non-nil; logger may be nil.
func NewComplianceMonitor(store persistence.Store, holidays holiday.Calendar, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ComplianceMonitor {
	return &ComplianceMonitor{
		store:       store,
		holidays:    holidays,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// window returns the inclusive day range to judge: from the last
// settled login up to yesterday. ok is false when there is nothing to
// judge yet.
func (m *ComplianceMonitor) window(employee persistence.Employee) (from, to time.Time, ok bool) {
	to = worktime.AddDays(worktime.DayOf(m.now()), -1)
	from = worktime.DayOf(employee.LastLoginDay)
	return from, to, !from.After(to)
}

// CheckMissingDays flags weekdays in the window without stamps and
// without an absence: the day's target is deducted from the flex
// balance and a code 1 notification is recorded, atomically per day.
func (m *ComplianceMonitor) CheckMissingDays(ctx context.Context, employeeID string) error {
	logger := serviceLogger(ctx, m.logger, "compliance", "check_missing_days", "employee_id", employeeID)

	employee, err := m.store.Employees().GetEmployee(ctx, employeeID)
	if err != nil {
		return mapPersistenceError(err)
	}
	from, to, ok := m.window(employee)
	if !ok {
		return nil
	}

	for day := from; !day.After(to); day = worktime.AddDays(day, 1) {
		if !worktime.IsWeekday(day) {
			continue
		}
		stamps, err := m.store.Stamps().ListStamps(ctx, employeeID, persistence.StampFilter{Day: &day})
		if err != nil {
			return err
		}
		if len(stamps) > 0 {
			continue
		}
		if _, err := m.store.Absences().GetAbsenceOn(ctx, employeeID, day); err == nil {
			continue
		} else if !errors.Is(err, persistence.ErrNotFound) {
			return err
		}
		if _, err := m.store.Notifications().GetNotification(ctx, employeeID, CodeMissingDay, day); err == nil {
			continue
		} else if !errors.Is(err, persistence.ErrNotFound) {
			return err
		}

		day := day
		err = m.store.WithTransaction(ctx, func(tx persistence.Store) error {
			current, err := tx.Employees().GetEmployee(ctx, employeeID)
			if err != nil {
				return err
			}
			target, err := dailyTargetOn(ctx, tx, current, day, hardFallbackTarget)
			if err != nil {
				return err
			}
			current.FlexBalance = current.FlexBalance.Sub(worktime.Hours(target))
			current.UpdatedAt = m.now()
			if err := tx.Employees().UpdateEmployee(ctx, current); err != nil {
				return err
			}
			return recordNotification(ctx, tx, m.idGenerator, m.now(), employeeID, CodeMissingDay, day)
		})
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "missing day flagged", "day", day.Format("2006-01-02"))
	}
	return nil
}

// CheckOddStamps flags every day up to yesterday whose stamp count is
// odd.
func (m *ComplianceMonitor) CheckOddStamps(ctx context.Context, employeeID string) error {
	yesterday := worktime.AddDays(worktime.DayOf(m.now()), -1)
	days, err := m.store.Stamps().ListStampedDays(ctx, employeeID, time.Time{}, yesterday)
	if err != nil {
		return err
	}
	for _, day := range days {
		stamps, err := m.store.Stamps().ListStamps(ctx, employeeID, persistence.StampFilter{Day: &day})
		if err != nil {
			return err
		}
		if len(stamps)%2 == 0 {
			continue
		}
		if err := recordNotification(ctx, m.store, m.idGenerator, m.now(), employeeID, CodeOddStampCount, day); err != nil {
			return err
		}
	}
	return nil
}

// RunProtectionChecks evaluates the rest period, average working time,
// daily maximum, Sunday/holiday and minor protection rules.
func (m *ComplianceMonitor) RunProtectionChecks(ctx context.Context, employeeID string) error {
	employee, err := m.store.Employees().GetEmployee(ctx, employeeID)
	if err != nil {
		return mapPersistenceError(err)
	}
	if err := m.checkRestPeriods(ctx, employee); err != nil {
		return err
	}
	if err := m.checkAverageWorkingTime(ctx, employee); err != nil {
		return err
	}
	if err := m.checkDailyMax(ctx, employee); err != nil {
		return err
	}
	if err := m.checkSundayHoliday(ctx, employee); err != nil {
		return err
	}
	return m.checkMinorWeeks(ctx, employee)
}

// checkRestPeriods flags a day whose first stamp follows the previous
// day's last stamp by less than the statutory rest. Only consecutive
// stamped days are judged.
func (m *ComplianceMonitor) checkRestPeriods(ctx context.Context, employee persistence.Employee) error {
	yesterday := worktime.AddDays(worktime.DayOf(m.now()), -1)
	days, err := m.store.Stamps().ListStampedDays(ctx, employee.ID, time.Time{}, yesterday)
	if err != nil {
		return err
	}
	for i := 1; i < len(days); i++ {
		prev, cur := days[i-1], days[i]
		if !worktime.AddDays(prev, 1).Equal(cur) {
			continue
		}
		rest, ok, err := m.restBetween(ctx, employee.ID, prev, cur)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if rest < worktime.RestPeriod(worktime.MinorOn(employee.BirthDate, prev)) {
			if err := recordNotification(ctx, m.store, m.idGenerator, m.now(), employee.ID, CodeRestPeriod, cur); err != nil {
				return err
			}
		}
	}
	return nil
}

// restBetween measures last stamp of prev to first stamp of cur.
func (m *ComplianceMonitor) restBetween(ctx context.Context, employeeID string, prev, cur time.Time) (time.Duration, bool, error) {
	prevStamps, err := m.store.Stamps().ListStamps(ctx, employeeID, persistence.StampFilter{Day: &prev})
	if err != nil {
		return 0, false, err
	}
	curStamps, err := m.store.Stamps().ListStamps(ctx, employeeID, persistence.StampFilter{Day: &cur})
	if err != nil {
		return 0, false, err
	}
	if len(prevStamps) == 0 || len(curStamps) == 0 {
		return 0, false, nil
	}
	return curStamps[0].At.Sub(prevStamps[len(prevStamps)-1].At), true, nil
}

// checkAverageWorkingTime flags an average above 8h per stamped day
// over the trailing 24 weeks. Presence time counts breaks-deducted but
// unclipped.
func (m *ComplianceMonitor) checkAverageWorkingTime(ctx context.Context, employee persistence.Employee) error {
	today := worktime.DayOf(m.now())
	yesterday := worktime.AddDays(today, -1)
	from := worktime.AddDays(today, -24*7)
	stamps, err := m.store.Stamps().ListStamps(ctx, employee.ID, persistence.StampFilter{From: &from, To: &yesterday})
	if err != nil {
		return err
	}
	totals, _ := worktime.Accumulate(pairingStamps(stamps), employee.BirthDate, false)
	if len(totals) == 0 {
		return nil
	}
	var sum time.Duration
	for _, worked := range totals {
		sum += worked
	}
	if sum/time.Duration(len(totals)) > 8*time.Hour {
		return recordNotification(ctx, m.store, m.idGenerator, m.now(), employee.ID, CodeAverageExceeded, today)
	}
	return nil
}

// checkDailyMax flags days in the window whose presence time exceeds
// the statutory ceiling.
func (m *ComplianceMonitor) checkDailyMax(ctx context.Context, employee persistence.Employee) error {
	from, to, ok := m.window(employee)
	if !ok {
		return nil
	}
	stamps, err := m.store.Stamps().ListStamps(ctx, employee.ID, persistence.StampFilter{From: &from, To: &to})
	if err != nil {
		return err
	}
	totals, _ := worktime.Accumulate(pairingStamps(stamps), employee.BirthDate, false)
	for day, worked := range totals {
		if worked > worktime.DailyMax(worktime.MinorOn(employee.BirthDate, day)) {
			if err := recordNotification(ctx, m.store, m.idGenerator, m.now(), employee.ID, CodeDailyMaxExceeded, day); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkSundayHoliday flags stamped Sundays and statutory holidays in
// the window.
func (m *ComplianceMonitor) checkSundayHoliday(ctx context.Context, employee persistence.Employee) error {
	from, to, ok := m.window(employee)
	if !ok {
		return nil
	}
	days, err := m.store.Stamps().ListStampedDays(ctx, employee.ID, from, to)
	if err != nil {
		return err
	}
	for _, day := range days {
		if day.Weekday() != time.Sunday && !m.holidays.IsHoliday(day) {
			continue
		}
		if err := recordNotification(ctx, m.store, m.idGenerator, m.now(), employee.ID, CodeSundayHoliday, day); err != nil {
			return err
		}
	}
	return nil
}

// checkMinorWeeks evaluates the weekly protections for minors over
// every fully elapsed ISO week touching the window.
func (m *ComplianceMonitor) checkMinorWeeks(ctx context.Context, employee persistence.Employee) error {
	from, to, ok := m.window(employee)
	if !ok {
		return nil
	}
	days, err := m.store.Stamps().ListStampedDays(ctx, employee.ID, from, to)
	if err != nil {
		return err
	}
	weeks := make(map[time.Time]struct{})
	for _, day := range days {
		start := worktime.WeekStart(day)
		if worktime.AddDays(start, 6).After(to) {
			continue
		}
		if !worktime.MinorOn(employee.BirthDate, start) {
			continue
		}
		weeks[start] = struct{}{}
	}

	for start := range weeks {
		end := worktime.AddDays(start, 6)
		total, workdays, err := m.weekPresence(ctx, employee, start, end)
		if err != nil {
			return err
		}
		if total > worktime.MinorWeeklyLimit {
			if err := recordNotification(ctx, m.store, m.idGenerator, m.now(), employee.ID, CodeMinorWeeklyHours, start); err != nil {
				return err
			}
		}
		if workdays > 5 {
			if err := recordNotification(ctx, m.store, m.idGenerator, m.now(), employee.ID, CodeMinorWorkdays, start); err != nil {
				return err
			}
		}
	}
	return nil
}

// weekPresence sums presence time and counts distinct stamped days in
// the inclusive week range.
func (m *ComplianceMonitor) weekPresence(ctx context.Context, employee persistence.Employee, start, end time.Time) (time.Duration, int, error) {
	stamps, err := m.store.Stamps().ListStamps(ctx, employee.ID, persistence.StampFilter{From: &start, To: &end})
	if err != nil {
		return 0, 0, err
	}
	totals, _ := worktime.Accumulate(pairingStamps(stamps), employee.BirthDate, false)
	var total time.Duration
	for _, worked := range totals {
		total += worked
	}
	days, err := m.store.Stamps().ListStampedDays(ctx, employee.ID, start, end)
	if err != nil {
		return 0, 0, err
	}
	return total, len(days), nil
}

// ReviewResolved re-evaluates existing protection findings and deletes
// those whose condition no longer holds, e.g. after a stamp correction.
func (m *ComplianceMonitor) ReviewResolved(ctx context.Context, employeeID string) error {
	employee, err := m.store.Employees().GetEmployee(ctx, employeeID)
	if err != nil {
		return mapPersistenceError(err)
	}
	notifications, err := m.store.Notifications().ListNotificationsByCode(ctx, employeeID, []int{
		CodeRestPeriod, CodeAverageExceeded, CodeDailyMaxExceeded,
		CodeSundayHoliday, CodeMinorWeeklyHours, CodeMinorWorkdays,
	})
	if err != nil {
		return err
	}
	for _, notification := range notifications {
		resolved, err := m.isResolved(ctx, employee, notification)
		if err != nil {
			return err
		}
		if !resolved {
			continue
		}
		if err := m.store.Notifications().DeleteNotification(ctx, notification.ID); err != nil && !errors.Is(err, persistence.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (m *ComplianceMonitor) isResolved(ctx context.Context, employee persistence.Employee, notification persistence.Notification) (bool, error) {
	day := notification.Day
	switch notification.Code {
	case CodeRestPeriod:
		prev := worktime.AddDays(day, -1)
		rest, ok, err := m.restBetween(ctx, employee.ID, prev, day)
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
		return rest >= worktime.RestPeriod(worktime.MinorOn(employee.BirthDate, prev)), nil

	case CodeAverageExceeded:
		today := worktime.DayOf(m.now())
		yesterday := worktime.AddDays(today, -1)
		from := worktime.AddDays(today, -24*7)
		stamps, err := m.store.Stamps().ListStamps(ctx, employee.ID, persistence.StampFilter{From: &from, To: &yesterday})
		if err != nil {
			return false, err
		}
		totals, _ := worktime.Accumulate(pairingStamps(stamps), employee.BirthDate, false)
		if len(totals) == 0 {
			return true, nil
		}
		var sum time.Duration
		for _, worked := range totals {
			sum += worked
		}
		return sum/time.Duration(len(totals)) <= 8*time.Hour, nil

	case CodeDailyMaxExceeded:
		stamps, err := m.store.Stamps().ListStamps(ctx, employee.ID, persistence.StampFilter{Day: &day})
		if err != nil {
			return false, err
		}
		totals, _ := worktime.Accumulate(pairingStamps(stamps), employee.BirthDate, false)
		return totals[day] <= worktime.DailyMax(worktime.MinorOn(employee.BirthDate, day)), nil

	case CodeSundayHoliday:
		stamps, err := m.store.Stamps().ListStamps(ctx, employee.ID, persistence.StampFilter{Day: &day})
		if err != nil {
			return false, err
		}
		return len(stamps) == 0, nil

	case CodeMinorWeeklyHours:
		if !worktime.MinorOn(employee.BirthDate, day) {
			return true, nil
		}
		total, _, err := m.weekPresence(ctx, employee, day, worktime.AddDays(day, 6))
		if err != nil {
			return false, err
		}
		return total <= worktime.MinorWeeklyLimit, nil

	case CodeMinorWorkdays:
		if !worktime.MinorOn(employee.BirthDate, day) {
			return true, nil
		}
		_, workdays, err := m.weekPresence(ctx, employee, day, worktime.AddDays(day, 6))
		if err != nil {
			return false, err
		}
		return workdays <= 5, nil
	}
	return false, nil
}

// SchedulePopups arranges the end-of-window and max-hours warnings for
// a freshly clocked-in day. Warnings already in the past are skipped.
func (m *ComplianceMonitor) SchedulePopups(ctx context.Context, store persistence.Store, employee persistence.Employee, day time.Time) error {
	now := m.now()
	minor := worktime.MinorOn(employee.BirthDate, day)

	windowWarn := worktime.Combine(day, worktime.WindowEnd(minor)-popupLeadTime)
	if windowWarn.After(now) {
		if err := recordPopup(ctx, store, m.idGenerator, now, employee.ID, CodeWindowEndPopup, day, windowWarn); err != nil {
			return err
		}
	}

	stamps, err := store.Stamps().ListStamps(ctx, employee.ID, persistence.StampFilter{Day: &day})
	if err != nil {
		return err
	}
	if len(stamps)%2 == 0 || len(stamps) == 0 {
		return nil
	}
	// Presence already completed today, breaks included.
	totals := worktime.RawTotals(pairingStamps(stamps))
	remaining := worktime.MaxStamped(minor) - popupLeadTime - totals[day]
	maxWarn := stamps[len(stamps)-1].At.Add(remaining)
	if maxWarn.After(now) && worktime.DayOf(maxWarn).Equal(day) {
		if err := recordPopup(ctx, store, m.idGenerator, now, employee.ID, CodeMaxHoursPopup, day, maxWarn); err != nil {
			return err
		}
	}
	return nil
}

// mapPersistenceError lifts storage sentinels into application errors.
func mapPersistenceError(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return err
}
