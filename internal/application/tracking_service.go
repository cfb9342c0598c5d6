package application

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/timeclock/internal/persistence"
	"github.com/example/timeclock/internal/worktime"
)

// TimeTrackingService records clock events, settles completed days into
// the flex balance and exposes the derived reporting views.
type TimeTrackingService struct {
	store       persistence.Store
	compliance  *ComplianceMonitor
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTimeTrackingService constructs the service. idGenerator and now
// must be non-nil; logger may be nil.
func NewTimeTrackingService(store persistence.Store, compliance *ComplianceMonitor, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TimeTrackingService {
	return &TimeTrackingService{
		store:       store,
		compliance:  compliance,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// ClockStamp records a clock event at the current instant. A clock-in
// schedules the warning popups for the day, a clock-out clears them.
// A day covered by an absence rejects the stamp.
func (s *TimeTrackingService) ClockStamp(ctx context.Context, employeeID string) (persistence.TimeStamp, error) {
	logger := serviceLogger(ctx, s.logger, "tracking", "clock_stamp", "employee_id", employeeID)

	employee, err := s.store.Employees().GetEmployee(ctx, employeeID)
	if err != nil {
		return persistence.TimeStamp{}, mapPersistenceError(err)
	}

	now := s.now()
	day := worktime.DayOf(now)
	if _, err := s.store.Absences().GetAbsenceOn(ctx, employeeID, day); err == nil {
		return persistence.TimeStamp{}, ErrConflict
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return persistence.TimeStamp{}, err
	}
	stamp := persistence.TimeStamp{
		ID:         s.idGenerator(),
		EmployeeID: employeeID,
		Day:        day,
		At:         now,
		CreatedAt:  now,
	}
	if err := s.store.Stamps().CreateStamp(ctx, stamp); err != nil {
		return persistence.TimeStamp{}, mapPersistenceError(err)
	}

	stamps, err := s.store.Stamps().ListStamps(ctx, employeeID, persistence.StampFilter{Day: &day})
	if err != nil {
		return persistence.TimeStamp{}, err
	}
	if len(stamps)%2 == 1 {
		if err := s.compliance.SchedulePopups(ctx, s.store, employee, day); err != nil {
			return persistence.TimeStamp{}, err
		}
	} else {
		if err := s.store.Notifications().DeletePopupsOn(ctx, employeeID, day); err != nil {
			return persistence.TimeStamp{}, err
		}
	}

	logger.InfoContext(ctx, "stamp recorded", "stamp_id", stamp.ID, "day", day.Format("2006-01-02"))
	return stamp, nil
}

// Settle credits every still-unsettled completed pair against the flex
// balance, in one transaction. Days already compensated by a missing-day
// deduction, and days settled before, are credited their worked time
// without deducting the target again. Settling twice is a no-op.
func (s *TimeTrackingService) Settle(ctx context.Context, employeeID string) error {
	logger := serviceLogger(ctx, s.logger, "tracking", "settle", "employee_id", employeeID)

	return s.store.WithTransaction(ctx, func(tx persistence.Store) error {
		employee, err := tx.Employees().GetEmployee(ctx, employeeID)
		if err != nil {
			return mapPersistenceError(err)
		}
		unsettled, err := tx.Stamps().ListStamps(ctx, employeeID, persistence.StampFilter{Unsettled: true})
		if err != nil {
			return err
		}
		totals, consumed := worktime.Accumulate(pairingStamps(unsettled), employee.BirthDate, true)
		if len(consumed) == 0 {
			return nil
		}

		days := make([]time.Time, 0, len(totals))
		for day := range totals {
			days = append(days, day)
		}
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

		balance := employee.FlexBalance
		for _, day := range days {
			delta, err := s.settlementDelta(ctx, tx, employee, day, totals[day])
			if err != nil {
				return err
			}
			balance = balance.Add(worktime.Hours(delta))
		}

		byID := make(map[string]persistence.TimeStamp, len(unsettled))
		for _, stamp := range unsettled {
			byID[stamp.ID] = stamp
		}
		for _, used := range consumed {
			stamp := byID[used.ID]
			stamp.Settled = true
			if err := tx.Stamps().UpdateStamp(ctx, stamp); err != nil {
				return err
			}
		}

		employee.FlexBalance = balance
		employee.UpdatedAt = s.now()
		if err := tx.Employees().UpdateEmployee(ctx, employee); err != nil {
			return err
		}
		logger.InfoContext(ctx, "days settled", "days", len(days), "balance", balance.String())
		return nil
	})
}

// settlementDelta decides what a day's worked time is worth. A day that
// was already charged as missing, or that carries earlier settled
// stamps, is credited the worked time alone; a fresh day is measured
// against its target.
func (s *TimeTrackingService) settlementDelta(ctx context.Context, tx persistence.Store, employee persistence.Employee, day time.Time, worked time.Duration) (time.Duration, error) {
	_, err := tx.Notifications().GetNotification(ctx, employee.ID, CodeMissingDay, day)
	if err == nil {
		return worked, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return 0, err
	}

	dayStamps, err := tx.Stamps().ListStamps(ctx, employee.ID, persistence.StampFilter{Day: &day})
	if err != nil {
		return 0, err
	}
	for _, stamp := range dayStamps {
		if stamp.Settled {
			return worked, nil
		}
	}

	target, err := dailyTargetOn(ctx, tx, employee, day, 0)
	if err != nil {
		return 0, err
	}
	return worked - target, nil
}

// RevertDay undoes a day's effect on the flex balance so the day can be
// corrected and settled again. Stamps stay in place but become
// unsettled, and the day's bookkeeping notifications are cleared.
func (s *TimeTrackingService) RevertDay(ctx context.Context, employeeID string, day time.Time) error {
	day = worktime.DayOf(day)
	logger := serviceLogger(ctx, s.logger, "tracking", "revert_day", "employee_id", employeeID, "day", day.Format("2006-01-02"))

	return s.store.WithTransaction(ctx, func(tx persistence.Store) error {
		employee, err := tx.Employees().GetEmployee(ctx, employeeID)
		if err != nil {
			return mapPersistenceError(err)
		}
		dayStamps, err := tx.Stamps().ListStamps(ctx, employeeID, persistence.StampFilter{Day: &day})
		if err != nil {
			return err
		}

		settled := false
		for _, stamp := range dayStamps {
			if stamp.Settled {
				settled = true
				break
			}
		}
		_, err = tx.Notifications().GetNotification(ctx, employeeID, CodeMissingDay, day)
		missing := err == nil
		if err != nil && !errors.Is(err, persistence.ErrNotFound) {
			return err
		}

		balance := employee.FlexBalance
		switch {
		case settled && !missing:
			settledStamps := make([]persistence.TimeStamp, 0, len(dayStamps))
			for _, stamp := range dayStamps {
				if stamp.Settled {
					settledStamps = append(settledStamps, stamp)
				}
			}
			totals, _ := worktime.Accumulate(pairingStamps(settledStamps), employee.BirthDate, true)
			target, err := dailyTargetOn(ctx, tx, employee, day, 0)
			if err != nil {
				return err
			}
			balance = balance.Sub(worktime.Hours(totals[day] - target))
		case missing:
			target, err := dailyTargetOn(ctx, tx, employee, day, hardFallbackTarget)
			if err != nil {
				return err
			}
			balance = balance.Add(worktime.Hours(target))
			if err := tx.Notifications().DeleteNotificationByKey(ctx, employeeID, CodeMissingDay, day); err != nil {
				return err
			}
		}

		if err := tx.Notifications().DeleteNotificationByKey(ctx, employeeID, CodeOddStampCount, day); err != nil {
			return err
		}
		for _, stamp := range dayStamps {
			if !stamp.Settled {
				continue
			}
			stamp.Settled = false
			if err := tx.Stamps().UpdateStamp(ctx, stamp); err != nil {
				return err
			}
		}

		employee.FlexBalance = balance
		if worktime.DayOf(employee.LastLoginDay).After(day) {
			employee.LastLoginDay = day
		}
		employee.UpdatedAt = s.now()
		if err := tx.Employees().UpdateEmployee(ctx, employee); err != nil {
			return err
		}
		logger.InfoContext(ctx, "day reverted", "balance", balance.String())
		return nil
	})
}

// ProcessLogin runs the daily bookkeeping triggered by an employee's
// first interaction of the day: missing days and open stamp records are
// flagged, completed time is settled, the protection rules are
// evaluated and stale findings are swept.
func (s *TimeTrackingService) ProcessLogin(ctx context.Context, employeeID string) error {
	logger := serviceLogger(ctx, s.logger, "tracking", "process_login", "employee_id", employeeID)

	if err := s.compliance.CheckMissingDays(ctx, employeeID); err != nil {
		return err
	}
	if err := s.compliance.CheckOddStamps(ctx, employeeID); err != nil {
		return err
	}
	if err := s.Settle(ctx, employeeID); err != nil {
		return err
	}
	if err := s.compliance.RunProtectionChecks(ctx, employeeID); err != nil {
		return err
	}
	if err := s.compliance.ReviewResolved(ctx, employeeID); err != nil {
		return err
	}

	employee, err := s.store.Employees().GetEmployee(ctx, employeeID)
	if err != nil {
		return mapPersistenceError(err)
	}
	employee.LastLoginDay = worktime.DayOf(s.now())
	employee.UpdatedAt = s.now()
	if err := s.store.Employees().UpdateEmployee(ctx, employee); err != nil {
		return err
	}
	logger.InfoContext(ctx, "login processed")
	return nil
}

// AddManualStamp records a stamp at an explicit day and clock time,
// reverts the day and re-runs settlement and the compliance checks.
func (s *TimeTrackingService) AddManualStamp(ctx context.Context, employeeID string, day time.Time, clock time.Duration) (persistence.TimeStamp, error) {
	day = worktime.DayOf(day)
	at := worktime.Combine(day, clock)

	v := &ValidationError{}
	if at.After(s.now()) {
		v.add("at", "must not be in the future")
	}
	if v.HasErrors() {
		return persistence.TimeStamp{}, v
	}
	if _, err := s.store.Absences().GetAbsenceOn(ctx, employeeID, day); err == nil {
		return persistence.TimeStamp{}, ErrConflict
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return persistence.TimeStamp{}, err
	}
	dayStamps, err := s.store.Stamps().ListStamps(ctx, employeeID, persistence.StampFilter{Day: &day})
	if err != nil {
		return persistence.TimeStamp{}, err
	}
	for _, existing := range dayStamps {
		if existing.At.Equal(at) {
			return persistence.TimeStamp{}, ErrConflict
		}
	}

	if err := s.RevertDay(ctx, employeeID, day); err != nil {
		return persistence.TimeStamp{}, err
	}
	stamp := persistence.TimeStamp{
		ID:         s.idGenerator(),
		EmployeeID: employeeID,
		Day:        day,
		At:         at,
		CreatedAt:  s.now(),
	}
	if err := s.store.Stamps().CreateStamp(ctx, stamp); err != nil {
		return persistence.TimeStamp{}, mapPersistenceError(err)
	}
	if err := s.refresh(ctx, employeeID, day); err != nil {
		return persistence.TimeStamp{}, err
	}
	return stamp, nil
}

// EditStamp moves an existing stamp to a new day and clock time. Both
// the old and the new day are reverted and recomputed.
func (s *TimeTrackingService) EditStamp(ctx context.Context, employeeID, stampID string, day time.Time, clock time.Duration) (persistence.TimeStamp, error) {
	day = worktime.DayOf(day)
	at := worktime.Combine(day, clock)

	stamp, err := s.store.Stamps().GetStamp(ctx, stampID)
	if err != nil {
		return persistence.TimeStamp{}, mapPersistenceError(err)
	}
	if stamp.EmployeeID != employeeID {
		return persistence.TimeStamp{}, ErrNotFound
	}
	if at.After(s.now()) {
		v := &ValidationError{}
		v.add("at", "must not be in the future")
		return persistence.TimeStamp{}, v
	}
	if _, err := s.store.Absences().GetAbsenceOn(ctx, employeeID, day); err == nil {
		return persistence.TimeStamp{}, ErrConflict
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return persistence.TimeStamp{}, err
	}
	targetStamps, err := s.store.Stamps().ListStamps(ctx, employeeID, persistence.StampFilter{Day: &day})
	if err != nil {
		return persistence.TimeStamp{}, err
	}
	for _, existing := range targetStamps {
		if existing.ID != stamp.ID && existing.At.Equal(at) {
			return persistence.TimeStamp{}, ErrConflict
		}
	}

	if err := s.RevertDay(ctx, employeeID, stamp.Day); err != nil {
		return persistence.TimeStamp{}, err
	}
	if !stamp.Day.Equal(day) {
		if err := s.RevertDay(ctx, employeeID, day); err != nil {
			return persistence.TimeStamp{}, err
		}
	}

	oldDay := stamp.Day
	stamp.Day = day
	stamp.At = at
	stamp.Settled = false
	if err := s.store.Stamps().UpdateStamp(ctx, stamp); err != nil {
		return persistence.TimeStamp{}, mapPersistenceError(err)
	}

	if err := s.refresh(ctx, employeeID, oldDay); err != nil {
		return persistence.TimeStamp{}, err
	}
	if !oldDay.Equal(day) {
		if err := s.refresh(ctx, employeeID, day); err != nil {
			return persistence.TimeStamp{}, err
		}
	}
	return stamp, nil
}

// DeleteStamp removes a stamp and recomputes its day.
func (s *TimeTrackingService) DeleteStamp(ctx context.Context, employeeID, stampID string) error {
	stamp, err := s.store.Stamps().GetStamp(ctx, stampID)
	if err != nil {
		return mapPersistenceError(err)
	}
	if stamp.EmployeeID != employeeID {
		return ErrNotFound
	}
	if err := s.RevertDay(ctx, employeeID, stamp.Day); err != nil {
		return err
	}
	if err := s.store.Stamps().DeleteStamp(ctx, stampID); err != nil {
		return mapPersistenceError(err)
	}
	return s.refresh(ctx, employeeID, stamp.Day)
}

// refresh re-runs bookkeeping after a correction touching day.
func (s *TimeTrackingService) refresh(ctx context.Context, employeeID string, day time.Time) error {
	if err := s.compliance.CheckOddStamps(ctx, employeeID); err != nil {
		return err
	}
	if err := s.Settle(ctx, employeeID); err != nil {
		return err
	}
	if err := s.compliance.RunProtectionChecks(ctx, employeeID); err != nil {
		return err
	}
	if err := s.compliance.ReviewResolved(ctx, employeeID); err != nil {
		return err
	}

	today := worktime.DayOf(s.now())
	if !day.Equal(today) {
		return nil
	}
	stamps, err := s.store.Stamps().ListStamps(ctx, employeeID, persistence.StampFilter{Day: &today})
	if err != nil {
		return err
	}
	if len(stamps)%2 == 0 {
		return s.store.Notifications().DeletePopupsOn(ctx, employeeID, today)
	}
	employee, err := s.store.Employees().GetEmployee(ctx, employeeID)
	if err != nil {
		return mapPersistenceError(err)
	}
	return s.compliance.SchedulePopups(ctx, s.store, employee, today)
}

// AverageFlexTime averages the daily flex deltas over the inclusive day
// range. Only weekdays count; with includeMissing, stampless weekdays
// enter as a full target deficit.
func (s *TimeTrackingService) AverageFlexTime(ctx context.Context, employeeID string, from, to time.Time, includeMissing bool) (FlexAverage, error) {
	from, to = worktime.DayOf(from), worktime.DayOf(to)
	if from.After(to) {
		v := &ValidationError{}
		v.add("from", "must not be after to")
		return FlexAverage{}, v
	}

	employee, err := s.store.Employees().GetEmployee(ctx, employeeID)
	if err != nil {
		return FlexAverage{}, mapPersistenceError(err)
	}
	stamps, err := s.store.Stamps().ListStamps(ctx, employeeID, persistence.StampFilter{From: &from, To: &to})
	if err != nil {
		return FlexAverage{}, err
	}
	totals, _ := worktime.Accumulate(pairingStamps(stamps), employee.BirthDate, false)

	result := FlexAverage{From: from, To: to, Total: decimal.Zero, Average: decimal.Zero}
	for day := from; !day.After(to); day = worktime.AddDays(day, 1) {
		if !worktime.IsWeekday(day) {
			continue
		}
		worked, stamped := totals[day]
		if !stamped && !includeMissing {
			continue
		}
		target, err := dailyTargetOn(ctx, s.store, employee, day, 0)
		if err != nil {
			return FlexAverage{}, err
		}
		result.Days++
		result.Total = result.Total.Add(worktime.Hours(worked - target))
	}
	if result.Days > 0 {
		result.Average = result.Total.Div(decimal.NewFromInt(int64(result.Days)))
	}
	return result, nil
}

// FlexRollups sums the flex deltas of the running month, quarter and
// year, each up to today.
func (s *TimeTrackingService) FlexRollups(ctx context.Context, employeeID string) (Rollups, error) {
	today := worktime.DayOf(s.now())
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	quarterMonth := time.Month((int(today.Month())-1)/3*3 + 1)
	quarterStart := time.Date(today.Year(), quarterMonth, 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	var rollups Rollups
	for _, span := range []struct {
		from time.Time
		dst  *decimal.Decimal
	}{
		{monthStart, &rollups.Month},
		{quarterStart, &rollups.Quarter},
		{yearStart, &rollups.Year},
	} {
		avg, err := s.AverageFlexTime(ctx, employeeID, span.from, today, false)
		if err != nil {
			return Rollups{}, err
		}
		*span.dst = avg.Total
	}
	return rollups, nil
}

// DayOverview reports one day's stamps, the worked time after breaks
// and clipping, and the delta against the day's target.
func (s *TimeTrackingService) DayOverview(ctx context.Context, employeeID string, day time.Time) (DayOverview, error) {
	day = worktime.DayOf(day)

	employee, err := s.store.Employees().GetEmployee(ctx, employeeID)
	if err != nil {
		return DayOverview{}, mapPersistenceError(err)
	}
	stamps, err := s.store.Stamps().ListStamps(ctx, employeeID, persistence.StampFilter{Day: &day})
	if err != nil {
		return DayOverview{}, err
	}

	minor := worktime.MinorOn(employee.BirthDate, day)
	views := make([]StampView, len(stamps))
	for i, stamp := range stamps {
		clock := worktime.ClockOf(stamp.At)
		views[i] = StampView{
			Stamp:         stamp,
			OutsideWindow: clock < worktime.WindowStart || clock > worktime.WindowEnd(minor),
		}
	}

	totals, _ := worktime.Accumulate(pairingStamps(stamps), employee.BirthDate, true)
	target, err := dailyTargetOn(ctx, s.store, employee, day, 0)
	if err != nil {
		return DayOverview{}, err
	}
	worked := totals[day]
	return DayOverview{
		Day:    day,
		Stamps: views,
		Worked: worked,
		Target: target,
		Delta:  worktime.Hours(worked - target),
	}, nil
}

// Notifications lists the employee's findings.
func (s *TimeTrackingService) Notifications(ctx context.Context, employeeID string) ([]persistence.Notification, error) {
	return s.store.Notifications().ListNotifications(ctx, employeeID)
}

// PendingPopups lists the popup warnings due at the current instant.
func (s *TimeTrackingService) PendingPopups(ctx context.Context, employeeID string) ([]persistence.Notification, error) {
	return s.store.Notifications().ListDuePopups(ctx, employeeID, s.now())
}

// DismissPopup removes one of the employee's notifications.
func (s *TimeTrackingService) DismissPopup(ctx context.Context, employeeID, notificationID string) error {
	notifications, err := s.store.Notifications().ListNotifications(ctx, employeeID)
	if err != nil {
		return err
	}
	for _, notification := range notifications {
		if notification.ID == notificationID {
			return mapPersistenceError(s.store.Notifications().DeleteNotification(ctx, notificationID))
		}
	}
	return ErrNotFound
}
