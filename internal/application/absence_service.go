package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/timeclock/internal/persistence"
	"github.com/example/timeclock/internal/worktime"
)

// AbsenceService records full-day absences and reconciles them with
// earlier missing-day deductions.
type AbsenceService struct {
	store       persistence.Store
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAbsenceService constructs the service. idGenerator and now must be
// non-nil; logger may be nil.
func NewAbsenceService(store persistence.Store, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AbsenceService {
	return &AbsenceService{
		store:       store,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// RegisterAbsence records an absence for a day. A day that already
// carries stamps cannot become an absence. When the day was already
// charged as missing, the deduction is paid back.
func (s *AbsenceService) RegisterAbsence(ctx context.Context, employeeID string, day time.Time, absenceType persistence.AbsenceType, approved bool) (persistence.Absence, error) {
	logger := serviceLogger(ctx, s.logger, "absence", "register", "employee_id", employeeID)

	day = worktime.DayOf(day)
	switch absenceType {
	case persistence.AbsenceVacation, persistence.AbsenceSick, persistence.AbsenceTraining, persistence.AbsenceOther:
	default:
		v := &ValidationError{}
		v.add("type", "unknown absence type")
		return persistence.Absence{}, v
	}
	if day.After(worktime.DayOf(s.now())) && absenceType != persistence.AbsenceVacation {
		v := &ValidationError{}
		v.add("day", "only vacation may be registered in advance")
		return persistence.Absence{}, v
	}

	stamps, err := s.store.Stamps().ListStamps(ctx, employeeID, persistence.StampFilter{Day: &day})
	if err != nil {
		return persistence.Absence{}, err
	}
	if len(stamps) > 0 {
		return persistence.Absence{}, ErrConflict
	}

	absence := persistence.Absence{
		ID:         s.idGenerator(),
		EmployeeID: employeeID,
		Day:        day,
		Type:       absenceType,
		Approved:   approved,
		CreatedAt:  s.now(),
	}
	err = s.store.WithTransaction(ctx, func(tx persistence.Store) error {
		if err := tx.Absences().CreateAbsence(ctx, absence); err != nil {
			return err
		}
		return s.healMissingDay(ctx, tx, employeeID, day)
	})
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.Absence{}, ErrConflict
		}
		return persistence.Absence{}, err
	}

	logger.InfoContext(ctx, "absence registered", "day", day.Format("2006-01-02"), "type", string(absenceType))
	return absence, nil
}

// healMissingDay pays back a missing-day deduction that the absence now
// explains, and removes the finding.
func (s *AbsenceService) healMissingDay(ctx context.Context, tx persistence.Store, employeeID string, day time.Time) error {
	_, err := tx.Notifications().GetNotification(ctx, employeeID, CodeMissingDay, day)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	employee, err := tx.Employees().GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	target, err := dailyTargetOn(ctx, tx, employee, day, hardFallbackTarget)
	if err != nil {
		return err
	}
	employee.FlexBalance = employee.FlexBalance.Add(worktime.Hours(target))
	employee.UpdatedAt = s.now()
	if err := tx.Employees().UpdateEmployee(ctx, employee); err != nil {
		return err
	}
	return tx.Notifications().DeleteNotificationByKey(ctx, employeeID, CodeMissingDay, day)
}

// DeleteAbsence removes an absence record.
func (s *AbsenceService) DeleteAbsence(ctx context.Context, employeeID, absenceID string) error {
	absences, err := s.store.Absences().ListAbsences(ctx, employeeID, time.Time{}, worktime.AddDays(worktime.DayOf(s.now()), 366))
	if err != nil {
		return err
	}
	for _, absence := range absences {
		if absence.ID == absenceID {
			return mapPersistenceError(s.store.Absences().DeleteAbsence(ctx, absenceID))
		}
	}
	return ErrNotFound
}

// ListAbsences returns the employee's absences in the inclusive range.
func (s *AbsenceService) ListAbsences(ctx context.Context, employeeID string, from, to time.Time) ([]persistence.Absence, error) {
	from, to = worktime.DayOf(from), worktime.DayOf(to)
	if from.After(to) {
		v := &ValidationError{}
		v.add("from", "must not be after to")
		return nil, v
	}
	return s.store.Absences().ListAbsences(ctx, employeeID, from, to)
}
