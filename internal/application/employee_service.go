package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/timeclock/internal/persistence"
	"github.com/example/timeclock/internal/worktime"
)

// EmployeeService exposes account settings and the supervisor views.
type EmployeeService struct {
	store       persistence.Store
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEmployeeService constructs the service. idGenerator and now must
// be non-nil; logger may be nil.
func NewEmployeeService(store persistence.Store, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EmployeeService {
	return &EmployeeService{
		store:       store,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Profile returns the employee's own account view including the balance
// classification.
func (s *EmployeeService) Profile(ctx context.Context, employeeID string) (Profile, error) {
	employee, err := s.store.Employees().GetEmployee(ctx, employeeID)
	if err != nil {
		return Profile{}, mapPersistenceError(err)
	}
	return Profile{Employee: employee, TrafficLight: trafficLight(employee)}, nil
}

// UpdateWeeklyHours changes the contracted weekly hours effective from
// the given day. Earlier days keep their historical value.
func (s *EmployeeService) UpdateWeeklyHours(ctx context.Context, employeeID string, weeklyHours int, effectiveFrom time.Time) error {
	logger := serviceLogger(ctx, s.logger, "employee", "update_weekly_hours", "employee_id", employeeID)

	if weeklyHours <= 0 {
		v := &ValidationError{}
		v.add("weekly_hours", "weekly hours must be positive")
		return v
	}
	effectiveFrom = worktime.DayOf(effectiveFrom)

	err := s.store.WithTransaction(ctx, func(tx persistence.Store) error {
		employee, err := tx.Employees().GetEmployee(ctx, employeeID)
		if err != nil {
			return mapPersistenceError(err)
		}
		if err := tx.HoursHistory().UpsertWeeklyHours(ctx, persistence.WeeklyHoursEntry{
			ID:            s.idGenerator(),
			EmployeeID:    employeeID,
			WeeklyHours:   weeklyHours,
			EffectiveFrom: effectiveFrom,
			CreatedAt:     s.now(),
		}); err != nil {
			return err
		}
		employee.WeeklyHours = weeklyHours
		employee.UpdatedAt = s.now()
		return tx.Employees().UpdateEmployee(ctx, employee)
	})
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "weekly hours updated", "weekly_hours", weeklyHours, "effective_from", effectiveFrom.Format("2006-01-02"))
	return nil
}

// UpdateThresholds changes the traffic-light thresholds.
func (s *EmployeeService) UpdateThresholds(ctx context.Context, employeeID string, green, red decimal.Decimal) error {
	if !red.LessThan(green) {
		v := &ValidationError{}
		v.add("red_threshold", "red threshold must be below the green threshold")
		return v
	}
	employee, err := s.store.Employees().GetEmployee(ctx, employeeID)
	if err != nil {
		return mapPersistenceError(err)
	}
	employee.GreenThreshold = green
	employee.RedThreshold = red
	employee.UpdatedAt = s.now()
	return s.store.Employees().UpdateEmployee(ctx, employee)
}

// Subordinates lists the balance classification of every employee
// reporting to the given supervisor.
func (s *EmployeeService) Subordinates(ctx context.Context, supervisorID string) ([]SubordinateOverview, error) {
	subordinates, err := s.store.Employees().ListSubordinates(ctx, supervisorID)
	if err != nil {
		return nil, err
	}
	overviews := make([]SubordinateOverview, len(subordinates))
	for i, subordinate := range subordinates {
		overviews[i] = SubordinateOverview{
			ID:           subordinate.ID,
			Name:         subordinate.Name,
			FlexBalance:  subordinate.FlexBalance,
			TrafficLight: trafficLight(subordinate),
		}
	}
	return overviews, nil
}

// ListWeeklyHours returns the contracted-hours timeline.
func (s *EmployeeService) ListWeeklyHours(ctx context.Context, employeeID string) ([]persistence.WeeklyHoursEntry, error) {
	return s.store.HoursHistory().ListWeeklyHours(ctx, employeeID)
}
