package persistence

import (
	"context"
	"time"
)

// EmployeeRepository exposes CRUD operations for employees.
type EmployeeRepository interface {
	CreateEmployee(ctx context.Context, employee Employee) error
	UpdateEmployee(ctx context.Context, employee Employee) error
	GetEmployee(ctx context.Context, id string) (Employee, error)
	GetEmployeeByName(ctx context.Context, name string) (Employee, error)
	ListSubordinates(ctx context.Context, supervisorID string) ([]Employee, error)
}

// StampFilter narrows stamp queries. Day bounds are inclusive.
type StampFilter struct {
	Day       *time.Time
	From      *time.Time
	To        *time.Time
	Unsettled bool
}

// StampRepository stores clock events. Listings are ordered by day,
// then time.
type StampRepository interface {
	CreateStamp(ctx context.Context, stamp TimeStamp) error
	UpdateStamp(ctx context.Context, stamp TimeStamp) error
	GetStamp(ctx context.Context, id string) (TimeStamp, error)
	ListStamps(ctx context.Context, employeeID string, filter StampFilter) ([]TimeStamp, error)
	ListStampedDays(ctx context.Context, employeeID string, from, to time.Time) ([]time.Time, error)
	DeleteStamp(ctx context.Context, id string) error
}

// AbsenceRepository stores full-day absences.
type AbsenceRepository interface {
	CreateAbsence(ctx context.Context, absence Absence) error
	GetAbsenceOn(ctx context.Context, employeeID string, day time.Time) (Absence, error)
	ListAbsences(ctx context.Context, employeeID string, from, to time.Time) ([]Absence, error)
	DeleteAbsence(ctx context.Context, id string) error
}

// NotificationRepository stores compliance findings and popup warnings.
// CreateNotification returns ErrDuplicate when the (employee, code,
// day) key already exists.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification Notification) error
	GetNotification(ctx context.Context, employeeID string, code int, day time.Time) (Notification, error)
	ListNotifications(ctx context.Context, employeeID string) ([]Notification, error)
	ListNotificationsByCode(ctx context.Context, employeeID string, codes []int) ([]Notification, error)
	ListDuePopups(ctx context.Context, employeeID string, reference time.Time) ([]Notification, error)
	DeleteNotification(ctx context.Context, id string) error
	DeleteNotificationByKey(ctx context.Context, employeeID string, code int, day time.Time) error
	DeletePopupsOn(ctx context.Context, employeeID string, day time.Time) error
}

// HoursHistoryRepository stores the contracted weekly-hours timeline.
type HoursHistoryRepository interface {
	UpsertWeeklyHours(ctx context.Context, entry WeeklyHoursEntry) error
	WeeklyHoursOn(ctx context.Context, employeeID string, day time.Time) (int, bool, error)
	ListWeeklyHours(ctx context.Context, employeeID string) ([]WeeklyHoursEntry, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// Store aggregates the repositories and provides transactional scope.
// WithTransaction runs fn against a store whose mutations commit or
// roll back together; nesting is not supported.
type Store interface {
	Employees() EmployeeRepository
	Stamps() StampRepository
	Absences() AbsenceRepository
	Notifications() NotificationRepository
	HoursHistory() HoursHistoryRepository
	Sessions() SessionRepository
	WithTransaction(ctx context.Context, fn func(Store) error) error
}
