package testfixtures

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/example/timeclock/internal/persistence"
)

// MemoryStore is an in-memory persistence.Store for service tests. It
// enforces the same uniqueness rules as the SQLite implementation.
// WithTransaction snapshots all state and restores it when fn fails,
// which matches the rollback semantics tests rely on.
type MemoryStore struct {
	mu            sync.Mutex
	employees     map[string]persistence.Employee
	stamps        map[string]persistence.TimeStamp
	absences      map[string]persistence.Absence
	notifications map[string]persistence.Notification
	hours         map[string]persistence.WeeklyHoursEntry
	sessions      map[string]persistence.Session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		employees:     make(map[string]persistence.Employee),
		stamps:        make(map[string]persistence.TimeStamp),
		absences:      make(map[string]persistence.Absence),
		notifications: make(map[string]persistence.Notification),
		hours:         make(map[string]persistence.WeeklyHoursEntry),
		sessions:      make(map[string]persistence.Session),
	}
}

func (s *MemoryStore) Employees() persistence.EmployeeRepository         { return s }
func (s *MemoryStore) Stamps() persistence.StampRepository               { return s }
func (s *MemoryStore) Absences() persistence.AbsenceRepository           { return s }
func (s *MemoryStore) Notifications() persistence.NotificationRepository { return s }
func (s *MemoryStore) HoursHistory() persistence.HoursHistoryRepository  { return s }
func (s *MemoryStore) Sessions() persistence.SessionRepository           { return s }

// WithTransaction runs fn and restores the pre-call state when it
// returns an error.
func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(persistence.Store) error) error {
	s.mu.Lock()
	snapshot := struct {
		employees     map[string]persistence.Employee
		stamps        map[string]persistence.TimeStamp
		absences      map[string]persistence.Absence
		notifications map[string]persistence.Notification
		hours         map[string]persistence.WeeklyHoursEntry
		sessions      map[string]persistence.Session
	}{
		employees:     copyMap(s.employees),
		stamps:        copyMap(s.stamps),
		absences:      copyMap(s.absences),
		notifications: copyMap(s.notifications),
		hours:         copyMap(s.hours),
		sessions:      copyMap(s.sessions),
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.employees = snapshot.employees
		s.stamps = snapshot.stamps
		s.absences = snapshot.absences
		s.notifications = snapshot.notifications
		s.hours = snapshot.hours
		s.sessions = snapshot.sessions
		s.mu.Unlock()
		return err
	}
	return nil
}

func copyMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func dayKey(day time.Time) string {
	return day.UTC().Format("2006-01-02")
}

// CreateEmployee implements persistence.EmployeeRepository.
func (s *MemoryStore) CreateEmployee(_ context.Context, employee persistence.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[employee.ID]; ok {
		return persistence.ErrDuplicate
	}
	for _, existing := range s.employees {
		if existing.Name == employee.Name {
			return persistence.ErrDuplicate
		}
	}
	s.employees[employee.ID] = employee
	return nil
}

// UpdateEmployee implements persistence.EmployeeRepository.
func (s *MemoryStore) UpdateEmployee(_ context.Context, employee persistence.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[employee.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.employees[employee.ID] = employee
	return nil
}

// GetEmployee implements persistence.EmployeeRepository.
func (s *MemoryStore) GetEmployee(_ context.Context, id string) (persistence.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	employee, ok := s.employees[id]
	if !ok {
		return persistence.Employee{}, persistence.ErrNotFound
	}
	return employee, nil
}

// GetEmployeeByName implements persistence.EmployeeRepository.
func (s *MemoryStore) GetEmployeeByName(_ context.Context, name string) (persistence.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, employee := range s.employees {
		if employee.Name == name {
			return employee, nil
		}
	}
	return persistence.Employee{}, persistence.ErrNotFound
}

// ListSubordinates implements persistence.EmployeeRepository.
func (s *MemoryStore) ListSubordinates(_ context.Context, supervisorID string) ([]persistence.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var subordinates []persistence.Employee
	for _, employee := range s.employees {
		if employee.SupervisorID != nil && *employee.SupervisorID == supervisorID {
			subordinates = append(subordinates, employee)
		}
	}
	slices.SortFunc(subordinates, func(a, b persistence.Employee) int {
		return strings.Compare(a.Name, b.Name)
	})
	return subordinates, nil
}

// CreateStamp implements persistence.StampRepository.
func (s *MemoryStore) CreateStamp(_ context.Context, stamp persistence.TimeStamp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stamps[stamp.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.stamps[stamp.ID] = stamp
	return nil
}

// UpdateStamp implements persistence.StampRepository.
func (s *MemoryStore) UpdateStamp(_ context.Context, stamp persistence.TimeStamp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stamps[stamp.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.stamps[stamp.ID] = stamp
	return nil
}

// GetStamp implements persistence.StampRepository.
func (s *MemoryStore) GetStamp(_ context.Context, id string) (persistence.TimeStamp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp, ok := s.stamps[id]
	if !ok {
		return persistence.TimeStamp{}, persistence.ErrNotFound
	}
	return stamp, nil
}

// ListStamps implements persistence.StampRepository.
func (s *MemoryStore) ListStamps(_ context.Context, employeeID string, filter persistence.StampFilter) ([]persistence.TimeStamp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stamps []persistence.TimeStamp
	for _, stamp := range s.stamps {
		if stamp.EmployeeID != employeeID {
			continue
		}
		if filter.Day != nil && !stamp.Day.Equal(*filter.Day) {
			continue
		}
		if filter.From != nil && stamp.Day.Before(*filter.From) {
			continue
		}
		if filter.To != nil && stamp.Day.After(*filter.To) {
			continue
		}
		if filter.Unsettled && stamp.Settled {
			continue
		}
		stamps = append(stamps, stamp)
	}
	slices.SortFunc(stamps, func(a, b persistence.TimeStamp) int {
		return a.At.Compare(b.At)
	})
	return stamps, nil
}

// ListStampedDays implements persistence.StampRepository.
func (s *MemoryStore) ListStampedDays(_ context.Context, employeeID string, from, to time.Time) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]time.Time)
	for _, stamp := range s.stamps {
		if stamp.EmployeeID != employeeID || stamp.Day.Before(from) || stamp.Day.After(to) {
			continue
		}
		seen[dayKey(stamp.Day)] = stamp.Day
	}
	days := make([]time.Time, 0, len(seen))
	for _, day := range seen {
		days = append(days, day)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	return days, nil
}

// DeleteStamp implements persistence.StampRepository.
func (s *MemoryStore) DeleteStamp(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stamps[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.stamps, id)
	return nil
}

// CreateAbsence implements persistence.AbsenceRepository.
func (s *MemoryStore) CreateAbsence(_ context.Context, absence persistence.Absence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.absences {
		if existing.EmployeeID == absence.EmployeeID && existing.Day.Equal(absence.Day) {
			return persistence.ErrDuplicate
		}
	}
	s.absences[absence.ID] = absence
	return nil
}

// GetAbsenceOn implements persistence.AbsenceRepository.
func (s *MemoryStore) GetAbsenceOn(_ context.Context, employeeID string, day time.Time) (persistence.Absence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, absence := range s.absences {
		if absence.EmployeeID == employeeID && absence.Day.Equal(day) {
			return absence, nil
		}
	}
	return persistence.Absence{}, persistence.ErrNotFound
}

// ListAbsences implements persistence.AbsenceRepository.
func (s *MemoryStore) ListAbsences(_ context.Context, employeeID string, from, to time.Time) ([]persistence.Absence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var absences []persistence.Absence
	for _, absence := range s.absences {
		if absence.EmployeeID != employeeID || absence.Day.Before(from) || absence.Day.After(to) {
			continue
		}
		absences = append(absences, absence)
	}
	slices.SortFunc(absences, func(a, b persistence.Absence) int { return a.Day.Compare(b.Day) })
	return absences, nil
}

// DeleteAbsence implements persistence.AbsenceRepository.
func (s *MemoryStore) DeleteAbsence(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.absences[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.absences, id)
	return nil
}

// CreateNotification implements persistence.NotificationRepository.
func (s *MemoryStore) CreateNotification(_ context.Context, notification persistence.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.notifications {
		if existing.EmployeeID == notification.EmployeeID &&
			existing.Code == notification.Code &&
			existing.Day.Equal(notification.Day) {
			return persistence.ErrDuplicate
		}
	}
	s.notifications[notification.ID] = notification
	return nil
}

// GetNotification implements persistence.NotificationRepository.
func (s *MemoryStore) GetNotification(_ context.Context, employeeID string, code int, day time.Time) (persistence.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, notification := range s.notifications {
		if notification.EmployeeID == employeeID && notification.Code == code && notification.Day.Equal(day) {
			return notification, nil
		}
	}
	return persistence.Notification{}, persistence.ErrNotFound
}

// ListNotifications implements persistence.NotificationRepository.
func (s *MemoryStore) ListNotifications(_ context.Context, employeeID string) ([]persistence.Notification, error) {
	return s.listNotifications(employeeID, nil)
}

// ListNotificationsByCode implements persistence.NotificationRepository.
func (s *MemoryStore) ListNotificationsByCode(_ context.Context, employeeID string, codes []int) ([]persistence.Notification, error) {
	return s.listNotifications(employeeID, codes)
}

func (s *MemoryStore) listNotifications(employeeID string, codes []int) ([]persistence.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var notifications []persistence.Notification
	for _, notification := range s.notifications {
		if notification.EmployeeID != employeeID {
			continue
		}
		if codes != nil && !slices.Contains(codes, notification.Code) {
			continue
		}
		notifications = append(notifications, notification)
	}
	slices.SortFunc(notifications, func(a, b persistence.Notification) int {
		if c := a.Day.Compare(b.Day); c != 0 {
			return c
		}
		return a.Code - b.Code
	})
	return notifications, nil
}

// ListDuePopups implements persistence.NotificationRepository.
func (s *MemoryStore) ListDuePopups(_ context.Context, employeeID string, reference time.Time) ([]persistence.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var popups []persistence.Notification
	for _, notification := range s.notifications {
		if notification.EmployeeID != employeeID || !notification.Popup || notification.ShowAt == nil {
			continue
		}
		if notification.ShowAt.After(reference) {
			continue
		}
		popups = append(popups, notification)
	}
	slices.SortFunc(popups, func(a, b persistence.Notification) int {
		return a.ShowAt.Compare(*b.ShowAt)
	})
	return popups, nil
}

// DeleteNotification implements persistence.NotificationRepository.
func (s *MemoryStore) DeleteNotification(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.notifications, id)
	return nil
}

// DeleteNotificationByKey implements persistence.NotificationRepository.
func (s *MemoryStore) DeleteNotificationByKey(_ context.Context, employeeID string, code int, day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, notification := range s.notifications {
		if notification.EmployeeID == employeeID && notification.Code == code && notification.Day.Equal(day) {
			delete(s.notifications, id)
		}
	}
	return nil
}

// DeletePopupsOn implements persistence.NotificationRepository.
func (s *MemoryStore) DeletePopupsOn(_ context.Context, employeeID string, day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, notification := range s.notifications {
		if notification.EmployeeID == employeeID && notification.Popup && notification.Day.Equal(day) {
			delete(s.notifications, id)
		}
	}
	return nil
}

// UpsertWeeklyHours implements persistence.HoursHistoryRepository.
func (s *MemoryStore) UpsertWeeklyHours(_ context.Context, entry persistence.WeeklyHoursEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.hours {
		if existing.EmployeeID == entry.EmployeeID && existing.EffectiveFrom.Equal(entry.EffectiveFrom) {
			existing.WeeklyHours = entry.WeeklyHours
			s.hours[id] = existing
			return nil
		}
	}
	s.hours[entry.ID] = entry
	return nil
}

// WeeklyHoursOn implements persistence.HoursHistoryRepository.
func (s *MemoryStore) WeeklyHoursOn(_ context.Context, employeeID string, day time.Time) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		best  persistence.WeeklyHoursEntry
		found bool
	)
	for _, entry := range s.hours {
		if entry.EmployeeID != employeeID || entry.EffectiveFrom.After(day) {
			continue
		}
		if !found || entry.EffectiveFrom.After(best.EffectiveFrom) {
			best = entry
			found = true
		}
	}
	if !found {
		return 0, false, nil
	}
	return best.WeeklyHours, true, nil
}

// ListWeeklyHours implements persistence.HoursHistoryRepository.
func (s *MemoryStore) ListWeeklyHours(_ context.Context, employeeID string) ([]persistence.WeeklyHoursEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []persistence.WeeklyHoursEntry
	for _, entry := range s.hours {
		if entry.EmployeeID == employeeID {
			entries = append(entries, entry)
		}
	}
	slices.SortFunc(entries, func(a, b persistence.WeeklyHoursEntry) int {
		return a.EffectiveFrom.Compare(b.EffectiveFrom)
	})
	return entries, nil
}

// CreateSession implements persistence.SessionRepository.
func (s *MemoryStore) CreateSession(_ context.Context, session persistence.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.Token]; ok {
		return persistence.ErrDuplicate
	}
	s.sessions[session.Token] = session
	return nil
}

// GetSession implements persistence.SessionRepository.
func (s *MemoryStore) GetSession(_ context.Context, token string) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

// DeleteSession implements persistence.SessionRepository.
func (s *MemoryStore) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.sessions, token)
	return nil
}

// DeleteExpiredSessions implements persistence.SessionRepository.
func (s *MemoryStore) DeleteExpiredSessions(_ context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}
