package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/timeclock/internal/persistence"
	"github.com/example/timeclock/internal/worktime"
)

const minRegistrationAge = 16

var (
	defaultGreenThreshold = decimal.NewFromInt(5)
	defaultRedThreshold   = decimal.NewFromInt(-10)
)

// AuthService registers accounts and manages login sessions.
type AuthService struct {
	store          persistence.Store
	idGenerator    func() string
	tokenGenerator func() string
	sessionTTL     time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// NewAuthService constructs the service. idGenerator, tokenGenerator
// and now must be non-nil; logger may be nil.
func NewAuthService(store persistence.Store, idGenerator, tokenGenerator func() string, sessionTTL time.Duration, now func() time.Time, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:          store,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		sessionTTL:     sessionTTL,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

// Register creates an employee account together with the first entry of
// its contracted-hours timeline.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (persistence.Employee, error) {
	logger := serviceLogger(ctx, s.logger, "auth", "register")

	now := s.now()
	today := worktime.DayOf(now)

	v := &ValidationError{}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		v.add("name", "name is required")
	}
	validatePassword(v, "password", params.Password, params.PasswordRepeat)
	if params.BirthDate.IsZero() {
		v.add("birth_date", "birth date is required")
	} else if worktime.AgeOn(params.BirthDate, today) < minRegistrationAge {
		v.add("birth_date", "employees must be at least 16 years old")
	}
	if params.WeeklyHours <= 0 {
		v.add("weekly_hours", "weekly hours must be positive")
	}

	green, red := params.GreenThreshold, params.RedThreshold
	if green.IsZero() && red.IsZero() {
		green, red = defaultGreenThreshold, defaultRedThreshold
	}
	if !red.LessThan(green) {
		v.add("red_threshold", "red threshold must be below the green threshold")
	}
	if v.HasErrors() {
		return persistence.Employee{}, v
	}

	var supervisorID *string
	if supervisorName := strings.TrimSpace(params.SupervisorName); supervisorName != "" {
		supervisor, err := s.store.Employees().GetEmployeeByName(ctx, supervisorName)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				v.add("supervisor", "supervisor not found")
				return persistence.Employee{}, v
			}
			return persistence.Employee{}, err
		}
		supervisorID = &supervisor.ID
	}

	hash, err := CreatePasswordHash(params.Password)
	if err != nil {
		return persistence.Employee{}, err
	}

	employee := persistence.Employee{
		ID:             s.idGenerator(),
		Name:           name,
		PasswordHash:   hash,
		BirthDate:      worktime.DayOf(params.BirthDate),
		WeeklyHours:    params.WeeklyHours,
		FlexBalance:    decimal.Zero,
		GreenThreshold: green,
		RedThreshold:   red,
		SupervisorID:   supervisorID,
		LastLoginDay:   today,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.store.WithTransaction(ctx, func(tx persistence.Store) error {
		if err := tx.Employees().CreateEmployee(ctx, employee); err != nil {
			return err
		}
		return tx.HoursHistory().UpsertWeeklyHours(ctx, persistence.WeeklyHoursEntry{
			ID:            s.idGenerator(),
			EmployeeID:    employee.ID,
			WeeklyHours:   employee.WeeklyHours,
			EffectiveFrom: today,
			CreatedAt:     now,
		})
	})
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.Employee{}, ErrAlreadyExists
		}
		return persistence.Employee{}, err
	}

	logger.InfoContext(ctx, "employee registered", "employee_id", employee.ID)
	return employee, nil
}

// Login verifies the credentials and opens a session. Unknown names and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, name, password string) (AuthenticateResult, error) {
	logger := serviceLogger(ctx, s.logger, "auth", "login")

	employee, err := s.store.Employees().GetEmployeeByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return AuthenticateResult{}, ErrInvalidCredentials
		}
		return AuthenticateResult{}, err
	}
	if err := VerifyPassword(employee.PasswordHash, password); err != nil {
		return AuthenticateResult{}, err
	}

	now := s.now()
	if err := s.store.Sessions().DeleteExpiredSessions(ctx, now); err != nil {
		return AuthenticateResult{}, err
	}
	session := persistence.Session{
		Token:      s.tokenGenerator(),
		EmployeeID: employee.ID,
		ExpiresAt:  now.Add(s.sessionTTL),
		CreatedAt:  now,
	}
	if err := s.store.Sessions().CreateSession(ctx, session); err != nil {
		return AuthenticateResult{}, err
	}

	logger.InfoContext(ctx, "session opened", "employee_id", employee.ID)
	return AuthenticateResult{Employee: employee, Session: session}, nil
}

// Authenticate resolves a session token to its employee.
func (s *AuthService) Authenticate(ctx context.Context, token string) (persistence.Employee, error) {
	session, err := s.store.Sessions().GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Employee{}, ErrSessionExpired
		}
		return persistence.Employee{}, err
	}
	if !session.ExpiresAt.After(s.now()) {
		return persistence.Employee{}, ErrSessionExpired
	}
	employee, err := s.store.Employees().GetEmployee(ctx, session.EmployeeID)
	if err != nil {
		return persistence.Employee{}, mapPersistenceError(err)
	}
	return employee, nil
}

// Logout closes a session. Closing an unknown session is a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	err := s.store.Sessions().DeleteSession(ctx, token)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil
	}
	return err
}

// ChangePassword replaces an employee's password after verifying the
// current one.
func (s *AuthService) ChangePassword(ctx context.Context, employeeID, current, password, repeat string) error {
	logger := serviceLogger(ctx, s.logger, "auth", "change_password", "employee_id", employeeID)

	employee, err := s.store.Employees().GetEmployee(ctx, employeeID)
	if err != nil {
		return mapPersistenceError(err)
	}
	if err := VerifyPassword(employee.PasswordHash, current); err != nil {
		return err
	}

	v := &ValidationError{}
	validatePassword(v, "password", password, repeat)
	if v.HasErrors() {
		return v
	}

	hash, err := CreatePasswordHash(password)
	if err != nil {
		return err
	}
	employee.PasswordHash = hash
	employee.UpdatedAt = s.now()
	if err := s.store.Employees().UpdateEmployee(ctx, employee); err != nil {
		return err
	}
	logger.InfoContext(ctx, "password changed")
	return nil
}
