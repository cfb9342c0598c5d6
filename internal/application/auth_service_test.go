package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/timeclock/internal/application"
	"github.com/example/timeclock/internal/testfixtures"
)

func newAuthService(store *testfixtures.MemoryStore, clock *testfixtures.Clock) *application.AuthService {
	ids := testfixtures.NewIDGenerator("auth")
	tokens := testfixtures.NewIDGenerator("token")
	return application.NewAuthService(store, ids.NextFunc(), tokens.NextFunc(), time.Hour, clock.NowFunc(), nil)
}

func validRegistration() application.RegisterParams {
	return application.RegisterParams{
		Name:           "carol",
		Password:       "correct horse",
		PasswordRepeat: "correct horse",
		BirthDate:      time.Date(1995, time.July, 1, 0, 0, 0, 0, time.UTC),
		WeeklyHours:    40,
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()
	store := testfixtures.NewMemoryStore()
	clock := testfixtures.NewClock(time.Time{})
	auth := newAuthService(store, clock)
	ctx := context.Background()

	employee, err := auth.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if employee.PasswordHash == "correct horse" || employee.PasswordHash == "" {
		t.Fatal("password stored unhashed")
	}
	if !employee.GreenThreshold.Equal(decimal.NewFromInt(5)) || !employee.RedThreshold.Equal(decimal.NewFromInt(-10)) {
		t.Fatalf("default thresholds not applied: green=%s red=%s", employee.GreenThreshold, employee.RedThreshold)
	}
	if !employee.LastLoginDay.Equal(day(2025, time.March, 3)) {
		t.Fatalf("LastLoginDay = %v, want registration day", employee.LastLoginDay)
	}

	entries, err := store.HoursHistory().ListWeeklyHours(ctx, employee.ID)
	if err != nil {
		t.Fatalf("ListWeeklyHours: %v", err)
	}
	if len(entries) != 1 || entries[0].WeeklyHours != 40 {
		t.Fatalf("hours timeline = %v, want one 40h entry", entries)
	}

	if _, err := auth.Register(ctx, validRegistration()); !errors.Is(err, application.ErrAlreadyExists) {
		t.Fatalf("duplicate name err = %v, want already exists", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	store := testfixtures.NewMemoryStore()
	clock := testfixtures.NewClock(time.Time{})
	auth := newAuthService(store, clock)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*application.RegisterParams)
		field  string
	}{
		{"empty name", func(p *application.RegisterParams) { p.Name = "  " }, "name"},
		{"short password", func(p *application.RegisterParams) { p.Password, p.PasswordRepeat = "short", "short" }, "password"},
		{"password mismatch", func(p *application.RegisterParams) { p.PasswordRepeat = "different dog" }, "password_repeat"},
		{"too young", func(p *application.RegisterParams) {
			p.BirthDate = time.Date(2010, time.June, 1, 0, 0, 0, 0, time.UTC)
		}, "birth_date"},
		{"zero hours", func(p *application.RegisterParams) { p.WeeklyHours = 0 }, "weekly_hours"},
		{"inverted thresholds", func(p *application.RegisterParams) {
			p.GreenThreshold = decimal.NewFromInt(-5)
			p.RedThreshold = decimal.NewFromInt(5)
		}, "red_threshold"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			params := validRegistration()
			tc.mutate(&params)
			_, err := auth.Register(ctx, params)
			var v *application.ValidationError
			if !errors.As(err, &v) {
				t.Fatalf("err = %v, want validation error", err)
			}
			if _, ok := v.FieldErrors[tc.field]; !ok {
				t.Fatalf("FieldErrors = %v, want entry for %q", v.FieldErrors, tc.field)
			}
		})
	}
}

func TestRegisterResolvesSupervisor(t *testing.T) {
	t.Parallel()
	store := testfixtures.NewMemoryStore()
	clock := testfixtures.NewClock(time.Time{})
	auth := newAuthService(store, clock)
	ctx := context.Background()

	supervisor := testfixtures.NewEmployeeFixture()
	if err := store.Employees().CreateEmployee(ctx, supervisor); err != nil {
		t.Fatalf("seed supervisor: %v", err)
	}

	params := validRegistration()
	params.SupervisorName = "alice"
	employee, err := auth.Register(ctx, params)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if employee.SupervisorID == nil || *employee.SupervisorID != supervisor.ID {
		t.Fatalf("SupervisorID = %v, want %s", employee.SupervisorID, supervisor.ID)
	}

	params = validRegistration()
	params.Name = "dave"
	params.SupervisorName = "nobody"
	_, err = auth.Register(ctx, params)
	var v *application.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("unknown supervisor err = %v, want validation error", err)
	}
}

func TestLoginAndAuthenticate(t *testing.T) {
	t.Parallel()
	store := testfixtures.NewMemoryStore()
	clock := testfixtures.NewClock(time.Time{})
	auth := newAuthService(store, clock)
	ctx := context.Background()

	registered, err := auth.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := auth.Login(ctx, "carol", "wrong password"); !errors.Is(err, application.ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want invalid credentials", err)
	}
	if _, err := auth.Login(ctx, "nobody", "correct horse"); !errors.Is(err, application.ErrInvalidCredentials) {
		t.Fatalf("unknown name err = %v, want invalid credentials", err)
	}

	result, err := auth.Login(ctx, "carol", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Employee.ID != registered.ID {
		t.Fatalf("employee = %s, want %s", result.Employee.ID, registered.ID)
	}

	authenticated, err := auth.Authenticate(ctx, result.Session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if authenticated.ID != registered.ID {
		t.Fatalf("authenticated = %s, want %s", authenticated.ID, registered.ID)
	}

	clock.Advance(2 * time.Hour)
	if _, err := auth.Authenticate(ctx, result.Session.Token); !errors.Is(err, application.ErrSessionExpired) {
		t.Fatalf("expired session err = %v, want session expired", err)
	}

	if err := auth.Logout(ctx, result.Session.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := auth.Logout(ctx, result.Session.Token); err != nil {
		t.Fatalf("repeated Logout: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	store := testfixtures.NewMemoryStore()
	clock := testfixtures.NewClock(time.Time{})
	auth := newAuthService(store, clock)
	ctx := context.Background()

	registered, err := auth.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := auth.ChangePassword(ctx, registered.ID, "wrong", "next password", "next password"); !errors.Is(err, application.ErrInvalidCredentials) {
		t.Fatalf("wrong current err = %v, want invalid credentials", err)
	}
	var v *application.ValidationError
	if err := auth.ChangePassword(ctx, registered.ID, "correct horse", "short", "short"); !errors.As(err, &v) {
		t.Fatalf("short password err = %v, want validation error", err)
	}

	if err := auth.ChangePassword(ctx, registered.ID, "correct horse", "next password", "next password"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := auth.Login(ctx, "carol", "next password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := auth.Login(ctx, "carol", "correct horse"); !errors.Is(err, application.ErrInvalidCredentials) {
		t.Fatalf("old password still accepted, err = %v", err)
	}
}
