package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/timeclock/internal/persistence"
	"github.com/example/timeclock/internal/testfixtures"
)

func notificationDays(t *testing.T, store *testfixtures.MemoryStore, employeeID string, code int) []time.Time {
	t.Helper()
	notifications, err := store.Notifications().ListNotificationsByCode(context.Background(), employeeID, []int{code})
	if err != nil {
		t.Fatalf("ListNotificationsByCode: %v", err)
	}
	days := make([]time.Time, len(notifications))
	for i, notification := range notifications {
		days[i] = notification.Day
	}
	return days
}

func TestCheckMissingDaysChargesUnexplainedWeekdays(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	lastLogin := day(2025, time.February, 24)
	employee := env.seedEmployee(t, testfixtures.WithLastLoginDay(lastLogin))
	env.clock.Set(day(2025, time.March, 3).Add(8 * time.Hour))

	// Tuesday is excused, Wednesday was worked.
	absence := testfixtures.NewAbsenceFixture(env.ids.Next(), employee.ID, day(2025, time.February, 25))
	if err := env.store.Absences().CreateAbsence(ctx, absence); err != nil {
		t.Fatalf("seed absence: %v", err)
	}
	env.seedStamps(t, employee.ID, day(2025, time.February, 26), 9*time.Hour, 17*time.Hour)

	if err := env.compliance.CheckMissingDays(ctx, employee.ID); err != nil {
		t.Fatalf("CheckMissingDays: %v", err)
	}

	days := notificationDays(t, env.store, employee.ID, 1)
	if len(days) != 3 {
		t.Fatalf("missing days = %v, want Mon, Thu, Fri", days)
	}
	requireBalance(t, env.balance(t, employee.ID), "-24")

	// A second run changes nothing.
	if err := env.compliance.CheckMissingDays(ctx, employee.ID); err != nil {
		t.Fatalf("CheckMissingDays again: %v", err)
	}
	requireBalance(t, env.balance(t, employee.ID), "-24")
}

func TestCheckOddStampsFlagsIncompleteDays(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	employee := env.seedEmployee(t)
	friday := day(2025, time.February, 28)
	env.seedStamps(t, employee.ID, friday, 9*time.Hour, 13*time.Hour, 14*time.Hour)
	env.clock.Set(day(2025, time.March, 3).Add(8 * time.Hour))

	if err := env.compliance.CheckOddStamps(ctx, employee.ID); err != nil {
		t.Fatalf("CheckOddStamps: %v", err)
	}
	if days := notificationDays(t, env.store, employee.ID, 2); len(days) != 1 || !days[0].Equal(friday) {
		t.Fatalf("odd-stamp days = %v, want %v", days, friday)
	}
}

func TestRestPeriodViolation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	employee := env.seedEmployee(t, testfixtures.WithLastLoginDay(day(2025, time.February, 24)))
	monday := day(2025, time.February, 24)
	tuesday := day(2025, time.February, 25)
	env.seedStamps(t, employee.ID, monday, 12*time.Hour, 21*time.Hour)
	env.seedStamps(t, employee.ID, tuesday, 7*time.Hour, 15*time.Hour)
	env.clock.Set(day(2025, time.February, 26).Add(8 * time.Hour))

	if err := env.compliance.RunProtectionChecks(ctx, employee.ID); err != nil {
		t.Fatalf("RunProtectionChecks: %v", err)
	}

	// 21:00 to 07:00 is 10h, below the 11h adult rest period.
	if days := notificationDays(t, env.store, employee.ID, 3); len(days) != 1 || !days[0].Equal(tuesday) {
		t.Fatalf("rest-period days = %v, want %v", days, tuesday)
	}
}

func TestAverageWorkingTimeViolationAndResolution(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	employee := env.seedEmployee(t)
	env.seedStamps(t, employee.ID, day(2025, time.February, 24), 8*time.Hour, 17*time.Hour+30*time.Minute)
	env.seedStamps(t, employee.ID, day(2025, time.February, 26), 8*time.Hour, 17*time.Hour+30*time.Minute)
	today := day(2025, time.February, 28)
	env.clock.Set(today.Add(8 * time.Hour))

	if err := env.compliance.RunProtectionChecks(ctx, employee.ID); err != nil {
		t.Fatalf("RunProtectionChecks: %v", err)
	}

	// Two 9h30m days count 8h45m each after breaks, averaging above the
	// 8h limit.
	if days := notificationDays(t, env.store, employee.ID, 4); len(days) != 1 || !days[0].Equal(today) {
		t.Fatalf("average days = %v, want %v", days, today)
	}

	// A short third day pulls the average back under 8h.
	env.seedStamps(t, employee.ID, day(2025, time.February, 27), 9*time.Hour, 12*time.Hour)
	if err := env.compliance.ReviewResolved(ctx, employee.ID); err != nil {
		t.Fatalf("ReviewResolved: %v", err)
	}
	if days := notificationDays(t, env.store, employee.ID, 4); len(days) != 0 {
		t.Fatalf("average finding survived: %v", days)
	}
}

func TestDailyMaximumViolation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	employee := env.seedEmployee(t, testfixtures.WithLastLoginDay(day(2025, time.February, 24)))
	monday := day(2025, time.February, 24)
	env.seedStamps(t, employee.ID, monday, 8*time.Hour, 19*time.Hour)
	env.clock.Set(day(2025, time.February, 26).Add(8 * time.Hour))

	if err := env.compliance.RunProtectionChecks(ctx, employee.ID); err != nil {
		t.Fatalf("RunProtectionChecks: %v", err)
	}

	// 11h presence minus 45m break leaves 10h15m, above the 10h cap.
	if days := notificationDays(t, env.store, employee.ID, 5); len(days) != 1 || !days[0].Equal(monday) {
		t.Fatalf("daily-max days = %v, want %v", days, monday)
	}
}

func TestDailyMaximumViolationMinor(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	monday := day(2025, time.February, 24)
	employee := env.seedEmployee(t,
		testfixtures.WithBirthDate(day(2009, time.January, 15)),
		testfixtures.WithLastLoginDay(monday),
	)
	env.seedStamps(t, employee.ID, monday, 8*time.Hour, 19*time.Hour)
	env.clock.Set(day(2025, time.February, 26).Add(8 * time.Hour))

	if err := env.compliance.RunProtectionChecks(ctx, employee.ID); err != nil {
		t.Fatalf("RunProtectionChecks: %v", err)
	}

	// 11h presence minus the hour of breaks leaves 10h, above the 8h
	// ceiling for minors.
	if days := notificationDays(t, env.store, employee.ID, 5); len(days) != 1 || !days[0].Equal(monday) {
		t.Fatalf("daily-max days = %v, want %v", days, monday)
	}
}

func TestSundayAndHolidayWork(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	employee := env.seedEmployee(t, testfixtures.WithLastLoginDay(day(2025, time.April, 28)))
	sunday := day(2025, time.May, 4)
	mayday := day(2025, time.May, 1)
	env.seedStamps(t, employee.ID, sunday, 9*time.Hour, 12*time.Hour)
	env.seedStamps(t, employee.ID, mayday, 9*time.Hour, 12*time.Hour)
	env.clock.Set(day(2025, time.May, 6).Add(8 * time.Hour))

	if err := env.compliance.RunProtectionChecks(ctx, employee.ID); err != nil {
		t.Fatalf("RunProtectionChecks: %v", err)
	}

	days := notificationDays(t, env.store, employee.ID, 6)
	if len(days) != 2 {
		t.Fatalf("sunday/holiday days = %v, want May 1st and May 4th", days)
	}
}

func TestMinorWeeklyProtections(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	weekStart := day(2025, time.February, 24)
	employee := env.seedEmployee(t,
		testfixtures.WithBirthDate(day(2009, time.January, 15)),
		testfixtures.WithLastLoginDay(weekStart),
	)
	// Six 8h days: 7h counted each after the hour of breaks, 42h in
	// total and one workday too many.
	for i := 0; i < 6; i++ {
		env.seedStamps(t, employee.ID, day(2025, time.February, 24+i), 8*time.Hour, 16*time.Hour)
	}
	env.clock.Set(day(2025, time.March, 3).Add(8 * time.Hour))

	if err := env.compliance.RunProtectionChecks(ctx, employee.ID); err != nil {
		t.Fatalf("RunProtectionChecks: %v", err)
	}

	if days := notificationDays(t, env.store, employee.ID, 7); len(days) != 1 || !days[0].Equal(weekStart) {
		t.Fatalf("weekly-hours days = %v, want %v", days, weekStart)
	}
	if days := notificationDays(t, env.store, employee.ID, 8); len(days) != 1 || !days[0].Equal(weekStart) {
		t.Fatalf("workday-count days = %v, want %v", days, weekStart)
	}
}

func TestReviewResolvedDropsStaleFindings(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	employee := env.seedEmployee(t)
	tuesday := day(2025, time.February, 25)

	// A rest-period finding whose preceding day has no stamps anymore.
	stale := testfixtures.NewNotificationFixture(env.ids.Next(), employee.ID, 3, tuesday)
	if err := env.store.Notifications().CreateNotification(ctx, stale); err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	// A daily-max finding that still holds.
	monday := day(2025, time.February, 24)
	env.seedStamps(t, employee.ID, monday, 8*time.Hour, 19*time.Hour)
	held := testfixtures.NewNotificationFixture(env.ids.Next(), employee.ID, 5, monday)
	if err := env.store.Notifications().CreateNotification(ctx, held); err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	env.clock.Set(day(2025, time.March, 3).Add(8 * time.Hour))

	if err := env.compliance.ReviewResolved(ctx, employee.ID); err != nil {
		t.Fatalf("ReviewResolved: %v", err)
	}

	if _, err := env.store.Notifications().GetNotification(ctx, employee.ID, 3, tuesday); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("stale rest-period finding survived, err = %v", err)
	}
	if _, err := env.store.Notifications().GetNotification(ctx, employee.ID, 5, monday); err != nil {
		t.Fatalf("valid daily-max finding dropped: %v", err)
	}
}

func TestReviewResolvedDropsMinorFindingsForAdults(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	employee := env.seedEmployee(t)
	weekStart := day(2025, time.February, 24)
	finding := testfixtures.NewNotificationFixture(env.ids.Next(), employee.ID, 7, weekStart)
	if err := env.store.Notifications().CreateNotification(ctx, finding); err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	env.clock.Set(day(2025, time.March, 3).Add(8 * time.Hour))

	if err := env.compliance.ReviewResolved(ctx, employee.ID); err != nil {
		t.Fatalf("ReviewResolved: %v", err)
	}
	if _, err := env.store.Notifications().GetNotification(ctx, employee.ID, 7, weekStart); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("minor finding survived for an adult, err = %v", err)
	}
}
