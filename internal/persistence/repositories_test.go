package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/timeclock/internal/persistence"
	"github.com/example/timeclock/internal/testfixtures"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEmployeeRepository(t *testing.T) {
	t.Parallel()

	t.Run("creates, reads and updates employees", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := testfixtures.NewSQLiteHarness(t)

		employee := testfixtures.NewEmployeeFixture()
		if err := store.Employees().CreateEmployee(ctx, employee); err != nil {
			t.Fatalf("CreateEmployee failed: %v", err)
		}

		fetched, err := store.Employees().GetEmployee(ctx, employee.ID)
		if err != nil {
			t.Fatalf("GetEmployee failed: %v", err)
		}
		if fetched.Name != employee.Name || fetched.WeeklyHours != 40 {
			t.Fatalf("unexpected employee: %#v", fetched)
		}
		if !fetched.FlexBalance.Equal(decimal.Zero) {
			t.Fatalf("unexpected balance: %s", fetched.FlexBalance)
		}

		fetched.FlexBalance = decimal.RequireFromString("1.25")
		fetched.WeeklyHours = 35
		fetched.UpdatedAt = fetched.UpdatedAt.Add(time.Hour)
		if err := store.Employees().UpdateEmployee(ctx, fetched); err != nil {
			t.Fatalf("UpdateEmployee failed: %v", err)
		}

		byName, err := store.Employees().GetEmployeeByName(ctx, employee.Name)
		if err != nil {
			t.Fatalf("GetEmployeeByName failed: %v", err)
		}
		if !byName.FlexBalance.Equal(decimal.RequireFromString("1.25")) || byName.WeeklyHours != 35 {
			t.Fatalf("unexpected updated employee: %#v", byName)
		}
	})

	t.Run("enforces unique names", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := testfixtures.NewSQLiteHarness(t)

		if err := store.Employees().CreateEmployee(ctx, testfixtures.NewEmployeeFixture()); err != nil {
			t.Fatalf("CreateEmployee failed: %v", err)
		}
		conflicting := testfixtures.NewEmployeeFixture(testfixtures.WithEmployeeID("employee-2"))
		if err := store.Employees().CreateEmployee(ctx, conflicting); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
		}
	})

	t.Run("lists subordinates by name", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := testfixtures.NewSQLiteHarness(t)

		supervisor := testfixtures.NewEmployeeFixture(
			testfixtures.WithEmployeeID("boss"),
			testfixtures.WithEmployeeName("boss"),
		)
		if err := store.Employees().CreateEmployee(ctx, supervisor); err != nil {
			t.Fatalf("CreateEmployee failed: %v", err)
		}
		for _, name := range []string{"carol", "bob"} {
			sub := testfixtures.NewEmployeeFixture(
				testfixtures.WithEmployeeID("employee-"+name),
				testfixtures.WithEmployeeName(name),
				testfixtures.WithSupervisor(supervisor.ID),
			)
			if err := store.Employees().CreateEmployee(ctx, sub); err != nil {
				t.Fatalf("CreateEmployee(%s) failed: %v", name, err)
			}
		}

		subordinates, err := store.Employees().ListSubordinates(ctx, supervisor.ID)
		if err != nil {
			t.Fatalf("ListSubordinates failed: %v", err)
		}
		if len(subordinates) != 2 || subordinates[0].Name != "bob" || subordinates[1].Name != "carol" {
			t.Fatalf("unexpected subordinates: %#v", subordinates)
		}
	})
}

func TestStampRepository(t *testing.T) {
	t.Parallel()

	t.Run("orders and filters stamps", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := testfixtures.NewSQLiteHarness(t)

		employee := testfixtures.NewEmployeeFixture()
		if err := store.Employees().CreateEmployee(ctx, employee); err != nil {
			t.Fatalf("CreateEmployee failed: %v", err)
		}

		monday := day(2025, time.March, 3)
		tuesday := day(2025, time.March, 4)
		stamps := []persistence.TimeStamp{
			testfixtures.NewStampFixture("stamp-2", employee.ID, monday, 17*time.Hour),
			testfixtures.NewStampFixture("stamp-1", employee.ID, monday, 9*time.Hour),
			testfixtures.NewStampFixture("stamp-3", employee.ID, tuesday, 8*time.Hour),
		}
		for _, stamp := range stamps {
			if err := store.Stamps().CreateStamp(ctx, stamp); err != nil {
				t.Fatalf("CreateStamp(%s) failed: %v", stamp.ID, err)
			}
		}

		listed, err := store.Stamps().ListStamps(ctx, employee.ID, persistence.StampFilter{})
		if err != nil {
			t.Fatalf("ListStamps failed: %v", err)
		}
		if len(listed) != 3 || listed[0].ID != "stamp-1" || listed[1].ID != "stamp-2" || listed[2].ID != "stamp-3" {
			t.Fatalf("unexpected order: %#v", listed)
		}

		settled := listed[0]
		settled.Settled = true
		if err := store.Stamps().UpdateStamp(ctx, settled); err != nil {
			t.Fatalf("UpdateStamp failed: %v", err)
		}

		unsettled, err := store.Stamps().ListStamps(ctx, employee.ID, persistence.StampFilter{Unsettled: true})
		if err != nil {
			t.Fatalf("ListStamps failed: %v", err)
		}
		if len(unsettled) != 2 {
			t.Fatalf("expected 2 unsettled stamps, got %d", len(unsettled))
		}

		byDay, err := store.Stamps().ListStamps(ctx, employee.ID, persistence.StampFilter{Day: &tuesday})
		if err != nil {
			t.Fatalf("ListStamps failed: %v", err)
		}
		if len(byDay) != 1 || byDay[0].ID != "stamp-3" {
			t.Fatalf("unexpected day filter result: %#v", byDay)
		}

		days, err := store.Stamps().ListStampedDays(ctx, employee.ID, monday, tuesday)
		if err != nil {
			t.Fatalf("ListStampedDays failed: %v", err)
		}
		if len(days) != 2 || !days[0].Equal(monday) || !days[1].Equal(tuesday) {
			t.Fatalf("unexpected stamped days: %#v", days)
		}

		if err := store.Stamps().DeleteStamp(ctx, "stamp-3"); err != nil {
			t.Fatalf("DeleteStamp failed: %v", err)
		}
		if err := store.Stamps().DeleteStamp(ctx, "stamp-3"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound, got %v", err)
		}
	})
}

func TestAbsenceRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testfixtures.NewSQLiteHarness(t)

	employee := testfixtures.NewEmployeeFixture()
	if err := store.Employees().CreateEmployee(ctx, employee); err != nil {
		t.Fatalf("CreateEmployee failed: %v", err)
	}

	monday := day(2025, time.March, 3)
	if err := store.Absences().CreateAbsence(ctx, testfixtures.NewAbsenceFixture("absence-1", employee.ID, monday)); err != nil {
		t.Fatalf("CreateAbsence failed: %v", err)
	}
	if err := store.Absences().CreateAbsence(ctx, testfixtures.NewAbsenceFixture("absence-2", employee.ID, monday)); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
	}

	fetched, err := store.Absences().GetAbsenceOn(ctx, employee.ID, monday)
	if err != nil {
		t.Fatalf("GetAbsenceOn failed: %v", err)
	}
	if fetched.Type != persistence.AbsenceVacation || !fetched.Approved {
		t.Fatalf("unexpected absence: %#v", fetched)
	}

	if _, err := store.Absences().GetAbsenceOn(ctx, employee.ID, day(2025, time.March, 4)); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound, got %v", err)
	}
}

func TestNotificationRepository(t *testing.T) {
	t.Parallel()

	t.Run("enforces the employee code day key", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := testfixtures.NewSQLiteHarness(t)

		employee := testfixtures.NewEmployeeFixture()
		if err := store.Employees().CreateEmployee(ctx, employee); err != nil {
			t.Fatalf("CreateEmployee failed: %v", err)
		}

		monday := day(2025, time.March, 3)
		first := testfixtures.NewNotificationFixture("notification-1", employee.ID, 1, monday)
		if err := store.Notifications().CreateNotification(ctx, first); err != nil {
			t.Fatalf("CreateNotification failed: %v", err)
		}
		duplicate := testfixtures.NewNotificationFixture("notification-2", employee.ID, 1, monday)
		if err := store.Notifications().CreateNotification(ctx, duplicate); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
		}
		otherCode := testfixtures.NewNotificationFixture("notification-3", employee.ID, 2, monday)
		if err := store.Notifications().CreateNotification(ctx, otherCode); err != nil {
			t.Fatalf("CreateNotification failed: %v", err)
		}

		byCode, err := store.Notifications().ListNotificationsByCode(ctx, employee.ID, []int{1})
		if err != nil {
			t.Fatalf("ListNotificationsByCode failed: %v", err)
		}
		if len(byCode) != 1 || byCode[0].ID != "notification-1" {
			t.Fatalf("unexpected notifications: %#v", byCode)
		}

		if err := store.Notifications().DeleteNotificationByKey(ctx, employee.ID, 1, monday); err != nil {
			t.Fatalf("DeleteNotificationByKey failed: %v", err)
		}
		if _, err := store.Notifications().GetNotification(ctx, employee.ID, 1, monday); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound, got %v", err)
		}
	})

	t.Run("returns due popups and clears them per day", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := testfixtures.NewSQLiteHarness(t)

		employee := testfixtures.NewEmployeeFixture()
		if err := store.Employees().CreateEmployee(ctx, employee); err != nil {
			t.Fatalf("CreateEmployee failed: %v", err)
		}

		monday := day(2025, time.March, 3)
		early := monday.Add(19 * time.Hour)
		late := monday.Add(21 * time.Hour)
		popups := []persistence.Notification{
			{ID: "popup-1", EmployeeID: employee.ID, Code: 9, Day: monday, Message: "m", Popup: true, ShowAt: &early, CreatedAt: testfixtures.ReferenceTime()},
			{ID: "popup-2", EmployeeID: employee.ID, Code: 10, Day: monday, Message: "m", Popup: true, ShowAt: &late, CreatedAt: testfixtures.ReferenceTime()},
		}
		for _, popup := range popups {
			if err := store.Notifications().CreateNotification(ctx, popup); err != nil {
				t.Fatalf("CreateNotification(%s) failed: %v", popup.ID, err)
			}
		}

		due, err := store.Notifications().ListDuePopups(ctx, employee.ID, monday.Add(20*time.Hour))
		if err != nil {
			t.Fatalf("ListDuePopups failed: %v", err)
		}
		if len(due) != 1 || due[0].ID != "popup-1" {
			t.Fatalf("unexpected due popups: %#v", due)
		}

		if err := store.Notifications().DeletePopupsOn(ctx, employee.ID, monday); err != nil {
			t.Fatalf("DeletePopupsOn failed: %v", err)
		}
		remaining, err := store.Notifications().ListNotifications(ctx, employee.ID)
		if err != nil {
			t.Fatalf("ListNotifications failed: %v", err)
		}
		if len(remaining) != 0 {
			t.Fatalf("expected popups cleared, got %#v", remaining)
		}
	})
}

func TestHoursHistoryRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testfixtures.NewSQLiteHarness(t)

	employee := testfixtures.NewEmployeeFixture()
	if err := store.Employees().CreateEmployee(ctx, employee); err != nil {
		t.Fatalf("CreateEmployee failed: %v", err)
	}

	entries := []persistence.WeeklyHoursEntry{
		{ID: "hours-1", EmployeeID: employee.ID, WeeklyHours: 40, EffectiveFrom: day(2025, time.January, 1), CreatedAt: testfixtures.ReferenceTime()},
		{ID: "hours-2", EmployeeID: employee.ID, WeeklyHours: 35, EffectiveFrom: day(2025, time.March, 1), CreatedAt: testfixtures.ReferenceTime()},
	}
	for _, entry := range entries {
		if err := store.HoursHistory().UpsertWeeklyHours(ctx, entry); err != nil {
			t.Fatalf("UpsertWeeklyHours(%s) failed: %v", entry.ID, err)
		}
	}

	hours, ok, err := store.HoursHistory().WeeklyHoursOn(ctx, employee.ID, day(2025, time.February, 10))
	if err != nil || !ok || hours != 40 {
		t.Fatalf("WeeklyHoursOn = %d, %v, %v; want 40, true, nil", hours, ok, err)
	}
	hours, ok, err = store.HoursHistory().WeeklyHoursOn(ctx, employee.ID, day(2025, time.March, 3))
	if err != nil || !ok || hours != 35 {
		t.Fatalf("WeeklyHoursOn = %d, %v, %v; want 35, true, nil", hours, ok, err)
	}
	_, ok, err = store.HoursHistory().WeeklyHoursOn(ctx, employee.ID, day(2024, time.June, 1))
	if err != nil || ok {
		t.Fatalf("WeeklyHoursOn before history = %v, %v; want false, nil", ok, err)
	}

	// Upsert at an existing effective day replaces the value.
	replacement := persistence.WeeklyHoursEntry{ID: "hours-3", EmployeeID: employee.ID, WeeklyHours: 30, EffectiveFrom: day(2025, time.March, 1), CreatedAt: testfixtures.ReferenceTime()}
	if err := store.HoursHistory().UpsertWeeklyHours(ctx, replacement); err != nil {
		t.Fatalf("UpsertWeeklyHours replacement failed: %v", err)
	}
	listed, err := store.HoursHistory().ListWeeklyHours(ctx, employee.ID)
	if err != nil {
		t.Fatalf("ListWeeklyHours failed: %v", err)
	}
	if len(listed) != 2 || listed[1].WeeklyHours != 30 {
		t.Fatalf("unexpected history: %#v", listed)
	}
}

func TestSessionRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testfixtures.NewSQLiteHarness(t)

	employee := testfixtures.NewEmployeeFixture()
	if err := store.Employees().CreateEmployee(ctx, employee); err != nil {
		t.Fatalf("CreateEmployee failed: %v", err)
	}

	now := testfixtures.ReferenceTime()
	session := persistence.Session{Token: "token-1", EmployeeID: employee.ID, ExpiresAt: now.Add(24 * time.Hour), CreatedAt: now}
	if err := store.Sessions().CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	fetched, err := store.Sessions().GetSession(ctx, session.Token)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.EmployeeID != employee.ID {
		t.Fatalf("unexpected session: %#v", fetched)
	}

	if err := store.Sessions().DeleteExpiredSessions(ctx, now.Add(48*time.Hour)); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if _, err := store.Sessions().GetSession(ctx, session.Token); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound after pruning, got %v", err)
	}
}

func TestStoreTransactions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testfixtures.NewSQLiteHarness(t)

	employee := testfixtures.NewEmployeeFixture()
	if err := store.Employees().CreateEmployee(ctx, employee); err != nil {
		t.Fatalf("CreateEmployee failed: %v", err)
	}

	monday := day(2025, time.March, 3)
	failure := errors.New("abort")
	err := store.WithTransaction(ctx, func(tx persistence.Store) error {
		if err := tx.Stamps().CreateStamp(ctx, testfixtures.NewStampFixture("stamp-1", employee.ID, monday, 9*time.Hour)); err != nil {
			return err
		}
		updated := employee
		updated.FlexBalance = decimal.NewFromInt(1)
		if err := tx.Employees().UpdateEmployee(ctx, updated); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected abort error, got %v", err)
	}

	stamps, err := store.Stamps().ListStamps(ctx, employee.ID, persistence.StampFilter{})
	if err != nil {
		t.Fatalf("ListStamps failed: %v", err)
	}
	if len(stamps) != 0 {
		t.Fatalf("expected rollback to discard stamps, got %#v", stamps)
	}
	fetched, err := store.Employees().GetEmployee(ctx, employee.ID)
	if err != nil {
		t.Fatalf("GetEmployee failed: %v", err)
	}
	if !fetched.FlexBalance.Equal(decimal.Zero) {
		t.Fatalf("expected rollback to keep balance zero, got %s", fetched.FlexBalance)
	}
}
