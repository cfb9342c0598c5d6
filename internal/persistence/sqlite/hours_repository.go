package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/timeclock/internal/persistence"
)

type hoursHistoryRepository struct {
	q querier
}

// UpsertWeeklyHours inserts an entry or rewrites the value of an
// existing entry at the same effective-from day.
func (r *hoursHistoryRepository) UpsertWeeklyHours(ctx context.Context, entry persistence.WeeklyHoursEntry) error {
	if entry.ID == "" || entry.EmployeeID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO weekly_hours_history (id, employee_id, weekly_hours, effective_from, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (employee_id, effective_from) DO UPDATE SET weekly_hours = excluded.weekly_hours`,
		entry.ID,
		entry.EmployeeID,
		entry.WeeklyHours,
		formatDay(entry.EffectiveFrom),
		formatInstant(entry.CreatedAt),
	)
	return mapError(err)
}

// WeeklyHoursOn resolves the weekly hours effective on a day: the most
// recent entry with effective_from at or before it. The boolean is
// false when no entry applies.
func (r *hoursHistoryRepository) WeeklyHoursOn(ctx context.Context, employeeID string, day time.Time) (int, bool, error) {
	var hours int
	err := r.q.QueryRowContext(ctx,
		`SELECT weekly_hours FROM weekly_hours_history
		 WHERE employee_id = ? AND effective_from <= ?
		 ORDER BY effective_from DESC LIMIT 1`,
		employeeID, formatDay(day)).Scan(&hours)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, mapError(err)
	}
	return hours, true, nil
}

// ListWeeklyHours returns the full timeline, ascending by effective day.
func (r *hoursHistoryRepository) ListWeeklyHours(ctx context.Context, employeeID string) ([]persistence.WeeklyHoursEntry, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, employee_id, weekly_hours, effective_from, created_at
		 FROM weekly_hours_history WHERE employee_id = ? ORDER BY effective_from ASC`,
		employeeID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []persistence.WeeklyHoursEntry
	for rows.Next() {
		var (
			entry         persistence.WeeklyHoursEntry
			effectiveFrom string
			createdAt     string
		)
		if err := rows.Scan(&entry.ID, &entry.EmployeeID, &entry.WeeklyHours, &effectiveFrom, &createdAt); err != nil {
			return nil, mapError(err)
		}
		if entry.EffectiveFrom, err = parseDay(effectiveFrom); err != nil {
			return nil, err
		}
		if entry.CreatedAt, err = parseInstant(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return entries, nil
}
