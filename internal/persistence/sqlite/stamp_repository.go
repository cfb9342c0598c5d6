package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/timeclock/internal/persistence"
)

type stampRepository struct {
	q querier
}

const stampColumns = `id, employee_id, day, at, settled, created_at`

// CreateStamp inserts a new clock event.
func (r *stampRepository) CreateStamp(ctx context.Context, stamp persistence.TimeStamp) error {
	if stamp.ID == "" || stamp.EmployeeID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO time_stamps (`+stampColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		stamp.ID,
		stamp.EmployeeID,
		formatDay(stamp.Day),
		formatInstant(stamp.At),
		stamp.Settled,
		formatInstant(stamp.CreatedAt),
	)
	return mapError(err)
}

// UpdateStamp rewrites the instant and settled flag of a stamp.
func (r *stampRepository) UpdateStamp(ctx context.Context, stamp persistence.TimeStamp) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE time_stamps SET day = ?, at = ?, settled = ? WHERE id = ?`,
		formatDay(stamp.Day),
		formatInstant(stamp.At),
		stamp.Settled,
		stamp.ID,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetStamp retrieves a stamp by ID.
func (r *stampRepository) GetStamp(ctx context.Context, id string) (persistence.TimeStamp, error) {
	if id == "" {
		return persistence.TimeStamp{}, persistence.ErrNotFound
	}
	row := r.q.QueryRowContext(ctx, `SELECT `+stampColumns+` FROM time_stamps WHERE id = ?`, id)
	return scanStamp(row)
}

// ListStamps returns an employee's stamps matching the filter, ordered
// by day, then time.
func (r *stampRepository) ListStamps(ctx context.Context, employeeID string, filter persistence.StampFilter) ([]persistence.TimeStamp, error) {
	query := `SELECT ` + stampColumns + ` FROM time_stamps WHERE employee_id = ?`
	args := []any{employeeID}

	if filter.Day != nil {
		query += ` AND day = ?`
		args = append(args, formatDay(*filter.Day))
	}
	if filter.From != nil {
		query += ` AND day >= ?`
		args = append(args, formatDay(*filter.From))
	}
	if filter.To != nil {
		query += ` AND day <= ?`
		args = append(args, formatDay(*filter.To))
	}
	if filter.Unsettled {
		query += ` AND settled = 0`
	}
	query += ` ORDER BY day ASC, at ASC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var stamps []persistence.TimeStamp
	for rows.Next() {
		stamp, err := scanStamp(rows)
		if err != nil {
			return nil, err
		}
		stamps = append(stamps, stamp)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return stamps, nil
}

// ListStampedDays returns the distinct days with at least one stamp in
// the inclusive range, ascending.
func (r *stampRepository) ListStampedDays(ctx context.Context, employeeID string, from, to time.Time) ([]time.Time, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT DISTINCT day FROM time_stamps WHERE employee_id = ? AND day >= ? AND day <= ? ORDER BY day ASC`,
		employeeID, formatDay(from), formatDay(to))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, mapError(err)
		}
		day, err := parseDay(value)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return days, nil
}

// DeleteStamp removes a stamp by ID.
func (r *stampRepository) DeleteStamp(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM time_stamps WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanStamp(row rowScanner) (persistence.TimeStamp, error) {
	var (
		stamp     persistence.TimeStamp
		day, at   string
		createdAt string
	)
	err := row.Scan(&stamp.ID, &stamp.EmployeeID, &day, &at, &stamp.Settled, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.TimeStamp{}, persistence.ErrNotFound
		}
		return persistence.TimeStamp{}, mapError(err)
	}
	if stamp.Day, err = parseDay(day); err != nil {
		return persistence.TimeStamp{}, err
	}
	if stamp.At, err = parseInstant(at); err != nil {
		return persistence.TimeStamp{}, err
	}
	if stamp.CreatedAt, err = parseInstant(createdAt); err != nil {
		return persistence.TimeStamp{}, err
	}
	return stamp, nil
}
