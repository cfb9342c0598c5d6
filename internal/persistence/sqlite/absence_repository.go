package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/timeclock/internal/persistence"
)

type absenceRepository struct {
	q querier
}

const absenceColumns = `id, employee_id, day, type, approved, created_at`

// CreateAbsence inserts a full-day absence. A second absence on the
// same day yields ErrDuplicate.
func (r *absenceRepository) CreateAbsence(ctx context.Context, absence persistence.Absence) error {
	if absence.ID == "" || absence.EmployeeID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO absences (`+absenceColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		absence.ID,
		absence.EmployeeID,
		formatDay(absence.Day),
		string(absence.Type),
		absence.Approved,
		formatInstant(absence.CreatedAt),
	)
	return mapError(err)
}

// GetAbsenceOn retrieves the absence registered for a day, if any.
func (r *absenceRepository) GetAbsenceOn(ctx context.Context, employeeID string, day time.Time) (persistence.Absence, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+absenceColumns+` FROM absences WHERE employee_id = ? AND day = ?`,
		employeeID, formatDay(day))
	return scanAbsence(row)
}

// ListAbsences returns absences in the inclusive day range, ascending.
func (r *absenceRepository) ListAbsences(ctx context.Context, employeeID string, from, to time.Time) ([]persistence.Absence, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+absenceColumns+` FROM absences WHERE employee_id = ? AND day >= ? AND day <= ? ORDER BY day ASC`,
		employeeID, formatDay(from), formatDay(to))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var absences []persistence.Absence
	for rows.Next() {
		absence, err := scanAbsence(rows)
		if err != nil {
			return nil, err
		}
		absences = append(absences, absence)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return absences, nil
}

// DeleteAbsence removes an absence by ID.
func (r *absenceRepository) DeleteAbsence(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM absences WHERE id = ?`, id)
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

func scanAbsence(row rowScanner) (persistence.Absence, error) {
	var (
		absence   persistence.Absence
		day       string
		typ       string
		createdAt string
	)
	err := row.Scan(&absence.ID, &absence.EmployeeID, &day, &typ, &absence.Approved, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Absence{}, persistence.ErrNotFound
		}
		return persistence.Absence{}, mapError(err)
	}
	absence.Type = persistence.AbsenceType(typ)
	if absence.Day, err = parseDay(day); err != nil {
		return persistence.Absence{}, err
	}
	if absence.CreatedAt, err = parseInstant(createdAt); err != nil {
		return persistence.Absence{}, err
	}
	return absence, nil
}
