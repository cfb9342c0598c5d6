package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/example/timeclock/internal/persistence"
)

type employeeRepository struct {
	q querier
}

const employeeColumns = `id, name, password_hash, birth_date, weekly_hours, flex_balance,
	green_threshold, red_threshold, supervisor_id, last_login_day, created_at, updated_at`

// CreateEmployee inserts a new employee.
func (r *employeeRepository) CreateEmployee(ctx context.Context, employee persistence.Employee) error {
	if employee.ID == "" || employee.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO employees (` + employeeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.q.ExecContext(ctx, query,
		employee.ID,
		employee.Name,
		employee.PasswordHash,
		formatDay(employee.BirthDate),
		employee.WeeklyHours,
		employee.FlexBalance.String(),
		employee.GreenThreshold.String(),
		employee.RedThreshold.String(),
		employee.SupervisorID,
		formatDay(employee.LastLoginDay),
		formatInstant(employee.CreatedAt),
		formatInstant(employee.UpdatedAt),
	)
	return mapError(err)
}

// UpdateEmployee rewrites all mutable employee fields.
func (r *employeeRepository) UpdateEmployee(ctx context.Context, employee persistence.Employee) error {
	if employee.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE employees
		SET name = ?, password_hash = ?, birth_date = ?, weekly_hours = ?, flex_balance = ?,
			green_threshold = ?, red_threshold = ?, supervisor_id = ?, last_login_day = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.q.ExecContext(ctx, query,
		employee.Name,
		employee.PasswordHash,
		formatDay(employee.BirthDate),
		employee.WeeklyHours,
		employee.FlexBalance.String(),
		employee.GreenThreshold.String(),
		employee.RedThreshold.String(),
		employee.SupervisorID,
		formatDay(employee.LastLoginDay),
		formatInstant(employee.UpdatedAt),
		employee.ID,
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

// GetEmployee retrieves an employee by ID.
func (r *employeeRepository) GetEmployee(ctx context.Context, id string) (persistence.Employee, error) {
	if id == "" {
		return persistence.Employee{}, persistence.ErrNotFound
	}
	row := r.q.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	return scanEmployee(row)
}

// GetEmployeeByName retrieves an employee by unique name.
func (r *employeeRepository) GetEmployeeByName(ctx context.Context, name string) (persistence.Employee, error) {
	if name == "" {
		return persistence.Employee{}, persistence.ErrNotFound
	}
	row := r.q.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE name = ?`, name)
	return scanEmployee(row)
}

// ListSubordinates returns employees supervised by the given employee,
// ordered by name.
func (r *employeeRepository) ListSubordinates(ctx context.Context, supervisorID string) ([]persistence.Employee, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE supervisor_id = ? ORDER BY name ASC`, supervisorID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var employees []persistence.Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return employees, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (persistence.Employee, error) {
	var (
		employee             persistence.Employee
		birthDate, lastLogin string
		balance, green, red  string
		createdAt, updatedAt string
		supervisorID         sql.NullString
	)
	err := row.Scan(
		&employee.ID,
		&employee.Name,
		&employee.PasswordHash,
		&birthDate,
		&employee.WeeklyHours,
		&balance,
		&green,
		&red,
		&supervisorID,
		&lastLogin,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Employee{}, persistence.ErrNotFound
		}
		return persistence.Employee{}, mapError(err)
	}

	if employee.BirthDate, err = parseDay(birthDate); err != nil {
		return persistence.Employee{}, err
	}
	if employee.LastLoginDay, err = parseDay(lastLogin); err != nil {
		return persistence.Employee{}, err
	}
	if employee.FlexBalance, err = parseDecimal(balance); err != nil {
		return persistence.Employee{}, err
	}
	if employee.GreenThreshold, err = parseDecimal(green); err != nil {
		return persistence.Employee{}, err
	}
	if employee.RedThreshold, err = parseDecimal(red); err != nil {
		return persistence.Employee{}, err
	}
	if supervisorID.Valid {
		employee.SupervisorID = &supervisorID.String
	}
	if employee.CreatedAt, err = parseInstant(createdAt); err != nil {
		return persistence.Employee{}, err
	}
	if employee.UpdatedAt, err = parseInstant(updatedAt); err != nil {
		return persistence.Employee{}, err
	}
	return employee, nil
}

func parseDecimal(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse decimal %q: %w", value, err)
	}
	return d, nil
}
