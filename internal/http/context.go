package http

import (
	"context"

	"github.com/example/timeclock/internal/persistence"
)

type contextKey string

const employeeContextKey contextKey = "employee"

// ContextWithEmployee returns a derived context carrying the
// authenticated employee.
func ContextWithEmployee(ctx context.Context, employee persistence.Employee) context.Context {
	return context.WithValue(ctx, employeeContextKey, employee)
}

// EmployeeFromContext extracts the authenticated employee, if any.
func EmployeeFromContext(ctx context.Context) (persistence.Employee, bool) {
	employee, ok := ctx.Value(employeeContextKey).(persistence.Employee)
	return employee, ok
}
