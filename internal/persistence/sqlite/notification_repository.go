package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/timeclock/internal/persistence"
)

type notificationRepository struct {
	q querier
}

const notificationColumns = `id, employee_id, code, day, message, popup, show_at, created_at`

// CreateNotification inserts a finding or popup. Violating the
// (employee, code, day) uniqueness yields ErrDuplicate.
func (r *notificationRepository) CreateNotification(ctx context.Context, notification persistence.Notification) error {
	if notification.ID == "" || notification.EmployeeID == "" {
		return persistence.ErrConstraintViolation
	}
	var showAt *string
	if notification.ShowAt != nil {
		formatted := formatInstant(*notification.ShowAt)
		showAt = &formatted
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		notification.ID,
		notification.EmployeeID,
		notification.Code,
		formatDay(notification.Day),
		notification.Message,
		notification.Popup,
		showAt,
		formatInstant(notification.CreatedAt),
	)
	return mapError(err)
}

// GetNotification retrieves a notification by its natural key.
func (r *notificationRepository) GetNotification(ctx context.Context, employeeID string, code int, day time.Time) (persistence.Notification, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE employee_id = ? AND code = ? AND day = ?`,
		employeeID, code, formatDay(day))
	return scanNotification(row)
}

// ListNotifications returns all of an employee's notifications ordered
// by day, then code.
func (r *notificationRepository) ListNotifications(ctx context.Context, employeeID string) ([]persistence.Notification, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE employee_id = ? ORDER BY day ASC, code ASC`,
		employeeID)
	if err != nil {
		return nil, mapError(err)
	}
	return collectNotifications(rows)
}

// ListNotificationsByCode returns notifications with any of the given
// codes, ordered by day, then code.
func (r *notificationRepository) ListNotificationsByCode(ctx context.Context, employeeID string, codes []int) ([]persistence.Notification, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(codes)), ", ")
	args := []any{employeeID}
	for _, code := range codes {
		args = append(args, code)
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE employee_id = ? AND code IN (`+placeholders+`) ORDER BY day ASC, code ASC`,
		args...)
	if err != nil {
		return nil, mapError(err)
	}
	return collectNotifications(rows)
}

// ListDuePopups returns popup notifications whose show time has been
// reached.
func (r *notificationRepository) ListDuePopups(ctx context.Context, employeeID string, reference time.Time) ([]persistence.Notification, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE employee_id = ? AND popup = 1 AND show_at IS NOT NULL AND show_at <= ?
		 ORDER BY show_at ASC`,
		employeeID, formatInstant(reference))
	if err != nil {
		return nil, mapError(err)
	}
	return collectNotifications(rows)
}

// DeleteNotification removes a notification by ID.
func (r *notificationRepository) DeleteNotification(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
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

// DeleteNotificationByKey removes a notification by its natural key.
// Deleting a missing key is not an error.
func (r *notificationRepository) DeleteNotificationByKey(ctx context.Context, employeeID string, code int, day time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM notifications WHERE employee_id = ? AND code = ? AND day = ?`,
		employeeID, code, formatDay(day))
	return mapError(err)
}

// DeletePopupsOn removes all popup notifications dated the given day.
func (r *notificationRepository) DeletePopupsOn(ctx context.Context, employeeID string, day time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM notifications WHERE employee_id = ? AND popup = 1 AND day = ?`,
		employeeID, formatDay(day))
	return mapError(err)
}

func collectNotifications(rows *sql.Rows) ([]persistence.Notification, error) {
	defer rows.Close()
	var notifications []persistence.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return notifications, nil
}

func scanNotification(row rowScanner) (persistence.Notification, error) {
	var (
		notification persistence.Notification
		day          string
		showAt       sql.NullString
		createdAt    string
	)
	err := row.Scan(
		&notification.ID,
		&notification.EmployeeID,
		&notification.Code,
		&day,
		&notification.Message,
		&notification.Popup,
		&showAt,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Notification{}, persistence.ErrNotFound
		}
		return persistence.Notification{}, mapError(err)
	}
	if notification.Day, err = parseDay(day); err != nil {
		return persistence.Notification{}, err
	}
	if showAt.Valid {
		at, err := parseInstant(showAt.String)
		if err != nil {
			return persistence.Notification{}, err
		}
		notification.ShowAt = &at
	}
	if notification.CreatedAt, err = parseInstant(createdAt); err != nil {
		return persistence.Notification{}, err
	}
	return notification, nil
}
