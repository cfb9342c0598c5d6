package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/timeclock/internal/persistence"
)

type sessionRepository struct {
	q querier
}

// CreateSession inserts a session token.
func (r *sessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.Token == "" || session.EmployeeID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO sessions (token, employee_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		session.Token,
		session.EmployeeID,
		formatInstant(session.ExpiresAt),
		formatInstant(session.CreatedAt),
	)
	return mapError(err)
}

// GetSession retrieves a session by token.
func (r *sessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	var (
		session              persistence.Session
		expiresAt, createdAt string
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT token, employee_id, expires_at, created_at FROM sessions WHERE token = ?`, token).
		Scan(&session.Token, &session.EmployeeID, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, mapError(err)
	}
	if session.ExpiresAt, err = parseInstant(expiresAt); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseInstant(createdAt); err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}

// DeleteSession removes a session by token.
func (r *sessionRepository) DeleteSession(ctx context.Context, token string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
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

// DeleteExpiredSessions prunes sessions expired at the reference time.
func (r *sessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatInstant(reference))
	return mapError(err)
}
