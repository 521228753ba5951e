// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
)

const createAuthSession = `
INSERT INTO auth_sessions (id, user_id, user_agent, created_at, refreshed_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?)
`

// CreateAuthSessionParams holds the columns written by CreateAuthSession.
type CreateAuthSessionParams struct {
	ID          string
	UserID      string
	UserAgent   string
	CreatedAt   int64
	RefreshedAt int64
	ExpiresAt   int64
}

// CreateAuthSession inserts a signed-in session.
func (q *Queries) CreateAuthSession(ctx context.Context, arg CreateAuthSessionParams) error {
	_, err := q.db.ExecContext(ctx, createAuthSession,
		arg.ID,
		arg.UserID,
		arg.UserAgent,
		arg.CreatedAt,
		arg.RefreshedAt,
		arg.ExpiresAt,
	)
	return err
}

const getAuthSession = `
SELECT id, user_id, user_agent, created_at, refreshed_at, expires_at
FROM auth_sessions WHERE id = ?
`

// GetAuthSession returns a session by id.
func (q *Queries) GetAuthSession(ctx context.Context, id string) (AuthSession, error) {
	row := q.db.QueryRowContext(ctx, getAuthSession, id)
	var i AuthSession
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.UserAgent,
		&i.CreatedAt,
		&i.RefreshedAt,
		&i.ExpiresAt,
	)
	return i, err
}

const refreshAuthSession = `
UPDATE auth_sessions SET refreshed_at = ?, expires_at = ?
WHERE id = ? AND expires_at > ?
`

// RefreshAuthSessionParams holds the columns written by RefreshAuthSession.
type RefreshAuthSessionParams struct {
	RefreshedAt int64
	ExpiresAt   int64
	ID          string
	Now         int64
}

// RefreshAuthSession extends a live session and reports how many rows changed.
func (q *Queries) RefreshAuthSession(ctx context.Context, arg RefreshAuthSessionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, refreshAuthSession, arg.RefreshedAt, arg.ExpiresAt, arg.ID, arg.Now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAuthSession = `
DELETE FROM auth_sessions WHERE id = ?
`

// DeleteAuthSession removes a session.
func (q *Queries) DeleteAuthSession(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteAuthSession, id)
	return err
}

const listAuthSessionsByUser = `
SELECT id, user_id, user_agent, created_at, refreshed_at, expires_at
FROM auth_sessions WHERE user_id = ? AND expires_at > ?
ORDER BY created_at
`

// ListAuthSessionsByUserParams selects the live sessions of a user.
type ListAuthSessionsByUserParams struct {
	UserID string
	Now    int64
}

// ListAuthSessionsByUser returns the live sessions of a user.
func (q *Queries) ListAuthSessionsByUser(ctx context.Context, arg ListAuthSessionsByUserParams) ([]AuthSession, error) {
	return q.listAuthSessions(ctx, listAuthSessionsByUser, arg.UserID, arg.Now)
}

const listActiveAuthSessions = `
SELECT id, user_id, user_agent, created_at, refreshed_at, expires_at
FROM auth_sessions WHERE expires_at > ?
ORDER BY created_at
`

// ListActiveAuthSessions returns every session that has not expired.
func (q *Queries) ListActiveAuthSessions(ctx context.Context, now int64) ([]AuthSession, error) {
	return q.listAuthSessions(ctx, listActiveAuthSessions, now)
}

const deleteExpiredAuthSessions = `
DELETE FROM auth_sessions WHERE expires_at <= ?
`

// DeleteExpiredAuthSessions purges expired sessions and returns how many were removed.
func (q *Queries) DeleteExpiredAuthSessions(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredAuthSessions, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) listAuthSessions(ctx context.Context, query string, args ...any) ([]AuthSession, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []AuthSession
	for rows.Next() {
		var i AuthSession
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.UserAgent,
			&i.CreatedAt,
			&i.RefreshedAt,
			&i.ExpiresAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
