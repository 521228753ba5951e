// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const getProfile = `
SELECT id, role, updated_at FROM profiles WHERE id = ?
`

// GetProfile returns the profile of a user.
func (q *Queries) GetProfile(ctx context.Context, id string) (Profile, error) {
	row := q.db.QueryRowContext(ctx, getProfile, id)
	var i Profile
	err := row.Scan(&i.ID, &i.Role, &i.UpdatedAt)
	return i, err
}

const upsertProfile = `
INSERT INTO profiles (id, role, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET role = excluded.role, updated_at = excluded.updated_at
`

// UpsertProfileParams holds the columns written by UpsertProfile.
type UpsertProfileParams struct {
	ID        string
	Role      string
	UpdatedAt time.Time
}

// UpsertProfile creates or updates a user's profile.
func (q *Queries) UpsertProfile(ctx context.Context, arg UpsertProfileParams) error {
	_, err := q.db.ExecContext(ctx, upsertProfile, arg.ID, arg.Role, arg.UpdatedAt)
	return err
}
