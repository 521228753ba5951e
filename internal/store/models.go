// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

// User is a row of the users table.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  sql.NullTime
}

// Profile is a row of the profiles table.
type Profile struct {
	ID        string
	Role      string
	UpdatedAt time.Time
}

// AuthSession is a row of the auth_sessions table. Timestamps are unix seconds.
type AuthSession struct {
	ID          string
	UserID      string
	UserAgent   string
	CreatedAt   int64
	RefreshedAt int64
	ExpiresAt   int64
}

// SiteContent is a row of the site_content table.
type SiteContent struct {
	Section   string
	Key       string
	Value     string
	Type      string
	UpdatedAt time.Time
}

// Event is a row of the events table.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}
