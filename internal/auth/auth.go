// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth is the identity backend: password hashing, signed access
// tokens, sign-in and sign-out, sliding session expiry and an ordered stream
// of auth events for subscribers.
package auth

import (
	"errors"
	"time"
)

// ErrorCode classifies an auth failure.
type ErrorCode string

// Auth error codes.
const (
	CodeInvalidCredentials ErrorCode = "invalid_credentials"
	CodeSessionExpired     ErrorCode = "session_expired"
	CodeInvalidToken       ErrorCode = "invalid_token"
	CodeWeakPassword       ErrorCode = "weak_password"
)

// Error is returned by the auth backend. Two errors match under errors.Is
// when their codes are equal.
type Error struct {
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinel errors for errors.Is checks.
var (
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials}
	ErrSessionExpired     = &Error{Code: CodeSessionExpired}
	ErrInvalidToken       = &Error{Code: CodeInvalidToken}
	ErrWeakPassword       = &Error{Code: CodeWeakPassword}
)

// EventType names an auth state change.
type EventType string

// Auth events, delivered to subscribers in publish order.
const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
	EventInitialSession EventType = "INITIAL_SESSION"
)

// Session is an authenticated session as seen by callers of the backend.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"-"`
	Device      string    `json:"device,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Profile is the stored role of a user. UpdatedAt changes on every write,
// so it identifies the version a role was read from.
type Profile struct {
	Role      string
	UpdatedAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Event is one auth notification. Session is always set; for SIGNED_OUT
// only its ID and UserID are meaningful.
type Event struct {
	Type    EventType
	Session Session
}

// Listener receives auth events. It runs on the publisher's goroutine and
// must not block on the backend.
type Listener func(Event)
