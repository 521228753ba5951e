// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a persistence failure.
type ErrorKind string

// Persistence error kinds.
const (
	KindTransport  ErrorKind = "transport"
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
)

// PersistenceError is returned by the repository when content cannot be
// read or written.
type PersistenceError struct {
	Kind    ErrorKind
	Section string
	Key     string
	Err     error
}

func (e *PersistenceError) Error() string {
	target := e.Section
	if e.Key != "" {
		target += "." + e.Key
	}
	return fmt.Sprintf("content %s error on %s: %v", e.Kind, target, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsKind reports whether err is a PersistenceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Kind == kind
}

// ValidationError rejects an edit before anything is written.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid value for %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid value: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ErrNotEditor is returned when a non-admin tries to save.
var ErrNotEditor = errors.New("content editing requires an admin session")

// ErrUnknownTarget is returned when an edit target no longer matches the
// content, e.g. the list shrank.
var ErrUnknownTarget = errors.New("edit target does not exist")
