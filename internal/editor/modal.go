// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package editor implements the modal editor an admin uses to change one
// content value.
package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/olegiv/studio-go/internal/model"
)

// Inline messages shown inside the modal.
const (
	MsgInvalidJSON = "Formato JSON non valido."
	MsgSaveFailed  = "Salvataggio non riuscito."
)

// ErrClosed is returned by Confirm when the modal is not open.
var ErrClosed = errors.New("editor is closed")

// ValidationError reports input the modal refused to submit.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message + ": " + e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// SaveFunc persists the confirmed value.
type SaveFunc func(ctx context.Context, value string) error

// State is a snapshot of the modal.
type State struct {
	Open    bool
	Label   string
	Input   model.InputKind
	Value   string
	Message string
	Err     error
}

// Modal holds one edit in progress. It never submits unparsable JSON, and it
// stays open with the edited value when saving fails.
type Modal struct {
	onSave  SaveFunc
	onClose func()

	mu    sync.Mutex
	state State
}

// New creates a closed modal. onClose may be nil.
func New(onSave SaveFunc, onClose func()) *Modal {
	if onClose == nil {
		onClose = func() {}
	}
	return &Modal{onSave: onSave, onClose: onClose}
}

// Open shows the modal pre-filled with initial. JSON input is indented for
// editing.
func (m *Modal) Open(initial, label string, input model.InputKind) {
	if !input.Valid() {
		input = model.InputText
	}
	if input == model.InputJSON {
		initial = indentJSON(initial)
	}

	m.mu.Lock()
	m.state = State{Open: true, Label: label, Input: input, Value: initial}
	m.mu.Unlock()
}

// SetValue replaces the edited value and clears any inline message.
func (m *Modal) SetValue(v string) {
	m.mu.Lock()
	m.state.Value = v
	m.state.Message = ""
	m.state.Err = nil
	m.mu.Unlock()
}

// State returns a snapshot.
func (m *Modal) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Confirm validates the value and hands it to onSave. On success the modal
// closes and onClose runs; on failure it stays open and keeps the value.
func (m *Modal) Confirm(ctx context.Context) error {
	m.mu.Lock()
	if !m.state.Open {
		m.mu.Unlock()
		return ErrClosed
	}
	value := m.state.Value
	if m.state.Input == model.InputJSON {
		if err := checkJSON(value); err != nil {
			verr := &ValidationError{Message: MsgInvalidJSON, Err: err}
			m.state.Message = MsgInvalidJSON
			m.state.Err = verr
			m.mu.Unlock()
			return verr
		}
	}
	m.mu.Unlock()

	if err := m.onSave(ctx, value); err != nil {
		m.mu.Lock()
		if m.state.Open {
			m.state.Message = MsgSaveFailed
			m.state.Err = err
		}
		m.mu.Unlock()
		return err
	}

	m.close()
	return nil
}

// Cancel closes the modal without saving.
func (m *Modal) Cancel() {
	m.close()
}

func (m *Modal) close() {
	m.mu.Lock()
	wasOpen := m.state.Open
	m.state = State{}
	m.mu.Unlock()
	if wasOpen {
		m.onClose()
	}
}

func checkJSON(s string) error {
	var v any
	return json.Unmarshal([]byte(strings.TrimSpace(s)), &v)
}

func indentJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(s), "", "  "); err != nil {
		return s
	}
	return buf.String()
}
