// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package toast keeps short-lived notifications for a visitor.
package toast

import (
	"sync"
	"time"
)

// Severity is the kind of a toast.
type Severity string

// Severities.
const (
	Success Severity = "success"
	Error   Severity = "error"
)

// DefaultDuration is used when a Layer is created without one.
const DefaultDuration = 5 * time.Second

// Toast is one notification. A Duration of zero or less keeps it until it
// is dismissed.
type Toast struct {
	ID        int64         `json:"id"`
	Message   string        `json:"message"`
	Severity  Severity      `json:"severity"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Persistent reports whether the toast stays until dismissed.
func (t Toast) Persistent() bool { return t.Duration <= 0 }

// Layer is an ordered list of toasts, each with its own timer.
type Layer struct {
	defaultDur time.Duration

	mu       sync.Mutex
	nextID   int64
	toasts   []Toast
	timers   map[int64]*time.Timer
	closed   bool
	lastUsed time.Time
}

// NewLayer creates a Layer. A non-positive defaultDur selects DefaultDuration.
func NewLayer(defaultDur time.Duration) *Layer {
	if defaultDur <= 0 {
		defaultDur = DefaultDuration
	}
	return &Layer{
		defaultDur: defaultDur,
		timers:     make(map[int64]*time.Timer),
		lastUsed:   time.Now(),
	}
}

// Show adds a toast with the default duration and returns its id.
func (l *Layer) Show(message string, sev Severity) int64 {
	return l.ShowFor(message, sev, l.defaultDur)
}

// ShowFor adds a toast that dismisses itself after d. It returns 0 once the
// layer is closed.
func (l *Layer) ShowFor(message string, sev Severity, d time.Duration) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0
	}

	l.nextID++
	id := l.nextID
	now := time.Now()
	l.toasts = append(l.toasts, Toast{
		ID:        id,
		Message:   message,
		Severity:  sev,
		Duration:  d,
		CreatedAt: now,
	})
	l.lastUsed = now

	if d > 0 {
		l.timers[id] = time.AfterFunc(d, func() { l.Dismiss(id) })
	}
	return id
}

// Success shows a success toast.
func (l *Layer) Success(message string) { l.Show(message, Success) }

// Error shows an error toast.
func (l *Layer) Error(message string) { l.Show(message, Error) }

// Dismiss removes a toast. It reports whether the toast was present.
func (l *Layer) Dismiss(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t, ok := l.timers[id]; ok {
		t.Stop()
		delete(l.timers, id)
	}
	for i, t := range l.toasts {
		if t.ID == id {
			l.toasts = append(l.toasts[:i], l.toasts[i+1:]...)
			return true
		}
	}
	return false
}

// Toasts returns the current toasts oldest first.
func (l *Layer) Toasts() []Toast {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastUsed = time.Now()
	out := make([]Toast, len(l.toasts))
	copy(out, l.toasts)
	return out
}

// Close stops every timer and drops all toasts.
func (l *Layer) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
	l.toasts = nil
	l.closed = true
}

func (l *Layer) touch() {
	l.mu.Lock()
	l.lastUsed = time.Now()
	l.mu.Unlock()
}

func (l *Layer) idleSince() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastUsed
}
