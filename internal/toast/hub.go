// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package toast

import (
	"sync"
	"time"
)

// Hub keeps one Layer per visitor.
type Hub struct {
	defaultDur time.Duration

	mu     sync.Mutex
	layers map[string]*Layer
}

// NewHub creates a Hub whose layers use defaultDur.
func NewHub(defaultDur time.Duration) *Hub {
	return &Hub{defaultDur: defaultDur, layers: make(map[string]*Layer)}
}

// For returns the visitor's layer, creating it on first use. The layer
// counts as used, so a Sweep right after For keeps it.
func (h *Hub) For(visitorID string) *Layer {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.layers[visitorID]
	if !ok {
		l = NewLayer(h.defaultDur)
		h.layers[visitorID] = l
		return l
	}
	l.touch()
	return l
}

// Sweep closes and forgets layers unused for longer than idle. It returns
// the number removed.
func (h *Hub) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	h.mu.Lock()
	var stale []*Layer
	for id, l := range h.layers {
		if l.idleSince().Before(cutoff) {
			stale = append(stale, l)
			delete(h.layers, id)
		}
	}
	h.mu.Unlock()

	for _, l := range stale {
		l.Close()
	}
	return len(stale)
}

// Len returns the number of live layers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.layers)
}

// Close closes every layer.
func (h *Hub) Close() {
	h.mu.Lock()
	layers := h.layers
	h.layers = make(map[string]*Layer)
	h.mu.Unlock()
	for _, l := range layers {
		l.Close()
	}
}
