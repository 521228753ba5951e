// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"slices"
	"sync"
)

// bus fans events out to listeners. Publishing is serialized, so every
// listener sees events in one global order.
type bus struct {
	publishMu sync.Mutex

	mu        sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64
}

func newBus() *bus {
	return &bus{listeners: make(map[uint64]Listener)}
}

// subscribe registers l and returns a func that removes it. The returned
// func is safe to call more than once.
func (b *bus) subscribe(l Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

func (b *bus) publish(ev Event) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.Lock()
	ids := make([]uint64, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	b.mu.Unlock()
	slices.Sort(ids)

	for _, id := range ids {
		b.mu.Lock()
		l, ok := b.listeners[id]
		b.mu.Unlock()
		if ok {
			l(ev)
		}
	}
}

func (b *bus) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
