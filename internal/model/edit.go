// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// EditKind says which part of a value an EditTarget addresses.
type EditKind int

// Edit target kinds.
const (
	EditScalar EditKind = iota
	EditListItemField
	EditListItemWhole
)

func (k EditKind) String() string {
	switch k {
	case EditScalar:
		return "scalar"
	case EditListItemField:
		return "list_item_field"
	case EditListItemWhole:
		return "list_item_whole"
	}
	return "unknown"
}

// EditTarget identifies what an open editor will write back to. It is
// transient and never persisted.
type EditTarget struct {
	Kind    EditKind
	Section string
	Key     string
	Index   int
	Field   string
	Label   string
	Input   InputKind
	Current string
}
