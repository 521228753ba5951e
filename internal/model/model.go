// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the content types shared by the store, the binding
// layer and the renderer.
package model

import (
	"fmt"
	"time"
)

// ValueType is the storage type of a content item.
type ValueType string

// Stored value types.
const (
	TypeText     ValueType = "text"
	TypeTextarea ValueType = "textarea"
	TypeRichtext ValueType = "richtext"
	TypeJSON     ValueType = "json"
)

// Valid reports whether t is one of the known value types.
func (t ValueType) Valid() bool {
	switch t {
	case TypeText, TypeTextarea, TypeRichtext, TypeJSON:
		return true
	}
	return false
}

// ParseValueType converts s to a ValueType.
func ParseValueType(s string) (ValueType, error) {
	t := ValueType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown value type %q", s)
	}
	return t, nil
}

// InputKind selects the editor widget for a value.
type InputKind string

// Editor inputs.
const (
	InputText     InputKind = "text"
	InputTextarea InputKind = "textarea"
	InputJSON     InputKind = "json"
)

// Valid reports whether k is a known input kind.
func (k InputKind) Valid() bool {
	switch k {
	case InputText, InputTextarea, InputJSON:
		return true
	}
	return false
}

// ParseInputKind converts s to an InputKind. Empty input defaults to text.
func ParseInputKind(s string) (InputKind, error) {
	if s == "" {
		return InputText, nil
	}
	k := InputKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown input kind %q", s)
	}
	return k, nil
}

// StorageType returns the value type a scalar edited with k is stored as.
func (k InputKind) StorageType() ValueType {
	switch k {
	case InputTextarea:
		return TypeTextarea
	case InputJSON:
		return TypeJSON
	default:
		return TypeText
	}
}

// ContentItem is one stored (section, key) value.
type ContentItem struct {
	Section   string    `json:"section"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Type      ValueType `json:"type"`
	UpdatedAt time.Time `json:"updated_at"`
}
