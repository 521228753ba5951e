// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
)

// Kind tags the shape held by a Value.
type Kind int

// Value kinds.
const (
	KindScalar Kind = iota
	KindRecordList
	KindStringList
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindRecordList:
		return "record_list"
	case KindStringList:
		return "string_list"
	case KindDocument:
		return "document"
	}
	return "unknown"
}

// IsList reports whether k is one of the list kinds.
func (k Kind) IsList() bool {
	return k == KindRecordList || k == KindStringList
}

// Value is the content stored under one key: a scalar string, a list of
// records, a list of strings or an opaque JSON document.
type Value struct {
	kind    Kind
	scalar  string
	records []Record
	strs    []string
	doc     json.RawMessage
}

// Scalar returns a scalar value.
func Scalar(s string) Value {
	return Value{kind: KindScalar, scalar: s}
}

// RecordList returns a list-of-records value.
func RecordList(records ...Record) Value {
	v := Value{kind: KindRecordList, records: make([]Record, len(records))}
	for i, r := range records {
		v.records[i] = r.Clone()
	}
	return v
}

// StringList returns a list-of-strings value.
func StringList(items ...string) Value {
	return Value{kind: KindStringList, strs: slices.Clone(items)}
}

// Document returns an opaque JSON document value.
func Document(raw json.RawMessage) Value {
	return Value{kind: KindDocument, doc: bytes.Clone(raw)}
}

// Kind returns the tag of v.
func (v Value) Kind() Kind { return v.kind }

// Text returns the scalar string; empty for other kinds.
func (v Value) Text() string { return v.scalar }

// Records returns a copy of the record list.
func (v Value) Records() []Record {
	out := make([]Record, len(v.records))
	for i, r := range v.records {
		out[i] = r.Clone()
	}
	return out
}

// Strings returns a copy of the string list.
func (v Value) Strings() []string { return slices.Clone(v.strs) }

// Len returns the number of list elements, or 0 for non-list values.
func (v Value) Len() int {
	switch v.kind {
	case KindRecordList:
		return len(v.records)
	case KindStringList:
		return len(v.strs)
	}
	return 0
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	switch v.kind {
	case KindRecordList:
		return RecordList(v.records...)
	case KindStringList:
		return StringList(v.strs...)
	case KindDocument:
		return Document(v.doc)
	}
	return v
}

// Equal reports whether two values have the same kind and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindRecordList:
		return slices.EqualFunc(v.records, o.records, Record.Equal)
	case KindStringList:
		return slices.Equal(v.strs, o.strs)
	case KindDocument:
		return bytes.Equal(v.doc, o.doc)
	}
	return v.scalar == o.scalar
}

// EditText returns the text an editor is pre-filled with: the scalar itself
// or the JSON encoding of a structured value.
func (v Value) EditText() string {
	if v.kind == KindScalar {
		return v.scalar
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

// MarshalJSON encodes v. Scalars encode as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindRecordList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, r := range v.records {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := r.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindStringList:
		if v.strs == nil {
			return []byte("[]"), nil
		}
		return marshalText(v.strs)
	case KindDocument:
		if len(v.doc) == 0 {
			return []byte("null"), nil
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, v.doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return marshalText(v.scalar)
}

// marshalText encodes v without escaping HTML characters, so stored text
// keeps the bytes the editor typed.
func marshalText(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WithRecord returns a copy of a record list with element i replaced.
func (v Value) WithRecord(i int, r Record) Value {
	out := v.Clone()
	out.records[i] = r.Clone()
	return out
}

// WithString returns a copy of a string list with element i replaced.
func (v Value) WithString(i int, s string) Value {
	out := v.Clone()
	out.strs[i] = s
	return out
}

// ErrNotContainer is returned when a json value is neither an array nor an object.
var ErrNotContainer = errors.New("json value must be an array or an object")

// ParseJSON parses stored json text into a Value. Arrays of strings become
// string lists, arrays of objects become record lists, anything else that is
// an array or object is kept as a document. An empty array takes the list
// kind of hint.
func ParseJSON(text string, hint Kind) (Value, error) {
	data := bytes.TrimSpace([]byte(text))
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return Value{}, err
	}

	switch data[0] {
	case '{':
		return Document(data), nil
	case '[':
	default:
		return Value{}, ErrNotContainer
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return Value{}, err
	}
	if len(elems) == 0 {
		if hint == KindRecordList {
			return RecordList(), nil
		}
		return StringList(), nil
	}

	switch elementShape(elems) {
	case '"':
		strs := make([]string, len(elems))
		for i, e := range elems {
			if err := json.Unmarshal(e, &strs[i]); err != nil {
				return Value{}, err
			}
		}
		return StringList(strs...), nil
	case '{':
		records := make([]Record, len(elems))
		for i, e := range elems {
			if err := records[i].UnmarshalJSON(e); err != nil {
				return Value{}, err
			}
		}
		return Value{kind: KindRecordList, records: records}, nil
	}
	return Document(data), nil
}

// elementShape returns the common leading byte of all elements, or 0 when
// they differ.
func elementShape(elems []json.RawMessage) byte {
	var shape byte
	for i, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 {
			return 0
		}
		if i == 0 {
			shape = e[0]
		} else if e[0] != shape {
			return 0
		}
	}
	return shape
}

// Content maps keys of one section to their values.
type Content map[string]Value

// Clone returns a deep copy of c.
func (c Content) Clone() Content {
	out := make(Content, len(c))
	for k, v := range c {
		out[k] = v.Clone()
	}
	return out
}

// Text returns the scalar text of key, or "" when missing or not a scalar.
func (c Content) Text(key string) string {
	return c[key].Text()
}
