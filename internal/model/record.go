// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Field is a named raw JSON value inside a Record.
type Field struct {
	Name string
	Raw  json.RawMessage
}

// Record is a JSON object that keeps its field order and the raw bytes of
// every field, so fields that are never edited serialize exactly as read.
type Record struct {
	fields []Field
}

// NewRecord builds a record from string fields in the given order.
// Pairs are name, value, name, value...
func NewRecord(pairs ...string) Record {
	var r Record
	for i := 0; i+1 < len(pairs); i += 2 {
		raw, _ := marshalText(pairs[i+1])
		r.fields = append(r.fields, Field{Name: pairs[i], Raw: raw})
	}
	return r
}

// NewRecordFields builds a record from raw fields.
func NewRecordFields(fields ...Field) Record {
	r := Record{fields: make([]Field, len(fields))}
	for i, f := range fields {
		r.fields[i] = Field{Name: f.Name, Raw: bytes.Clone(f.Raw)}
	}
	return r
}

// Fields returns the field names in order.
func (r Record) Fields() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Has reports whether the record has a field called name.
func (r Record) Has(name string) bool {
	return r.index(name) >= 0
}

// Raw returns the raw JSON of a field.
func (r Record) Raw(name string) (json.RawMessage, bool) {
	i := r.index(name)
	if i < 0 {
		return nil, false
	}
	return r.fields[i].Raw, true
}

// IsString reports whether the field holds a JSON string.
func (r Record) IsString(name string) bool {
	raw, ok := r.Raw(name)
	if !ok {
		return false
	}
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '"'
}

// Get returns the editable text of a field: the decoded string for string
// fields, the JSON text otherwise.
func (r Record) Get(name string) (string, bool) {
	raw, ok := r.Raw(name)
	if !ok {
		return "", false
	}
	if r.IsString(name) {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
	}
	return string(raw), true
}

// ErrFieldNotJSON is returned when a non-string field is set to text that
// is not valid JSON.
var ErrFieldNotJSON = errors.New("field value is not valid JSON")

// With returns a copy of r with one field replaced. Missing and string
// fields take value as a string; other fields require value to be JSON.
func (r Record) With(name, value string) (Record, error) {
	var raw json.RawMessage
	if !r.Has(name) || r.IsString(name) {
		raw, _ = marshalText(value)
	} else {
		if !json.Valid([]byte(value)) {
			return Record{}, fmt.Errorf("field %q: %w", name, ErrFieldNotJSON)
		}
		raw = json.RawMessage(value)
	}

	out := r.Clone()
	if i := out.index(name); i >= 0 {
		out.fields[i].Raw = raw
	} else {
		out.fields = append(out.fields, Field{Name: name, Raw: raw})
	}
	return out, nil
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	return NewRecordFields(r.fields...)
}

// Equal reports whether two records have the same fields with identical bytes.
func (r Record) Equal(o Record) bool {
	if len(r.fields) != len(o.fields) {
		return false
	}
	for i := range r.fields {
		if r.fields[i].Name != o.fields[i].Name || !bytes.Equal(r.fields[i].Raw, o.fields[i].Raw) {
			return false
		}
	}
	return true
}

func (r Record) index(name string) int {
	for i, f := range r.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// MarshalJSON writes the fields in their original order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := marshalText(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if len(f.Raw) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(f.Raw)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping field order and raw values.
func (r *Record) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("record is not valid JSON")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in record", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decoding field %q: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	r.fields = fields
	return nil
}
