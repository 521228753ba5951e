// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/olegiv/studio-go/internal/model"
	"github.com/olegiv/studio-go/internal/pages"
)

// EditPath is the route of the edit form.
const EditPath = "/admin/edit"

// View is the merged content of one page as seen by the current visitor.
// Edit URLs are empty unless Editor is set.
type View struct {
	Page    *pages.Page
	Content model.Content
	Types   map[string]model.ValueType
	Editor  bool
}

// Text returns the scalar at key, or the JSON text of a structured value.
func (v *View) Text(key string) string {
	val, ok := v.Content[key]
	if !ok {
		return ""
	}
	return val.EditText()
}

// Type returns the stored type of key.
func (v *View) Type(key string) model.ValueType {
	if t, ok := v.Types[key]; ok {
		return t
	}
	return model.TypeText
}

// Records returns the record list at key. Other kinds yield nil.
func (v *View) Records(key string) []model.Record {
	val, ok := v.Content[key]
	if !ok || val.Kind() != model.KindRecordList {
		return nil
	}
	return val.Records()
}

// Strings returns the string list at key. Other kinds yield nil.
func (v *View) Strings(key string) []string {
	val, ok := v.Content[key]
	if !ok || val.Kind() != model.KindStringList {
		return nil
	}
	return val.Strings()
}

// EditURL returns the edit link for a top-level key.
func (v *View) EditURL(key string) string {
	if !v.Editor || v.Page == nil {
		return ""
	}
	q := url.Values{}
	q.Set("section", v.Page.Section)
	q.Set("key", key)
	q.Set("return", v.Page.Path)
	return EditPath + "?" + q.Encode()
}

// ItemEditURL returns the edit link for element index of a list, for one
// field of it when field is not empty.
func (v *View) ItemEditURL(key string, index int, field string) string {
	if !v.Editor || v.Page == nil {
		return ""
	}
	q := url.Values{}
	q.Set("section", v.Page.Section)
	q.Set("key", key)
	q.Set("index", strconv.Itoa(index))
	if field != "" {
		q.Set("field", field)
	}
	q.Set("return", v.Page.Path)
	return EditPath + "?" + q.Encode()
}

// field returns a record field as text.
func field(r model.Record, name string) string {
	s, _ := r.Get(name)
	return s
}

// fieldList decodes a record field holding a JSON array of strings.
func fieldList(r model.Record, name string) []string {
	raw, ok := r.Raw(name)
	if !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
