// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pages holds the site's page definitions and their default content.
// Definitions are embedded TOML files, one per page.
package pages

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sort"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/olegiv/studio-go/internal/model"
)

//go:embed defs/*.toml
var defsFS embed.FS

// Field describes how a top-level key is edited.
type Field struct {
	Label string          `toml:"label"`
	Input model.InputKind `toml:"input"`
}

// ListField describes an editable field of a record list element.
type ListField struct {
	Name  string          `toml:"name"`
	Label string          `toml:"label"`
	Input model.InputKind `toml:"input"`
}

// List describes how the elements of a list key are edited. A list without
// Fields is edited one whole element at a time.
type List struct {
	Label  string      `toml:"label"`
	Order  []string    `toml:"order"`
	Fields []ListField `toml:"fields"`
}

// Field returns the editable field called name.
func (l List) Field(name string) (ListField, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return ListField{}, false
}

// Page is one page definition.
type Page struct {
	Name     string                     `toml:"name"`
	Section  string                     `toml:"section"`
	Path     string                     `toml:"path"`
	Template string                     `toml:"template"`
	Title    string                     `toml:"title"`
	Nav      int                        `toml:"nav"`
	NavLabel string                     `toml:"nav_label"`
	Types    map[string]model.ValueType `toml:"types"`
	Fields   map[string]Field           `toml:"fields"`
	Lists    map[string]List            `toml:"lists"`
	Content  map[string]any             `toml:"content"`

	defaults model.Content
}

// Defaults returns a copy of the page's default content.
func (p *Page) Defaults() model.Content {
	return p.defaults.Clone()
}

// ItemLabel returns the editor label for element index of a list, optionally
// for one field of it. Labels are numbered from 1.
func (p *Page) ItemLabel(listKey string, index int, field string) string {
	l := p.Lists[listKey]
	label := l.Label
	if field != "" {
		if f, ok := l.Field(field); ok {
			label = f.Label
		}
	}
	if label == "" {
		label = listKey
	}
	return label + " " + strconv.Itoa(index+1)
}

// parse decodes one definition.
func parse(data []byte) (*Page, error) {
	var p Page
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	if err := p.finalize(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Page) finalize() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("missing name")
	case p.Section == "":
		return fmt.Errorf("page %s: missing section", p.Name)
	case p.Path == "" || p.Path[0] != '/':
		return fmt.Errorf("page %s: path must start with /", p.Name)
	case p.Template == "":
		return fmt.Errorf("page %s: missing template", p.Name)
	}

	p.defaults = make(model.Content, len(p.Content))
	for key, raw := range p.Content {
		v, err := toValue(raw, p.Lists[key].Order)
		if err != nil {
			return fmt.Errorf("page %s: content %s: %w", p.Name, key, err)
		}
		p.defaults[key] = v
	}

	if p.Types == nil {
		p.Types = make(map[string]model.ValueType)
	}
	for key, t := range p.Types {
		if !t.Valid() {
			return fmt.Errorf("page %s: key %s: unknown type %q", p.Name, key, t)
		}
	}

	for key, f := range p.Fields {
		if f.Input == "" {
			f.Input = model.InputText
			p.Fields[key] = f
		}
		if !f.Input.Valid() {
			return fmt.Errorf("page %s: field %s: unknown input %q", p.Name, key, f.Input)
		}
		if _, ok := p.defaults[key]; !ok {
			return fmt.Errorf("page %s: field %s has no default", p.Name, key)
		}
		if _, ok := p.Types[key]; !ok {
			if p.defaults[key].Kind() == model.KindScalar {
				p.Types[key] = f.Input.StorageType()
			} else {
				p.Types[key] = model.TypeJSON
			}
		}
	}

	for key, l := range p.Lists {
		v, ok := p.defaults[key]
		if !ok || !v.Kind().IsList() {
			return fmt.Errorf("page %s: list %s is not a list", p.Name, key)
		}
		if len(l.Fields) > 0 && v.Kind() != model.KindRecordList {
			return fmt.Errorf("page %s: list %s has fields but holds strings", p.Name, key)
		}
		for i, f := range l.Fields {
			if f.Input == "" {
				l.Fields[i].Input = model.InputText
			} else if !f.Input.Valid() {
				return fmt.Errorf("page %s: list %s field %s: unknown input %q", p.Name, key, f.Name, f.Input)
			}
		}
		p.Types[key] = model.TypeJSON
	}
	return nil
}

// toValue converts a decoded TOML value. Strings become scalars, arrays of
// strings string lists and arrays of tables record lists. Record fields
// follow order, then the remaining fields sorted by name.
func toValue(raw any, order []string) (model.Value, error) {
	switch v := raw.(type) {
	case string:
		return model.Scalar(v), nil
	case []any:
		if len(v) == 0 {
			return model.StringList(), nil
		}
		switch v[0].(type) {
		case string:
			items := make([]string, len(v))
			for i, e := range v {
				s, ok := e.(string)
				if !ok {
					return model.Value{}, fmt.Errorf("element %d is not a string", i)
				}
				items[i] = s
			}
			return model.StringList(items...), nil
		case map[string]any:
			recs := make([]model.Record, len(v))
			for i, e := range v {
				m, ok := e.(map[string]any)
				if !ok {
					return model.Value{}, fmt.Errorf("element %d is not a table", i)
				}
				rec, err := toRecord(m, order)
				if err != nil {
					return model.Value{}, fmt.Errorf("element %d: %w", i, err)
				}
				recs[i] = rec
			}
			return model.RecordList(recs...), nil
		}
	}
	return model.Value{}, fmt.Errorf("unsupported value %T", raw)
}

func toRecord(m map[string]any, order []string) (model.Record, error) {
	names := make([]string, 0, len(m))
	for _, name := range order {
		if _, ok := m[name]; ok {
			names = append(names, name)
		}
	}
	var rest []string
	for name := range m {
		if !slices.Contains(names, name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	fields := make([]model.Field, len(names))
	for i, name := range names {
		raw, err := rawJSON(m[name])
		if err != nil {
			return model.Record{}, fmt.Errorf("field %s: %w", name, err)
		}
		fields[i] = model.Field{Name: name, Raw: raw}
	}
	return model.NewRecordFields(fields...), nil
}

func rawJSON(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Registry holds the loaded page definitions.
type Registry struct {
	pages  []*Page
	byName map[string]*Page
	byPath map[string]*Page
}

// Load parses the embedded definitions.
func Load() (*Registry, error) {
	return LoadFS(defsFS, "defs")
}

// LoadFS parses every .toml file in dir of fsys.
func LoadFS(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading page definitions: %w", err)
	}

	r := &Registry{
		byName: make(map[string]*Page),
		byPath: make(map[string]*Page),
	}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".toml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		p, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", e.Name(), err)
		}
		if _, dup := r.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate page name %q", p.Name)
		}
		if _, dup := r.byPath[p.Path]; dup {
			return nil, fmt.Errorf("duplicate page path %q", p.Path)
		}
		r.pages = append(r.pages, p)
		r.byName[p.Name] = p
		r.byPath[p.Path] = p
	}

	sort.SliceStable(r.pages, func(i, j int) bool {
		return r.pages[i].Nav < r.pages[j].Nav
	})
	return r, nil
}

// All returns the pages in navigation order.
func (r *Registry) All() []*Page {
	return slices.Clone(r.pages)
}

// ByName returns the page called name.
func (r *Registry) ByName(name string) (*Page, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// ByPath returns the page served at urlPath.
func (r *Registry) ByPath(urlPath string) (*Page, bool) {
	p, ok := r.byPath[urlPath]
	return p, ok
}

// BySection returns the page storing its content under section.
func (r *Registry) BySection(section string) (*Page, bool) {
	for _, p := range r.pages {
		if p.Section == section {
			return p, true
		}
	}
	return nil, false
}
