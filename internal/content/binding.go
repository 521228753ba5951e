// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/olegiv/studio-go/internal/model"
)

// Toast messages reported after a save.
const (
	MsgSaved      = "Contenuto salvato."
	MsgSaveFailed = "Errore salvataggio."
)

// Notifier receives the outcome of a save.
type Notifier interface {
	Success(message string)
	Error(message string)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

// Option configures a Binding.
type Option func(*Binding)

// WithEditor enables the edit entry points. Only admin sessions pass true.
func WithEditor(editor bool) Option {
	return func(b *Binding) { b.editor = editor }
}

// WithNotifier sets where save outcomes are reported.
func WithNotifier(n Notifier) Option {
	return func(b *Binding) {
		if n != nil {
			b.notifier = n
		}
	}
}

// WithTypes declares the storage type of scalar keys, e.g. richtext.
func WithTypes(types map[string]model.ValueType) Option {
	return func(b *Binding) {
		for k, t := range types {
			b.declared[k] = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Binding) {
		if l != nil {
			b.logger = l
		}
	}
}

// Binding overlays the stored content of one section on the page defaults
// and applies an admin's edits. A Binding belongs to a single page render.
type Binding struct {
	section  string
	repo     Repository
	editor   bool
	notifier Notifier
	declared map[string]model.ValueType
	logger   *slog.Logger

	mu       sync.Mutex
	defaults model.Content
	content  model.Content
	stored   map[string]model.ValueType
	versions map[string]uint64
	loaded   bool

	closed atomic.Bool
}

// NewBinding creates a binding for section starting from a deep copy of
// defaults.
func NewBinding(section string, defaults model.Content, repo Repository, opts ...Option) *Binding {
	b := &Binding{
		section:  section,
		repo:     repo,
		notifier: nopNotifier{},
		declared: make(map[string]model.ValueType),
		logger:   slog.Default(),
		defaults: defaults.Clone(),
		content:  defaults.Clone(),
		stored:   make(map[string]model.ValueType),
		versions: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Section returns the bound section name.
func (b *Binding) Section() string { return b.section }

// IsEditor reports whether edit entry points are enabled.
func (b *Binding) IsEditor() bool { return b.editor }

// Loaded reports whether a Load has completed.
func (b *Binding) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// Close unmounts the binding. Loads completing afterwards are discarded.
func (b *Binding) Close() {
	b.closed.Store(true)
}

// Load fetches the section and overlays stored items on the defaults.
// A fetch failure keeps the defaults (plus anything returned) and is
// returned after being logged; callers may render regardless.
func (b *Binding) Load(ctx context.Context) error {
	items, fetchErr := b.repo.FetchSection(ctx, b.section)
	if fetchErr != nil {
		b.logger.Warn("content fetch failed, using defaults",
			"category", "content", "section", b.section, "error", fetchErr)
	}
	if b.closed.Load() {
		return fetchErr
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return fetchErr
	}

	for _, item := range items {
		if item.Section != "" && item.Section != b.section {
			continue
		}
		if item.Type == model.TypeJSON {
			hint := model.KindScalar
			if d, ok := b.defaults[item.Key]; ok {
				hint = d.Kind()
			}
			v, err := model.ParseJSON(item.Value, hint)
			if err != nil {
				b.logger.Warn("skipping unparsable content item",
					"category", "content", "section", b.section, "key", item.Key, "error", err)
				continue
			}
			b.content[item.Key] = v
		} else {
			b.content[item.Key] = model.Scalar(item.Value)
		}
		b.stored[item.Key] = item.Type
	}
	b.loaded = true
	return fetchErr
}

// Content returns a deep copy of the merged content.
func (b *Binding) Content() model.Content {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.content.Clone()
}

// Value returns the current value of key.
func (b *Binding) Value(key string) (model.Value, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.content[key]
	return v.Clone(), ok
}

// TypeOf returns the value type key is stored or declared as.
func (b *Binding) TypeOf(key string) model.ValueType {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.typeOfLocked(key)
}

func (b *Binding) typeOfLocked(key string) model.ValueType {
	if t, ok := b.stored[key]; ok {
		return t
	}
	if t, ok := b.declared[key]; ok {
		return t
	}
	if v, ok := b.content[key]; ok && v.Kind() != model.KindScalar {
		return model.TypeJSON
	}
	return model.TypeText
}

// EditField opens a top-level edit of key. Structured values are edited as
// JSON text.
func (b *Binding) EditField(key, label string, input model.InputKind) (model.EditTarget, bool) {
	if !b.editor || key == "" {
		return model.EditTarget{}, false
	}
	if !input.Valid() {
		input = model.InputText
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.content[key]
	if ok && v.Kind() != model.KindScalar {
		input = model.InputJSON
	}
	return model.EditTarget{
		Kind:    model.EditScalar,
		Section: b.section,
		Key:     key,
		Label:   label,
		Input:   input,
		Current: v.EditText(),
	}, true
}

// EditListItem opens an edit of element index of the list at listKey. With a
// field it edits that field of a record; without one it edits the whole
// element. Targets that do not exist yield ok=false.
func (b *Binding) EditListItem(listKey string, index int, field, label string, input model.InputKind) (model.EditTarget, bool) {
	if !b.editor {
		return model.EditTarget{}, false
	}
	if !input.Valid() {
		input = model.InputText
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.content[listKey]
	if !ok || !v.Kind().IsList() || index < 0 || index >= v.Len() {
		return model.EditTarget{}, false
	}

	target := model.EditTarget{
		Section: b.section,
		Key:     listKey,
		Index:   index,
		Field:   field,
		Label:   label,
		Input:   input,
	}

	switch v.Kind() {
	case model.KindStringList:
		if field != "" {
			return model.EditTarget{}, false
		}
		target.Kind = model.EditListItemWhole
		target.Current = v.Strings()[index]
		if input == model.InputJSON {
			target.Input = model.InputText
		}

	case model.KindRecordList:
		rec := v.Records()[index]
		if field == "" {
			raw, err := rec.MarshalJSON()
			if err != nil {
				return model.EditTarget{}, false
			}
			target.Kind = model.EditListItemWhole
			target.Input = model.InputJSON
			target.Current = string(raw)
			break
		}
		cur, ok := rec.Get(field)
		if !ok {
			return model.EditTarget{}, false
		}
		target.Kind = model.EditListItemField
		target.Current = cur
		if !rec.IsString(field) {
			target.Input = model.InputJSON
		}
	}
	return target, true
}

// Save writes an edit. The local content changes before the write; if the
// write fails and no newer save of the same key has happened since, the
// previous value is restored.
func (b *Binding) Save(ctx context.Context, target model.EditTarget, value string) error {
	if !b.editor {
		return ErrNotEditor
	}
	if target.Section != b.section || target.Key == "" {
		return ErrUnknownTarget
	}

	b.mu.Lock()
	next, text, typ, err := b.prepareLocked(target, value)
	if err != nil {
		b.mu.Unlock()
		return err
	}

	prev, existed := b.content[target.Key]
	prevType, hadType := b.stored[target.Key]
	b.content[target.Key] = next
	b.stored[target.Key] = typ
	b.versions[target.Key]++
	version := b.versions[target.Key]
	b.mu.Unlock()

	err = b.repo.Upsert(ctx, b.section, target.Key, text, typ)
	if err == nil {
		b.logger.Info("content saved", "category", "content", "section", b.section, "key", target.Key)
		b.notifier.Success(MsgSaved)
		return nil
	}

	var pe *PersistenceError
	if !errors.As(err, &pe) {
		err = &PersistenceError{Kind: KindTransport, Section: b.section, Key: target.Key, Err: err}
	}

	b.mu.Lock()
	if b.versions[target.Key] == version {
		if existed {
			b.content[target.Key] = prev
		} else {
			delete(b.content, target.Key)
		}
		if hadType {
			b.stored[target.Key] = prevType
		} else {
			delete(b.stored, target.Key)
		}
	}
	b.mu.Unlock()

	b.logger.Error("content save failed",
		"category", "content", "section", b.section, "key", target.Key, "error", err)
	b.notifier.Error(MsgSaveFailed)
	return err
}

// prepareLocked computes the new value of target.Key and its stored form.
// Nothing is written when it fails.
func (b *Binding) prepareLocked(target model.EditTarget, value string) (model.Value, string, model.ValueType, error) {
	cur, ok := b.content[target.Key]

	switch target.Kind {
	case model.EditScalar:
		if target.Input == model.InputJSON || (ok && cur.Kind() != model.KindScalar) {
			hint := cur.Kind()
			if d, ok := b.defaults[target.Key]; ok {
				hint = d.Kind()
			}
			v, err := model.ParseJSON(value, hint)
			if err != nil {
				return model.Value{}, "", "", &ValidationError{Field: target.Label, Err: err}
			}
			text, err := encode(v)
			if err != nil {
				return model.Value{}, "", "", err
			}
			return v, text, model.TypeJSON, nil
		}
		typ := target.Input.StorageType()
		if t, ok := b.declared[target.Key]; ok && t != model.TypeJSON {
			typ = t
		}
		return model.Scalar(value), value, typ, nil

	case model.EditListItemField, model.EditListItemWhole:
		if !ok || !cur.Kind().IsList() || target.Index < 0 || target.Index >= cur.Len() {
			return model.Value{}, "", "", ErrUnknownTarget
		}
		next, err := replaceElement(cur, target, value)
		if err != nil {
			return model.Value{}, "", "", err
		}
		text, err := encode(next)
		if err != nil {
			return model.Value{}, "", "", err
		}
		return next, text, model.TypeJSON, nil
	}
	return model.Value{}, "", "", ErrUnknownTarget
}

// replaceElement returns a copy of list with only the targeted element (or
// element field) replaced.
func replaceElement(list model.Value, target model.EditTarget, value string) (model.Value, error) {
	switch list.Kind() {
	case model.KindStringList:
		if target.Field != "" {
			return model.Value{}, ErrUnknownTarget
		}
		return list.WithString(target.Index, value), nil

	case model.KindRecordList:
		rec := list.Records()[target.Index]
		if target.Field == "" {
			var whole model.Record
			if err := whole.UnmarshalJSON([]byte(value)); err != nil {
				return model.Value{}, &ValidationError{Field: target.Label, Err: err}
			}
			return list.WithRecord(target.Index, whole), nil
		}
		if !rec.Has(target.Field) {
			return model.Value{}, ErrUnknownTarget
		}
		edited, err := rec.With(target.Field, value)
		if err != nil {
			return model.Value{}, &ValidationError{Field: target.Label, Err: err}
		}
		return list.WithRecord(target.Index, edited), nil
	}
	return model.Value{}, ErrUnknownTarget
}

func encode(v model.Value) (string, error) {
	b, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
