// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package content reads and writes editable site content and binds a page's
// defaults to what is stored.
package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/studio-go/internal/model"
	"github.com/olegiv/studio-go/internal/store"
)

// Repository persists content items keyed by (section, key).
type Repository interface {
	// FetchSection returns the stored items of a section in any order. On
	// failure it returns whatever it has together with a *PersistenceError.
	FetchSection(ctx context.Context, section string) ([]model.ContentItem, error)
	// Upsert inserts or replaces one item.
	Upsert(ctx context.Context, section, key, value string, typ model.ValueType) error
}

// StoreRepository is the SQLite-backed Repository.
type StoreRepository struct {
	queries *store.Queries
	now     func() time.Time
}

// NewStoreRepository returns a repository over db.
func NewStoreRepository(db store.DBTX) *StoreRepository {
	return &StoreRepository{queries: store.New(db), now: time.Now}
}

// FetchSection returns all stored items of section.
func (r *StoreRepository) FetchSection(ctx context.Context, section string) ([]model.ContentItem, error) {
	rows, err := r.queries.ListSiteContentBySection(ctx, section)
	if err != nil {
		return nil, &PersistenceError{Kind: KindTransport, Section: section, Err: err}
	}

	items := make([]model.ContentItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, model.ContentItem{
			Section:   row.Section,
			Key:       row.Key,
			Value:     row.Value,
			Type:      model.ValueType(row.Type),
			UpdatedAt: row.UpdatedAt,
		})
	}
	return items, nil
}

// Get returns one stored item.
func (r *StoreRepository) Get(ctx context.Context, section, key string) (model.ContentItem, error) {
	row, err := r.queries.GetSiteContent(ctx, store.GetSiteContentParams{Section: section, Key: key})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ContentItem{}, err
		}
		return model.ContentItem{}, &PersistenceError{Kind: KindTransport, Section: section, Key: key, Err: err}
	}
	return model.ContentItem{
		Section:   row.Section,
		Key:       row.Key,
		Value:     row.Value,
		Type:      model.ValueType(row.Type),
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// Sections lists every section with stored items and its item count.
func (r *StoreRepository) Sections(ctx context.Context) ([]store.SectionCount, error) {
	sections, err := r.queries.ListSections(ctx)
	if err != nil {
		return nil, &PersistenceError{Kind: KindTransport, Err: err}
	}
	return sections, nil
}

// Upsert validates and writes one item, stamping updated_at.
func (r *StoreRepository) Upsert(ctx context.Context, section, key, value string, typ model.ValueType) error {
	if err := ValidateItem(section, key, value, typ); err != nil {
		return err
	}
	if err := r.queries.UpsertSiteContent(ctx, store.UpsertSiteContentParams{
		Section:   section,
		Key:       key,
		Value:     value,
		Type:      string(typ),
		UpdatedAt: r.now().UTC(),
	}); err != nil {
		return &PersistenceError{Kind: KindTransport, Section: section, Key: key, Err: err}
	}
	return nil
}

// ValidateItem checks an item before it is written. json values must be an
// array or an object; their shape is not otherwise interpreted.
func ValidateItem(section, key, value string, typ model.ValueType) error {
	fail := func(err error) error {
		return &PersistenceError{Kind: KindValidation, Section: section, Key: key, Err: err}
	}
	if strings.TrimSpace(section) == "" {
		return fail(errors.New("section is required"))
	}
	if strings.TrimSpace(key) == "" {
		return fail(errors.New("key is required"))
	}
	if !typ.Valid() {
		return fail(fmt.Errorf("unknown value type %q", typ))
	}
	if typ == model.TypeJSON {
		trimmed := strings.TrimSpace(value)
		if !json.Valid([]byte(trimmed)) {
			return fail(errors.New("value is not valid JSON"))
		}
		if trimmed[0] != '[' && trimmed[0] != '{' {
			return fail(model.ErrNotContainer)
		}
	}
	return nil
}

var _ Repository = (*StoreRepository)(nil)
