// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const listSiteContentBySection = `
SELECT section, key, value, type, updated_at
FROM site_content
WHERE section = ?
ORDER BY key
`

// ListSiteContentBySection returns every stored item of a section.
func (q *Queries) ListSiteContentBySection(ctx context.Context, section string) ([]SiteContent, error) {
	rows, err := q.db.QueryContext(ctx, listSiteContentBySection, section)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []SiteContent
	for rows.Next() {
		var i SiteContent
		if err := rows.Scan(&i.Section, &i.Key, &i.Value, &i.Type, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getSiteContent = `
SELECT section, key, value, type, updated_at
FROM site_content
WHERE section = ? AND key = ?
`

// GetSiteContentParams selects a single content item.
type GetSiteContentParams struct {
	Section string
	Key     string
}

// GetSiteContent returns one stored item.
func (q *Queries) GetSiteContent(ctx context.Context, arg GetSiteContentParams) (SiteContent, error) {
	row := q.db.QueryRowContext(ctx, getSiteContent, arg.Section, arg.Key)
	var i SiteContent
	err := row.Scan(&i.Section, &i.Key, &i.Value, &i.Type, &i.UpdatedAt)
	return i, err
}

const upsertSiteContent = `
INSERT INTO site_content (section, key, value, type, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (section, key) DO UPDATE SET
    value = excluded.value,
    type = excluded.type,
    updated_at = excluded.updated_at
`

// UpsertSiteContentParams holds the columns written by UpsertSiteContent.
type UpsertSiteContentParams struct {
	Section   string
	Key       string
	Value     string
	Type      string
	UpdatedAt time.Time
}

// UpsertSiteContent inserts or replaces the item keyed by (section, key).
func (q *Queries) UpsertSiteContent(ctx context.Context, arg UpsertSiteContentParams) error {
	_, err := q.db.ExecContext(ctx, upsertSiteContent,
		arg.Section,
		arg.Key,
		arg.Value,
		arg.Type,
		arg.UpdatedAt,
	)
	return err
}

const listSections = `
SELECT section, COUNT(*) FROM site_content GROUP BY section ORDER BY section
`

// SectionCount is a section name with its stored item count.
type SectionCount struct {
	Section string
	Items   int64
}

// ListSections returns every section that has stored items.
func (q *Queries) ListSections(ctx context.Context) ([]SectionCount, error) {
	rows, err := q.db.QueryContext(ctx, listSections)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []SectionCount
	for rows.Next() {
		var i SectionCount
		if err := rows.Scan(&i.Section, &i.Items); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
