// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/olegiv/studio-go/internal/auth"
	"github.com/olegiv/studio-go/internal/cache"
	"github.com/olegiv/studio-go/internal/store"
)

const defaultDBPath = "./data/studio.db"

type commandContext struct {
	dbFlag *string
}

func newCommandContext(dbFlag *string) *commandContext {
	return &commandContext{dbFlag: dbFlag}
}

func (c *commandContext) dbPath() string {
	if c.dbFlag != nil {
		if p := strings.TrimSpace(*c.dbFlag); p != "" {
			return p
		}
	}
	if p := strings.TrimSpace(os.Getenv("STUDIO_DB_PATH")); p != "" {
		return p
	}
	return defaultDBPath
}

// withDB opens the database, applies pending migrations and calls fn.
func (c *commandContext) withDB(fn func(*sql.DB) error) error {
	path := c.dbPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	db, err := store.NewDB(path)
	if err != nil {
		return fmt.Errorf("open database %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	if err := store.Migrate(db); err != nil {
		return err
	}
	return fn(db)
}

// withAuth runs fn with the database and an auth service over it. Token signing is
// never exercised from the CLI, so the service carries no secret.
func (c *commandContext) withAuth(fn func(*sql.DB, *auth.Service) error) error {
	return c.withDB(func(db *sql.DB) error {
		lookups := cache.NewMemoryCache(cache.Options{})
		defer func() { _ = lookups.Close() }()
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		return fn(db, auth.NewService(db, lookups, auth.Config{}, logger))
	})
}
