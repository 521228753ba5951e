// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/olegiv/studio-go/internal/store"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent warnings and errors recorded by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return ctx.withDB(func(db *sql.DB) error {
				events, err := store.New(db).ListEvents(cmd.Context(), int64(limit))
				if err != nil {
					return fmt.Errorf("listing events: %w", err)
				}
				if len(events) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "No events")
					return err
				}
				rows := make([][]string, 0, len(events))
				for _, e := range events {
					rows = append(rows, []string{formatTime(e.CreatedAt), e.Level, e.Category, e.Message, preview(e.Metadata)})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Time", "Level", "Category", "Message", "Details"}, rows, nil))
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of events to show")
	return cmd
}
