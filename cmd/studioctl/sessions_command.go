// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/olegiv/studio-go/internal/auth"
	"github.com/olegiv/studio-go/internal/store"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List active sign-in sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAuth(func(db *sql.DB, svc *auth.Service) error {
				if purge {
					n, err := svc.PurgeExpired(cmd.Context())
					if err != nil {
						return err
					}
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired sessions\n", n); err != nil {
						return err
					}
				}
				sessions, err := svc.ActiveSessions(cmd.Context())
				if err != nil {
					return fmt.Errorf("listing sessions: %w", err)
				}
				return renderSessions(cmd, store.New(db), sessions)
			})
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "Delete expired sessions first")
	return cmd
}

func renderSessions(cmd *cobra.Command, q *store.Queries, sessions []store.AuthSession) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No active sessions")
		return err
	}
	emails := make(map[string]string)
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		email, ok := emails[s.UserID]
		if !ok {
			email = s.UserID
			if u, err := q.GetUserByID(cmd.Context(), s.UserID); err == nil {
				email = u.Email
			}
			emails[s.UserID] = email
		}
		rows = append(rows, []string{
			shortID(s.ID), email, s.UserAgent,
			formatUnix(s.CreatedAt), formatUnix(s.RefreshedAt), formatUnix(s.ExpiresAt),
		})
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Session", "User", "Device", "Signed in", "Refreshed", "Expires"}, rows, nil))
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
