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

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	userCmd.AddCommand(newUserCreateCommand(ctx))
	userCmd.AddCommand(newUserRoleCommand(ctx))
	userCmd.AddCommand(newUserListCommand(ctx))
	return userCmd
}

func newUserCreateCommand(ctx *commandContext) *cobra.Command {
	var email, password string
	var admin bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role := store.RoleStandard
			if admin {
				role = store.RoleAdmin
			}
			return ctx.withAuth(func(_ *sql.DB, svc *auth.Service) error {
				user, err := svc.CreateUser(cmd.Context(), email, password, role)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %s (%s)\n", role, user.Email, user.ID)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", fmt.Sprintf("Account password (min %d characters)", auth.MinPasswordLength))
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserRoleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "role <email> <admin|standard>",
		Short: "Change the role of a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, role := args[0], args[1]
			return ctx.withAuth(func(_ *sql.DB, svc *auth.Service) error {
				if err := svc.SetRole(cmd.Context(), email, role); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, role)
				return err
			})
		},
	}
}

func newUserListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users and their roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(db *sql.DB) error {
				return listUsers(cmd, db)
			})
		},
	}
}

func listUsers(cmd *cobra.Command, db *sql.DB) error {
	users, err := store.New(db).ListUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	if len(users) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No users")
		return err
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		lastLogin := "-"
		if u.LastLoginAt.Valid {
			lastLogin = formatTime(u.LastLoginAt.Time)
		}
		rows = append(rows, []string{u.Email, u.Role, formatTime(u.CreatedAt), lastLogin})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Email", "Role", "Created", "Last login"}, rows, nil))
	return err
}
