// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/olegiv/studio-go/internal/content"
	"github.com/olegiv/studio-go/internal/model"
	"github.com/olegiv/studio-go/internal/pages"
)

const previewLength = 48

func newContentCommand(ctx *commandContext) *cobra.Command {
	contentCmd := &cobra.Command{
		Use:   "content",
		Short: "Inspect and edit stored page content",
	}
	contentCmd.AddCommand(newContentListCommand(ctx))
	contentCmd.AddCommand(newContentGetCommand(ctx))
	contentCmd.AddCommand(newContentSetCommand(ctx))
	return contentCmd
}

func newContentListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [section]",
		Short: "List sections, or the stored items of one section",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(db *sql.DB) error {
				repo := content.NewStoreRepository(db)
				if len(args) == 0 {
					return listSections(cmd, repo)
				}
				return listItems(cmd, repo, args[0])
			})
		},
	}
}

func listSections(cmd *cobra.Command, repo *content.StoreRepository) error {
	sections, err := repo.Sections(cmd.Context())
	if err != nil {
		return err
	}
	if len(sections) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No stored content")
		return err
	}
	rows := make([][]string, 0, len(sections))
	for _, s := range sections {
		rows = append(rows, []string{s.Section, strconv.FormatInt(s.Items, 10)})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Section", "Items"}, rows, []columnAlignment{alignLeft, alignRight}))
	return err
}

func listItems(cmd *cobra.Command, repo *content.StoreRepository, section string) error {
	items, err := repo.FetchSection(cmd.Context(), section)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "No stored items in section %q\n", section)
		return err
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.Key, string(it.Type), preview(it.Value), formatTime(it.UpdatedAt)})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Type", "Value", "Updated"}, rows, nil))
	return err
}

func newContentGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <section> <key>",
		Short: "Print one stored value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			section, key := args[0], args[1]
			return ctx.withDB(func(db *sql.DB) error {
				item, err := content.NewStoreRepository(db).Get(cmd.Context(), section, key)
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("no stored value for %s/%s", section, key)
				}
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), item.Value)
				return err
			})
		},
	}
}

func newContentSetCommand(ctx *commandContext) *cobra.Command {
	var typeFlag string

	cmd := &cobra.Command{
		Use:   "set <section> <key> <value>",
		Short: "Store one value",
		Long: "Store one value. Without --type the page definition decides; keys it does " +
			"not declare are stored as json when the value is an array or object, text otherwise.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			section, key, value := args[0], args[1], args[2]

			registry, err := pages.Load()
			if err != nil {
				return err
			}
			page, ok := registry.BySection(section)
			if !ok {
				return fmt.Errorf("unknown section %q", section)
			}

			typ, err := resolveType(typeFlag, page.Types[key], value)
			if err != nil {
				return err
			}

			return ctx.withDB(func(db *sql.DB) error {
				if err := content.NewStoreRepository(db).Upsert(cmd.Context(), section, key, value, typ); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Saved %s/%s (%s)\n", section, key, typ)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&typeFlag, "type", "", "Value type: text, textarea, richtext or json")
	return cmd
}

// resolveType picks the storage type: an explicit flag, then the declared
// type, then a guess from the value.
func resolveType(flag string, declared model.ValueType, value string) (model.ValueType, error) {
	if flag != "" {
		return model.ParseValueType(flag)
	}
	if declared != "" {
		return declared, nil
	}
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		return model.TypeJSON, nil
	}
	return model.TypeText, nil
}

func preview(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if utf8.RuneCountInString(value) <= previewLength {
		return value
	}
	runes := []rune(value)
	return string(runes[:previewLength-1]) + "…"
}
