// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"nickandperla.net/sentinel/internal/store"
	"nickandperla.net/sentinel/internal/tags"
	"nickandperla.net/sentinel/pkg/sentinel"
)

func newTagCmd(a *app) *cobra.Command {
	var (
		guildID int64
		userID  int64
		admin   bool
	)
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage a guild's tags",
	}
	flags := cmd.PersistentFlags()
	flags.Int64VarP(&guildID, "guild", "g", 0, "Guild id")
	flags.Int64VarP(&userID, "user", "u", 0, "Acting user id")
	flags.BoolVar(&admin, "admin", false, "Skip ownership checks")
	cmd.MarkPersistentFlagRequired("guild")

	// owner is the id ownership checks run against.
	owner := func() int64 {
		if admin {
			return store.AnyOwner
		}
		return userID
	}

	// tagCmd builds a subcommand that runs fn against the tag service.
	tagCmd := func(use, short string, args cobra.PositionalArgs, fn func(ctx context.Context, cmd *cobra.Command, rt *sentinel.Runtime, args []string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(a, cmd, func(ctx context.Context, rt *sentinel.Runtime) error {
					return fn(ctx, cmd, rt, args)
				})
			},
		}
	}

	get := tagCmd("get NAME", "Show a tag", cobra.ExactArgs(1),
		func(ctx context.Context, cmd *cobra.Command, rt *sentinel.Runtime, args []string) error {
			entry, err := rt.Tags().Get(ctx, guildID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), entry.Content.Content)
			return nil
		})

	info := tagCmd("info NAME", "Show a tag's owner, uses and aliases", cobra.ExactArgs(1),
		func(ctx context.Context, cmd *cobra.Command, rt *sentinel.Runtime, args []string) error {
			info, err := rt.Tags().Info(ctx, guildID, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			e := info.Entry
			fmt.Fprintf(out, "Name:  %s\n", e.Name)
			fmt.Fprintf(out, "Owner: %d\n", e.OwnerID)
			fmt.Fprintf(out, "Uses:  %d\n", e.Uses)
			if e.IsAlias() {
				fmt.Fprintf(out, "Alias of tag %d\n", *e.AliasTo)
				return nil
			}
			if e.Content != nil {
				fmt.Fprintf(out, "Created: %s\n", e.Content.CreatedAt.Format("2006-01-02 15:04"))
			}
			if len(info.Aliases) > 0 {
				names := make([]string, len(info.Aliases))
				for i, al := range info.Aliases {
					names[i] = al.Name
				}
				fmt.Fprintf(out, "Aliases: %s\n", strings.Join(names, ", "))
			}
			return nil
		})

	create := tagCmd("create NAME CONTENT", "Create a tag", cobra.ExactArgs(2),
		func(ctx context.Context, cmd *cobra.Command, rt *sentinel.Runtime, args []string) error {
			if err := rt.Tags().Create(ctx, guildID, userID, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created tag %q\n", tags.Normalize(args[0]))
			return nil
		})

	edit := tagCmd("edit NAME CONTENT", "Replace a tag's content", cobra.ExactArgs(2),
		func(ctx context.Context, cmd *cobra.Command, rt *sentinel.Runtime, args []string) error {
			if err := rt.Tags().Edit(ctx, guildID, owner(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Edited tag %q\n", args[0])
			return nil
		})

	del := tagCmd("delete NAME", "Delete a tag and its aliases", cobra.ExactArgs(1),
		func(ctx context.Context, cmd *cobra.Command, rt *sentinel.Runtime, args []string) error {
			if err := rt.Tags().Delete(ctx, guildID, owner(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted tag %q\n", args[0])
			return nil
		})

	alias := tagCmd("alias NAME TARGET", "Create NAME as an alias of TARGET", cobra.ExactArgs(2),
		func(ctx context.Context, cmd *cobra.Command, rt *sentinel.Runtime, args []string) error {
			if err := rt.Tags().Alias(ctx, guildID, userID, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Aliased %q to %q\n", args[0], args[1])
			return nil
		})

	unalias := tagCmd("unalias NAME", "Delete an alias", cobra.ExactArgs(1),
		func(ctx context.Context, cmd *cobra.Command, rt *sentinel.Runtime, args []string) error {
			if err := rt.Tags().DeleteAlias(ctx, guildID, owner(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted alias %q\n", args[0])
			return nil
		})

	transfer := tagCmd("transfer NAME NEW_OWNER", "Give a tag to another user", cobra.ExactArgs(2),
		func(ctx context.Context, cmd *cobra.Command, rt *sentinel.Runtime, args []string) error {
			newOwner, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[1])
			}
			if err := rt.Tags().Transfer(ctx, guildID, owner(), args[0], newOwner); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transferred %q to %d\n", args[0], newOwner)
			return nil
		})

	list := tagCmd("list", "List tags", cobra.NoArgs,
		func(ctx context.Context, cmd *cobra.Command, rt *sentinel.Runtime, args []string) error {
			all, err := rt.Tags().List(ctx, guildID)
			if err != nil {
				return err
			}
			for _, t := range all {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d uses\n", t.Name, t.Uses)
			}
			return nil
		})

	var ratio float64
	search := tagCmd("search QUERY", "Find tags with similar names", cobra.ExactArgs(1),
		func(ctx context.Context, cmd *cobra.Command, rt *sentinel.Runtime, args []string) error {
			matches, err := rt.Tags().Search(ctx, guildID, args[0], ratio)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
			}
			for _, m := range matches {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.2f\n", m.Tag.Name, m.Ratio)
			}
			return nil
		})
	search.Flags().Float64Var(&ratio, "ratio", 0.5, "Minimum similarity between 0 and 1")

	cmd.AddCommand(get, info, create, edit, del, alias, unalias, transfer, list, search)
	return cmd
}
