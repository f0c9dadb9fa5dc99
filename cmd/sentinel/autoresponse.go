// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"nickandperla.net/sentinel/internal/autoresponse"
	"nickandperla.net/sentinel/pkg/sentinel"
)

const pageSize = 10

func newAutoresponseCmd(a *app) *cobra.Command {
	var guildID int64
	cmd := &cobra.Command{
		Use:     "autoresponse",
		Aliases: []string{"ar"},
		Short:   "Manage a guild's autoresponse functions",
	}
	cmd.PersistentFlags().Int64VarP(&guildID, "guild", "g", 0, "Guild id")
	cmd.MarkPersistentFlagRequired("guild")

	add := &cobra.Command{
		Use:   "add NAME [SCRIPT]",
		Short: "Add a function; the script is read from stdin when omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := ""
			if len(args) == 2 {
				script = args[1]
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				script = string(b)
			}
			return withRuntime(a, cmd, func(ctx context.Context, rt *sentinel.Runtime) error {
				fn, err := rt.Manager().Add(ctx, guildID, args[0], script)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %q (%d lines)\n", fn.Name, len(fn.Lines()))
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove PREFIX",
		Short: "Remove the first function whose stored form starts with PREFIX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(a, cmd, func(ctx context.Context, rt *sentinel.Runtime) error {
				fn, err := rt.Manager().Remove(ctx, guildID, args[0])
				if errors.Is(err, autoresponse.ErrFunctionNotFound) {
					return fmt.Errorf("no function matches %q", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %q\n", fn.Name)
				return nil
			})
		},
	}

	var page int
	list := &cobra.Command{
		Use:   "list",
		Short: "List functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(a, cmd, func(ctx context.Context, rt *sentinel.Runtime) error {
				functions, err := rt.Manager().List(ctx, guildID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(functions) == 0 {
					fmt.Fprintln(out, "No autoresponse functions.")
					return nil
				}
				shown, pages := autoresponse.Page(functions, page, pageSize)
				for _, fn := range shown {
					fmt.Fprintf(out, "%s\n", fn.Name)
					for _, line := range fn.Lines() {
						fmt.Fprintf(out, "    %s\n", line)
					}
				}
				fmt.Fprintf(out, "Page %d/%d\n", min(max(page, 1), pages), pages)
				return nil
			})
		},
	}
	list.Flags().IntVarP(&page, "page", "p", 1, "Page number")

	complete := &cobra.Command{
		Use:   "complete [ARGUMENT]",
		Short: "Show the suggestions offered for a partial function name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			argument := ""
			if len(args) == 1 {
				argument = args[0]
			}
			return withRuntime(a, cmd, func(ctx context.Context, rt *sentinel.Runtime) error {
				choices, err := rt.Manager().Autocomplete(ctx, guildID, argument)
				if err != nil {
					return err
				}
				for _, c := range choices {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%q\n", c.Name, c.Value)
				}
				return nil
			})
		},
	}

	enable := &cobra.Command{
		Use:   "enable [true|false]",
		Short: "Turn autoresponse processing on or off",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := boolArg(args, true)
			if err != nil {
				return err
			}
			return withRuntime(a, cmd, func(ctx context.Context, rt *sentinel.Runtime) error {
				if err := rt.Manager().SetEnabled(ctx, guildID, on); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Autoresponses enabled: %t\n", on)
				return nil
			})
		},
	}

	allow := &cobra.Command{
		Use:   "allow-immunity [true|false]",
		Short: "Let members change their own immunity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := boolArg(args, true)
			if err != nil {
				return err
			}
			return withRuntime(a, cmd, func(ctx context.Context, rt *sentinel.Runtime) error {
				if err := rt.Manager().SetAllowImmunity(ctx, guildID, on); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Immunity changes allowed: %t\n", on)
				return nil
			})
		},
	}

	var userID int64
	immune := &cobra.Command{
		Use:   "immune [true|false]",
		Short: "Show or set a user's immunity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(a, cmd, func(ctx context.Context, rt *sentinel.Runtime) error {
				im, err := rt.Manager().Immunity(ctx, userID, guildID)
				if err != nil {
					return err
				}
				if len(args) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Immune: %t (changes allowed: %t)\n", im.Immune, im.Allowed)
					return nil
				}
				if !im.Allowed {
					return errors.New("this guild does not allow changing immunity")
				}
				on, err := boolArg(args, true)
				if err != nil {
					return err
				}
				if err := rt.Manager().SetImmune(ctx, userID, on); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Immune: %t\n", on)
				return nil
			})
		},
	}
	immune.Flags().Int64VarP(&userID, "user", "u", 0, "User id")
	immune.MarkFlagRequired("user")

	cmd.AddCommand(add, remove, list, complete, enable, allow, immune)
	return cmd
}

func boolArg(args []string, def bool) (bool, error) {
	if len(args) == 0 {
		return def, nil
	}
	b, err := strconv.ParseBool(args[0])
	if err != nil {
		return false, fmt.Errorf("expected true or false, got %q", args[0])
	}
	return b, nil
}
