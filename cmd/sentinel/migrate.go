// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nickandperla.net/sentinel/internal/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			backend := "postgres"
			if sq, ok := s.(*store.SQLite); ok {
				backend = "sqlite"
				version, err := sq.GetMetadata("schema_version")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sqlite schema version %s (%s)\n", version, a.cfg.SQLitePath)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "postgres schema applied")
			}
			a.logger.Info().Str("backend", backend).Msg("migration complete")
			return nil
		},
	}
}
