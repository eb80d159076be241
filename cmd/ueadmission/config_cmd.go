// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ueadmission/ueadmission/internal/config"
)

// newConfigCmd creates the config command group.
func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate configuration or print its schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load every configuration source and report problems",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				cmd.PrintErrln("config invalid:", config.FormatSchemaError(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok (session backend: %s, log level: %s)\n", cfg.Session.Backend, cfg.Log.Level)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the config file JSON Schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return nil
		},
	})

	return cmd
}
