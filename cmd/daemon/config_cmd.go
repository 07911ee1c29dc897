// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/timelinesink/internal/config"
	"github.com/ManuGH/timelinesink/internal/version"
)

func newConfigCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration (file, environment and defaults)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := config.NewLoader(*configPath, version.Version).Load(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			target := *configPath
			if target == "" {
				target = "environment and defaults"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid\n", target)
			return nil
		},
	})

	var format string
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader(*configPath, version.Version).Load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			out := cmd.OutOrStdout()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(cfg); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			default:
				return fmt.Errorf("unknown format %q (supported: yaml, json)", format)
			}
		},
	}
	dump.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	cmd.AddCommand(dump)

	return cmd
}
