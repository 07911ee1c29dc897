// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManuGH/timelinesink/internal/config"
	"github.com/ManuGH/timelinesink/internal/daemon"
	"github.com/ManuGH/timelinesink/internal/health"
	xglog "github.com/ManuGH/timelinesink/internal/log"
	"github.com/ManuGH/timelinesink/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "timelinesink",
		Short:         "Browser instrumentation hub streaming producer events to timeline UIs",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	root.AddCommand(serve, newConfigCmd(&configPath), newVersionCmd(), newHealthcheckCmd(), newStatusCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func runServe(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}

	// Safe defaults until the config is loaded.
	xglog.Configure(xglog.Config{Level: "info", Service: "timelinesink", Version: version.Version})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configPath = strings.TrimSpace(configPath)
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", configPath).
			Msg("failed to load configuration")
		return err
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "timelinesink", Version: cfg.Version})
	logger = xglog.WithComponent("daemon")

	source := "env+defaults"
	if configPath != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str(xglog.FieldPath, configPath).
		Msg("configuration loaded")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Error().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("startup checks failed, verify configuration and permissions")
		return err
	}

	rt, err := daemon.Bootstrap(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str("event", "startup.bootstrap_failed").Msg("failed to wire daemon")
		return err
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.API.ListenAddr).
		Str("metrics_addr", cfg.Metrics.ListenAddr).
		Str("prefs", cfg.Prefs.Path).
		Bool("tracing", cfg.Tracing.Enabled).
		Msg("starting timelinesink")

	if err := daemon.NewApp(logger, rt.Manager, rt.Prefs).Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "daemon.failed").Msg("daemon stopped with error")
		return err
	}
	logger.Info().Str("event", "shutdown").Msg("daemon stopped")
	return nil
}
