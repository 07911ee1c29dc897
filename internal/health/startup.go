// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ManuGH/timelinesink/internal/config"
	"github.com/ManuGH/timelinesink/internal/log"
)

// PerformStartupChecks validates the environment before the daemon starts
// serving.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkListenAddr(logger, "api", cfg.API.ListenAddr); err != nil {
		return err
	}
	if cfg.Metrics.ListenAddr != "" {
		if err := checkListenAddr(logger, "metrics", cfg.Metrics.ListenAddr); err != nil {
			return err
		}
	}
	if cfg.Prefs.Path != "" {
		if err := checkPrefsDir(logger, filepath.Dir(cfg.Prefs.Path)); err != nil {
			return fmt.Errorf("prefs directory check failed: %w", err)
		}
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkListenAddr(logger zerolog.Logger, name, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid %s listen address %q: %w", name, addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid %s listen port %q in %q", name, port, addr)
	}
	logger.Debug().Str("addr", addr).Msgf("%s listen address is valid", name)
	return nil
}

// checkPrefsDir requires the directory to exist and be writable, since
// preferences are saved by atomic rename inside it.
func checkPrefsDir(logger zerolog.Logger, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}

	f, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	logger.Debug().Str(log.FieldPath, dir).Msg("prefs directory is writable")
	return nil
}
