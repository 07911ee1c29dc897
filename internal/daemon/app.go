// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/timelinesink/internal/prefs"
)

// App owns the long-lived runtime lifecycle (preference watcher, reload
// signal) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	prefs        *prefs.Store
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. store may be nil.
func NewApp(logger zerolog.Logger, manager Manager, store *prefs.Store) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		prefs:        store,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.prefs != nil && a.prefs.Path() != "" {
		// The watcher is best-effort: startup should not fail without it.
		g.Go(func() error {
			if err := a.prefs.Watch(ctx); err != nil {
				a.logger.Warn().Err(err).Str("event", "prefs.watcher_start_failed").Msg("failed to watch preferences")
			}
			return nil
		})

		changes := make(chan prefs.Prefs, 1)
		a.prefs.Subscribe(changes)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case p := <-changes:
					a.logger.Info().
						Str("event", "prefs.applied").
						Strs("producers", p.ActiveProducers).
						Strs("features", p.ActiveFeatures).
						Msg("recording defaults updated")
				}
			}
		})

		if a.reloadSignal != nil {
			g.Go(func() error {
				hup := make(chan os.Signal, 1)
				signal.Notify(hup, a.reloadSignal)
				defer signal.Stop(hup)

				for {
					select {
					case <-ctx.Done():
						return nil
					case <-hup:
						a.logger.Info().
							Str("event", "prefs.reload_signal").
							Str("signal", a.reloadSignal.String()).
							Msg("received reload signal, reloading preferences")
						if err := a.prefs.Reload(); err != nil {
							a.logger.Warn().Err(err).Str("event", "prefs.reload_failed").Msg("preferences reload failed")
						}
					}
				}
			})
		}
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
