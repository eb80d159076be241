// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ueadmission/ueadmission/internal/appctx"
	"github.com/ueadmission/ueadmission/internal/auth"
	"github.com/ueadmission/ueadmission/internal/authstate"
	"github.com/ueadmission/ueadmission/internal/config"
	"github.com/ueadmission/ueadmission/internal/logging"
	"github.com/ueadmission/ueadmission/internal/refresh"
	"github.com/ueadmission/ueadmission/internal/session"
	"github.com/ueadmission/ueadmission/pkg/errutil"
)

// observabilityShutdownTimeout bounds the metrics server shutdown.
const observabilityShutdownTimeout = 5 * time.Second

// newUICmd creates the ui subcommand.
func newUICmd(opts *rootOptions, deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Start the admission terminal UI",
		Long: `Start the terminal UI. A remembered session is restored on start;
otherwise the home screen offers the login form.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runUI(cmd.Context(), cfg, deps)
		},
	}
}

// runUI wires the auth core and runs the terminal UI.
func runUI(ctx context.Context, cfg *config.Config, deps *Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database url is required: set DATABASE_URL or --database-url")
	}

	logFile, err := logging.OpenFile(cfg.Log.File)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()
	logger := logging.Setup(serviceName, version, cfg.Log.Format, cfg.LogLevel(), logFile)

	dir, err := deps.DirectoryConnector(ctx, cfg)
	if err != nil {
		errutil.LogError(logger, "failed to open user directory", err)
		return err
	}
	defer dir.Close()

	sessions, closeSessions, err := openSessions(ctx, cfg, logger, deps)
	if err != nil {
		errutil.LogError(logger, "failed to open session persistence", err)
		return err
	}
	defer closeSessions()

	logoutTimeout, err := cfg.LogoutTimeout()
	if err != nil {
		return err
	}

	appCtx := appctx.Default()
	store, err := auth.NewStore(appCtx, sessions,
		auth.WithClock(deps.Clock),
		auth.WithLogger(logger),
		auth.WithDirectory(dir),
		auth.WithLogoutTimeout(logoutTimeout),
	)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := auth.NewLoginService(store, dir, auth.NewArgon2idHasher(),
		auth.WithLoginClock(deps.Clock),
		auth.WithLoginLogger(logger),
	)
	if err != nil {
		return err
	}

	stopObservability, err := startObservability(cfg, appCtx, store, deps, logger)
	if err != nil {
		return err
	}
	defer stopObservability()

	logger.Info("starting ui", "authenticated", store.IsAuthenticated(), "session_backend", cfg.Session.Backend)
	runErr := deps.UIRunner(ctx, store, svc, logger)
	// The remembered session stays on disk; only the directory flag is
	// released so the next login is not refused.
	store.ReleaseDirectory()
	if runErr != nil {
		errutil.LogError(logger, "ui exited with error", runErr)
		return runErr
	}
	logger.Info("ui stopped")
	return nil
}

// startObservability starts the metrics server when an address is
// configured. The returned function stops it.
func startObservability(cfg *config.Config, appCtx *appctx.Context, store *auth.Store, deps *Deps, logger *slog.Logger) (func(), error) {
	if cfg.Metrics.Addr == "" {
		return func() {}, nil
	}

	server := deps.ObservabilityServerFactory(cfg.Metrics.Addr, appCtx.IsInitialized,
		auth.RegisterMetrics,
		session.RegisterMetrics,
		refresh.RegisterMetrics,
	)
	errCh, err := server.Start()
	if err != nil {
		return nil, oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
	}
	go func() {
		for serveErr := range errCh {
			logger.Error("observability server failed", "error", serveErr)
		}
	}()

	metrics := server.Metrics()
	sub := store.Subscribe(func(state authstate.State) {
		metrics.ObserveSession(state.Authenticated())
	})

	return func() {
		store.Unsubscribe(sub)
		ctx, cancel := context.WithTimeout(context.Background(), observabilityShutdownTimeout)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			logger.Warn("failed to stop observability server", "error", err)
		}
	}, nil
}
