// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ueadmission/ueadmission/internal/config"
	"github.com/ueadmission/ueadmission/internal/logging"
	"github.com/ueadmission/ueadmission/internal/session"
)

const serviceName = "ueadmission"

// rootOptions holds the global flags.
type rootOptions struct {
	configFile string
	envFile    string
}

// NewRootCmd creates the root command for the UEAdmission CLI. A nil deps
// uses the default implementations.
func NewRootCmd(deps *Deps) *cobra.Command {
	opts := &rootOptions{}
	resolved := deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "ueadmission",
		Short: "UEAdmission - university admission client",
		Long: `UEAdmission is the terminal client for the university admission
system. It signs students and staff in against the user directory and keeps
their session across restarts.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file (default .env)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newUICmd(opts, resolved))
	cmd.AddCommand(newSessionCmd(opts, resolved))
	cmd.AddCommand(newHashPasswordCmd())
	cmd.AddCommand(newConfigCmd(opts))

	return cmd
}

// loadConfig loads configuration with cmd's flags as the top layer.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	return config.Load(config.Options{
		Path:    opts.configFile,
		EnvFile: opts.envFile,
		Flags:   cmd.Flags(),
	})
}

// stderrLogger logs to the command's error stream for non-interactive commands.
func stderrLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.Setup(serviceName, version, cfg.Log.Format, cfg.LogLevel(), cmd.ErrOrStderr())
}

// openSessions builds session persistence on the configured preferences
// backend. The returned function releases the backend.
func openSessions(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Deps) (*session.Persistence, func(), error) {
	var (
		prefs   session.Preferences
		release = func() {}
	)
	switch cfg.Session.Backend {
	case config.BackendRedis:
		client, err := deps.RedisDialer(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store := session.NewRedisStore(client, cfg.Redis.Prefix+":preferences")
		prefs = store
		release = func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close redis client", "error", err)
			}
		}
	default:
		prefs = session.NewFileStore(cfg.Session.PreferencesFile)
	}

	p, err := session.New(prefs, cfg.Session.BlobFile,
		session.WithClock(deps.Clock),
		session.WithLogger(logger),
	)
	if err != nil {
		release()
		return nil, nil, oops.Code("SESSION_OPEN_FAILED").Wrap(err)
	}
	return p, release, nil
}
