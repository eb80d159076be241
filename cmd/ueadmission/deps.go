// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ueadmission/ueadmission/internal/auth"
	"github.com/ueadmission/ueadmission/internal/clock"
	"github.com/ueadmission/ueadmission/internal/config"
	"github.com/ueadmission/ueadmission/internal/directory"
	"github.com/ueadmission/ueadmission/internal/directory/postgres"
	"github.com/ueadmission/ueadmission/internal/observability"
	"github.com/ueadmission/ueadmission/internal/session"
	"github.com/ueadmission/ueadmission/internal/ui"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// DirectoryConnector opens the user directory.
	// Default: postgres.Connect with the configured retry policy
	DirectoryConnector func(ctx context.Context, cfg *config.Config) (Directory, error)

	// RedisDialer connects to Redis for the redis session backend.
	// Default: session.DialRedis
	RedisDialer func(ctx context.Context, cfg *config.Config) (*redis.Client, error)

	// UIRunner runs the terminal UI until the user quits.
	// Default: ui.Run
	UIRunner func(ctx context.Context, store *auth.Store, authn ui.Authenticator, logger *slog.Logger) error

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readiness observability.ReadinessChecker, regs ...observability.Registration) ObservabilityServer

	// Clock is the time source for sessions.
	// Default: clock.Real
	Clock clock.Clock
}

// Directory is the user directory plus its lifecycle.
type Directory interface {
	directory.Directory
	Close()
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.DirectoryConnector == nil {
		out.DirectoryConnector = connectDirectory
	}
	if out.RedisDialer == nil {
		out.RedisDialer = func(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
			return session.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		}
	}
	if out.UIRunner == nil {
		out.UIRunner = ui.Run
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readiness observability.ReadinessChecker, regs ...observability.Registration) ObservabilityServer {
			return observability.NewServer(addr, readiness, regs...)
		}
	}
	if out.Clock == nil {
		out.Clock = clock.Real()
	}
	return &out
}

func connectDirectory(ctx context.Context, cfg *config.Config) (Directory, error) {
	delay, err := cfg.RetryDelay()
	if err != nil {
		return nil, err
	}
	dir, err := postgres.Connect(ctx, cfg.Database.URL, postgres.WithRetry(cfg.Database.MaxRetries, delay))
	if err != nil {
		return nil, err
	}
	return dir, nil
}
