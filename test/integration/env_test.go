// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ueadmission/ueadmission/internal/appctx"
	"github.com/ueadmission/ueadmission/internal/auth"
	"github.com/ueadmission/ueadmission/internal/clock"
	dirpg "github.com/ueadmission/ueadmission/internal/directory/postgres"
	"github.com/ueadmission/ueadmission/internal/session"
)

const schema = `
	CREATE TABLE users (
		id            BIGSERIAL PRIMARY KEY,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		phone         TEXT,
		role          TEXT NOT NULL DEFAULT 'student',
		address       TEXT,
		city          TEXT,
		country       TEXT,
		password_hash TEXT NOT NULL,
		ip_address    TEXT,
		last_login    TIMESTAMPTZ,
		is_logged_in  BOOLEAN NOT NULL DEFAULT FALSE
	)`

// testEnv holds the database shared by the suite.
type testEnv struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container testcontainers.Container
	connStr   string
	dir       *dirpg.UserDirectory
}

// setupTestEnv starts PostgreSQL, creates the users table and seeds alice.
func setupTestEnv(aliceHash string) (*testEnv, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	env := &testEnv{ctx: ctx, cancel: cancel}

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("ueadmission_test"),
		postgres.WithUsername("ueadmission"),
		postgres.WithPassword("ueadmission"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	env.container = container

	env.connStr, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		env.cleanup()
		return nil, err
	}

	conn, err := pgx.Connect(ctx, env.connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	defer func() { _ = conn.Close(ctx) }()

	if _, err := conn.Exec(ctx, schema); err != nil {
		env.cleanup()
		return nil, err
	}
	if _, err := conn.Exec(ctx, `
		INSERT INTO users (first_name, last_name, email, phone, role, city, country, password_hash)
		VALUES ('Alice', 'Rahman', 'alice@x.com', '017', 'student', 'Sylhet', 'Bangladesh', $1)`,
		aliceHash); err != nil {
		env.cleanup()
		return nil, err
	}

	env.dir, err = dirpg.Connect(ctx, env.connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	return env, nil
}

// resetUsers clears login flags between specs.
func (env *testEnv) resetUsers() error {
	conn, err := pgx.Connect(env.ctx, env.connStr)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(env.ctx) }()
	_, err = conn.Exec(env.ctx, `UPDATE users SET is_logged_in = FALSE, ip_address = NULL, last_login = NULL`)
	return err
}

func (env *testEnv) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if env.dir != nil {
		env.dir.Close()
	}
	if env.container != nil {
		_ = env.container.Terminate(ctx)
	}
	env.cancel()
}

// device is one installation of the client: its own session files and
// application context, sharing the directory with every other device.
type device struct {
	home     string
	clock    *clock.FakeClock
	appCtx   *appctx.Context
	sessions *session.Persistence
	store    *auth.Store
	login    *auth.LoginService
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newDevice(home string, c *clock.FakeClock, dir *dirpg.UserDirectory) (*device, error) {
	if err := os.MkdirAll(home, 0o700); err != nil {
		return nil, err
	}
	d := &device{home: home, clock: c}
	if err := d.boot(dir); err != nil {
		return nil, err
	}
	return d, nil
}

// boot starts the client as a fresh process over the device's files.
func (d *device) boot(dir *dirpg.UserDirectory) error {
	var err error
	d.appCtx = appctx.New(appctx.WithClock(d.clock))
	d.sessions, err = session.New(
		session.NewFileStore(filepath.Join(d.home, "preferences.yaml")),
		filepath.Join(d.home, "session.dat"),
		session.WithClock(d.clock),
		session.WithLogger(quiet),
	)
	if err != nil {
		return fmt.Errorf("open sessions: %w", err)
	}
	d.store, err = auth.NewStore(d.appCtx, d.sessions,
		auth.WithClock(d.clock),
		auth.WithLogger(quiet),
		auth.WithDirectory(dir),
	)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	d.login, err = auth.NewLoginService(d.store, dir, auth.NewArgon2idHasher(),
		auth.WithLoginClock(d.clock),
		auth.WithLoginLogger(quiet),
		auth.WithIPResolver(func() string { return "10.0.0.5" }),
	)
	return err
}

// restart closes the running store and boots a new one.
func (d *device) restart(dir *dirpg.UserDirectory) error {
	d.store.Close()
	return d.boot(dir)
}
