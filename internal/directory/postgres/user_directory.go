// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

// Package postgres implements directory.Directory on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/ueadmission/ueadmission/internal/directory"
)

// Default retry policy for transient failures.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 50 * time.Millisecond
)

// poolIface is the subset of pgxpool.Pool used here; pgxmock satisfies it.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// UserDirectory reads and updates the users table.
type UserDirectory struct {
	pool       poolIface
	maxRetries uint64
	retryDelay time.Duration
}

// Option configures a UserDirectory.
type Option func(*UserDirectory)

// WithRetry sets how many times a transient failure is retried and the
// initial backoff between attempts.
func WithRetry(maxRetries uint64, delay time.Duration) Option {
	return func(d *UserDirectory) {
		d.maxRetries = maxRetries
		d.retryDelay = delay
	}
}

// NewUserDirectory creates a UserDirectory over pool.
func NewUserDirectory(pool poolIface, opts ...Option) *UserDirectory {
	d := &UserDirectory{
		pool:       pool,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect opens a pool for dsn and verifies it.
func Connect(ctx context.Context, dsn string, opts ...Option) (*UserDirectory, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DIRECTORY_CONNECT_FAILED").
			With("operation", "create pool").
			Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DIRECTORY_CONNECT_FAILED").
			With("operation", "ping").
			Wrap(err)
	}
	return NewUserDirectory(pool, opts...), nil
}

// Close releases the pool.
func (d *UserDirectory) Close() {
	d.pool.Close()
}

// Ping checks connectivity.
func (d *UserDirectory) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

const selectUserByEmail = `
	SELECT id, first_name, last_name, email, COALESCE(phone, ''), role,
	       COALESCE(address, ''), COALESCE(city, ''), COALESCE(country, ''),
	       password_hash, COALESCE(ip_address, ''), is_logged_in
	FROM users
	WHERE email = $1`

// GetByEmail returns the user registered under email.
func (d *UserDirectory) GetByEmail(ctx context.Context, email string) (*directory.User, error) {
	var u directory.User
	err := d.do(ctx, func(ctx context.Context) error {
		return d.pool.QueryRow(ctx, selectUserByEmail, email).Scan(
			&u.ID,
			&u.FirstName,
			&u.LastName,
			&u.Email,
			&u.Phone,
			&u.Role,
			&u.Address,
			&u.City,
			&u.Country,
			&u.PasswordHash,
			&u.IPAddress,
			&u.LoggedIn,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("DIRECTORY_USER_NOT_FOUND").
			With("email", email).
			Wrap(directory.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("DIRECTORY_LOOKUP_FAILED").
			With("operation", "get user by email").
			With("email", email).
			Wrap(err)
	}
	return &u, nil
}

// MarkLoggedIn flags the user as logged in and records the login.
func (d *UserDirectory) MarkLoggedIn(ctx context.Context, id int64, ip string, at time.Time) error {
	return d.update(ctx, "mark logged in", id,
		`UPDATE users SET is_logged_in = TRUE, ip_address = $2, last_login = $3 WHERE id = $1`,
		id, ip, at)
}

// MarkLoggedOut clears the user's logged-in flag.
func (d *UserDirectory) MarkLoggedOut(ctx context.Context, id int64) error {
	return d.update(ctx, "mark logged out", id,
		`UPDATE users SET is_logged_in = FALSE WHERE id = $1`,
		id)
}

func (d *UserDirectory) update(ctx context.Context, operation string, id int64, sql string, args ...any) error {
	var tag pgconn.CommandTag
	err := d.do(ctx, func(ctx context.Context) error {
		var err error
		tag, err = d.pool.Exec(ctx, sql, args...)
		return err
	})
	if err != nil {
		return oops.Code("DIRECTORY_UPDATE_FAILED").
			With("operation", operation).
			With("user_id", id).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("DIRECTORY_USER_NOT_FOUND").
			With("user_id", id).
			Wrap(directory.ErrNotFound)
	}
	return nil
}

// do runs fn, retrying transient failures with exponential backoff.
func (d *UserDirectory) do(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(d.maxRetries, retry.NewExponential(d.retryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// isTransient reports whether err may succeed on another attempt. Errors
// that did not come from the server are assumed to be connection trouble.
func isTransient(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsTransactionRollback(pgErr.Code) ||
			pgerrcode.IsInsufficientResources(pgErr.Code) ||
			pgerrcode.IsOperatorIntervention(pgErr.Code)
	}
	return true
}

var _ directory.Directory = (*UserDirectory)(nil)
