// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

// Package directory describes the user directory the desktop client
// authenticates against.
package directory

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no user matches a lookup.
var ErrNotFound = errors.New("user not found")

// User is a directory record.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Role         string
	Address      string
	City         string
	Country      string
	PasswordHash string
	IPAddress    string
	LastLoginAt  time.Time
	LoggedIn     bool
}

// Directory looks up users and tracks their logged-in flag.
type Directory interface {
	// GetByEmail returns the user with the given email. Returns an error
	// wrapping ErrNotFound when there is none.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// MarkLoggedIn flags the user as logged in from ip at time at.
	MarkLoggedIn(ctx context.Context, id int64, ip string, at time.Time) error

	// MarkLoggedOut clears the user's logged-in flag.
	MarkLoggedOut(ctx context.Context, id int64) error
}
