// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

// Package authstate defines the immutable authentication snapshot shared by
// the store, the persistence layer and the screens.
//
// A State is a value. Its fields are unexported and the identity is copied on
// the way in and on the way out, so a listener that receives a State cannot
// change what other listeners observe. Every transition builds a new State.
package authstate

import (
	"fmt"
	"time"
)

// State is a snapshot of authentication status, identity, token and expiry.
type State struct {
	authenticated bool
	user          *Identity
	token         string
	expiresAt     time.Time
}

// Unauthenticated returns the empty state: no user, no token, never expires.
func Unauthenticated() State {
	return State{}
}

// NewAuthenticated builds an authenticated state for user. A zero expiresAt
// means the state never expires.
func NewAuthenticated(user Identity, token string, expiresAt time.Time) State {
	u := user
	return State{
		authenticated: true,
		user:          &u,
		token:         token,
		expiresAt:     expiresAt,
	}
}

// Restore rebuilds a state from persisted fields. An authenticated state
// without an identity is untrusted and comes back unauthenticated.
func Restore(authenticated bool, user *Identity, token string, expiresAt time.Time) State {
	if !authenticated || user == nil {
		return Unauthenticated()
	}
	return NewAuthenticated(*user, token, expiresAt)
}

// Authenticated reports the raw authenticated flag. It does not consider
// expiry; use Valid for that.
func (s State) Authenticated() bool {
	return s.authenticated
}

// User returns a copy of the identity, if any.
func (s State) User() (Identity, bool) {
	if s.user == nil {
		return Identity{}, false
	}
	return *s.user, true
}

// HasUser reports whether the state carries an identity.
func (s State) HasUser() bool {
	return s.user != nil
}

// Token returns the opaque session token. It is never parsed.
func (s State) Token() string {
	return s.token
}

// ExpiresAt returns the expiry instant; the zero time means never.
func (s State) ExpiresAt() time.Time {
	return s.expiresAt
}

// IsExpired reports whether the state has expired according to the wall clock.
func (s State) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether the state would be expired at t.
func (s State) IsExpiredAt(t time.Time) bool {
	if s.expiresAt.IsZero() {
		return false
	}
	return t.After(s.expiresAt)
}

// Valid reports whether the state is authenticated, carries an identity and
// has not expired at t.
func (s State) Valid(t time.Time) bool {
	return s.authenticated && s.user != nil && !s.IsExpiredAt(t)
}

// Normalize returns the unauthenticated state when s claims to be
// authenticated without an identity, and s otherwise.
func (s State) Normalize() State {
	if s.authenticated && s.user == nil {
		return Unauthenticated()
	}
	return s
}

// String implements fmt.Stringer. The token is redacted.
func (s State) String() string {
	user := "nil"
	if s.user != nil {
		user = s.user.String()
	}
	token := "nil"
	if s.token != "" {
		token = "[TOKEN]"
	}
	expires := "never"
	if !s.expiresAt.IsZero() {
		expires = s.expiresAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("State{authenticated=%t, user=%s, token=%s, expires=%s}",
		s.authenticated, user, token, expires)
}
