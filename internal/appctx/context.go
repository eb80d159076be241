// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

// Package appctx holds the process-wide mirror of the current authentication
// state. Screens that are built independently of each other read it directly
// instead of subscribing to the store.
package appctx

import (
	"sync"

	"github.com/ueadmission/ueadmission/internal/authstate"
	"github.com/ueadmission/ueadmission/internal/clock"
)

// Context mirrors the authoritative state owned by auth.Store.
//
// IsAuthenticated and CurrentUser apply the same rule as the store but have
// no side effects: an expired snapshot stays here until the store notices the
// expiry and logs out.
type Context struct {
	mu          sync.RWMutex
	state       authstate.State
	initialized bool
	clock       clock.Clock
}

// Option configures a Context.
type Option func(*Context)

// WithClock sets the time source used for expiry checks.
func WithClock(c clock.Clock) Option {
	return func(ctx *Context) {
		ctx.clock = c
	}
}

// New creates a Context holding the unauthenticated state.
func New(opts ...Option) *Context {
	c := &Context{
		state: authstate.Unauthenticated(),
		clock: clock.Real(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthState returns the mirrored state.
func (c *Context) AuthState() authstate.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SetAuthState replaces the mirrored state.
func (c *Context) SetAuthState(state authstate.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state.Normalize()
}

// IsInitialized reports whether a store has already seeded this context.
func (c *Context) IsInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// SetInitialized marks the context as seeded (or not).
func (c *Context) SetInitialized(initialized bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = initialized
}

// IsAuthenticated reports whether the mirrored state is authenticated, has an
// identity and has not expired.
func (c *Context) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Valid(c.clock.Now())
}

// CurrentUser returns the identity when IsAuthenticated would be true.
func (c *Context) CurrentUser() (authstate.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.state.Valid(c.clock.Now()) {
		return authstate.Identity{}, false
	}
	return c.state.User()
}

var (
	defaultMu  sync.Mutex
	defaultCtx *Context
)

// Default returns the process-wide Context, creating it on first use.
func Default() *Context {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCtx == nil {
		defaultCtx = New()
	}
	return defaultCtx
}

// Reset discards the process-wide Context so the next Default call builds a
// fresh one. Intended for tests that simulate a process restart.
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultCtx = nil
}
