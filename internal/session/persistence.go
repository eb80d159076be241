// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

// Package session remembers the last authenticated state across restarts.
//
// Two independent channels hold the same session: a key/value Preferences
// store (channel A) and a serialized blob file (channel B). Saves write both,
// loads prefer channel A and fall back to channel B. A failure in one channel
// never aborts work on the other; results report each channel separately.
package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/ueadmission/ueadmission/internal/authstate"
	"github.com/ueadmission/ueadmission/internal/clock"
	"github.com/ueadmission/ueadmission/pkg/errutil"
)

// SaveResult reports the outcome of Save per channel.
type SaveResult struct {
	// Skipped is set when the state was not worth saving; both channels were
	// cleared instead and the errors below are clear errors.
	Skipped     bool
	Preferences error
	Blob        error
}

// OK reports whether both channels succeeded.
func (r SaveResult) OK() bool {
	return r.Preferences == nil && r.Blob == nil
}

// Err joins the channel errors.
func (r SaveResult) Err() error {
	return errors.Join(r.Preferences, r.Blob)
}

// ClearResult reports the outcome of Clear per channel.
type ClearResult struct {
	Preferences error
	Blob        error
}

// OK reports whether both channels were cleared.
func (r ClearResult) OK() bool {
	return r.Preferences == nil && r.Blob == nil
}

// Err joins the channel errors.
func (r ClearResult) Err() error {
	return errors.Join(r.Preferences, r.Blob)
}

// Persistence owns both session channels.
type Persistence struct {
	mu       sync.Mutex
	prefs    Preferences
	blobPath string
	clock    clock.Clock
	logger   *slog.Logger
}

// Option configures a Persistence.
type Option func(*Persistence)

// WithClock sets the time source used by HasActiveSession.
func WithClock(c clock.Clock) Option {
	return func(p *Persistence) {
		p.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Persistence) {
		p.logger = logger
	}
}

// New creates a Persistence over prefs (channel A) and the blob at blobPath
// (channel B).
func New(prefs Preferences, blobPath string, opts ...Option) (*Persistence, error) {
	if prefs == nil {
		return nil, oops.Code("SESSION_INVALID_CONFIG").Errorf("preferences store is required")
	}
	if blobPath == "" {
		return nil, oops.Code("SESSION_INVALID_CONFIG").Errorf("session blob path is required")
	}
	p := &Persistence{
		prefs:    prefs,
		blobPath: blobPath,
		clock:    clock.Real(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// BlobPath returns the channel B file.
func (p *Persistence) BlobPath() string {
	return p.blobPath
}

// Save writes state to both channels. States that are not authenticated or
// carry no identity are not saved; both channels are cleared instead.
func (p *Persistence) Save(state authstate.State) SaveResult {
	if !state.Authenticated() || !state.HasUser() {
		cleared := p.Clear()
		return SaveResult{Skipped: true, Preferences: cleared.Preferences, Blob: cleared.Blob}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var result SaveResult
	if err := p.prefs.Put(encodeValues(state)); err != nil {
		result.Preferences = err
		recordFailure(ChannelPreferences, OpSave)
		errutil.LogWarn(p.logger, "failed to save session to preferences", err)
	}
	if err := writeBlob(p.blobPath, state); err != nil {
		result.Blob = err
		recordFailure(ChannelBlob, OpSave)
		errutil.LogWarn(p.logger, "failed to save session blob", err, "path", p.blobPath)
	}
	if result.OK() {
		p.logger.Debug("session saved", "path", p.blobPath)
	}
	return result
}

// Load returns the persisted session. Channel A is consulted first; channel B
// is used when channel A holds no authenticated identity. Unreadable or
// corrupt data counts as no session. Expiry is not checked here.
func (p *Persistence) Load() (authstate.State, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	values, err := p.prefs.Values()
	if err != nil {
		recordFailure(ChannelPreferences, OpLoad)
		errutil.LogWarn(p.logger, "failed to read session preferences", err)
	} else if state, ok := decodeValues(values); ok {
		SessionLoads.WithLabelValues(ChannelPreferences).Inc()
		p.logger.Debug("session loaded from preferences")
		return state, true
	}

	state, ok, err := readBlob(p.blobPath)
	if err != nil {
		recordFailure(ChannelBlob, OpLoad)
		errutil.LogWarn(p.logger, "failed to read session blob", err, "path", p.blobPath)
	}
	if ok {
		SessionLoads.WithLabelValues(ChannelBlob).Inc()
		p.logger.Debug("session loaded from blob", "path", p.blobPath)
		return state, true
	}

	SessionLoads.WithLabelValues("none").Inc()
	return authstate.Unauthenticated(), false
}

// HasActiveSession reports whether Load yields a session that is
// authenticated, carries an identity and has not expired.
func (p *Persistence) HasActiveSession() bool {
	state, ok := p.Load()
	return ok && state.Valid(p.clock.Now())
}

// Clear removes the session keys from channel A and deletes the channel B
// file. Each channel is attempted regardless of the other.
func (p *Persistence) Clear() ClearResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result ClearResult
	if err := p.prefs.Delete(AllKeys...); err != nil {
		result.Preferences = err
		recordFailure(ChannelPreferences, OpClear)
		errutil.LogWarn(p.logger, "failed to clear session preferences", err)
	}
	if err := removeBlob(p.blobPath); err != nil {
		result.Blob = err
		recordFailure(ChannelBlob, OpClear)
		errutil.LogWarn(p.logger, "failed to remove session blob", err, "path", p.blobPath)
	}
	if result.OK() {
		p.logger.Debug("session cleared")
	}
	return result
}
