// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package auth

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/ueadmission/ueadmission/internal/appctx"
	"github.com/ueadmission/ueadmission/internal/authstate"
	"github.com/ueadmission/ueadmission/internal/clock"
	"github.com/ueadmission/ueadmission/internal/directory"
	"github.com/ueadmission/ueadmission/internal/session"
	"github.com/ueadmission/ueadmission/pkg/errutil"
)

// Session lifetimes.
const (
	RememberMeTTL = 30 * 24 * time.Hour
	SessionTTL    = 2 * time.Hour
)

// DefaultLogoutTimeout bounds the directory update made after a logout.
const DefaultLogoutTimeout = 5 * time.Second

// SessionStore persists the authenticated state across restarts.
// *session.Persistence implements it.
type SessionStore interface {
	Save(state authstate.State) session.SaveResult
	Load() (authstate.State, bool)
	HasActiveSession() bool
	Clear() session.ClearResult
}

// Listener receives every installed auth state.
type Listener func(authstate.State)

// Subscription is a registered Listener. It stops receiving states as soon as
// it is passed to Unsubscribe.
type Subscription struct {
	id     ulid.ULID
	fn     Listener
	active atomic.Bool
}

// ID identifies the subscription in logs.
func (s *Subscription) ID() ulid.ULID {
	return s.id
}

type notification struct {
	state authstate.State
	subs  []*Subscription
}

// Store is the authoritative auth state for the process. Screens read it,
// subscribe to it and drive it through Login and Logout.
type Store struct {
	mu      sync.Mutex
	state   authstate.State
	version uint64
	subs    []*Subscription
	queue   []notification

	// persistMu orders persisted writes the same way as the transitions
	// that caused them. Acquired before mu.
	persistMu sync.Mutex

	// deliverMu is held by the goroutine running a delivery pass;
	// deliverer is its goroutine id, or 0.
	deliverMu sync.Mutex
	deliverer atomic.Uint64

	appCtx        *appctx.Context
	sessions      SessionStore
	clock         clock.Clock
	logger        *slog.Logger
	dir           directory.Directory
	newToken      TokenGenerator
	logoutTimeout time.Duration

	background sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for token expiry.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithDirectory enables marking users logged out in the directory.
func WithDirectory(dir directory.Directory) Option {
	return func(s *Store) {
		s.dir = dir
	}
}

// WithTokenGenerator replaces NewToken.
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(s *Store) {
		s.newToken = gen
	}
}

// WithLogoutTimeout bounds the directory update made after a logout.
func WithLogoutTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.logoutTimeout = d
	}
}

// NewStore creates the Store and settles the initial state. A context that
// is already initialized wins; otherwise a valid persisted session is
// adopted. An expired persisted session is cleared.
func NewStore(appCtx *appctx.Context, sessions SessionStore, opts ...Option) (*Store, error) {
	if appCtx == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("application context is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session store is required")
	}

	s := &Store{
		appCtx:        appCtx,
		sessions:      sessions,
		clock:         clock.Real(),
		logger:        slog.Default(),
		newToken:      NewToken,
		logoutTimeout: DefaultLogoutTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case appCtx.IsInitialized():
		s.state = appCtx.AuthState()
		s.logger.Debug("auth state adopted from application context", "state", s.state.String())
	default:
		s.state = s.loadPersisted()
		appCtx.SetAuthState(s.state)
	}
	appCtx.SetInitialized(true)

	return s, nil
}

// loadPersisted returns the persisted session if it is still valid.
func (s *Store) loadPersisted() authstate.State {
	loaded, ok := s.sessions.Load()
	if !ok {
		return authstate.Unauthenticated()
	}
	if !loaded.Valid(s.clock.Now()) {
		s.discardExpired(loaded)
		return authstate.Unauthenticated()
	}
	user, _ := loaded.User()
	s.logger.Info("session restored", "user_id", user.ID, "expires_at", loaded.ExpiresAt())
	return loaded
}

// Login installs an authenticated state for user. The session lasts
// RememberMeTTL and is persisted when rememberMe is set, otherwise it lasts
// SessionTTL and lives only in memory.
func (s *Store) Login(user authstate.Identity, rememberMe bool) authstate.State {
	ttl := SessionTTL
	if rememberMe {
		ttl = RememberMeTTL
	}
	expiresAt := time.UnixMilli(s.clock.Now().Add(ttl).UnixMilli())
	state := authstate.NewAuthenticated(user, s.newToken(), expiresAt)

	s.persistMu.Lock()
	s.mu.Lock()
	s.install(state)
	s.mu.Unlock()
	if rememberMe {
		s.sessions.Save(state)
	}
	s.persistMu.Unlock()
	StateTransitions.WithLabelValues(TransitionLogin).Inc()

	s.logger.Info("user logged in",
		"user_id", user.ID,
		"remember_me", rememberMe,
		"expires_at", expiresAt,
	)

	s.drain()
	return state
}

// Logout installs the unauthenticated state and clears the persisted
// session. The directory, if configured, is told in the background.
func (s *Store) Logout() {
	s.persistMu.Lock()
	s.mu.Lock()
	userID := s.userIDLocked()
	s.install(authstate.Unauthenticated())
	s.mu.Unlock()
	s.sessions.Clear()
	s.persistMu.Unlock()

	s.finishLogout(userID, TransitionLogout)
}

// logoutIfCurrent logs out only if no transition happened since version was
// read. It reports whether it did.
func (s *Store) logoutIfCurrent(version uint64, kind string) bool {
	s.persistMu.Lock()
	s.mu.Lock()
	if s.version != version {
		s.mu.Unlock()
		s.persistMu.Unlock()
		return false
	}
	userID := s.userIDLocked()
	s.install(authstate.Unauthenticated())
	s.mu.Unlock()
	s.sessions.Clear()
	s.persistMu.Unlock()

	s.finishLogout(userID, kind)
	return true
}

func (s *Store) finishLogout(userID int64, kind string) {
	StateTransitions.WithLabelValues(kind).Inc()
	s.logger.Info("user logged out", "user_id", userID, "reason", kind)
	s.drain()
	s.releaseUser(userID)
}

// discardExpired clears an expired persisted session and releases its user
// in the directory. Callers hold persistMu or run before the Store is shared.
func (s *Store) discardExpired(loaded authstate.State) {
	s.logger.Info("persisted session expired, clearing", "expires_at", loaded.ExpiresAt())
	s.sessions.Clear()
	if user, ok := loaded.User(); ok {
		s.releaseUser(user.ID)
	}
}

// ReleaseDirectory clears the directory's logged-in flag for the current
// user. The in-memory state and the persisted session are kept, so a
// remembered session is restored on the next start. Call it when the
// process stops using the Store, then Close.
func (s *Store) ReleaseDirectory() {
	s.mu.Lock()
	userID := s.userIDLocked()
	s.mu.Unlock()
	s.releaseUser(userID)
}

func (s *Store) releaseUser(userID int64) {
	if s.dir == nil || userID <= 0 {
		return
	}
	s.background.Add(1)
	go s.markLoggedOut(userID)
}

func (s *Store) markLoggedOut(userID int64) {
	defer s.background.Done()
	ctx, cancel := context.WithTimeout(context.Background(), s.logoutTimeout)
	defer cancel()
	if err := s.dir.MarkLoggedOut(ctx, userID); err != nil {
		errutil.LogWarn(s.logger, "failed to mark user logged out", err, "user_id", userID)
	}
}

func (s *Store) userIDLocked() int64 {
	if user, ok := s.state.User(); ok {
		return user.ID
	}
	return 0
}

// IsAuthenticated reports whether the current state is authenticated, has a
// user and has not expired. An expired state is logged out on the spot.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	state, version := s.state, s.version
	s.mu.Unlock()

	now := s.clock.Now()
	if state.Valid(now) {
		return true
	}
	if state.Authenticated() && state.IsExpiredAt(now) {
		s.logoutIfCurrent(version, TransitionExpired)
	}
	return false
}

// State returns the current state.
func (s *Store) State() authstate.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn and delivers the current state to it before
// returning. Called from inside a listener, the delivery happens after the
// running pass instead. A nil fn is ignored and yields a nil Subscription.
func (s *Store) Subscribe(fn Listener) *Subscription {
	if fn == nil {
		return nil
	}
	sub := &Subscription{id: ulid.Make(), fn: fn}
	sub.active.Store(true)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.queue = append(s.queue, notification{state: s.state, subs: []*Subscription{sub}})
	s.mu.Unlock()

	s.logger.Debug("listener subscribed", "subscription", sub.id.String())
	s.drain()
	return sub
}

// Unsubscribe removes sub. It does nothing if sub is nil or not registered.
func (s *Store) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.active.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.subs, sub); i >= 0 {
		s.subs = slices.Delete(s.subs, i, i+1)
		s.logger.Debug("listener unsubscribed", "subscription", sub.id.String())
	}
}

// RestoreSession reloads the persisted session and installs it if valid.
func (s *Store) RestoreSession() bool {
	s.persistMu.Lock()
	loaded, ok := s.sessions.Load()
	if !ok {
		s.persistMu.Unlock()
		return false
	}
	if !loaded.Valid(s.clock.Now()) {
		s.discardExpired(loaded)
		s.persistMu.Unlock()
		return false
	}

	s.mu.Lock()
	s.install(loaded)
	s.mu.Unlock()
	s.persistMu.Unlock()
	StateTransitions.WithLabelValues(TransitionRestore).Inc()

	s.drain()
	return true
}

// SaveCurrentSession persists the current state.
func (s *Store) SaveCurrentSession() session.SaveResult {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.sessions.Save(s.State())
}

// ClearPersistentSession removes the persisted session without changing the
// in-memory state.
func (s *Store) ClearPersistentSession() session.ClearResult {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.sessions.Clear()
}

// HasPersistentSession reports whether a valid session is persisted.
func (s *Store) HasPersistentSession() bool {
	return s.sessions.HasActiveSession()
}

// Close waits for background directory updates to finish.
func (s *Store) Close() {
	s.background.Wait()
}

// install makes state current, mirrors it into the application context and
// queues a notification for every current subscriber. Callers hold s.mu.
func (s *Store) install(state authstate.State) {
	s.state = state
	s.version++
	s.appCtx.SetAuthState(state)
	s.queue = append(s.queue, notification{state: state, subs: slices.Clone(s.subs)})
}

// drain delivers queued notifications in order and returns once the queue,
// including the caller's own notification, is empty. One goroutine delivers
// at a time; others wait for it. A call from inside a listener returns at
// once and its notification is delivered by the running pass after the
// current one.
func (s *Store) drain() {
	gid := goroutineID()
	if gid != 0 && s.deliverer.Load() == gid {
		return
	}

	s.deliverMu.Lock()
	s.deliverer.Store(gid)
	defer func() {
		s.deliverer.Store(0)
		s.deliverMu.Unlock()
	}()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.queue = nil
			s.mu.Unlock()
			return
		}
		n := s.queue[0]
		s.queue[0] = notification{}
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.deliver(n)
	}
}

func (s *Store) deliver(n notification) {
	for _, sub := range n.subs {
		if !sub.active.Load() {
			continue
		}
		s.invoke(sub, n.state)
	}
}

func (s *Store) invoke(sub *Subscription, state authstate.State) {
	defer func() {
		if r := recover(); r != nil {
			ListenerPanics.Inc()
			s.logger.Error("auth state listener panicked",
				"subscription", sub.id.String(),
				"panic", r,
			)
		}
	}()
	sub.fn(state)
}
