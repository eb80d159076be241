// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ueadmission/ueadmission/internal/authstate"
	"github.com/ueadmission/ueadmission/internal/clock"
	"github.com/ueadmission/ueadmission/internal/directory"
	"github.com/ueadmission/ueadmission/pkg/errutil"
)

var tracer = otel.Tracer("ueadmission/auth")

// dummyPasswordHash is verified when the email is unknown so that unknown
// and known emails take the same time.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// LoginService checks credentials against the directory and logs the user
// into the Store.
type LoginService struct {
	store     *Store
	dir       directory.Directory
	hasher    PasswordHasher
	limiter   *Limiter
	clock     clock.Clock
	logger    *slog.Logger
	resolveIP func() string
}

// LoginOption configures a LoginService.
type LoginOption func(*LoginService)

// WithLoginClock sets the time source for last-login stamps and throttling.
func WithLoginClock(c clock.Clock) LoginOption {
	return func(l *LoginService) {
		l.clock = c
	}
}

// WithLoginLogger sets the logger.
func WithLoginLogger(logger *slog.Logger) LoginOption {
	return func(l *LoginService) {
		l.logger = logger
	}
}

// WithLimiter replaces the per-process failed-attempt limiter.
func WithLimiter(limiter *Limiter) LoginOption {
	return func(l *LoginService) {
		l.limiter = limiter
	}
}

// WithIPResolver replaces ClientIP.
func WithIPResolver(resolve func() string) LoginOption {
	return func(l *LoginService) {
		l.resolveIP = resolve
	}
}

// NewLoginService creates a LoginService.
func NewLoginService(store *Store, dir directory.Directory, hasher PasswordHasher, opts ...LoginOption) (*LoginService, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("auth store is required")
	}
	if dir == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("user directory is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	l := &LoginService{
		store:     store,
		dir:       dir,
		hasher:    hasher,
		clock:     clock.Real(),
		logger:    slog.Default(),
		resolveIP: ClientIP,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.limiter == nil {
		l.limiter = NewLimiter(l.clock)
	}
	return l, nil
}

// Login verifies email and password and installs the authenticated state.
// Errors carry one of the Code* values.
func (l *LoginService) Login(ctx context.Context, email, password string, rememberMe bool) (authstate.State, error) {
	ctx, span := tracer.Start(ctx, "auth.login",
		trace.WithAttributes(attribute.Bool("auth.remember_me", rememberMe)),
	)
	defer span.End()

	state, err := l.login(ctx, email, password, rememberMe)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorCode(err))
		return state, err
	}
	if user, ok := state.User(); ok {
		span.SetAttributes(attribute.Int64("user.id", user.ID))
	}
	return state, nil
}

func (l *LoginService) login(ctx context.Context, email, password string, rememberMe bool) (authstate.State, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		LoginAttempts.WithLabelValues(OutcomeInvalid).Inc()
		return authstate.Unauthenticated(), oops.Code(CodeFieldsRequired).Errorf("email and password are required")
	}

	if limit := l.limiter.Check(email); !limit.Allowed() {
		LoginAttempts.WithLabelValues(OutcomeRateLimited).Inc()
		wait := limit.Delay
		if limit.IsLockedOut {
			wait = limit.LockoutRemaining
		}
		return authstate.Unauthenticated(), oops.Code(CodeRateLimited).
			With("retry_after", wait.String()).
			Errorf("too many failed attempts, try again in %s", wait.Round(time.Second))
	}

	user, lookupErr := l.dir.GetByEmail(ctx, email)
	targetHash := dummyPasswordHash
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
	case !errors.Is(lookupErr, directory.ErrNotFound):
		LoginAttempts.WithLabelValues(OutcomeError).Inc()
		return authstate.Unauthenticated(), oops.Code(CodeLoginFailed).
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := l.hasher.Verify(password, targetHash)
	if verifyErr != nil && lookupErr == nil {
		LoginAttempts.WithLabelValues(OutcomeError).Inc()
		return authstate.Unauthenticated(), oops.Code(CodeLoginFailed).
			With("operation", "verify password").
			With("user_id", user.ID).
			Wrap(verifyErr)
	}
	if lookupErr != nil || !valid {
		l.limiter.RecordFailure(email)
		LoginAttempts.WithLabelValues(OutcomeInvalid).Inc()
		return authstate.Unauthenticated(), oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
	}

	if user.LoggedIn {
		LoginAttempts.WithLabelValues(OutcomeAlreadyLoggedIn).Inc()
		return authstate.Unauthenticated(), oops.Code(CodeAlreadyLoggedIn).
			With("user_id", user.ID).
			Errorf("this account is already logged in on another device")
	}

	l.limiter.RecordSuccess(email)
	now := l.clock.Now()
	ip := l.resolveIP()
	if err := l.dir.MarkLoggedIn(ctx, user.ID, ip, now); err != nil {
		errutil.LogWarn(l.logger, "failed to mark user logged in", err, "user_id", user.ID)
	}

	LoginAttempts.WithLabelValues(OutcomeSuccess).Inc()
	return l.store.Login(authstate.Identity{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		Phone:       user.Phone,
		Role:        user.Role,
		Address:     user.Address,
		City:        user.City,
		Country:     user.Country,
		IPAddress:   ip,
		LastLoginAt: now,
		LoggedIn:    true,
	}, rememberMe), nil
}

// ClientIP returns the first non-loopback IPv4 address of an interface that
// is up, or 127.0.0.1 when there is none.
func ClientIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "127.0.0.1"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
				return ip4.String()
			}
		}
	}
	return "127.0.0.1"
}
