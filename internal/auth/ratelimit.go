// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/ueadmission/ueadmission/internal/clock"
)

// Rate limiting configuration.
const (
	// LockoutDuration is the time an email is locked out after too many failures.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of failures that triggers a lockout.
	LockoutThreshold = 7

	// maxDelay caps the progressive delay before lockout.
	maxDelay = 32 * time.Second
)

// RateLimitResult describes whether another login attempt may proceed.
type RateLimitResult struct {
	// Delay is the time to wait before allowing another attempt.
	Delay time.Duration

	// IsLockedOut indicates the email is temporarily locked.
	IsLockedOut bool

	// LockoutRemaining is the time until the lockout expires.
	LockoutRemaining time.Duration
}

// Allowed reports whether an attempt may be made now.
func (r RateLimitResult) Allowed() bool {
	return !r.IsLockedOut && r.Delay <= 0
}

type attempts struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

// Limiter tracks failed login attempts per email for this process.
type Limiter struct {
	mu       sync.Mutex
	clock    clock.Clock
	attempts map[string]*attempts
}

// NewLimiter creates a Limiter reading time from c.
func NewLimiter(c clock.Clock) *Limiter {
	if c == nil {
		c = clock.Real()
	}
	return &Limiter{clock: c, attempts: make(map[string]*attempts)}
}

// Check evaluates the current state for email.
func (l *Limiter) Check(email string) RateLimitResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(normalizeEmail(email))
}

// RecordFailure counts a failed attempt and returns the resulting state.
func (l *Limiter) RecordFailure(email string) RateLimitResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := normalizeEmail(email)
	now := l.clock.Now()
	a, ok := l.attempts[key]
	if !ok || (!a.lockedUntil.IsZero() && !now.Before(a.lockedUntil)) {
		a = &attempts{}
		l.attempts[key] = a
	}
	a.failures++
	a.lastFailure = now
	if a.failures >= LockoutThreshold {
		a.lockedUntil = now.Add(LockoutDuration)
	}
	return l.check(key)
}

// RecordSuccess forgets earlier failures for email.
func (l *Limiter) RecordSuccess(email string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, normalizeEmail(email))
}

func (l *Limiter) check(key string) RateLimitResult {
	a, ok := l.attempts[key]
	if !ok {
		return RateLimitResult{}
	}
	now := l.clock.Now()

	if !a.lockedUntil.IsZero() {
		if now.Before(a.lockedUntil) {
			return RateLimitResult{IsLockedOut: true, LockoutRemaining: a.lockedUntil.Sub(now)}
		}
		delete(l.attempts, key)
		return RateLimitResult{}
	}

	// Progressive delay: 2^(failures-1) seconds since the last failure.
	delay := time.Duration(1<<(a.failures-1)) * time.Second
	if delay > maxDelay {
		delay = maxDelay
	}
	remaining := a.lastFailure.Add(delay).Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{Delay: remaining}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
