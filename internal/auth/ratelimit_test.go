// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ueadmission/ueadmission/internal/auth"
	"github.com/ueadmission/ueadmission/internal/clock"
)

func TestLimiter_ProgressiveDelay(t *testing.T) {
	clk := clock.Fake(epoch)
	limiter := auth.NewLimiter(clk)

	assert.True(t, limiter.Check("alice@x.com").Allowed())

	result := limiter.RecordFailure("alice@x.com")
	assert.Equal(t, time.Second, result.Delay)
	assert.False(t, result.Allowed())

	clk.Advance(time.Second)
	assert.True(t, limiter.Check("alice@x.com").Allowed())

	result = limiter.RecordFailure("alice@x.com")
	assert.Equal(t, 2*time.Second, result.Delay)

	result = limiter.RecordFailure("alice@x.com")
	assert.Equal(t, 4*time.Second, result.Delay)

	clk.Advance(time.Second)
	assert.Equal(t, 3*time.Second, limiter.Check("alice@x.com").Delay)
}

func TestLimiter_DelayIsCapped(t *testing.T) {
	limiter := auth.NewLimiter(clock.Fake(epoch))
	var result auth.RateLimitResult
	for range auth.LockoutThreshold - 1 {
		result = limiter.RecordFailure("alice@x.com")
	}
	assert.Equal(t, 32*time.Second, result.Delay)
	assert.False(t, result.IsLockedOut)
}

func TestLimiter_Lockout(t *testing.T) {
	clk := clock.Fake(epoch)
	limiter := auth.NewLimiter(clk)

	var result auth.RateLimitResult
	for range auth.LockoutThreshold {
		result = limiter.RecordFailure("Alice@X.com ")
	}
	assert.True(t, result.IsLockedOut)
	assert.Equal(t, auth.LockoutDuration, result.LockoutRemaining)

	clk.Advance(5 * time.Minute)
	result = limiter.Check("alice@x.com")
	assert.True(t, result.IsLockedOut)
	assert.Equal(t, 10*time.Minute, result.LockoutRemaining)

	clk.Advance(10 * time.Minute)
	assert.True(t, limiter.Check("alice@x.com").Allowed())

	// Counting restarts after a lockout expires.
	result = limiter.RecordFailure("alice@x.com")
	assert.Equal(t, time.Second, result.Delay)
}

func TestLimiter_SuccessResets(t *testing.T) {
	limiter := auth.NewLimiter(clock.Fake(epoch))
	limiter.RecordFailure("alice@x.com")
	limiter.RecordFailure("alice@x.com")

	limiter.RecordSuccess("ALICE@x.com")
	assert.True(t, limiter.Check("alice@x.com").Allowed())
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	limiter := auth.NewLimiter(clock.Fake(epoch))
	limiter.RecordFailure("alice@x.com")
	assert.True(t, limiter.Check("bob@x.com").Allowed())
}
