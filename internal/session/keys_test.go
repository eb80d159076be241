// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ueadmission/ueadmission/internal/authstate"
)

func TestEncodeValues_Layout(t *testing.T) {
	expires := time.UnixMilli(1767225600123)
	user := authstate.Identity{ID: 42, FirstName: "Alice", LastName: "Rahman", Email: "alice@x.com", Phone: "017", Role: "student"}
	values := encodeValues(authstate.NewAuthenticated(user, "tok-1", expires))

	assert.Equal(t, map[string]string{
		"authenticated":  "true",
		"user_id":        "42",
		"user_firstName": "Alice",
		"user_lastName":  "Rahman",
		"user_email":     "alice@x.com",
		"user_phone":     "017",
		"user_role":      "student",
		"authToken":      "tok-1",
		"expiresAt":      "1767225600123",
	}, values)
	assert.Len(t, AllKeys, len(values))
}

func TestDecodeValues(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		wantOK bool
	}{
		{name: "empty", values: map[string]string{}, wantOK: false},
		{name: "not authenticated", values: map[string]string{KeyAuthenticated: "false", KeyUserID: "1"}, wantOK: false},
		{name: "authenticated without identity", values: map[string]string{KeyAuthenticated: "true"}, wantOK: false},
		{name: "authenticated with identity", values: map[string]string{KeyAuthenticated: "true", KeyUserID: "1", KeyEmail: "a@x.com"}, wantOK: true},
		{name: "garbage flag", values: map[string]string{KeyAuthenticated: "yes please", KeyUserID: "1"}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, ok := decodeValues(tt.values)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantOK, state.Authenticated())
		})
	}
}

func TestDecodeValues_ZeroExpiryNeverExpires(t *testing.T) {
	state, ok := decodeValues(map[string]string{
		KeyAuthenticated: "true",
		KeyUserID:        "5",
		KeyExpiresAt:     "0",
	})
	require.True(t, ok)
	assert.True(t, state.ExpiresAt().IsZero())
	assert.False(t, state.IsExpiredAt(time.Now().Add(100*365*24*time.Hour)))
}

func TestDecodeValues_UnparseableNumbersFallBackToZero(t *testing.T) {
	state, ok := decodeValues(map[string]string{
		KeyAuthenticated: "true",
		KeyUserID:        "not-a-number",
		KeyExpiresAt:     "soon",
	})
	require.True(t, ok)
	user, _ := state.User()
	assert.Equal(t, int64(0), user.ID)
	assert.True(t, state.ExpiresAt().IsZero())
}
