// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package session

import (
	"strconv"
	"time"

	"github.com/ueadmission/ueadmission/internal/authstate"
)

// Channel A keys. The layout is stable across releases; readers written for
// an older release must still find these names.
const (
	KeyAuthenticated = "authenticated"
	KeyUserID        = "user_id"
	KeyFirstName     = "user_firstName"
	KeyLastName      = "user_lastName"
	KeyEmail         = "user_email"
	KeyPhone         = "user_phone"
	KeyRole          = "user_role"
	KeyToken         = "authToken"
	KeyExpiresAt     = "expiresAt"
)

// AllKeys lists every channel A key.
var AllKeys = []string{
	KeyAuthenticated,
	KeyUserID,
	KeyFirstName,
	KeyLastName,
	KeyEmail,
	KeyPhone,
	KeyRole,
	KeyToken,
	KeyExpiresAt,
}

// encodeValues flattens an authenticated state into channel A values.
func encodeValues(state authstate.State) map[string]string {
	user, _ := state.User()
	return map[string]string{
		KeyAuthenticated: strconv.FormatBool(state.Authenticated()),
		KeyUserID:        strconv.FormatInt(user.ID, 10),
		KeyFirstName:     user.FirstName,
		KeyLastName:      user.LastName,
		KeyEmail:         user.Email,
		KeyPhone:         user.Phone,
		KeyRole:          user.Role,
		KeyToken:         state.Token(),
		KeyExpiresAt:     strconv.FormatInt(toMillis(state.ExpiresAt()), 10),
	}
}

// decodeValues rebuilds a state from channel A values. It reports false when
// the values do not describe an authenticated state with an identity.
// Unparseable numbers fall back to zero, matching a missing key.
func decodeValues(values map[string]string) (authstate.State, bool) {
	authenticated, _ := strconv.ParseBool(values[KeyAuthenticated])
	if !authenticated {
		return authstate.Unauthenticated(), false
	}
	rawID, ok := values[KeyUserID]
	if !ok {
		return authstate.Unauthenticated(), false
	}
	id, _ := strconv.ParseInt(rawID, 10, 64)
	expires, _ := strconv.ParseInt(values[KeyExpiresAt], 10, 64)

	user := authstate.Identity{
		ID:        id,
		FirstName: values[KeyFirstName],
		LastName:  values[KeyLastName],
		Email:     values[KeyEmail],
		Phone:     values[KeyPhone],
		Role:      values[KeyRole],
	}
	return authstate.NewAuthenticated(user, values[KeyToken], fromMillis(expires)), true
}

// toMillis converts an expiry to epoch milliseconds; the zero time maps to 0.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// fromMillis is the inverse of toMillis.
func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
