// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/oklog/ulid/v2"
)

// TokenBytes is the size of a generated session token before hex encoding.
const TokenBytes = 32

// TokenGenerator produces opaque session tokens.
type TokenGenerator func() string

// NewToken returns 64 hex characters from crypto/rand. If the system source
// fails it falls back to a ULID, which is unique but not secret.
func NewToken() string {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return ulid.Make().String()
	}
	return hex.EncodeToString(b)
}
