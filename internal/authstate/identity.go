// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package authstate

import (
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

// Identity is the profile of the authenticated principal.
type Identity struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Role      string

	// Optional profile fields. Empty strings and zero times mean unknown.
	Address     string
	City        string
	Country     string
	IPAddress   string
	LastLoginAt time.Time
	LoggedIn    bool
}

// FullName returns "First Last" with surrounding whitespace trimmed.
func (i Identity) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// HasRole reports whether the role tag matches pattern. Patterns use glob
// syntax ("admin*", "{admin,staff}"); matching is case-insensitive.
// A malformed pattern never matches.
func (i Identity) HasRole(pattern string) bool {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return false
	}
	return g.Match(strings.ToLower(i.Role))
}

// String implements fmt.Stringer.
func (i Identity) String() string {
	return fmt.Sprintf("Identity{id=%d, email=%q, role=%q}", i.ID, i.Email, i.Role)
}
