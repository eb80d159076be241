// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package auth

import "github.com/samber/oops"

// Login failure codes surfaced to screens.
const (
	CodeFieldsRequired     = "AUTH_FIELDS_REQUIRED"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAlreadyLoggedIn    = "AUTH_ALREADY_LOGGED_IN"
	CodeRateLimited        = "AUTH_RATE_LIMITED"
	CodeLoginFailed        = "AUTH_LOGIN_FAILED"
)

// ErrorCode returns the oops code carried by err, or "" when it has none.
func ErrorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}
