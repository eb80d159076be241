// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

// Package auth owns the process-wide authentication state.
//
// # Store
//
// Store is created once per process with NewStore and shared by every
// screen. It holds the current authstate.State, mirrors each new state into
// the application context, persists remembered sessions through a
// SessionStore and notifies subscribers:
//   - Login and Logout install new states
//   - IsAuthenticated checks validity and logs out an expired session
//   - Subscribe and Unsubscribe manage listeners
//   - RestoreSession, SaveCurrentSession and ClearPersistentSession work
//     on the persisted copy
//
// Listeners run outside the Store's lock, one notification at a time, in
// registration order. A listener that triggers another transition sees it
// delivered after the current notification has reached every listener.
//
// # Services
//
// LoginService checks credentials against a directory.Directory with a
// PasswordHasher and throttles repeated failures with a Limiter before
// calling Store.Login.
package auth
