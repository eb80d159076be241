// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package session

import (
	"errors"
	"io/fs"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/fxamacker/cbor/v2"
	"github.com/samber/oops"

	"github.com/ueadmission/ueadmission/internal/authstate"
)

// BlobFormat is the version written into every session blob. Bump the major
// version when a field changes meaning; readers reject other majors.
const BlobFormat = "1.0.0"

const blobCompatibility = "^1.0.0"

var (
	blobEncMode cbor.EncMode
	blobDecMode cbor.DecMode
	blobCompat  *semver.Constraints
)

func init() {
	var err error
	blobEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("session: CBOR encoder initialization failed: " + err.Error())
	}
	blobDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("session: CBOR decoder initialization failed: " + err.Error())
	}
	blobCompat, err = semver.NewConstraint(blobCompatibility)
	if err != nil {
		panic("session: invalid blob compatibility constraint: " + err.Error())
	}
}

type blobEnvelope struct {
	Format string    `cbor:"format"`
	State  blobState `cbor:"state"`
}

type blobState struct {
	Authenticated bool          `cbor:"authenticated"`
	User          *blobIdentity `cbor:"user,omitempty"`
	Token         string        `cbor:"token"`
	ExpiresAtMs   int64         `cbor:"expires_at_ms"`
}

type blobIdentity struct {
	ID          int64  `cbor:"id"`
	FirstName   string `cbor:"first_name"`
	LastName    string `cbor:"last_name"`
	Email       string `cbor:"email"`
	Phone       string `cbor:"phone"`
	Role        string `cbor:"role"`
	Address     string `cbor:"address,omitempty"`
	City        string `cbor:"city,omitempty"`
	Country     string `cbor:"country,omitempty"`
	IPAddress   string `cbor:"ip_address,omitempty"`
	LastLoginMs int64  `cbor:"last_login_ms,omitempty"`
	LoggedIn    bool   `cbor:"logged_in,omitempty"`
}

func encodeBlob(state authstate.State) ([]byte, error) {
	env := blobEnvelope{
		Format: BlobFormat,
		State: blobState{
			Authenticated: state.Authenticated(),
			Token:         state.Token(),
			ExpiresAtMs:   toMillis(state.ExpiresAt()),
		},
	}
	if user, ok := state.User(); ok {
		env.State.User = &blobIdentity{
			ID:          user.ID,
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			Email:       user.Email,
			Phone:       user.Phone,
			Role:        user.Role,
			Address:     user.Address,
			City:        user.City,
			Country:     user.Country,
			IPAddress:   user.IPAddress,
			LastLoginMs: toMillis(user.LastLoginAt),
			LoggedIn:    user.LoggedIn,
		}
	}
	data, err := blobEncMode.Marshal(env)
	if err != nil {
		return nil, oops.Code("SESSION_BLOB_ENCODE_FAILED").Wrap(err)
	}
	return data, nil
}

func decodeBlob(data []byte) (authstate.State, error) {
	var env blobEnvelope
	if err := blobDecMode.Unmarshal(data, &env); err != nil {
		return authstate.Unauthenticated(), oops.Code("SESSION_BLOB_DECODE_FAILED").Wrap(err)
	}

	version, err := semver.NewVersion(env.Format)
	if err != nil {
		return authstate.Unauthenticated(), oops.Code("SESSION_BLOB_INCOMPATIBLE").
			With("format", env.Format).
			Wrap(err)
	}
	if !blobCompat.Check(version) {
		return authstate.Unauthenticated(), oops.Code("SESSION_BLOB_INCOMPATIBLE").
			With("format", env.Format).
			With("supported", blobCompatibility).
			Errorf("unsupported session blob format %s", env.Format)
	}

	var user *authstate.Identity
	if u := env.State.User; u != nil {
		user = &authstate.Identity{
			ID:          u.ID,
			FirstName:   u.FirstName,
			LastName:    u.LastName,
			Email:       u.Email,
			Phone:       u.Phone,
			Role:        u.Role,
			Address:     u.Address,
			City:        u.City,
			Country:     u.Country,
			IPAddress:   u.IPAddress,
			LastLoginAt: fromMillis(u.LastLoginMs),
			LoggedIn:    u.LoggedIn,
		}
	}
	return authstate.Restore(env.State.Authenticated, user, env.State.Token, fromMillis(env.State.ExpiresAtMs)), nil
}

// readBlob loads the blob at path. A missing file is not an error.
func readBlob(path string) (authstate.State, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return authstate.Unauthenticated(), false, nil
	}
	if err != nil {
		return authstate.Unauthenticated(), false, oops.Code("SESSION_BLOB_READ_FAILED").
			With("path", path).
			Wrap(err)
	}
	state, err := decodeBlob(data)
	if err != nil {
		return authstate.Unauthenticated(), false, err
	}
	return state, state.Authenticated() && state.HasUser(), nil
}

func writeBlob(path string, state authstate.State) error {
	data, err := encodeBlob(state)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return oops.Code("SESSION_BLOB_WRITE_FAILED").
			With("path", path).
			Wrap(err)
	}
	return nil
}

func removeBlob(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code("SESSION_BLOB_REMOVE_FAILED").
			With("path", path).
			Wrap(err)
	}
	return nil
}
