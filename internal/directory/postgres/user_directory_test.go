// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ueadmission/ueadmission/internal/directory"
	"github.com/ueadmission/ueadmission/pkg/errutil"
)

var userColumns = []string{
	"id", "first_name", "last_name", "email", "phone", "role",
	"address", "city", "country", "password_hash", "ip_address", "is_logged_in",
}

const selectPattern = `SELECT id, first_name, last_name, email`

func aliceRow() *pgxmock.Rows {
	return pgxmock.NewRows(userColumns).AddRow(
		int64(1), "Alice", "Rahman", "alice@x.com", "017", "student",
		"", "Sylhet", "BD", "$argon2id$hash", "", false,
	)
}

func newMockDirectory(t *testing.T) (pgxmock.PgxPoolIface, *UserDirectory) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock, NewUserDirectory(mock, WithRetry(2, time.Millisecond))
}

func TestUserDirectory_GetByEmail(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantEmail string
		wantCode  string
		wantErrIs error
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(selectPattern).
					WithArgs("alice@x.com").
					WillReturnRows(aliceRow())
			},
			wantEmail: "alice@x.com",
		},
		{
			name: "not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(selectPattern).
					WithArgs("alice@x.com").
					WillReturnRows(pgxmock.NewRows(userColumns))
			},
			wantCode:  "DIRECTORY_USER_NOT_FOUND",
			wantErrIs: directory.ErrNotFound,
		},
		{
			name: "transient failure is retried",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(selectPattern).
					WithArgs("alice@x.com").
					WillReturnError(errors.New("connection reset by peer"))
				mock.ExpectQuery(selectPattern).
					WithArgs("alice@x.com").
					WillReturnRows(aliceRow())
			},
			wantEmail: "alice@x.com",
		},
		{
			name: "permanent failure is not retried",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(selectPattern).
					WithArgs("alice@x.com").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UndefinedTable})
			},
			wantCode: "DIRECTORY_LOOKUP_FAILED",
		},
		{
			name: "retries exhausted",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				for range 3 {
					mock.ExpectQuery(selectPattern).
						WithArgs("alice@x.com").
						WillReturnError(&pgconn.PgError{Code: pgerrcode.AdminShutdown})
				}
			},
			wantCode: "DIRECTORY_LOOKUP_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, dir := newMockDirectory(t)
			tt.setupMock(mock)

			user, err := dir.GetByEmail(context.Background(), "alice@x.com")
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Nil(t, user)
				errutil.AssertErrorCode(t, err, tt.wantCode)
				if tt.wantErrIs != nil {
					assert.ErrorIs(t, err, tt.wantErrIs)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantEmail, user.Email)
				assert.Equal(t, int64(1), user.ID)
				assert.Equal(t, "student", user.Role)
				assert.Equal(t, "$argon2id$hash", user.PasswordHash)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserDirectory_MarkLoggedIn(t *testing.T) {
	at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	t.Run("updates the row", func(t *testing.T) {
		mock, dir := newMockDirectory(t)
		mock.ExpectExec(`UPDATE users SET is_logged_in = TRUE`).
			WithArgs(int64(1), "10.0.0.5", at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, dir.MarkLoggedIn(context.Background(), 1, "10.0.0.5", at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		mock, dir := newMockDirectory(t)
		mock.ExpectExec(`UPDATE users SET is_logged_in = TRUE`).
			WithArgs(int64(99), "10.0.0.5", at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := dir.MarkLoggedIn(context.Background(), 99, "10.0.0.5", at)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "DIRECTORY_USER_NOT_FOUND")
		assert.ErrorIs(t, err, directory.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserDirectory_MarkLoggedOut(t *testing.T) {
	t.Run("updates the row", func(t *testing.T) {
		mock, dir := newMockDirectory(t)
		mock.ExpectExec(`UPDATE users SET is_logged_in = FALSE`).
			WithArgs(int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, dir.MarkLoggedOut(context.Background(), 1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock, dir := newMockDirectory(t)
		mock.ExpectExec(`UPDATE users SET is_logged_in = FALSE`).
			WithArgs(int64(1)).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.InsufficientPrivilege})

		err := dir.MarkLoggedOut(context.Background(), 1)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "DIRECTORY_UPDATE_FAILED")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no rows", pgx.ErrNoRows, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), false},
		{"connection failure", &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, true},
		{"serialization failure", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, true},
		{"too many connections", &pgconn.PgError{Code: pgerrcode.TooManyConnections}, true},
		{"admin shutdown", &pgconn.PgError{Code: pgerrcode.AdminShutdown}, true},
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, false},
		{"network error", errors.New("dial tcp: connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

func TestUserDirectory_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	dir := NewUserDirectory(mock)
	require.NoError(t, dir.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
