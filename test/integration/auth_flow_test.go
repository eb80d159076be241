// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/ueadmission/ueadmission/internal/auth"
	"github.com/ueadmission/ueadmission/internal/authstate"
	"github.com/ueadmission/ueadmission/internal/clock"
)

var _ = Describe("Authentication against PostgreSQL", Ordered, func() {
	var (
		env   *testEnv
		epoch = time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC)
		root  string
	)

	BeforeAll(func() {
		hash, err := auth.NewArgon2idHasher().Hash("secret")
		Expect(err).NotTo(HaveOccurred())
		env, err = setupTestEnv(hash)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if env != nil {
			env.cleanup()
		}
	})

	BeforeEach(func() {
		Expect(env.resetUsers()).To(Succeed())
		var err error
		root, err = os.MkdirTemp("", "ueadmission-it-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, root)
	})

	Describe("Login", func() {
		It("signs alice in and flags her in the directory", func() {
			laptop, err := newDevice(filepath.Join(root, "laptop"), clock.Fake(epoch), env.dir)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(laptop.store.Close)

			var seen []authstate.State
			laptop.store.Subscribe(func(s authstate.State) { seen = append(seen, s) })

			state, err := laptop.login.Login(context.Background(), "alice@x.com", "secret", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Authenticated()).To(BeTrue())
			Expect(state.ExpiresAt()).To(BeTemporally("==", epoch.Add(auth.SessionTTL)))

			user, ok := state.User()
			Expect(ok).To(BeTrue())
			Expect(user.City).To(Equal("Sylhet"))
			Expect(user.IPAddress).To(Equal("10.0.0.5"))

			Expect(seen).To(HaveLen(2), "replay then login")
			Expect(seen[1].Authenticated()).To(BeTrue())

			dbUser, err := env.dir.GetByEmail(context.Background(), "alice@x.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(dbUser.LoggedIn).To(BeTrue())
			Expect(dbUser.IPAddress).To(Equal("10.0.0.5"))

			Expect(laptop.store.HasPersistentSession()).To(BeFalse(), "not remembered")
		})

		It("rejects a wrong password without touching the directory flag", func() {
			laptop, err := newDevice(filepath.Join(root, "laptop"), clock.Fake(epoch), env.dir)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(laptop.store.Close)

			_, err = laptop.login.Login(context.Background(), "alice@x.com", "nope", true)
			Expect(auth.ErrorCode(err)).To(Equal(auth.CodeInvalidCredentials))

			_, err = laptop.login.Login(context.Background(), "ghost@x.com", "secret", true)
			Expect(auth.ErrorCode(err)).To(Equal(auth.CodeInvalidCredentials))

			dbUser, err := env.dir.GetByEmail(context.Background(), "alice@x.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(dbUser.LoggedIn).To(BeFalse())
		})

		It("refuses a second device while alice is signed in, until she logs out", func() {
			laptop, err := newDevice(filepath.Join(root, "laptop"), clock.Fake(epoch), env.dir)
			Expect(err).NotTo(HaveOccurred())
			phone, err := newDevice(filepath.Join(root, "phone"), clock.Fake(epoch), env.dir)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(phone.store.Close)

			_, err = laptop.login.Login(context.Background(), "alice@x.com", "secret", true)
			Expect(err).NotTo(HaveOccurred())

			_, err = phone.login.Login(context.Background(), "alice@x.com", "secret", false)
			Expect(auth.ErrorCode(err)).To(Equal(auth.CodeAlreadyLoggedIn))

			laptop.store.Logout()
			// Close waits for the directory update started by Logout.
			laptop.store.Close()

			_, err = phone.login.Login(context.Background(), "alice@x.com", "secret", false)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Restart", func() {
		It("restores a remembered session and drops it once expired", func() {
			c := clock.Fake(epoch)
			laptop, err := newDevice(filepath.Join(root, "laptop"), c, env.dir)
			Expect(err).NotTo(HaveOccurred())

			_, err = laptop.login.Login(context.Background(), "alice@x.com", "secret", true)
			Expect(err).NotTo(HaveOccurred())

			c.Advance(24 * time.Hour)
			Expect(laptop.restart(env.dir)).To(Succeed())
			Expect(laptop.store.IsAuthenticated()).To(BeTrue())
			user, ok := laptop.appCtx.CurrentUser()
			Expect(ok).To(BeTrue())
			Expect(user.Email).To(Equal("alice@x.com"))

			c.Advance(auth.RememberMeTTL)
			Expect(laptop.restart(env.dir)).To(Succeed())
			DeferCleanup(laptop.store.Close)
			Expect(laptop.store.IsAuthenticated()).To(BeFalse())
			Expect(laptop.sessions.HasActiveSession()).To(BeFalse())
			_, err = os.Stat(filepath.Join(root, "laptop", "session.dat"))
			Expect(os.IsNotExist(err)).To(BeTrue(), "expired blob is removed at startup")

			laptop.store.Close()
			dbUser, err := env.dir.GetByEmail(context.Background(), "alice@x.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(dbUser.LoggedIn).To(BeFalse(), "discarding the session releases the account")

			_, err = laptop.login.Login(context.Background(), "alice@x.com", "secret", false)
			Expect(err).NotTo(HaveOccurred())
		})

		It("expires a live session lazily and marks the directory", func() {
			c := clock.Fake(epoch)
			laptop, err := newDevice(filepath.Join(root, "laptop"), c, env.dir)
			Expect(err).NotTo(HaveOccurred())

			_, err = laptop.login.Login(context.Background(), "alice@x.com", "secret", false)
			Expect(err).NotTo(HaveOccurred())

			c.Advance(auth.SessionTTL + time.Second)
			Expect(laptop.store.IsAuthenticated()).To(BeFalse())
			laptop.store.Close()

			dbUser, err := env.dir.GetByEmail(context.Background(), "alice@x.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(dbUser.LoggedIn).To(BeFalse())
		})
	})
})
