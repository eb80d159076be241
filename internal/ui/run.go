// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package ui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/oops"

	"github.com/ueadmission/ueadmission/internal/auth"
	"github.com/ueadmission/ueadmission/internal/authstate"
)

// eventBuffer bounds how far the store can run ahead of the UI.
const eventBuffer = 16

// subscribe forwards store notifications to a channel. The returned stop
// function unsubscribes and unblocks any listener still waiting to send.
func subscribe(store *auth.Store) (<-chan authstate.State, func()) {
	events := make(chan authstate.State, eventBuffer)
	done := make(chan struct{})
	sub := store.Subscribe(func(state authstate.State) {
		select {
		case events <- state:
		case <-done:
		}
	})
	stop := func() {
		close(done)
		store.Unsubscribe(sub)
	}
	return events, stop
}

// Run starts the terminal UI and blocks until the user quits or ctx ends.
func Run(ctx context.Context, store *auth.Store, authn Authenticator, logger *slog.Logger) error {
	events, stop := subscribe(store)
	defer stop()

	model, err := NewModel(store, authn,
		WithContext(ctx),
		WithLogger(logger),
		WithEvents(events),
	)
	if err != nil {
		return err
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return oops.Code("UI_RUN_FAILED").Wrap(err)
	}
	return nil
}
