// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

// Package ui is the terminal front end: a home screen whose header follows
// the auth state, a login form and a profile view. Screens are refreshed
// through the refresh dispatcher; auth changes arrive from the store as
// messages on the bubbletea event loop.
package ui

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/oops"

	"github.com/ueadmission/ueadmission/internal/auth"
	"github.com/ueadmission/ueadmission/internal/authstate"
	"github.com/ueadmission/ueadmission/internal/clock"
	"github.com/ueadmission/ueadmission/internal/refresh"
)

// Authenticator verifies credentials. *auth.LoginService implements it.
type Authenticator interface {
	Login(ctx context.Context, email, password string, rememberMe bool) (authstate.State, error)
}

type screenID int

const (
	screenHome screenID = iota
	screenLogin
	screenProfile
)

func (s screenID) String() string {
	switch s {
	case screenLogin:
		return "login"
	case screenProfile:
		return "profile"
	default:
		return "home"
	}
}

// authChangedMsg carries a state delivered by the store's listener.
type authChangedMsg struct {
	state authstate.State
}

// loginResultMsg is the outcome of a login submitted from the login screen.
type loginResultMsg struct {
	state authstate.State
	err   error
}

// Model is the root bubbletea model.
type Model struct {
	ctx        context.Context
	store      *auth.Store
	authn      Authenticator
	dispatcher *refresh.Dispatcher
	logger     *slog.Logger
	clock      clock.Clock
	keys       keyMap
	styles     styles

	// eventChannel receives states from the store's listener. Nil when
	// the model is driven directly.
	eventChannel <-chan authstate.State

	screen  screenID
	home    *homeScreen
	login   *loginScreen
	profile *profileScreen

	state  authstate.State
	status string
	width  int
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithContext sets the context passed to login requests.
func WithContext(ctx context.Context) ModelOption {
	return func(m *Model) {
		m.ctx = ctx
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ModelOption {
	return func(m *Model) {
		m.logger = logger
	}
}

// WithClock sets the time source used to judge pushed states.
func WithClock(c clock.Clock) ModelOption {
	return func(m *Model) {
		m.clock = c
	}
}

// WithTheme overrides DefaultTheme.
func WithTheme(theme Theme) ModelOption {
	return func(m *Model) {
		m.styles = newStyles(theme)
	}
}

// WithEvents sets the channel the model listens on for auth changes.
func WithEvents(events <-chan authstate.State) ModelOption {
	return func(m *Model) {
		m.eventChannel = events
	}
}

// NewModel builds the root model and attaches the home screen.
func NewModel(store *auth.Store, authn Authenticator, opts ...ModelOption) (Model, error) {
	if store == nil {
		return Model{}, oops.Code("UI_INVALID_CONFIG").Errorf("auth store is required")
	}
	if authn == nil {
		return Model{}, oops.Code("UI_INVALID_CONFIG").Errorf("authenticator is required")
	}

	m := Model{
		ctx:     context.Background(),
		store:   store,
		authn:   authn,
		logger:  slog.Default(),
		clock:   clock.Real(),
		keys:    defaultKeyMap,
		styles:  newStyles(DefaultTheme),
		home:    newHomeScreen(),
		login:   newLoginScreen(),
		profile: newProfileScreen(store),
	}
	for _, opt := range opts {
		opt(&m)
	}

	dispatcher, err := refresh.NewDispatcher(store,
		refresh.WithLogger(m.logger),
		refresh.WithClock(m.clock),
	)
	if err != nil {
		return Model{}, oops.Code("UI_INVALID_CONFIG").Wrap(err)
	}
	m.dispatcher = dispatcher
	m.navigate(screenHome)
	return m, nil
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	if model.eventChannel == nil {
		return nil
	}
	return listenForAuthChange(model.eventChannel)
}

// listenForAuthChange blocks until the store delivers a state, then hands it
// to Update as an authChangedMsg.
func listenForAuthChange(channel <-chan authstate.State) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-channel
		if !ok {
			return nil
		}
		return authChangedMsg{state: state}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		return model, nil

	case authChangedMsg:
		model.applyAuthChange(message.state)
		if model.eventChannel == nil {
			return model, nil
		}
		return model, listenForAuthChange(model.eventChannel)

	case loginResultMsg:
		return model.handleLoginResult(message)

	case tea.KeyMsg:
		if message.Type == tea.KeyCtrlC {
			return model, tea.Quit
		}
		switch model.screen {
		case screenLogin:
			return model.handleLoginKeys(message)
		case screenProfile:
			return model.handleProfileKeys(message)
		default:
			return model.handleHomeKeys(message)
		}
	}

	if model.screen == screenLogin {
		return model.forwardToInput(message)
	}
	return model, nil
}

// navigate switches screens and pushes the store's current state into the
// screen that becomes visible.
func (model *Model) navigate(target screenID) tea.Cmd {
	model.screen = target
	model.dispatcher.Attach(model.home)
	model.state = model.store.State()

	switch target {
	case screenLogin:
		model.dispatcher.Attach(model.login)
		return textinput.Blink
	case screenProfile:
		model.dispatcher.Attach(model.profile)
	}
	return nil
}

// applyAuthChange pushes a state delivered by the store into the header and
// the visible screen.
func (model *Model) applyAuthChange(state authstate.State) {
	model.state = state
	model.dispatcher.Apply(model.home, state)

	switch model.screen {
	case screenProfile:
		if !state.Authenticated() {
			model.status = "Your session has ended."
			model.navigate(screenHome)
			return
		}
		model.dispatcher.Apply(model.profile, state)
	case screenLogin:
		if state.Authenticated() {
			model.navigate(screenHome)
		}
	}
}

func (model Model) handleHomeKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit
	case key.Matches(message, model.keys.Login) && model.home.loginControls.Visible():
		model.status = ""
		return model, model.navigate(screenLogin)
	case key.Matches(message, model.keys.Profile) && model.home.profileControls.Visible():
		model.status = ""
		return model, model.navigate(screenProfile)
	case key.Matches(message, model.keys.Logout) && model.home.profileControls.Visible():
		model.logout()
	}
	return model, nil
}

func (model Model) handleProfileKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit
	case key.Matches(message, model.keys.Back):
		return model, model.navigate(screenHome)
	case key.Matches(message, model.keys.Logout):
		model.logout()
		return model, model.navigate(screenHome)
	}
	return model, nil
}

func (model Model) handleLoginKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	login := model.login
	switch {
	case key.Matches(message, model.keys.Back):
		return model, model.navigate(screenHome)
	case key.Matches(message, model.keys.NextField):
		login.focusField(login.focus + 1)
		return model, nil
	case key.Matches(message, model.keys.PrevField):
		login.focusField(login.focus - 1)
		return model, nil
	case key.Matches(message, model.keys.RememberMe):
		login.rememberMe = !login.rememberMe
		return model, nil
	case key.Matches(message, model.keys.Submit):
		if login.busy {
			return model, nil
		}
		login.busy = true
		login.err = ""
		return model, submitLogin(model.ctx, model.authn,
			login.email.Value(), login.password.Value(), login.rememberMe)
	}
	return model.forwardToInput(message)
}

func (model Model) forwardToInput(message tea.Msg) (tea.Model, tea.Cmd) {
	login := model.login
	var cmd tea.Cmd
	if login.focus == fieldEmail {
		login.email, cmd = login.email.Update(message)
	} else {
		login.password, cmd = login.password.Update(message)
	}
	return model, cmd
}

func submitLogin(ctx context.Context, authn Authenticator, email, password string, rememberMe bool) tea.Cmd {
	return func() tea.Msg {
		state, err := authn.Login(ctx, email, password, rememberMe)
		return loginResultMsg{state: state, err: err}
	}
}

func (model Model) handleLoginResult(message loginResultMsg) (tea.Model, tea.Cmd) {
	model.login.busy = false
	if message.err != nil {
		model.login.err = describeLoginError(message.err)
		model.logger.Debug("login rejected", "code", auth.ErrorCode(message.err))
		// The password never survives a failed attempt.
		model.login.password.Reset()
		return model, nil
	}

	if user, ok := message.state.User(); ok {
		model.status = "Welcome, " + user.FirstName + "."
	}
	return model, model.navigate(screenHome)
}

func (model *Model) logout() {
	model.store.Logout()
	model.status = "You have been logged out."
	model.dispatcher.Attach(model.home)
	model.state = model.store.State()
}

func describeLoginError(err error) string {
	switch auth.ErrorCode(err) {
	case auth.CodeFieldsRequired:
		return "Email and password are required."
	case auth.CodeInvalidCredentials:
		return "Invalid email or password."
	case auth.CodeAlreadyLoggedIn:
		return "This account is already signed in on another device."
	case auth.CodeRateLimited:
		return "Too many failed attempts. Please wait and try again."
	default:
		return "Login failed. Please try again."
	}
}

// View implements tea.Model.
func (model Model) View() string {
	st := model.styles
	var b strings.Builder
	b.WriteString(st.title.Render("UE Admission"))
	b.WriteString(st.faint.Render("  /  " + model.screen.String()))
	b.WriteString("\n\n")

	switch model.screen {
	case screenLogin:
		b.WriteString(model.login.view(st, model.keys))
	case screenProfile:
		b.WriteString(model.profile.view(st, model.keys))
	default:
		b.WriteString(model.home.view(st, model.keys, model.state))
	}

	if model.status != "" {
		b.WriteString("\n\n")
		b.WriteString(st.ok.Render(model.status))
	}
	b.WriteString("\n")
	return b.String()
}
