// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/ueadmission/ueadmission/internal/authstate"
	"github.com/ueadmission/ueadmission/internal/refresh"
)

// homeScreen is the landing screen. Its header shows either the login
// controls or the profile controls.
type homeScreen struct {
	loginControls   *Container
	profileControls *Container
}

func newHomeScreen() *homeScreen {
	return &homeScreen{loginControls: &Container{}, profileControls: &Container{}}
}

// Capability implements refresh.Declarer.
func (h *homeScreen) Capability() refresh.Capability {
	return refresh.ContainersCapability(h.loginControls, h.profileControls)
}

func (h *homeScreen) view(st styles, keys keyMap, state authstate.State) string {
	var b strings.Builder
	b.WriteString("Welcome to the university admission portal.\n\n")
	if h.loginControls.Visible() {
		b.WriteString(st.faint.Render("You are not signed in."))
		b.WriteString("\n")
		b.WriteString(st.help.Render(helpLine(keys.Login, keys.Quit)))
	}
	if h.profileControls.Visible() {
		if user, ok := state.User(); ok {
			b.WriteString("Signed in as " + st.value.Render(user.FullName()))
			b.WriteString("\n")
		}
		b.WriteString(st.help.Render(helpLine(keys.Profile, keys.Logout, keys.Quit)))
	}
	return b.String()
}

const (
	fieldEmail = iota
	fieldPassword
	fieldCount
)

// loginScreen collects credentials. It resets whenever it becomes visible.
type loginScreen struct {
	email      textinput.Model
	password   textinput.Model
	focus      int
	rememberMe bool
	busy       bool
	err        string
}

func newLoginScreen() *loginScreen {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = ""
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = ""
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	return &loginScreen{email: email, password: password}
}

// OnSceneActive implements refresh.SceneActivator.
func (s *loginScreen) OnSceneActive() {
	s.email.Reset()
	s.password.Reset()
	s.rememberMe = false
	s.busy = false
	s.err = ""
	s.focusField(fieldEmail)
}

func (s *loginScreen) focusField(field int) {
	s.focus = (field + fieldCount) % fieldCount
	if s.focus == fieldEmail {
		s.email.Focus()
		s.password.Blur()
		return
	}
	s.password.Focus()
	s.email.Blur()
}

func (s *loginScreen) view(st styles, keys keyMap) string {
	label := func(field int, text string) string {
		if s.focus == field {
			return st.focused.Render("> " + text)
		}
		return st.faint.Render("  " + text)
	}
	check := "[ ]"
	if s.rememberMe {
		check = "[x]"
	}

	lines := []string{
		label(fieldEmail, "Email"),
		"  " + s.email.View(),
		label(fieldPassword, "Password"),
		"  " + s.password.View(),
		"",
		"  " + check + " Remember me",
		"",
	}
	switch {
	case s.busy:
		lines = append(lines, st.faint.Render("Signing in..."))
	case s.err != "":
		lines = append(lines, st.err.Render(s.err))
	}
	lines = append(lines, st.help.Render(helpLine(keys.Submit, keys.NextField, keys.RememberMe, keys.Back)))
	return strings.Join(lines, "\n")
}

// profileScreen shows the signed-in user's profile.
type profileScreen struct {
	source    refresh.StateSource
	user      authstate.Identity
	signedIn  bool
	expiresAt time.Time
}

func newProfileScreen(source refresh.StateSource) *profileScreen {
	return &profileScreen{source: source}
}

// RefreshUI implements refresh.AuthStateAware.
func (s *profileScreen) RefreshUI() {
	s.UpdateAuthUI(s.source.State())
}

// UpdateAuthUI implements refresh.AuthStateAware.
func (s *profileScreen) UpdateAuthUI(state authstate.State) {
	user, ok := state.User()
	s.user = user
	s.signedIn = ok && state.Authenticated()
	s.expiresAt = state.ExpiresAt()
}

// OnSceneActive implements refresh.AuthStateAware.
func (s *profileScreen) OnSceneActive() {
	s.RefreshUI()
}

func (s *profileScreen) view(st styles, keys keyMap) string {
	if !s.signedIn {
		return st.faint.Render("Not signed in.") + "\n" + st.help.Render(helpLine(keys.Back))
	}
	orDash := func(v string) string {
		if v == "" {
			return "-"
		}
		return v
	}
	lastLogin := "-"
	if !s.user.LastLoginAt.IsZero() {
		lastLogin = s.user.LastLoginAt.Local().Format("2006-01-02 15:04")
	}
	rows := [][2]string{
		{"Name", s.user.FullName()},
		{"Email", s.user.Email},
		{"Phone", orDash(s.user.Phone)},
		{"Role", orDash(s.user.Role)},
		{"Address", orDash(s.user.Address)},
		{"City", orDash(s.user.City)},
		{"Country", orDash(s.user.Country)},
		{"IP address", orDash(s.user.IPAddress)},
		{"Last login", lastLogin},
		{"Session ends", s.expiresAt.Local().Format("2006-01-02 15:04")},
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, st.label.Render(row[0]), st.value.Render(row[1])))
	}
	return st.panel.Render(strings.Join(lines, "\n")) + "\n" + st.help.Render(helpLine(keys.Logout, keys.Back))
}
