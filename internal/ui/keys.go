// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings for every screen. Screens with text inputs only
// honor the bindings that cannot collide with typing.
type keyMap struct {
	Quit       key.Binding
	Login      key.Binding
	Logout     key.Binding
	Profile    key.Binding
	Back       key.Binding
	Submit     key.Binding
	NextField  key.Binding
	PrevField  key.Binding
	RememberMe key.Binding
}

var defaultKeyMap = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
	Login: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "log in"),
	),
	Logout: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "log out"),
	),
	Profile: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "profile"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	NextField: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	PrevField: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("S-tab", "previous field"),
	),
	RememberMe: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "remember me"),
	),
}

func helpLine(bindings ...key.Binding) string {
	line := ""
	for i, b := range bindings {
		if i > 0 {
			line += "  "
		}
		help := b.Help()
		line += help.Key + " " + help.Desc
	}
	return line
}
