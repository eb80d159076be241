// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package ui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the admission terminal UI. Colors use
// ANSI 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Form feedback.
	FocusedField lipgloss.Color
	ErrorText    lipgloss.Color
	SuccessText  lipgloss.Color
}

// DefaultTheme is the palette used unless WithTheme overrides it.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("242"),

	HeaderForeground: lipgloss.Color("39"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("245"),

	FocusedField: lipgloss.Color("212"),
	ErrorText:    lipgloss.Color("196"),
	SuccessText:  lipgloss.Color("78"),
}

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	faint   lipgloss.Style
	focused lipgloss.Style
	err     lipgloss.Style
	ok      lipgloss.Style
	help    lipgloss.Style
	panel   lipgloss.Style
}

func newStyles(theme Theme) styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground),
		header:  lipgloss.NewStyle().Foreground(theme.HeaderForeground),
		label:   lipgloss.NewStyle().Foreground(theme.FaintText).Width(14),
		value:   lipgloss.NewStyle().Foreground(theme.NormalText),
		faint:   lipgloss.NewStyle().Foreground(theme.FaintText),
		focused: lipgloss.NewStyle().Foreground(theme.FocusedField),
		err:     lipgloss.NewStyle().Foreground(theme.ErrorText),
		ok:      lipgloss.NewStyle().Foreground(theme.SuccessText),
		help:    lipgloss.NewStyle().Foreground(theme.HelpText),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.BorderColor).
			Padding(0, 1),
	}
}
