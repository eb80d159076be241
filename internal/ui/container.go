// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package ui

// Container is a group of controls that renders only while visible.
type Container struct {
	visible bool
}

// SetVisible shows or hides the container. It does nothing on a nil
// *Container, which may reach it through a refresh.Visibility.
func (c *Container) SetVisible(visible bool) {
	if c == nil {
		return
	}
	c.visible = visible
}

// Visible reports whether the container is shown.
func (c *Container) Visible() bool {
	return c != nil && c.visible
}
