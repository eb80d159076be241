// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package refresh

import "github.com/ueadmission/ueadmission/internal/authstate"

// AuthStateAware is the full screen contract: re-render from the store,
// apply a pushed state, and react to becoming visible (usually by calling
// RefreshUI).
type AuthStateAware interface {
	RefreshUI()
	UpdateAuthUI(state authstate.State)
	OnSceneActive()
}

// Refresher re-renders itself with no arguments.
type Refresher interface {
	Refresh()
}

// SceneActivator is told when its screen becomes visible.
type SceneActivator interface {
	OnSceneActive()
}

// AuthUIUpdater applies a pushed state.
type AuthUIUpdater interface {
	UpdateAuthUI(state authstate.State)
}

// Visibility is a container that can be shown or hidden.
type Visibility interface {
	SetVisible(visible bool)
}

// AuthContainers exposes the two containers toggled by auth state. Either
// may be nil. A nil pointer wrapped in a Visibility is not nil and still
// receives SetVisible, so such implementations must tolerate a nil
// receiver or return an untyped nil.
type AuthContainers interface {
	LoggedOutControls() Visibility
	LoggedInControls() Visibility
}

// Declarer lets a screen name its hook explicitly instead of being probed.
// A zero Capability falls through to probing.
type Declarer interface {
	Capability() Capability
}

// Capability is the hook a screen chose at construction time. Build one with
// RefreshCapability, SceneCapability, UpdateCapability or
// ContainersCapability.
type Capability struct {
	strategy  Strategy
	run       func()
	update    func(authstate.State)
	loggedOut Visibility
	loggedIn  Visibility
}

// RefreshCapability declares a zero-argument re-render hook.
func RefreshCapability(fn func()) Capability {
	if fn == nil {
		return Capability{}
	}
	return Capability{strategy: StrategyRefresh, run: fn}
}

// SceneCapability declares a "became visible" hook.
func SceneCapability(fn func()) Capability {
	if fn == nil {
		return Capability{}
	}
	return Capability{strategy: StrategySceneActive, run: fn}
}

// UpdateCapability declares a hook that receives the state.
func UpdateCapability(fn func(authstate.State)) Capability {
	if fn == nil {
		return Capability{}
	}
	return Capability{strategy: StrategyUpdateAuthUI, update: fn}
}

// ContainersCapability declares the containers to toggle.
func ContainersCapability(loggedOut, loggedIn Visibility) Capability {
	if loggedOut == nil && loggedIn == nil {
		return Capability{}
	}
	return Capability{strategy: StrategyContainers, loggedOut: loggedOut, loggedIn: loggedIn}
}

// Strategy returns the strategy the capability selects.
func (c Capability) Strategy() Strategy {
	return c.strategy
}

// Strategy names the hook used for a dispatch.
type Strategy int

// Strategies, in probing order.
const (
	StrategyNone Strategy = iota
	StrategyRefreshUI
	StrategyRefresh
	StrategySceneActive
	StrategyUpdateAuthUI
	StrategyContainers
)

func (s Strategy) String() string {
	switch s {
	case StrategyRefreshUI:
		return "refresh_ui"
	case StrategyRefresh:
		return "refresh"
	case StrategySceneActive:
		return "scene_active"
	case StrategyUpdateAuthUI:
		return "update_auth_ui"
	case StrategyContainers:
		return "containers"
	default:
		return "none"
	}
}
