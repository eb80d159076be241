// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

// Package refresh pushes auth state into screen controllers.
//
// Screens are written independently and support different hooks. A screen
// may declare its hook through Declarer; otherwise the dispatcher probes for
// AuthStateAware, Refresher, SceneActivator, AuthUIUpdater and
// AuthContainers in that order and uses the first one found.
package refresh

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/ueadmission/ueadmission/internal/authstate"
	"github.com/ueadmission/ueadmission/internal/clock"
)

// StateSource is the store the dispatcher reads. *auth.Store implements it.
type StateSource interface {
	State() authstate.State
	IsAuthenticated() bool
}

// Executor runs fn on the goroutine that owns the screens.
type Executor func(fn func())

// Dispatches counts dispatches by strategy.
// Use RegisterMetrics to register this with a Prometheus registry.
var Dispatches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ueadmission_refresh_dispatches_total",
		Help: "Total number of screen refresh dispatches by strategy",
	},
	[]string{"strategy"},
)

// HookPanics counts screen hooks that panicked.
var HookPanics = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "ueadmission_refresh_hook_panics_total",
		Help: "Total number of screen refresh hooks that panicked",
	},
)

// RegisterMetrics registers refresh metrics with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Dispatches)
	reg.MustRegister(HookPanics)
}

// Dispatcher brings screen controllers in sync with the auth state.
type Dispatcher struct {
	source StateSource
	clock  clock.Clock
	logger *slog.Logger
	exec   Executor
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithClock sets the time source Apply uses to judge pushed states.
func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

// WithExecutor runs hooks through exec instead of on the calling goroutine.
func WithExecutor(exec Executor) Option {
	return func(d *Dispatcher) {
		d.exec = exec
	}
}

// NewDispatcher creates a Dispatcher reading from source.
func NewDispatcher(source StateSource, opts ...Option) (*Dispatcher, error) {
	if source == nil {
		return nil, oops.Code("REFRESH_INVALID_CONFIG").Errorf("state source is required")
	}
	d := &Dispatcher{
		source: source,
		clock:  clock.Real(),
		logger: slog.Default(),
		exec:   func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Attach pushes the source's current state into a newly created controller
// and returns the strategy used.
func (d *Dispatcher) Attach(controller any) Strategy {
	return d.dispatch(controller, d.source.State, d.source.IsAuthenticated)
}

// Apply pushes state into controller and returns the strategy used.
func (d *Dispatcher) Apply(controller any, state authstate.State) Strategy {
	return d.dispatch(controller,
		func() authstate.State { return state },
		func() bool { return state.Valid(d.clock.Now()) },
	)
}

func (d *Dispatcher) dispatch(controller any, state func() authstate.State, authenticated func() bool) Strategy {
	strategy, hook := resolve(controller, state, authenticated)
	Dispatches.WithLabelValues(strategy.String()).Inc()
	name := fmt.Sprintf("%T", controller)
	if hook == nil {
		d.logger.Debug("controller has no refresh hook", "controller", name)
		return StrategyNone
	}

	d.exec(func() {
		defer func() {
			if r := recover(); r != nil {
				HookPanics.Inc()
				d.logger.Error("refresh hook panicked",
					"controller", name,
					"strategy", strategy.String(),
					"panic", r,
				)
			}
		}()
		hook()
	})
	d.logger.Debug("controller refreshed", "controller", name, "strategy", strategy.String())
	return strategy
}

// resolve picks the hook for controller. A declared capability wins over
// probing.
func resolve(controller any, state func() authstate.State, authenticated func() bool) (Strategy, func()) {
	if controller == nil {
		return StrategyNone, nil
	}
	if declarer, ok := controller.(Declarer); ok {
		if c := declarer.Capability(); c.strategy != StrategyNone {
			return c.strategy, c.hook(state, authenticated)
		}
	}

	switch c := controller.(type) {
	case AuthStateAware:
		return StrategyRefreshUI, c.RefreshUI
	case Refresher:
		return StrategyRefresh, c.Refresh
	case SceneActivator:
		return StrategySceneActive, c.OnSceneActive
	case AuthUIUpdater:
		return StrategyUpdateAuthUI, func() { c.UpdateAuthUI(state()) }
	case AuthContainers:
		return StrategyContainers, func() {
			toggle(c.LoggedOutControls(), c.LoggedInControls(), authenticated())
		}
	}
	return StrategyNone, nil
}

func (c Capability) hook(state func() authstate.State, authenticated func() bool) func() {
	switch c.strategy {
	case StrategyRefresh, StrategySceneActive:
		return c.run
	case StrategyUpdateAuthUI:
		return func() { c.update(state()) }
	case StrategyContainers:
		return func() { toggle(c.loggedOut, c.loggedIn, authenticated()) }
	default:
		return nil
	}
}

func toggle(loggedOut, loggedIn Visibility, authenticated bool) {
	if loggedOut != nil {
		loggedOut.SetVisible(!authenticated)
	}
	if loggedIn != nil {
		loggedIn.SetVisible(authenticated)
	}
}
