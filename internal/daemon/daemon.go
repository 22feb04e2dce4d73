// Package daemon implements the daemon registry (spec.md §4.8): long-lived
// start/stop/healthCheck processes owned by a plugin, indexed by
// "pluginId:name", plus a per-plugin recurring-job scheduler (SPEC_FULL.md
// §4.8a) adapted from the teacher's cron-based PluginScheduler.
package daemon

import (
	"context"
	"fmt"
	"sync"

	"github.com/rizom-ai/brains-sub000/internal/logger"
)

// HealthStatus is what a Daemon's health check reports.
type HealthStatus string

const (
	HealthOK      HealthStatus = "ok"
	HealthDegraded HealthStatus = "degraded"
	HealthDown    HealthStatus = "down"
)

// Health is the result of a daemon's health check.
type Health struct {
	Status  HealthStatus
	Message string
}

// Daemon is a long-lived process owned by a plugin (spec.md §3).
type Daemon struct {
	Start       func(ctx context.Context) error
	Stop        func(ctx context.Context) error
	HealthCheck func(ctx context.Context) (Health, error) // optional, may be nil
}

// State is a daemon's lifecycle state (spec.md §4.8).
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateError    State = "error"
)

type entry struct {
	pluginID string
	name     string
	daemon   Daemon
	state    State
	lastErr  error
}

// Registry tracks every daemon a plugin has registered, keyed by
// "pluginId:name".
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

func key(pluginID, name string) string {
	return pluginID + ":" + name
}

// Register records a daemon under "pluginId:name", initially stopped. It
// does not start it — plugins that want a daemon running immediately call
// Start explicitly, or the manager starts it via StartPlugin once the
// owning plugin initializes.
func (r *Registry) Register(pluginID, name string, d Daemon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key(pluginID, name)] = &entry{pluginID: pluginID, name: name, daemon: d, state: StateStopped}
}

// Start transitions stopped -> starting -> running (or error).
func (r *Registry) Start(ctx context.Context, pluginID, name string) error {
	r.mu.Lock()
	e, ok := r.entries[key(pluginID, name)]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("daemon %s:%s not registered", pluginID, name)
	}
	e.state = StateStarting
	r.mu.Unlock()

	err := r.run(ctx, e.daemon.Start)

	r.mu.Lock()
	if err != nil {
		e.state = StateError
		e.lastErr = err
	} else {
		e.state = StateRunning
		e.lastErr = nil
	}
	r.mu.Unlock()

	if err != nil {
		logger.Daemon().Error().Str("plugin", pluginID).Str("daemon", name).Err(err).Msg("daemon failed to start")
	} else {
		logger.Daemon().Info().Str("plugin", pluginID).Str("daemon", name).Msg("daemon started")
	}
	return err
}

// Stop transitions running -> stopping -> stopped (or error).
func (r *Registry) Stop(ctx context.Context, pluginID, name string) error {
	r.mu.Lock()
	e, ok := r.entries[key(pluginID, name)]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("daemon %s:%s not registered", pluginID, name)
	}
	e.state = StateStopping
	r.mu.Unlock()

	err := r.run(ctx, e.daemon.Stop)

	r.mu.Lock()
	if err != nil {
		e.state = StateError
		e.lastErr = err
	} else {
		e.state = StateStopped
		e.lastErr = nil
	}
	r.mu.Unlock()

	if err != nil {
		logger.Daemon().Error().Str("plugin", pluginID).Str("daemon", name).Err(err).Msg("daemon failed to stop")
	}
	return err
}

// CheckHealth runs the named daemon's health check, if it has one.
func (r *Registry) CheckHealth(ctx context.Context, pluginID, name string) (Health, error) {
	r.mu.RLock()
	e, ok := r.entries[key(pluginID, name)]
	r.mu.RUnlock()
	if !ok {
		return Health{}, fmt.Errorf("daemon %s:%s not registered", pluginID, name)
	}
	if e.daemon.HealthCheck == nil {
		return Health{Status: HealthOK}, nil
	}
	return e.daemon.HealthCheck(ctx)
}

// State returns the current lifecycle state of the named daemon.
func (r *Registry) State(pluginID, name string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key(pluginID, name)]
	if !ok {
		return "", false
	}
	return e.state, true
}

// StartPlugin starts every daemon owned by pluginID. A failing start is
// logged and that daemon transitions to error, but sibling daemons are
// unaffected (spec.md §4.8).
func (r *Registry) StartPlugin(ctx context.Context, pluginID string) error {
	var firstErr error
	for _, name := range r.namesFor(pluginID) {
		if err := r.Start(ctx, pluginID, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StopPlugin stops every daemon owned by pluginID (spec.md §4.1 "disable").
func (r *Registry) StopPlugin(ctx context.Context, pluginID string) error {
	var firstErr error
	for _, name := range r.namesFor(pluginID) {
		if err := r.Stop(ctx, pluginID, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Registry) namesFor(pluginID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, e := range r.entries {
		if e.pluginID == pluginID {
			names = append(names, e.name)
		}
	}
	return names
}

func (r *Registry) run(ctx context.Context, fn func(context.Context) error) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx)
}
