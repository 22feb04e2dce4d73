package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/rizom-ai/brains-sub000/internal/apperrors"
	"github.com/rizom-ai/brains-sub000/internal/bus"
	"github.com/rizom-ai/brains-sub000/internal/capabilities"
	"github.com/rizom-ai/brains-sub000/internal/logger"
)

// Lifecycle bus channels (spec.md §4.1, §6).
const (
	EventRegistered      = "plugin:registered"
	EventBeforeInitialize = "plugin:before-initialize"
	EventInitialized     = "plugin:initialized"
	EventError           = "plugin:error"
	EventDisabled        = "plugin:disabled"
	EventPluginsReady    = "system:plugins:ready"
)

// CapabilityRegistrar receives a plugin's Capabilities once it initializes.
// Implemented by internal/capreg.Registrar, which the manager receives
// through this interface rather than by importing capreg.
type CapabilityRegistrar interface {
	Register(ctx context.Context, pluginID string, caps capabilities.Capabilities) error
}

// DaemonStarter starts every daemon a plugin owns once it initializes, and
// stops them on disable. Implemented by internal/daemon.Registry.
type DaemonStarter interface {
	StartPlugin(ctx context.Context, pluginID string) error
	StopPlugin(ctx context.Context, pluginID string) error
}

// ContextBuilder builds the tier-specific Context handed to Plugin.Register.
// Implemented by internal/pluginctx.
type ContextBuilder interface {
	Build(p Plugin) Context
}

// Manager resolves plugin initialization order by dependency fixed point,
// invokes Register once per plugin, and tracks lifecycle state for the
// life of the process (spec.md §4.1).
type Manager struct {
	mu        sync.RWMutex
	infos     map[string]*Info
	order     []string // registration order, for deterministic iteration
	bus       *bus.Bus
	daemons   DaemonStarter
	ctxBuild  ContextBuilder
	registrar CapabilityRegistrar
}

// NewManager constructs an empty Manager.
func NewManager(b *bus.Bus, daemons DaemonStarter, ctxBuild ContextBuilder, registrar CapabilityRegistrar) *Manager {
	return &Manager{
		infos:     make(map[string]*Info),
		bus:       b,
		daemons:   daemons,
		ctxBuild:  ctxBuild,
		registrar: registrar,
	}
}

// SetContextBuilder installs the ContextBuilder after construction. A
// Builder typically needs the Manager itself (for package-name lookups),
// so it cannot be built before the Manager exists; callers wire it via
// this setter immediately after NewManager, before RegisterPlugin/Start.
func (m *Manager) SetContextBuilder(b ContextBuilder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxBuild = b
}

// Register validates and records a plugin at status REGISTERED. It does
// not call Register() on the plugin itself — that happens during
// InitializeAll.
func (m *Manager) Register(p Plugin) error {
	id := p.ID()
	if id == "" {
		return apperrors.RegistrationError("", fmt.Errorf("plugin id must not be empty"))
	}

	if errs := p.Metadata().Validate(); errs != nil {
		return apperrors.RegistrationError(id, fmt.Errorf("invalid metadata: %v", errs))
	}

	m.mu.Lock()
	if existing, ok := m.infos[id]; ok {
		m.mu.Unlock()
		return apperrors.RegistrationError(id, fmt.Errorf("duplicate plugin id, existing version %s", existing.Plugin.Version()))
	}
	m.infos[id] = &Info{Plugin: p, Status: StatusRegistered, Dependencies: p.Dependencies()}
	m.order = append(m.order, id)
	m.mu.Unlock()

	logger.Manager().Info().Str("plugin", id).Str("version", p.Version()).Msg("plugin registered")
	m.emit(EventRegistered, id, nil)
	return nil
}

// InitializeAll runs the fixed-point loop of spec.md §4.1: repeatedly scan
// for plugins whose dependencies are all INITIALIZED, register them, and
// repeat until no progress is made. Anything left unresolved is marked
// ERROR with the missing-dependency list.
func (m *Manager) InitializeAll(ctx context.Context) {
	attempted := make(map[string]bool)

	for {
		progressed := false

		m.mu.RLock()
		ids := make([]string, len(m.order))
		copy(ids, m.order)
		m.mu.RUnlock()

		for _, id := range ids {
			if attempted[id] {
				continue
			}

			m.mu.RLock()
			info := m.infos[id]
			m.mu.RUnlock()
			if info.Status != StatusRegistered {
				attempted[id] = true
				continue
			}

			missing := m.unmet(info.Dependencies)
			if len(missing) > 0 {
				continue
			}

			m.initializeOne(ctx, id, info)
			attempted[id] = true
			progressed = true
		}

		if !progressed {
			break
		}
	}

	m.mu.Lock()
	for _, id := range m.order {
		info := m.infos[id]
		if info.Status == StatusRegistered {
			missing := m.unmetLocked(info.Dependencies)
			info.Status = StatusError
			info.Err = fmt.Errorf("unmet dependencies: %v", missing)
		}
	}
	m.mu.Unlock()

	for _, id := range m.order {
		m.mu.RLock()
		info := m.infos[id]
		m.mu.RUnlock()
		if info.Status == StatusError && info.Err != nil && !attempted[id] {
			logger.Manager().Error().Str("plugin", id).Err(info.Err).Msg("plugin unreachable after fixed point")
			m.emit(EventError, id, info.Err)
		}
	}
}

func (m *Manager) initializeOne(ctx context.Context, id string, info *Info) {
	m.emit(EventBeforeInitialize, id, nil)

	shellCtx := m.ctxBuild.Build(info.Plugin)
	caps, err := info.Plugin.Register(ctx, shellCtx)
	if err != nil {
		m.mu.Lock()
		info.Status = StatusError
		info.Err = apperrors.InitializationError(id, err)
		m.mu.Unlock()
		logger.Manager().Error().Str("plugin", id).Err(err).Msg("plugin failed to initialize")
		m.emit(EventError, id, err)
		return
	}

	m.mu.Lock()
	info.Status = StatusInitialized
	m.mu.Unlock()

	if m.registrar != nil {
		if regErr := m.registrar.Register(ctx, id, caps); regErr != nil {
			logger.Manager().Error().Str("plugin", id).Err(regErr).Msg("capability registration failed")
		}
	}

	if m.daemons != nil {
		if err := m.daemons.StartPlugin(ctx, id); err != nil {
			// Daemon startup failures are logged but do NOT flip the plugin
			// to ERROR (spec.md §4.1 edge cases).
			logger.Manager().Error().Str("plugin", id).Err(err).Msg("daemon startup failed for plugin")
		}
	}

	logger.Manager().Info().Str("plugin", id).Msg("plugin initialized")
	m.emit(EventInitialized, id, nil)
}

// unmet computes the dependency ids that are missing from the registry or
// not yet INITIALIZED. It must read status fresh on every call — a
// dependency initialized later in the same pass must become visible on the
// next iteration (spec.md §4.1 edge cases).
func (m *Manager) unmet(deps []string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unmetLocked(deps)
}

func (m *Manager) unmetLocked(deps []string) []string {
	var missing []string
	for _, dep := range deps {
		info, ok := m.infos[dep]
		if !ok || info.Status != StatusInitialized {
			missing = append(missing, dep)
		}
	}
	return missing
}

// Get returns the Info for id, if registered.
func (m *Manager) Get(id string) (*Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.infos[id]
	return info, ok
}

// Status returns id's current lifecycle status.
func (m *Manager) Status(id string) (Status, bool) {
	info, ok := m.Get(id)
	if !ok {
		return "", false
	}
	return info.Status, true
}

// ListIDs returns every registered plugin id in registration order.
func (m *Manager) ListIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// ListFailed returns the ids of every plugin currently in ERROR.
func (m *Manager) ListFailed() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, id := range m.order {
		if m.infos[id].Status == StatusError {
			out = append(out, id)
		}
	}
	return out
}

// PackageName returns id's declared package name.
func (m *Manager) PackageName(id string) (string, bool) {
	info, ok := m.Get(id)
	if !ok {
		return "", false
	}
	return info.Plugin.PackageName(), true
}

// Disable transitions a plugin from INITIALIZED to DISABLED, stopping every
// daemon it owns.
func (m *Manager) Disable(ctx context.Context, id string) error {
	m.mu.Lock()
	info, ok := m.infos[id]
	if !ok {
		m.mu.Unlock()
		return apperrors.NotFound("plugin " + id)
	}
	if info.Status != StatusInitialized {
		m.mu.Unlock()
		return apperrors.ValidationError(fmt.Sprintf("plugin %q is not initialized (status %s)", id, info.Status))
	}
	info.Status = StatusDisabled
	m.mu.Unlock()

	if m.daemons != nil {
		if err := m.daemons.StopPlugin(ctx, id); err != nil {
			logger.Manager().Error().Str("plugin", id).Err(err).Msg("error stopping daemons on disable")
		}
	}

	logger.Manager().Info().Str("plugin", id).Msg("plugin disabled")
	m.emit(EventDisabled, id, nil)
	return nil
}

// Enable transitions a disabled plugin back to INITIALIZED and restarts its
// daemons. It does not re-run Register().
func (m *Manager) Enable(ctx context.Context, id string) error {
	m.mu.Lock()
	info, ok := m.infos[id]
	if !ok {
		m.mu.Unlock()
		return apperrors.NotFound("plugin " + id)
	}
	if info.Status != StatusDisabled {
		m.mu.Unlock()
		return apperrors.ValidationError(fmt.Sprintf("plugin %q is not disabled (status %s)", id, info.Status))
	}
	info.Status = StatusInitialized
	m.mu.Unlock()

	if m.daemons != nil {
		if err := m.daemons.StartPlugin(ctx, id); err != nil {
			logger.Manager().Error().Str("plugin", id).Err(err).Msg("error restarting daemons on enable")
		}
	}

	logger.Manager().Info().Str("plugin", id).Msg("plugin enabled")
	m.emit(EventInitialized, id, nil)
	return nil
}

// PublishReady emits system:plugins:ready once, after InitializeAll
// completes. Late producers (e.g. widget publishers) must wait for this
// edge (spec.md §4.3).
func (m *Manager) PublishReady(ctx context.Context) {
	m.mu.RLock()
	count := len(m.order)
	m.mu.RUnlock()

	if m.bus != nil {
		m.bus.Send(ctx, EventPluginsReady, map[string]any{"pluginCount": count}, "shell", bus.Broadcast())
	}
}

func (m *Manager) emit(event, pluginID string, err error) {
	if m.bus == nil {
		return
	}
	payload := map[string]any{"pluginId": pluginID}
	if err != nil {
		payload["error"] = err.Error()
	}
	m.bus.Send(context.Background(), event, payload, "plugin-manager", bus.Broadcast())
}
