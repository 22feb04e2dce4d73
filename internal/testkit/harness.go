package testkit

import (
	"context"
	"sync"

	"github.com/rizom-ai/brains-sub000/internal/bus"
	"github.com/rizom-ai/brains-sub000/internal/capabilities"
	"github.com/rizom-ai/brains-sub000/internal/plugin"
)

// StubPlugin is a synthetic plugin.Plugin for exercising
// plugin.Manager.InitializeAll against hand-built dependency graphs,
// without needing a real plugin implementation per test case.
type StubPlugin struct {
	id      string
	tier    plugin.Tier
	deps    []string
	onReg   func(ctx context.Context, shellCtx plugin.Context) (capabilities.Capabilities, error)
	onShut  func(ctx context.Context) error
}

// NewStubPlugin constructs a StubPlugin with the given id, tier, and
// dependencies. Register succeeds with empty Capabilities unless
// WithRegister overrides it.
func NewStubPlugin(id string, tier plugin.Tier, deps ...string) *StubPlugin {
	return &StubPlugin{id: id, tier: tier, deps: deps}
}

// WithRegister overrides the behavior of Register.
func (s *StubPlugin) WithRegister(fn func(ctx context.Context, shellCtx plugin.Context) (capabilities.Capabilities, error)) *StubPlugin {
	s.onReg = fn
	return s
}

// WithShutdown overrides the behavior of Shutdown.
func (s *StubPlugin) WithShutdown(fn func(ctx context.Context) error) *StubPlugin {
	s.onShut = fn
	return s
}

func (s *StubPlugin) ID() string            { return s.id }
func (s *StubPlugin) PackageName() string   { return "testkit/" + s.id }
func (s *StubPlugin) Version() string       { return "0.0.0-test" }
func (s *StubPlugin) Tier() plugin.Tier     { return s.tier }
func (s *StubPlugin) Dependencies() []string { return s.deps }

func (s *StubPlugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:         s.id,
		Version:      s.Version(),
		Tier:         string(s.tier),
		Dependencies: s.deps,
	}
}

func (s *StubPlugin) Register(ctx context.Context, shellCtx plugin.Context) (capabilities.Capabilities, error) {
	if s.onReg != nil {
		return s.onReg(ctx, shellCtx)
	}
	return capabilities.Capabilities{}, nil
}

func (s *StubPlugin) Shutdown(ctx context.Context) error {
	if s.onShut != nil {
		return s.onShut(ctx)
	}
	return nil
}

// RecordingBuilder is a plugin.ContextBuilder that just hands back nil,
// recording which plugins it built Context for — enough for tests that
// only care about manager-level ordering/error behavior, not real Context
// contents.
type RecordingBuilder struct {
	Built []string
}

func (b *RecordingBuilder) Build(p plugin.Plugin) plugin.Context {
	b.Built = append(b.Built, p.ID())
	return nil
}

// EventRecorder subscribes to the plugin manager's lifecycle bus channels
// and records every (event, pluginID) pair in receive order, for
// assertions about initialization ordering and error counts (spec.md §8
// scenarios 1-2).
type EventRecorder struct {
	mu     sync.Mutex
	Events []RecordedEvent
}

// RecordedEvent is one captured plugin-lifecycle emission.
type RecordedEvent struct {
	Channel  string
	PluginID string
}

// NewEventRecorder subscribes to every plugin-lifecycle channel on b,
// owned by "testkit".
func NewEventRecorder(b *bus.Bus) *EventRecorder {
	r := &EventRecorder{}
	channels := []string{
		plugin.EventRegistered,
		plugin.EventBeforeInitialize,
		plugin.EventInitialized,
		plugin.EventError,
		plugin.EventDisabled,
		plugin.EventPluginsReady,
	}
	for _, ch := range channels {
		channel := ch
		b.Subscribe(channel, "testkit", func(ctx context.Context, msg bus.Message) *bus.Response {
			pluginID, _ := msg.Payload.(map[string]any)["pluginId"].(string)
			r.mu.Lock()
			r.Events = append(r.Events, RecordedEvent{Channel: channel, PluginID: pluginID})
			r.mu.Unlock()
			return nil
		})
	}
	return r
}

// Snapshot returns a copy of the events recorded so far.
func (r *EventRecorder) Snapshot() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEvent, len(r.Events))
	copy(out, r.Events)
	return out
}
