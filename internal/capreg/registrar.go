// Package capreg implements the capability registrar (spec.md §4.7):
// translating a plugin's Capabilities bundle into registry writes, with
// per-item try/continue-on-error semantics so one malformed tool or route
// cannot mask its siblings. The route table and "/api/{pluginId}{path}"
// prefixing are adapted from the teacher's APIRegistry; tool/resource/
// command registries and the errgroup-based concurrent batch registration
// are new.
package capreg

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rizom-ai/brains-sub000/internal/bus"
	"github.com/rizom-ai/brains-sub000/internal/capabilities"
	"github.com/rizom-ai/brains-sub000/internal/logger"
	"github.com/rizom-ai/brains-sub000/internal/validator"
)

// Bus channels for capability-registration notices (spec.md §4.3, §6).
const (
	ChannelToolRegister     = "system:tool:register"
	ChannelResourceRegister = "system:resource:register"
	ChannelCommandRegister  = "system:command:register"
)

// RegisteredRoute is the shell-facing view of a plugin's API route: its
// resolved path and owning plugin, alongside its declaration (spec.md §6).
type RegisteredRoute struct {
	PluginID   string
	FullPath   string
	Definition capabilities.APIRoute
}

// Registrar owns the tool/resource/command registries and the route table,
// and is the plugin.CapabilityRegistrar the manager calls after a plugin
// initializes.
type Registrar struct {
	mu sync.RWMutex

	tools     map[string]capabilities.Tool
	resources map[string]capabilities.Resource
	commands  map[string]capabilities.Command
	routes    map[string]RegisteredRoute

	bus *bus.Bus
}

// New constructs an empty Registrar publishing registration notices on b.
func New(b *bus.Bus) *Registrar {
	return &Registrar{
		tools:     make(map[string]capabilities.Tool),
		resources: make(map[string]capabilities.Resource),
		commands:  make(map[string]capabilities.Command),
		routes:    make(map[string]RegisteredRoute),
		bus:       b,
	}
}

// Register writes every capability in caps into its registry. Tools,
// resources, commands, and routes are each registered in their own
// goroutine (independent capability kinds can't conflict with one
// another), and within each kind items are tried one at a time so a single
// bad item doesn't mask the rest — errors are logged, not returned, and each
// kind logs a "registered N of M" summary line. Register always returns nil.
func (r *Registrar) Register(ctx context.Context, pluginID string, caps capabilities.Capabilities) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { r.registerTools(ctx, pluginID, caps.Tools); return nil })
	g.Go(func() error { r.registerResources(ctx, pluginID, caps.Resources); return nil })
	g.Go(func() error { r.registerCommands(ctx, pluginID, caps.Commands); return nil })
	g.Go(func() error { r.registerRoutes(pluginID, caps.APIRoutes); return nil })

	return g.Wait()
}

func (r *Registrar) registerTools(ctx context.Context, pluginID string, tools []capabilities.Tool) {
	ok := 0
	for _, t := range tools {
		if err := r.registerOneTool(ctx, pluginID, t); err != nil {
			logger.Manager().Error().Str("plugin", pluginID).Str("tool", t.Name).Err(err).Msg("tool registration failed")
			continue
		}
		ok++
	}
	logger.Manager().Info().Str("plugin", pluginID).Msgf("registered %d of %d tools", ok, len(tools))
}

func (r *Registrar) registerOneTool(ctx context.Context, pluginID string, t capabilities.Tool) error {
	if t.Visibility == "" {
		t.Visibility = capabilities.VisibilityAnchor
	}
	t.Name = scopeName(pluginID, t.Name)
	r.mu.Lock()
	if _, exists := r.tools[t.Name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Send(ctx, ChannelToolRegister, map[string]any{"pluginId": pluginID, "tool": t.Name}, "capability-registrar", bus.Broadcast())
	}
	return nil
}

func (r *Registrar) registerResources(ctx context.Context, pluginID string, resources []capabilities.Resource) {
	ok := 0
	for _, res := range resources {
		res.URI = scopeName(pluginID, res.URI)
		r.mu.Lock()
		_, exists := r.resources[res.URI]
		if !exists {
			r.resources[res.URI] = res
		}
		r.mu.Unlock()
		if exists {
			logger.Manager().Error().Str("plugin", pluginID).Str("resource", res.URI).Msg("resource already registered")
			continue
		}
		if r.bus != nil {
			r.bus.Send(ctx, ChannelResourceRegister, map[string]any{"pluginId": pluginID, "resource": res.URI}, "capability-registrar", bus.Broadcast())
		}
		ok++
	}
	logger.Manager().Info().Str("plugin", pluginID).Msgf("registered %d of %d resources", ok, len(resources))
}

func (r *Registrar) registerCommands(ctx context.Context, pluginID string, commands []capabilities.Command) {
	ok := 0
	for _, cmd := range commands {
		if errs := validator.ValidateRequest(cmd); errs != nil {
			logger.Manager().Error().Str("plugin", pluginID).Str("command", cmd.Name).Interface("errors", errs).Msg("invalid command definition, skipping")
			continue
		}
		r.mu.Lock()
		_, exists := r.commands[cmd.Name]
		if !exists {
			r.commands[cmd.Name] = cmd
		}
		r.mu.Unlock()
		if exists {
			logger.Manager().Error().Str("plugin", pluginID).Str("command", cmd.Name).Msg("command already registered")
			continue
		}
		if r.bus != nil {
			r.bus.Send(ctx, ChannelCommandRegister, map[string]any{"pluginId": pluginID, "command": cmd.Name}, "capability-registrar", bus.Broadcast())
		}
		ok++
	}
	logger.Manager().Info().Str("plugin", pluginID).Msgf("registered %d of %d commands", ok, len(commands))
}

func (r *Registrar) registerRoutes(pluginID string, routes []capabilities.APIRoute) {
	ok := 0
	for _, route := range routes {
		if errs := validator.ValidateRequest(route); errs != nil {
			logger.Manager().Error().Str("plugin", pluginID).Str("path", route.Path).Interface("errors", errs).Msg("invalid route definition, skipping")
			continue
		}
		if route.Method == "" {
			route.Method = capabilities.MethodPOST
		}
		fullPath := "/api/" + pluginID + route.Path
		key := pluginID + ":" + string(route.Method) + ":" + route.Path

		r.mu.Lock()
		if _, exists := r.routes[key]; exists {
			r.mu.Unlock()
			logger.Manager().Error().Str("plugin", pluginID).Str("path", fullPath).Msg("route already registered")
			continue
		}
		r.routes[key] = RegisteredRoute{PluginID: pluginID, FullPath: fullPath, Definition: route}
		r.mu.Unlock()
		ok++
	}
	logger.Manager().Info().Str("plugin", pluginID).Msgf("registered %d of %d routes", ok, len(routes))
}

// UnregisterAll drops pluginID's tools and resources (matched by their
// "pluginId_" scope prefix) and its routes. Commands are stored under their
// bare names, so only commands whose name begins with "pluginID_" or
// "pluginID:" are dropped; other commands the plugin registered remain.
func (r *Registrar) UnregisterAll(pluginID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.tools {
		if ownerPrefix(name) == pluginID {
			delete(r.tools, name)
		}
	}
	for uri := range r.resources {
		if ownerPrefix(uri) == pluginID {
			delete(r.resources, uri)
		}
	}
	for name := range r.commands {
		if ownerPrefix(name) == pluginID {
			delete(r.commands, name)
		}
	}
	for key, route := range r.routes {
		if route.PluginID == pluginID {
			delete(r.routes, key)
		}
	}
}

// scopeName stamps name with "pluginId_" unless it already carries that
// prefix, mirroring pluginctx.EnqueueJob's autoscope rule for job types
// (spec.md §3 "Tool/resource name uniqueness", §8 invariant #3). This is
// the tier-helper enforcement point for tools/resources, since both are
// handed to the registrar as a flat Capabilities bundle rather than built
// through a per-capability constructor.
func scopeName(pluginID, name string) string {
	prefix := pluginID + "_"
	if strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}

func ownerPrefix(name string) string {
	for i, c := range name {
		if c == '_' || c == ':' {
			return name[:i]
		}
	}
	return name
}

// Tool looks up a registered tool by its fully-namespaced name.
func (r *Registrar) Tool(name string) (capabilities.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Resource looks up a registered resource by URI.
func (r *Registrar) Resource(uri string) (capabilities.Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[uri]
	return res, ok
}

// Command looks up a registered command by name.
func (r *Registrar) Command(name string) (capabilities.Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Commands returns every registered command, for /help enumeration
// (spec.md §4.6).
func (r *Registrar) Commands() []capabilities.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]capabilities.Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	return out
}

// Routes returns every registered API route, for a webserver interface to
// bind (spec.md §6).
func (r *Registrar) Routes() []RegisteredRoute {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegisteredRoute, 0, len(r.routes))
	for _, route := range r.routes {
		out = append(out, route)
	}
	return out
}
