package pluginctx

import (
	"github.com/rizom-ai/brains-sub000/internal/capreg"
	"github.com/rizom-ai/brains-sub000/internal/plugin"
)

// Builder implements plugin.ContextBuilder: it dispatches on a plugin's
// declared tier to construct the matching Core/Service/Interface context
// (spec.md §4.2).
type Builder struct {
	svc      Services
	manager  *plugin.Manager
	agent    AgentService
	routesOf func(pluginID string) []capreg.RegisteredRoute
}

// NewBuilder wires a Builder against the shell's assembled Services, the
// plugin manager (for package-name lookups), the agent collaborator, and
// the route registrar's per-plugin lookup.
func NewBuilder(svc Services, manager *plugin.Manager, agent AgentService, registrar *capreg.Registrar) *Builder {
	return &Builder{
		svc:     svc,
		manager: manager,
		agent:   agent,
		routesOf: func(pluginID string) []capreg.RegisteredRoute {
			var out []capreg.RegisteredRoute
			for _, r := range registrar.Routes() {
				if r.PluginID == pluginID {
					out = append(out, r)
				}
			}
			return out
		},
	}
}

// Build returns the tier-appropriate Context for p, satisfying
// plugin.ContextBuilder.
func (b *Builder) Build(p plugin.Plugin) plugin.Context {
	switch p.Tier() {
	case plugin.TierService:
		return NewServiceContext(p.ID(), b.svc, b.manager.PackageName)
	case plugin.TierInterface:
		return NewInterfaceContext(p.ID(), b.svc, b.agent, b.routesOf)
	default:
		return NewCoreContext(p.ID(), b.svc)
	}
}
