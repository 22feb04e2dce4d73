// Package shell wires every host-owned component — bus, scheduler, daemon
// registry, capability registrar, template registry, progress routers,
// and the plugin manager — into one process-scoped owner plugins register
// against (spec.md §2 "Control flow"). Grounded on the teacher's cmd/main.go
// sequential-construction shape (connect database, connect cache, start
// tracker, start sync, …), re-targeted from the teacher's HTTP/k8s stack to
// this module's plugin-host components; singletons become fields owned by
// Shell per spec.md §9 "Singletons → explicit owners."
package shell

import (
	"context"
	"fmt"

	"github.com/rizom-ai/brains-sub000/internal/apperrors"
	"github.com/rizom-ai/brains-sub000/internal/bus"
	"github.com/rizom-ai/brains-sub000/internal/capreg"
	"github.com/rizom-ai/brains-sub000/internal/config"
	"github.com/rizom-ai/brains-sub000/internal/daemon"
	"github.com/rizom-ai/brains-sub000/internal/eval"
	"github.com/rizom-ai/brains-sub000/internal/jobs"
	"github.com/rizom-ai/brains-sub000/internal/logger"
	"github.com/rizom-ai/brains-sub000/internal/plugin"
	"github.com/rizom-ai/brains-sub000/internal/pluginctx"
	"github.com/rizom-ai/brains-sub000/internal/progress"
	"github.com/rizom-ai/brains-sub000/internal/templates"
)

// Collaborators bundles every external service the shell does not
// implement itself — callers (the launcher, or a test harness) supply
// concrete or fake implementations (spec.md §1 "Out of scope").
type Collaborators struct {
	Entities      pluginctx.EntityService
	AI            pluginctx.AIService
	Content       pluginctx.ContentService
	MCP           pluginctx.MCPTransport
	Conversations pluginctx.ConversationStore
	Permissions   pluginctx.PermissionService
	Agent         pluginctx.AgentService
	DataSources   pluginctx.DataSourceRegistry
	ViewTemplates pluginctx.ViewTemplateRegistry
}

// Shell is the process-wide plugin host (spec.md §2, §9). It owns every
// shared service and exposes them to plugins only through tier-specific
// Context facades built by pluginctx.Builder.
type Shell struct {
	Config *config.Config

	Bus        *bus.Bus
	Jobs       *jobs.Scheduler
	Daemons    *daemon.Registry
	Recurring  *daemon.RecurringScheduler
	Templates  *templates.Registry
	Routes     *capreg.Registrar
	EvalHandlers *eval.Registry

	Manager *plugin.Manager
	builder *pluginctx.Builder

	routers map[string]*progress.Router // interfaceType -> its Router

	collaborators Collaborators
}

// New constructs a Shell with every core service wired and ready, but no
// plugins registered yet (spec.md §2 step 1).
func New(cfg *config.Config, collab Collaborators) *Shell {
	b := bus.New()
	jobScheduler := jobs.NewScheduler(b)
	daemons := daemon.NewRegistry()
	recurring := daemon.NewRecurringScheduler()
	tmpl := templates.NewRegistry()
	routes := capreg.New(b)
	evalHandlers := eval.NewRegistry()

	s := &Shell{
		Config:       cfg,
		Bus:          b,
		Jobs:         jobScheduler,
		Daemons:      daemons,
		Recurring:    recurring,
		Templates:    tmpl,
		Routes:       routes,
		EvalHandlers: evalHandlers,
		routers:      make(map[string]*progress.Router),
		collaborators: collab,
	}

	s.Manager = plugin.NewManager(b, daemons, nil, routes)

	services := pluginctx.Services{
		Bus:           b,
		Jobs:          jobScheduler,
		Daemons:       daemons,
		Recurring:     recurring,
		Templates:     tmpl,
		Routes:        routes,
		DataDir:       cfg.PluginDir,
		Entities:      collab.Entities,
		AI:            collab.AI,
		Content:       collab.Content,
		MCP:           collab.MCP,
		Conversations: collab.Conversations,
		Permissions:   collab.Permissions,
		EvalHandlers:  evalHandlers,
		DataSources:   collab.DataSources,
		ViewTemplates: collab.ViewTemplates,
	}

	s.builder = pluginctx.NewBuilder(services, s.Manager, collab.Agent, routes)
	s.Manager.SetContextBuilder(s.builder)

	return s
}

// RegisterPlugin records p with the manager (spec.md §2 step 2).
func (s *Shell) RegisterPlugin(p plugin.Plugin) error {
	return s.Manager.Register(p)
}

// Router returns (creating if necessary) the progress.Router for
// interfaceType, backed by an in-memory tracking store with the
// configured TTL. Interface plugins call this during register() to obtain
// their Router and pass it a Sender once their transport is live.
func (s *Shell) Router(interfaceType string, sender progress.Sender, onUI progress.UIUpdateFunc) *progress.Router {
	if r, ok := s.routers[interfaceType]; ok {
		return r
	}
	store := progress.NewMemoryStore(s.Config.JobTrackingTTL)
	r := progress.NewRouter(interfaceType, store, sender, onUI)
	r.Subscribe(s.Bus)
	s.routers[interfaceType] = r
	return r
}

// Start runs the fixed-point initialization loop and publishes
// system:plugins:ready once every resolvable plugin has settled (spec.md
// §2 steps 3-6).
func (s *Shell) Start(ctx context.Context) error {
	logger.Manager().Info().Msg("initializing plugins")
	s.Manager.InitializeAll(ctx)

	if failed := s.Manager.ListFailed(); len(failed) > 0 {
		logger.Manager().Warn().Strs("plugins", failed).Msg("plugins failed to initialize")
	}

	s.Manager.PublishReady(ctx)
	return nil
}

// Shutdown calls Shutdown on every initialized plugin and stops the
// recurring scheduler. Best-effort per spec.md §5 "Cancellation."
func (s *Shell) Shutdown(ctx context.Context) error {
	var firstErr error
	for _, id := range s.Manager.ListIDs() {
		info, ok := s.Manager.Get(id)
		if !ok || info.Status != plugin.StatusInitialized {
			continue
		}
		if err := info.Plugin.Shutdown(ctx); err != nil {
			logger.Plugin(id).Error().Err(err).Msg("shutdown failed")
			if firstErr == nil {
				firstErr = apperrors.Wrap(apperrors.ErrCodeInternal, fmt.Sprintf("plugin %q shutdown failed", id), err)
			}
		}
	}
	s.Recurring.Stop()
	return firstErr
}
