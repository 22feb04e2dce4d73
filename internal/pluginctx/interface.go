package pluginctx

import (
	"context"

	"github.com/rizom-ai/brains-sub000/internal/apperrors"
	"github.com/rizom-ai/brains-sub000/internal/capreg"
	"github.com/rizom-ai/brains-sub000/internal/daemon"
	"github.com/rizom-ai/brains-sub000/internal/jobs"
)

// AgentService is the external conversational-AI collaborator interface
// tiers query directly, distinct from the service tier's content/image
// generation facade (spec.md §4.2).
type AgentService interface {
	Query(ctx context.Context, conversationID, prompt string) (string, error)
}

// ConversationWriter is the interface-tier write path over conversation
// state: start a conversation, append a message. Reading back messages
// stays on CoreContext.Conversations.
type ConversationWriter struct {
	store ConversationStore
}

// Start begins a new conversation for a channel.
func (c ConversationWriter) Start(ctx context.Context, interfaceType, channelID string) (string, error) {
	return c.store.Start(ctx, interfaceType, channelID)
}

// AddMessage appends a message to an existing conversation.
func (c ConversationWriter) AddMessage(ctx context.Context, conversationID, role, content string, metadata map[string]any) error {
	return c.store.AddMessage(ctx, conversationID, role, content, metadata)
}

// DaemonRegistration is the interface-tier facade over daemon and recurring
// job registration (spec.md §4.2, §4.7, §4.8).
type DaemonRegistration struct {
	pluginID  string
	daemons   *daemon.Registry
	recurring *daemon.RecurringScheduler
}

// Register adds a background daemon under this plugin's namespace.
func (d DaemonRegistration) Register(name string, def daemon.Daemon) {
	d.daemons.Register(d.pluginID, name, def)
}

// Schedule registers a recurring cron job under this plugin's namespace.
func (d DaemonRegistration) Schedule(jobName, cronExpr string, fn func()) error {
	return d.recurring.Schedule(d.pluginID, jobName, cronExpr, fn)
}

// JobPort is the interface-tier job-write facade: enqueue and enqueueBatch
// require an explicitly scoped job type (no auto-prefixing — spec.md
// §4.2), but handler registration stays service-only.
type JobPort struct {
	pluginID  string
	scheduler *jobs.Scheduler
}

// Enqueue creates a job; jobType must already contain a ":" scope.
func (j JobPort) Enqueue(ctx context.Context, jobType string, payload any, tc ToolContextLike) (string, error) {
	return EnqueueJob(j.scheduler, j.pluginID, jobType, payload, false, tc)
}

// EnqueueBatch creates a batch of jobs sharing batchID as their rootJobId;
// every operation type must already contain a ":" scope.
func (j JobPort) EnqueueBatch(ctx context.Context, batchID string, ops []jobs.BatchOperation, tc ToolContextLike) ([]string, error) {
	for _, op := range ops {
		if !hasScope(op.Type) {
			return nil, apperrors.ValidationError("interface-tier enqueueBatch requires explicitly scoped operation types, got " + op.Type)
		}
	}

	meta := jobs.Metadata{PluginID: j.pluginID}
	if tc != nil {
		meta.InterfaceType = tc.Interface()
		meta.ChannelID = tc.Channel()
	}

	return j.scheduler.EnqueueBatch(ctx, ops, batchID, j.pluginID, meta), nil
}

// InterfaceContext extends CoreContext with the transport/conversation
// write surface spec.md §4.2 grants interface-tier plugins.
type InterfaceContext struct {
	CoreContext

	MCP           MCPTransport
	Agent         AgentService
	Permissions   PermissionService
	Daemons       DaemonRegistration
	Jobs          JobPort
	Conversations ConversationWriter

	routesOf func(pluginID string) []capreg.RegisteredRoute
}

// Routes enumerates the API routes this plugin declared at registration.
func (i InterfaceContext) Routes() []capreg.RegisteredRoute {
	if i.routesOf == nil {
		return nil
	}
	return i.routesOf(i.PluginID)
}

// NewInterfaceContext builds the interface tier for pluginID.
func NewInterfaceContext(pluginID string, svc Services, agent AgentService, routesOf func(string) []capreg.RegisteredRoute) InterfaceContext {
	return InterfaceContext{
		CoreContext: NewCoreContext(pluginID, svc),
		MCP:         svc.MCP,
		Agent:       agent,
		Permissions: svc.Permissions,
		Daemons:     DaemonRegistration{pluginID: pluginID, daemons: svc.Daemons, recurring: svc.Recurring},
		Jobs:        JobPort{pluginID: pluginID, scheduler: svc.Jobs},
		Conversations: ConversationWriter{store: svc.Conversations},
		routesOf:    routesOf,
	}
}
