package pluginctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/rizom-ai/brains-sub000/internal/apperrors"
	"github.com/rizom-ai/brains-sub000/internal/bus"
	"github.com/rizom-ai/brains-sub000/internal/jobs"
	"github.com/rizom-ai/brains-sub000/internal/logger"
	"github.com/rizom-ai/brains-sub000/internal/templates"
)

// Messaging is the core-tier bus facade: send publishes with the plugin
// stamped as source, subscribe registers a handler owned by the plugin, so
// bus.UnsubscribeAll(pluginID) removes it. Disabling a plugin does not
// unsubscribe its handlers.
type Messaging struct {
	pluginID string
	bus      *bus.Bus
}

// Send publishes payload on channel, sourced from this plugin.
func (m Messaging) Send(ctx context.Context, channel string, payload any, opts ...bus.SendOption) *bus.Response {
	return m.bus.Send(ctx, channel, payload, m.pluginID, opts...)
}

// Subscribe registers handler on channel, owned by this plugin.
func (m Messaging) Subscribe(channel string, handler bus.Handler) {
	m.bus.Subscribe(channel, m.pluginID, handler)
}

// TemplateAccess is the core-tier read path over the template registry:
// format and parse only, no Register (that's service-tier).
type TemplateAccess struct {
	registry *templates.Registry
}

// Format renders data through a fully-scoped "pluginId:name" template key.
func (t TemplateAccess) Format(key string, data map[string]any) (string, error) {
	return t.registry.Format(key, data)
}

// Parse recovers structured data from a formatted string.
func (t TemplateAccess) Parse(key, formatted string) (map[string]any, error) {
	return t.registry.Parse(key, formatted)
}

// JobMonitor is the core-tier read-only view over the job scheduler: status
// and enumeration only, no enqueue.
type JobMonitor struct {
	scheduler *jobs.Scheduler
}

// Status returns a job's current state.
func (j JobMonitor) Status(id string) (jobs.Job, bool) {
	return j.scheduler.Get(id)
}

// Active returns every queued or processing job.
func (j JobMonitor) Active() []jobs.Job {
	return j.scheduler.Active()
}

// Batch returns every job belonging to a batch, in dispatched order.
func (j JobMonitor) Batch(batchID string) []jobs.Job {
	return j.scheduler.Batch(batchID)
}

// CoreContext is the read-only foundation every tier extends (spec.md
// §4.2).
type CoreContext struct {
	PluginID string
	Logger   Logger

	Entities EntityService
	AI       AIService

	Messaging Messaging
	Templates TemplateAccess
	Jobs      JobMonitor

	Conversations ConversationStore
	DataDir       string
}

// EnqueueJob is the namespacing helper shared by service and interface
// tiers (spec.md §4.2 "Automatic namespacing"). autoscope controls whether
// a type lacking a ":" gets "pluginId:" prepended (true for service tier;
// false for interface tier, which requires callers to scope explicitly).
func EnqueueJob(scheduler *jobs.Scheduler, pluginID string, jobType string, payload any, autoscope bool, tc ToolContextLike) (string, error) {
	scopedType := jobType
	if autoscope && !strings.Contains(jobType, ":") {
		scopedType = pluginID + ":" + jobType
	}
	if !autoscope && !strings.Contains(jobType, ":") {
		return "", apperrors.ValidationError(fmt.Sprintf("interface-tier enqueue requires an explicitly scoped job type, got %q", jobType))
	}

	meta := jobs.Metadata{OperationType: scopedType, PluginID: pluginID}
	if tc != nil {
		meta.InterfaceType = tc.Interface()
		meta.ChannelID = tc.Channel()
	}

	return scheduler.Enqueue(context.Background(), scopedType, payload, jobs.EnqueueOptions{Metadata: meta}), nil
}

// ToolContextLike lets EnqueueJob copy interfaceType/channelId from either
// a capabilities.ToolContext or nil (spec.md §4.2 "ToolContext
// propagation" — passing nil produces a silent background job).
type ToolContextLike interface {
	Interface() string
	Channel() string
}

// NewCoreContext builds the core tier for pluginID.
func NewCoreContext(pluginID string, svc Services) CoreContext {
	return CoreContext{
		PluginID:      pluginID,
		Logger:        logger.Plugin(pluginID),
		Entities:      svc.Entities,
		AI:            svc.AI,
		Messaging:     Messaging{pluginID: pluginID, bus: svc.Bus},
		Templates:     TemplateAccess{registry: svc.Templates},
		Jobs:          JobMonitor{scheduler: svc.Jobs},
		Conversations: svc.Conversations,
		DataDir:       svc.DataDir,
	}
}
