package pluginctx

import (
	"context"

	"github.com/rizom-ai/brains-sub000/internal/jobs"
	"github.com/rizom-ai/brains-sub000/internal/templates"
)

// EntityWriter is the service-tier write path the core tier withholds.
type EntityWriter struct {
	entities EntityService
}

// Create delegates to the entity service's create path.
func (e EntityWriter) Create(ctx context.Context, entityType string, data map[string]any) (string, error) {
	return e.entities.Create(ctx, entityType, data)
}

// Update delegates to the entity service's update path.
func (e EntityWriter) Update(ctx context.Context, entityType, id string, data map[string]any) error {
	return e.entities.Update(ctx, entityType, id, data)
}

// Delete delegates to the entity service's delete path.
func (e EntityWriter) Delete(ctx context.Context, entityType, id string) error {
	return e.entities.Delete(ctx, entityType, id)
}

// RegisterType registers a new entity type with its schema and adapter.
func (e EntityWriter) RegisterType(ctx context.Context, entityType string, schema, adapter, config any) error {
	return e.entities.RegisterType(ctx, entityType, schema, adapter, config)
}

// ContentGeneration is the service-tier AI content/image generation facade,
// with a capability probe so plugins can skip image prompts the AI service
// doesn't support (spec.md §4.2).
type ContentGeneration struct {
	ai AIService
}

// GenerateContent delegates to the AI service.
func (c ContentGeneration) GenerateContent(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	return c.ai.GenerateContent(ctx, prompt, opts)
}

// GenerateImage delegates to the AI service, if it supports images.
func (c ContentGeneration) GenerateImage(ctx context.Context, prompt string, opts map[string]any) ([]byte, error) {
	if !c.ai.SupportsImageGeneration() {
		return nil, errUnsupportedCapability("image generation")
	}
	return c.ai.GenerateImage(ctx, prompt, opts)
}

// SupportsImages reports whether image generation is available.
func (c ContentGeneration) SupportsImages() bool {
	return c.ai.SupportsImageGeneration()
}

// ContentResolution is the service-tier content-service facade, with
// capability introspection mirroring ContentGeneration's probe.
type ContentResolution struct {
	content ContentService
}

// Resolve formats data through a named content template.
func (c ContentResolution) Resolve(ctx context.Context, templateKey string, data map[string]any) (string, error) {
	return c.content.Resolve(ctx, templateKey, data)
}

// Supports reports whether templateKey is known to the content service.
func (c ContentResolution) Supports(templateKey string) bool {
	return c.content.SupportsTemplate(templateKey)
}

// JobWriter is the service-tier job-enqueue facade: enqueue, enqueueBatch,
// and handler registration, all auto-scoped with "pluginId:" (spec.md
// §4.2).
type JobWriter struct {
	pluginID  string
	scheduler *jobs.Scheduler
}

// Enqueue creates a job, auto-prefixing jobType with "pluginId:" if it
// lacks a scope already.
func (j JobWriter) Enqueue(ctx context.Context, jobType string, payload any, tc ToolContextLike) string {
	id, _ := EnqueueJob(j.scheduler, j.pluginID, jobType, payload, true, tc)
	return id
}

// EnqueueBatch creates a batch of jobs sharing the caller-supplied batchID
// as their rootJobId; each operation's type is rewritten with the same
// "pluginId:" scoping rule (spec.md §4.2).
func (j JobWriter) EnqueueBatch(ctx context.Context, batchID string, ops []jobs.BatchOperation, tc ToolContextLike) []string {
	scoped := make([]jobs.BatchOperation, len(ops))
	for i, op := range ops {
		scopedType := op.Type
		if !hasScope(scopedType) {
			scopedType = j.pluginID + ":" + scopedType
		}
		scoped[i] = jobs.BatchOperation{Type: scopedType, Data: op.Data}
	}

	meta := jobs.Metadata{PluginID: j.pluginID}
	if tc != nil {
		meta.InterfaceType = tc.Interface()
		meta.ChannelID = tc.Channel()
	}

	return j.scheduler.EnqueueBatch(ctx, scoped, batchID, j.pluginID, meta)
}

// RegisterHandler registers h under "pluginId:jobType".
func (j JobWriter) RegisterHandler(jobType string, h jobs.Handler) {
	j.scheduler.RegisterHandler(j.pluginID+":"+jobType, h)
}

func hasScope(jobType string) bool {
	for _, c := range jobType {
		if c == ':' {
			return true
		}
	}
	return false
}

// ServiceContext extends CoreContext with the write-capable surface
// spec.md §4.2 grants service-tier plugins.
type ServiceContext struct {
	CoreContext

	EntityWriter  EntityWriter
	Content       ContentGeneration
	ContentRes    ContentResolution
	Jobs          JobWriter
	ViewTemplates ViewTemplateRegistry
	DataSources   DataSourceRegistry
	EvalHandlers  EvalHandlerRegistry

	packageNameOf func(pluginID string) (string, bool)
}

// PackageName returns the declared package name of any registered plugin
// (service tier can introspect siblings; spec.md §4.2).
func (s ServiceContext) PackageName(pluginID string) (string, bool) {
	if s.packageNameOf == nil {
		return "", false
	}
	return s.packageNameOf(pluginID)
}

// RegisterTemplate registers tpl under "pluginId:name".
func (s ServiceContext) RegisterTemplate(registry *templates.Registry, tpl templates.Template) error {
	return registry.Register(s.PluginID, tpl)
}

// NewServiceContext builds the service tier for pluginID.
func NewServiceContext(pluginID string, svc Services, packageNameOf func(string) (string, bool)) ServiceContext {
	return ServiceContext{
		CoreContext:   NewCoreContext(pluginID, svc),
		EntityWriter:  EntityWriter{entities: svc.Entities},
		Content:       ContentGeneration{ai: svc.AI},
		ContentRes:    ContentResolution{content: svc.Content},
		Jobs:          JobWriter{pluginID: pluginID, scheduler: svc.Jobs},
		ViewTemplates: svc.ViewTemplates,
		DataSources:   svc.DataSources,
		EvalHandlers:  svc.EvalHandlers,
		packageNameOf: packageNameOf,
	}
}

type unsupportedCapabilityError string

func (e unsupportedCapabilityError) Error() string {
	return "capability not supported: " + string(e)
}

func errUnsupportedCapability(name string) error {
	return unsupportedCapabilityError(name)
}
