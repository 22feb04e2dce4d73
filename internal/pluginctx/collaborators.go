// Package pluginctx assembles the three tier-specific Context facades
// plugins receive from register() (spec.md §4.2): core (read-only
// foundation), service (extends core with writes), and interface (extends
// core with transport/conversation writes). No single teacher file does
// three-tier capability scoping — the tiers come directly from spec.md —
// but the namespacing-prefix idiom is grounded on the teacher's
// "/api/plugins/{name}" and "plugin.{name}." prefixing conventions.
package pluginctx

import (
	"context"

	"github.com/rs/zerolog"
)

// EntityService is the external key-value / vector store collaborator
// (spec.md §1). Only its interface is defined here; no implementation
// ships in this module.
type EntityService interface {
	Get(ctx context.Context, entityType, id string) (map[string]any, bool, error)
	Query(ctx context.Context, entityType string, filter map[string]any) ([]map[string]any, error)
	Create(ctx context.Context, entityType string, data map[string]any) (string, error)
	Update(ctx context.Context, entityType, id string, data map[string]any) error
	Delete(ctx context.Context, entityType, id string) error
	RegisterType(ctx context.Context, entityType string, schema any, adapter any, config any) error
}

// AIService is the external language-model client collaborator.
type AIService interface {
	Query(ctx context.Context, prompt string) (string, error)
	GenerateContent(ctx context.Context, prompt string, opts map[string]any) (string, error)
	GenerateImage(ctx context.Context, prompt string, opts map[string]any) ([]byte, error)
	SupportsImageGeneration() bool
}

// ContentService is the external markdown template formatter collaborator.
type ContentService interface {
	Resolve(ctx context.Context, templateKey string, data map[string]any) (string, error)
	SupportsTemplate(templateKey string) bool
}

// MCPTransport is the external wire-transport collaborator interface
// plugins use to push progress notifications to MCP clients.
type MCPTransport interface {
	SendProgress(ctx context.Context, progressToken string, notification any) error
}

// ConversationStore is the external conversation persistence collaborator.
type ConversationStore interface {
	Start(ctx context.Context, interfaceType, channelID string) (conversationID string, err error)
	AddMessage(ctx context.Context, conversationID string, role, content string, metadata map[string]any) error
	Messages(ctx context.Context, conversationID string) ([]map[string]any, error)
}

// PermissionService is the external permission-level resolver collaborator.
type PermissionService interface {
	Resolve(ctx context.Context, userID string) (level string, err error)
}

// DataSourceRegistry accepts service-tier data source registrations;
// satisfied by whatever entity-adjacent store the shell wires in.
type DataSourceRegistry interface {
	RegisterDataSource(ctx context.Context, pluginID, name string, source any) error
}

// ViewTemplateRegistry is the read path for service-tier view-template
// lookups.
type ViewTemplateRegistry interface {
	ViewTemplate(name string) (any, bool)
}

// EvalHandlerRegistry is where service-tier plugins register handlers the
// evaluation harness can invoke by (pluginId, handlerId) (spec.md §6).
type EvalHandlerRegistry interface {
	RegisterHandler(pluginID, handlerID string, handler func(ctx context.Context, input map[string]any) (any, error))
}

// Logger is the narrow zerolog surface a Context exposes; kept as an alias
// rather than an interface because zerolog.Logger is already a concrete,
// cheaply-copyable value type.
type Logger = zerolog.Logger
