package pluginctx

import (
	"github.com/rizom-ai/brains-sub000/internal/bus"
	"github.com/rizom-ai/brains-sub000/internal/capreg"
	"github.com/rizom-ai/brains-sub000/internal/daemon"
	"github.com/rizom-ai/brains-sub000/internal/jobs"
	"github.com/rizom-ai/brains-sub000/internal/templates"
)

// Services aggregates every shell-owned dependency a Context needs. The
// shell constructs one Services value at startup and passes it to a
// Builder; tests construct their own Services from fakes instead (see
// internal/testkit).
type Services struct {
	Bus         *bus.Bus
	Jobs        *jobs.Scheduler
	Daemons     *daemon.Registry
	Recurring   *daemon.RecurringScheduler
	Templates   *templates.Registry
	Routes      *capreg.Registrar
	DataDir     string

	Entities      EntityService
	AI            AIService
	Content       ContentService
	MCP           MCPTransport
	Conversations ConversationStore
	Permissions   PermissionService
	EvalHandlers  EvalHandlerRegistry
	DataSources   DataSourceRegistry
	ViewTemplates ViewTemplateRegistry
}
