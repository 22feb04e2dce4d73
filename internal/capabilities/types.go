// Package capabilities defines the capability types a plugin's register()
// call returns: tools, resources, commands, and API routes (spec.md §3).
package capabilities

import (
	"context"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Visibility controls who may invoke a Tool. Anchor is the default — only
// tools explicitly marked Public are callable by unauthenticated callers.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityTrusted Visibility = "trusted"
	VisibilityAnchor  Visibility = "anchor"
)

// ToolContext carries the routing triple a tool handler needs to hand
// progress back to its caller's interface and channel, plus the identity of
// the caller.
type ToolContext struct {
	InterfaceType string
	UserID        string
	ChannelID     string // empty means background / no channel
	ProgressToken string
	SendProgress  func(ctx context.Context, notification any) error
}

// ToolResponse is what a tool handler returns.
type ToolResponse struct {
	Success bool
	Result  any
	Error   string
}

// Tool is a named, schema-validated callable exposed to external protocols.
// Name is stamped with "pluginId_" by the capability registrar if the
// plugin didn't already supply that prefix (spec.md §3 invariant,
// enforced in internal/capreg.Registrar.registerOneTool).
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     func(ctx context.Context, input map[string]any, tc ToolContext) (ToolResponse, error)
	Visibility  Visibility
}

// Resource is a named, URI-addressed content provider. URI is stamped with
// "pluginId_" by the capability registrar the same way Tool.Name is
// (internal/capreg.Registrar.registerResources).
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
	Handler     func(ctx context.Context) (ResourceContents, error)
}

// ResourceContents is the payload a Resource handler returns.
type ResourceContents struct {
	Contents []ResourceContent
}

// ResourceContent is one item of a resource's contents.
type ResourceContent struct {
	URI      string
	MimeType string
	Text     string
	Blob     []byte
}

// CommandContext carries caller identity for a command invocation.
type CommandContext struct {
	InterfaceType string
	UserID        string
	ChannelID     string
}

// CommandResponseType discriminates the tagged variant CommandResponse
// carries (spec.md §3).
type CommandResponseType string

const (
	CommandResponseMessage        CommandResponseType = "message"
	CommandResponseJobOperation   CommandResponseType = "job-operation"
	CommandResponseBatchOperation CommandResponseType = "batch-operation"
)

// CommandResponse is the tagged-variant result of a Command handler.
type CommandResponse struct {
	Type           CommandResponseType
	Message        string
	JobID          string // set when Type == CommandResponseJobOperation
	BatchID        string // set when Type == CommandResponseBatchOperation
	OperationCount int    // set when Type == CommandResponseBatchOperation
}

// Command is a named, argument-taking handler invoked from a chat-style
// "/cmd args…" input (spec.md §4.6).
type Command struct {
	Name        string `validate:"required,lowercase"`
	Description string `validate:"omitempty,max=200"`
	Usage       string `validate:"omitempty,max=200"`
	Handler     func(ctx context.Context, args []string, cc CommandContext) (CommandResponse, error) `validate:"required"`
}

// HTTPMethod restricts an APIRoute to the methods spec.md §6 allows.
type HTTPMethod string

const (
	MethodGET    HTTPMethod = "GET"
	MethodPOST   HTTPMethod = "POST"
	MethodPUT    HTTPMethod = "PUT"
	MethodDELETE HTTPMethod = "DELETE"
)

// APIRoute is a plugin-declared HTTP route that a webserver interface binds
// by marshaling the request into the named tool invocation (spec.md §6).
type APIRoute struct {
	Path            string     `validate:"required,startswith=/"`
	Method          HTTPMethod `validate:"omitempty,oneof=GET POST PUT DELETE"` // defaults to MethodPOST if empty
	Tool            string     `validate:"required"`
	Public          bool
	SuccessRedirect string `validate:"omitempty,startswith=/"`
	ErrorRedirect   string `validate:"omitempty,startswith=/"`
}

// Capabilities is the bundle a plugin's register() call returns. Ownership
// transfers from the plugin into the shell's respective registries once the
// plugin manager hands it to the CapabilityRegistrar.
type Capabilities struct {
	Tools     []Tool
	Resources []Resource
	Commands  []Command
	APIRoutes []APIRoute
}
