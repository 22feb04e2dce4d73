package capreg_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizom-ai/brains-sub000/internal/bus"
	"github.com/rizom-ai/brains-sub000/internal/capabilities"
	"github.com/rizom-ai/brains-sub000/internal/capreg"
)

func noopCommandHandler(ctx context.Context, args []string, cc capabilities.CommandContext) (capabilities.CommandResponse, error) {
	return capabilities.CommandResponse{Type: capabilities.CommandResponseMessage}, nil
}

func TestRegister_ToolsResourcesCommandsRoutes(t *testing.T) {
	r := capreg.New(bus.New())

	caps := capabilities.Capabilities{
		Tools: []capabilities.Tool{
			{Name: "notes_list", Handler: func(ctx context.Context, input map[string]any, tc capabilities.ToolContext) (capabilities.ToolResponse, error) {
				return capabilities.ToolResponse{Success: true}, nil
			}},
		},
		Resources: []capabilities.Resource{
			{URI: "notes_all", Handler: func(ctx context.Context) (capabilities.ResourceContents, error) {
				return capabilities.ResourceContents{}, nil
			}},
		},
		Commands: []capabilities.Command{
			{Name: "notes", Handler: noopCommandHandler},
		},
		APIRoutes: []capabilities.APIRoute{
			{Path: "/notes", Tool: "notes-plugin_notes_list"},
		},
	}

	require.NoError(t, r.Register(context.Background(), "notes-plugin", caps))

	tool, ok := r.Tool("notes-plugin_notes_list")
	assert.True(t, ok, "tool name must be stamped with the plugin id prefix")
	assert.Equal(t, "notes-plugin_notes_list", tool.Name)
	res, ok := r.Resource("notes-plugin_notes_all")
	assert.True(t, ok, "resource URI must be stamped with the plugin id prefix")
	assert.Equal(t, "notes-plugin_notes_all", res.URI)
	_, ok = r.Command("notes")
	assert.True(t, ok)

	routes := r.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, "/api/notes-plugin/notes", routes[0].FullPath)
	assert.Equal(t, capabilities.MethodPOST, routes[0].Definition.Method, "empty Method defaults to POST")
}

func TestRegister_InvalidRouteSkippedSiblingsSurvive(t *testing.T) {
	r := capreg.New(bus.New())

	caps := capabilities.Capabilities{
		APIRoutes: []capabilities.APIRoute{
			{Path: "missing-leading-slash", Tool: "x"}, // invalid: fails startswith=/
			{Path: "/valid", Tool: "x"},
		},
	}

	require.NoError(t, r.Register(context.Background(), "plugin-a", caps))

	routes := r.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, "/api/plugin-a/valid", routes[0].FullPath)
}

func TestRegister_InvalidCommandSkippedSiblingsSurvive(t *testing.T) {
	r := capreg.New(bus.New())

	caps := capabilities.Capabilities{
		Commands: []capabilities.Command{
			{Name: "Bad-Name", Handler: noopCommandHandler}, // invalid: fails lowercase
			{Name: "good", Handler: noopCommandHandler},
		},
	}

	require.NoError(t, r.Register(context.Background(), "plugin-a", caps))

	_, ok := r.Command("Bad-Name")
	assert.False(t, ok)
	_, ok = r.Command("good")
	assert.True(t, ok)
}

// TestRegister_ToolNameAutoprefixedWithPluginID exercises spec.md §8
// invariant #3 ("emitted tool name starts with p.id + '_'"), the same
// invariant pluginctx.EnqueueJob's autoscope tests exercise for job types.
func TestRegister_ToolNameAutoprefixedWithPluginID(t *testing.T) {
	r := capreg.New(bus.New())
	tool := capabilities.Tool{Name: "delete", Handler: func(ctx context.Context, input map[string]any, tc capabilities.ToolContext) (capabilities.ToolResponse, error) {
		return capabilities.ToolResponse{}, nil
	}}

	require.NoError(t, r.Register(context.Background(), "notes", capabilities.Capabilities{Tools: []capabilities.Tool{tool}}))

	_, ok := r.Tool("delete")
	assert.False(t, ok, "an unscoped tool name must never reach the registry unprefixed")
	got, ok := r.Tool("notes_delete")
	require.True(t, ok)
	assert.Equal(t, "notes_delete", got.Name)
}

// TestRegister_ResourceURIAutoprefixedWithPluginID is the Resource-side
// counterpart of TestRegister_ToolNameAutoprefixedWithPluginID.
func TestRegister_ResourceURIAutoprefixedWithPluginID(t *testing.T) {
	r := capreg.New(bus.New())
	res := capabilities.Resource{URI: "all", Handler: func(ctx context.Context) (capabilities.ResourceContents, error) {
		return capabilities.ResourceContents{}, nil
	}}

	require.NoError(t, r.Register(context.Background(), "notes", capabilities.Capabilities{Resources: []capabilities.Resource{res}}))

	_, ok := r.Resource("all")
	assert.False(t, ok, "an unscoped resource URI must never reach the registry unprefixed")
	got, ok := r.Resource("notes_all")
	require.True(t, ok)
	assert.Equal(t, "notes_all", got.URI)
}

func TestRegister_DuplicateToolNameRejected(t *testing.T) {
	r := capreg.New(bus.New())
	tool := capabilities.Tool{Name: "dup_tool", Handler: func(ctx context.Context, input map[string]any, tc capabilities.ToolContext) (capabilities.ToolResponse, error) {
		return capabilities.ToolResponse{}, nil
	}}

	// Both registrations are owned by the same plugin, so stamping produces
	// the same fully-scoped name both times — the second is the duplicate
	// this test exercises.
	require.NoError(t, r.Register(context.Background(), "plugin-a", capabilities.Capabilities{Tools: []capabilities.Tool{tool}}))
	require.NoError(t, r.Register(context.Background(), "plugin-a", capabilities.Capabilities{Tools: []capabilities.Tool{tool}}))

	got, ok := r.Tool("plugin-a_dup_tool")
	require.True(t, ok)
	assert.Equal(t, "plugin-a_dup_tool", got.Name) // first registration wins, second is rejected
}

func TestRegister_ToolNameAlreadyPrefixedIsNotDoubleStamped(t *testing.T) {
	r := capreg.New(bus.New())
	tool := capabilities.Tool{Name: "plugin-a_already_scoped", Handler: func(ctx context.Context, input map[string]any, tc capabilities.ToolContext) (capabilities.ToolResponse, error) {
		return capabilities.ToolResponse{}, nil
	}}

	require.NoError(t, r.Register(context.Background(), "plugin-a", capabilities.Capabilities{Tools: []capabilities.Tool{tool}}))

	_, ok := r.Tool("plugin-a_already_scoped")
	assert.True(t, ok)
	_, ok = r.Tool("plugin-a_plugin-a_already_scoped")
	assert.False(t, ok, "an already-prefixed name must not be stamped twice")
}

func TestUnregisterAll_RemovesOnlyOwnedCapabilities(t *testing.T) {
	r := capreg.New(bus.New())

	caps := capabilities.Capabilities{
		Tools: []capabilities.Tool{
			{Name: "tool", Handler: func(ctx context.Context, input map[string]any, tc capabilities.ToolContext) (capabilities.ToolResponse, error) {
				return capabilities.ToolResponse{}, nil
			}},
		},
		Commands: []capabilities.Command{{Name: "plugina", Handler: noopCommandHandler}},
		APIRoutes: []capabilities.APIRoute{
			{Path: "/x", Tool: "plugin-a_tool"},
		},
	}
	otherCaps := capabilities.Capabilities{
		Tools: []capabilities.Tool{
			{Name: "tool", Handler: func(ctx context.Context, input map[string]any, tc capabilities.ToolContext) (capabilities.ToolResponse, error) {
				return capabilities.ToolResponse{}, nil
			}},
		},
	}

	require.NoError(t, r.Register(context.Background(), "plugin-a", caps))
	require.NoError(t, r.Register(context.Background(), "plugin-b", otherCaps))

	r.UnregisterAll("plugin-a")

	_, ok := r.Tool("plugin-a_tool")
	assert.False(t, ok)
	_, ok = r.Tool("plugin-b_tool")
	assert.True(t, ok, "unrelated plugin's capabilities must survive another plugin's UnregisterAll")

	assert.Empty(t, r.Routes())
}

func TestRegister_PublishesToolRegisterNotice(t *testing.T) {
	b := bus.New()
	r := capreg.New(b)

	received := make(chan map[string]any, 1)
	b.Subscribe(capreg.ChannelToolRegister, "test", func(ctx context.Context, msg bus.Message) *bus.Response {
		payload, _ := msg.Payload.(map[string]any)
		received <- payload
		return nil
	})

	caps := capabilities.Capabilities{
		Tools: []capabilities.Tool{
			{Name: "announced_tool", Handler: func(ctx context.Context, input map[string]any, tc capabilities.ToolContext) (capabilities.ToolResponse, error) {
				return capabilities.ToolResponse{}, nil
			}},
		},
	}
	require.NoError(t, r.Register(context.Background(), "plugin-a", caps))

	select {
	case payload := <-received:
		assert.Equal(t, "plugin-a", payload["pluginId"])
		assert.Equal(t, "plugin-a_announced_tool", payload["tool"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tool registration notice")
	}
}
