package msginterface_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizom-ai/brains-sub000/internal/bus"
	"github.com/rizom-ai/brains-sub000/internal/capabilities"
	"github.com/rizom-ai/brains-sub000/internal/capreg"
	"github.com/rizom-ai/brains-sub000/internal/daemon"
	"github.com/rizom-ai/brains-sub000/internal/jobs"
	"github.com/rizom-ai/brains-sub000/internal/msginterface"
	"github.com/rizom-ai/brains-sub000/internal/pluginctx"
	"github.com/rizom-ai/brains-sub000/internal/progress"
	"github.com/rizom-ai/brains-sub000/internal/templates"
	"github.com/rizom-ai/brains-sub000/internal/testkit"
)

// scriptedAgent is a minimal pluginctx.AgentService fake: Responses maps a
// prompt to a canned reply, falling back to echoing the prompt. No
// testkit fake covers this collaborator since it's interface-tier-only.
type scriptedAgent struct {
	Responses map[string]string
}

func newScriptedAgent() *scriptedAgent {
	return &scriptedAgent{Responses: make(map[string]string)}
}

func (a *scriptedAgent) Query(ctx context.Context, conversationID, prompt string) (string, error) {
	if r, ok := a.Responses[prompt]; ok {
		return r, nil
	}
	return "echo: " + prompt, nil
}

// testRig assembles a real pluginctx.InterfaceContext from in-memory fakes,
// the same way pluginctx.Builder does for a live plugin, so Base.HandleInbound
// exercises the production wiring rather than a stand-in double.
type testRig struct {
	registrar *capreg.Registrar
	router    *progress.Router
	sender    *testkit.FakeSender
	agent     *scriptedAgent
	convos    *testkit.FakeConversationStore
	base      *msginterface.Base
}

func newTestRig(supportsEdit bool, hooks msginterface.Hooks) *testRig {
	b := bus.New()
	scheduler := jobs.NewScheduler(b)
	registrar := capreg.New(b)
	convos := testkit.NewFakeConversationStore()
	agent := newScriptedAgent()
	permissions := testkit.NewFakePermissionService("member")
	sender := testkit.NewFakeSender(supportsEdit)

	svc := pluginctx.Services{
		Bus:           b,
		Jobs:          scheduler,
		Daemons:       daemon.NewRegistry(),
		Recurring:     daemon.NewRecurringScheduler(),
		Templates:     templates.NewRegistry(),
		Routes:        registrar,
		Entities:      testkit.NewFakeEntityService(),
		AI:            testkit.NewFakeAIService(),
		Content:       testkit.NewFakeContentService(),
		MCP:           testkit.NewFakeMCPTransport(),
		Conversations: convos,
		Permissions:   permissions,
	}

	ic := pluginctx.NewInterfaceContext("webchat", svc, agent, func(string) []capreg.RegisteredRoute { return nil })
	router := progress.NewRouter("webchat", progress.NewMemoryStore(0), sender, nil)

	base := msginterface.NewBase("webchat", ic, registrar, router, sender, hooks)

	return &testRig{registrar: registrar, router: router, sender: sender, agent: agent, convos: convos, base: base}
}

func directPC(userID, text string) msginterface.PartialContext {
	return msginterface.PartialContext{
		Identity: msginterface.Identity{InterfaceType: "webchat", ChannelID: "dm:" + userID, UserID: userID},
	}
}

func TestHandleInbound_UndirectedChannelMessageIsStoredButNotAnswered(t *testing.T) {
	rig := newTestRig(false, nil)
	pc := msginterface.PartialContext{
		Identity: msginterface.Identity{InterfaceType: "webchat", ChannelID: "general", UserID: "alice"},
	}

	err := rig.base.HandleInbound(context.Background(), "just chatting", pc)
	require.NoError(t, err)
	assert.Empty(t, rig.sender.Sent, "undirected messages must not produce a reply")
}

func TestHandleInbound_DirectMessageRoutesToAgent(t *testing.T) {
	rig := newTestRig(false, nil)
	rig.agent.Responses["hello there"] = "hi alice"

	err := rig.base.HandleInbound(context.Background(), "hello there", directPC("alice", "hello there"))
	require.NoError(t, err)

	require.Len(t, rig.sender.Sent, 1)
	assert.Equal(t, "hi alice", rig.sender.Sent[0].Text)
}

func TestHandleInbound_MentionInSharedChannelIsDirected(t *testing.T) {
	rig := newTestRig(false, nil)
	rig.agent.Responses["@webchat what time is it"] = "noon"
	pc := msginterface.PartialContext{
		Identity: msginterface.Identity{InterfaceType: "webchat", ChannelID: "general", UserID: "alice"},
	}

	err := rig.base.HandleInbound(context.Background(), "@webchat what time is it", pc)
	require.NoError(t, err)
	require.Len(t, rig.sender.Sent, 1)
	assert.Equal(t, "noon", rig.sender.Sent[0].Text)
}

func TestHandleInbound_HelpCommandListsRegisteredCommands(t *testing.T) {
	rig := newTestRig(false, nil)
	require.NoError(t, rig.registrar.Register(context.Background(), "notes", capabilities.Capabilities{
		Commands: []capabilities.Command{{
			Name:        "list",
			Description: "list notes",
			Usage:       "[tag]",
			Handler: func(ctx context.Context, args []string, cc capabilities.CommandContext) (capabilities.CommandResponse, error) {
				return capabilities.CommandResponse{Type: capabilities.CommandResponseMessage, Message: "no notes"}, nil
			},
		}},
	}))

	err := rig.base.HandleInbound(context.Background(), "/help", directPC("alice", "/help"))
	require.NoError(t, err)
	require.Len(t, rig.sender.Sent, 1)
	assert.Contains(t, rig.sender.Sent[0].Text, "/list")
	assert.Contains(t, rig.sender.Sent[0].Text, "list notes")
}

func TestHandleInbound_RegisteredCommandInvokesHandler(t *testing.T) {
	rig := newTestRig(false, nil)
	require.NoError(t, rig.registrar.Register(context.Background(), "notes", capabilities.Capabilities{
		Commands: []capabilities.Command{{
			Name: "list",
			Handler: func(ctx context.Context, args []string, cc capabilities.CommandContext) (capabilities.CommandResponse, error) {
				return capabilities.CommandResponse{Type: capabilities.CommandResponseMessage, Message: "3 notes found"}, nil
			},
		}},
	}))

	err := rig.base.HandleInbound(context.Background(), "/list", directPC("alice", "/list"))
	require.NoError(t, err)
	require.Len(t, rig.sender.Sent, 1)
	assert.Equal(t, "3 notes found", rig.sender.Sent[0].Text)
}

func TestHandleInbound_UnknownCommandRepliesWithError(t *testing.T) {
	rig := newTestRig(false, nil)

	err := rig.base.HandleInbound(context.Background(), "/bogus", directPC("alice", "/bogus"))
	require.NoError(t, err)
	require.Len(t, rig.sender.Sent, 1)
	assert.Contains(t, rig.sender.Sent[0].Text, "error")
}

func TestHandleInbound_StoresUserAndAssistantMessages(t *testing.T) {
	rig := newTestRig(false, nil)
	rig.agent.Responses["hi"] = "hello"

	require.NoError(t, rig.base.HandleInbound(context.Background(), "hi", directPC("alice", "hi")))

	convID, err := rig.convos.Start(context.Background(), "webchat", "dm:alice")
	require.NoError(t, err)
	msgs, err := rig.convos.Messages(context.Background(), convID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0]["role"])
	assert.Equal(t, "assistant", msgs[1]["role"])
}

func TestHandleInbound_ConfirmedReplyInvokesPendingTool(t *testing.T) {
	rig := newTestRig(false, nil)
	invoked := false
	require.NoError(t, rig.registrar.Register(context.Background(), "notes", capabilities.Capabilities{
		Tools: []capabilities.Tool{{
			Name: "notes_delete",
			Handler: func(ctx context.Context, input map[string]any, tc capabilities.ToolContext) (capabilities.ToolResponse, error) {
				invoked = true
				return capabilities.ToolResponse{Success: true, Result: "deleted"}, nil
			},
		}},
	}))

	convID, err := rig.convos.Start(context.Background(), "webchat", "dm:alice")
	require.NoError(t, err)
	rig.base.Confirms.Set(convID, progress.PendingConfirmation{ToolName: "notes_delete", Args: map[string]any{}})

	err = rig.base.HandleInbound(context.Background(), "yes", directPC("alice", "yes"))
	require.NoError(t, err)
	assert.True(t, invoked)
	require.Len(t, rig.sender.Sent, 1)
	assert.Equal(t, "deleted", rig.sender.Sent[0].Text)

	_, stillPending := rig.base.Confirms.Get(convID)
	assert.False(t, stillPending)
}

func TestHandleInbound_DeclinedReplyCancelsWithoutInvokingTool(t *testing.T) {
	rig := newTestRig(false, nil)
	invoked := false
	require.NoError(t, rig.registrar.Register(context.Background(), "notes", capabilities.Capabilities{
		Tools: []capabilities.Tool{{
			Name: "notes_delete",
			Handler: func(ctx context.Context, input map[string]any, tc capabilities.ToolContext) (capabilities.ToolResponse, error) {
				invoked = true
				return capabilities.ToolResponse{Success: true}, nil
			},
		}},
	}))

	convID, err := rig.convos.Start(context.Background(), "webchat", "dm:alice")
	require.NoError(t, err)
	rig.base.Confirms.Set(convID, progress.PendingConfirmation{ToolName: "notes_delete"})

	err = rig.base.HandleInbound(context.Background(), "no", directPC("alice", "no"))
	require.NoError(t, err)
	assert.False(t, invoked)
	require.Len(t, rig.sender.Sent, 1)
	assert.Contains(t, rig.sender.Sent[0].Text, "cancelled notes_delete")
}

func TestHandleInbound_UnrecognizedReplyClearsPendingAndFallsThroughToQuery(t *testing.T) {
	rig := newTestRig(false, nil)
	rig.agent.Responses["actually tell me a joke"] = "why did the chicken cross the road"
	require.NoError(t, rig.registrar.Register(context.Background(), "notes", capabilities.Capabilities{
		Tools: []capabilities.Tool{{
			Name:    "notes_delete",
			Handler: func(ctx context.Context, input map[string]any, tc capabilities.ToolContext) (capabilities.ToolResponse, error) { return capabilities.ToolResponse{}, nil },
		}},
	}))

	convID, err := rig.convos.Start(context.Background(), "webchat", "dm:alice")
	require.NoError(t, err)
	rig.base.Confirms.Set(convID, progress.PendingConfirmation{ToolName: "notes_delete"})

	err = rig.base.HandleInbound(context.Background(), "actually tell me a joke", directPC("alice", "actually tell me a joke"))
	require.NoError(t, err)

	_, stillPending := rig.base.Confirms.Get(convID)
	assert.False(t, stillPending, "an unrecognized reply must clear the pending confirmation")

	require.Len(t, rig.sender.Sent, 1)
	assert.Equal(t, "why did the chicken cross the road", rig.sender.Sent[0].Text)
}
