package msginterface

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rizom-ai/brains-sub000/internal/apperrors"
	"github.com/rizom-ai/brains-sub000/internal/capabilities"
	"github.com/rizom-ai/brains-sub000/internal/capreg"
	"github.com/rizom-ai/brains-sub000/internal/pluginctx"
	"github.com/rizom-ai/brains-sub000/internal/progress"
)

// Base implements the message-based interface input pipeline (spec.md
// §4.6) shared by every chat-like transport plugin. A transport embeds
// Base and calls HandleInbound per incoming message; it supplies Sender
// (how to actually push text to the platform) and, optionally, Hooks to
// override shouldRespond/thinking/done.
type Base struct {
	PluginID string
	Hooks    Hooks

	Interface pluginctx.InterfaceContext
	Registrar *capreg.Registrar
	Router    *progress.Router
	Confirms  *progress.ConfirmationStore
	Sender    progress.Sender

	mu            sync.Mutex
	conversations map[string]string // channelID -> conversationID
}

// NewBase wires a Base for pluginID. hooks may be nil, in which case
// DefaultHooks{} is used.
func NewBase(pluginID string, ic pluginctx.InterfaceContext, registrar *capreg.Registrar, router *progress.Router, sender progress.Sender, hooks Hooks) *Base {
	if hooks == nil {
		hooks = DefaultHooks{BotNames: []string{pluginID}}
	}
	return &Base{
		PluginID:      pluginID,
		Hooks:         hooks,
		Interface:     ic,
		Registrar:     registrar,
		Router:        router,
		Confirms:      progress.NewConfirmationStore(),
		Sender:        sender,
		conversations: make(map[string]string),
	}
}

// Normalize turns a PartialContext into a full MessageContext: resolves
// the permission level and ensures a conversation exists for this channel,
// starting one the first time the channel is seen (spec.md §4.6 steps
// 1-2).
func (b *Base) Normalize(ctx context.Context, pc PartialContext) (MessageContext, error) {
	level := ""
	if b.Interface.Permissions != nil {
		resolved, err := b.Interface.Permissions.Resolve(ctx, pc.UserID)
		if err != nil {
			return MessageContext{}, apperrors.Wrap(apperrors.ErrCodeContext, "resolve permission level", err)
		}
		level = resolved
	}

	convID, err := b.ensureConversation(ctx, pc.InterfaceType, pc.ChannelID)
	if err != nil {
		return MessageContext{}, err
	}

	return MessageContext{
		Identity:        pc.Identity,
		Timestamp:       nowFn(),
		PermissionLevel: level,
		ConversationID:  convID,
	}, nil
}

func (b *Base) ensureConversation(ctx context.Context, interfaceType, channelID string) (string, error) {
	b.mu.Lock()
	if id, ok := b.conversations[channelID]; ok {
		b.mu.Unlock()
		return id, nil
	}
	b.mu.Unlock()

	id, err := b.Interface.Conversations.Start(ctx, interfaceType, channelID)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeContext, "start conversation", err)
	}

	b.mu.Lock()
	b.conversations[channelID] = id
	b.mu.Unlock()
	return id, nil
}

// HandleInbound runs the full input pipeline for one inbound message
// (spec.md §4.6 steps 1-8): normalize, store, route (confirmation / command
// / AI query), respond, track, and flush.
func (b *Base) HandleInbound(ctx context.Context, text string, pc PartialContext) error {
	mc, err := b.Normalize(ctx, pc)
	if err != nil {
		return err
	}

	msg := InboundMessage{Text: text, Context: mc}
	directed := b.Hooks.ShouldRespond(msg)

	if err := b.Interface.Conversations.AddMessage(ctx, mc.ConversationID, "user", text, map[string]any{
		"directed": directed,
	}); err != nil {
		b.Interface.Logger.Warn().Err(err).Msg("failed to store inbound message")
	}

	if !directed {
		return nil
	}

	b.Hooks.ShowThinking(ctx, mc)
	b.Router.StartProcessingInput(mc.ChannelID)
	defer b.Router.EndProcessingInput(ctx)

	if handled, herr := b.tryConfirmation(ctx, mc, text); handled {
		return herr
	}

	reply, jobID, batchID, err := b.route(ctx, mc, text)
	if err != nil {
		reply = fmt.Sprintf("error: %v", err)
	}

	messageID, sendErr := b.Sender.SendMessage(ctx, mc.ChannelID, reply)
	if sendErr != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "send response", sendErr)
	}

	if jobID != "" {
		b.Router.TrackAgentResponse(messageID, mc.ChannelID, jobID)
	}
	if batchID != "" {
		b.Router.TrackAgentResponse(messageID, mc.ChannelID, batchID)
	}

	if err := b.Interface.Conversations.AddMessage(ctx, mc.ConversationID, "assistant", reply, nil); err != nil {
		b.Interface.Logger.Warn().Err(err).Msg("failed to store assistant message")
	}
	b.Hooks.ShowDone(ctx, mc)
	return nil
}

// tryConfirmation implements spec.md §4.6's confirmation-tracking flow: if
// a pending confirmation exists for this conversation, parse the reply; a
// recognized reply routes to the stored tool and is considered fully
// handled, an unrecognized one clears the pending confirmation and falls
// through to normal routing.
func (b *Base) tryConfirmation(ctx context.Context, mc MessageContext, text string) (handled bool, err error) {
	pending, ok := b.Confirms.Get(mc.ConversationID)
	if !ok {
		return false, nil
	}

	result := ParseConfirmationResponse(text)
	if result == nil {
		b.Confirms.Clear(mc.ConversationID)
		return false, nil
	}

	b.Confirms.Clear(mc.ConversationID)
	if !result.Confirmed {
		reply := fmt.Sprintf("cancelled %s", pending.ToolName)
		_, _ = b.Sender.SendMessage(ctx, mc.ChannelID, reply)
		return true, nil
	}

	resp, invokeErr := b.invokeTool(ctx, pending, mc)
	reply := resp.Result
	if invokeErr != nil || !resp.Success {
		reply = fmt.Sprintf("error: %v", coalesce(invokeErr, resp.Error))
	}
	_, sendErr := b.Sender.SendMessage(ctx, mc.ChannelID, fmt.Sprintf("%v", reply))
	return true, sendErr
}

func (b *Base) invokeTool(ctx context.Context, pending progress.PendingConfirmation, mc MessageContext) (capabilities.ToolResponse, error) {
	tool, ok := b.Registrar.Tool(pending.ToolName)
	if !ok {
		return capabilities.ToolResponse{}, apperrors.NotFound("tool " + pending.ToolName)
	}
	tc := capabilities.ToolContext{
		InterfaceType: mc.InterfaceType,
		UserID:        mc.UserID,
		ChannelID:     mc.ChannelID,
	}
	return tool.Handler(ctx, pending.Args, tc)
}

// route dispatches a directed message to the command registry or the
// agent, per spec.md §4.6 step 6.
func (b *Base) route(ctx context.Context, mc MessageContext, text string) (reply, jobID, batchID string, err error) {
	if name, args, ok := IsCommand(text); ok {
		return b.routeCommand(ctx, mc, name, args)
	}
	return b.routeQuery(ctx, mc, text)
}

func (b *Base) routeCommand(ctx context.Context, mc MessageContext, name string, args []string) (string, string, string, error) {
	if name == "help" {
		return b.helpText(), "", "", nil
	}

	cmd, ok := b.Registrar.Command(name)
	if !ok {
		return "", "", "", apperrors.NotFound("command " + name)
	}

	resp, err := cmd.Handler(ctx, args, capabilities.CommandContext{
		InterfaceType: mc.InterfaceType,
		UserID:        mc.UserID,
		ChannelID:     mc.ChannelID,
	})
	if err != nil {
		return "", "", "", err
	}

	switch resp.Type {
	case capabilities.CommandResponseJobOperation:
		return resp.Message, resp.JobID, "", nil
	case capabilities.CommandResponseBatchOperation:
		return resp.Message, "", resp.BatchID, nil
	default:
		return resp.Message, "", "", nil
	}
}

func (b *Base) routeQuery(ctx context.Context, mc MessageContext, text string) (string, string, string, error) {
	if b.Interface.Agent == nil {
		return "", "", "", apperrors.Internal("no agent service configured")
	}
	reply, err := b.Interface.Agent.Query(ctx, mc.ConversationID, text)
	return reply, "", "", err
}

func (b *Base) helpText() string {
	cmds := b.Registrar.Commands()
	lines := make([]string, 0, len(cmds)+1)
	lines = append(lines, "available commands:")
	for _, c := range cmds {
		lines = append(lines, fmt.Sprintf("/%s %s - %s", c.Name, c.Usage, c.Description))
	}
	return strings.Join(lines, "\n")
}

func coalesce(err error, msg string) any {
	if err != nil {
		return err
	}
	return msg
}

var nowFn = defaultNow
